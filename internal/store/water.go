package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// InsertWater adds a water body (reference data import).
func (s *Store) InsertWater(ctx context.Context, w *WaterBody, now int64) error {
	if w.CreatedAt == 0 {
		w.CreatedAt = now
	}
	if w.WaterType == "" {
		w.WaterType = "river"
	}
	species, err := json.Marshal(w.Species)
	if err != nil {
		return fmt.Errorf("marshal species: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO water_bodies (id, name, water_type, state, lat, lon, species_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.WaterType, w.State, w.Lat, w.Lon, string(species), w.CreatedAt)
	return err
}

// GetWater retrieves a water body by ID.
func (s *Store) GetWater(ctx context.Context, id string) (*WaterBody, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, name, water_type, state, lat, lon, species_json, created_at
		FROM water_bodies WHERE id = ?`, id)
	return scanWater(row.Scan)
}

// GetWaterByName retrieves a water body by exact name match.
func (s *Store) GetWaterByName(ctx context.Context, name string) (*WaterBody, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, name, water_type, state, lat, lon, species_json, created_at
		FROM water_bodies WHERE name = ? LIMIT 1`, name)
	return scanWater(row.Scan)
}

// ListWaters returns all water bodies ordered by name.
func (s *Store) ListWaters(ctx context.Context) ([]*WaterBody, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, water_type, state, lat, lon, species_json, created_at
		FROM water_bodies ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var waters []*WaterBody
	for rows.Next() {
		w, err := scanWater(rows.Scan)
		if err != nil {
			return nil, err
		}
		waters = append(waters, w)
	}
	return waters, rows.Err()
}

func scanWater(scan func(...any) error) (*WaterBody, error) {
	var w WaterBody
	var speciesJSON string
	err := scan(&w.ID, &w.Name, &w.WaterType, &w.State, &w.Lat, &w.Lon, &speciesJSON, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(speciesJSON), &w.Species); err != nil {
		return nil, fmt.Errorf("unmarshal species for %s: %w", w.ID, err)
	}
	return &w, nil
}
