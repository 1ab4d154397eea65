package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// UpsertFishingReport writes an aggregated report, overwriting wholesale any
// prior row for the same (water_body_id, report_date). Last writer wins; no
// partial merge with the previous cached value.
func (s *Store) UpsertFishingReport(ctx context.Context, r *FishingReport) error {
	sources, err := json.Marshal(r.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	flies, err := json.Marshal(r.Flies)
	if err != nil {
		return fmt.Errorf("marshal flies: %w", err)
	}
	conditions, err := json.Marshal(r.Conditions)
	if err != nil {
		return fmt.Errorf("marshal conditions: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO fishing_reports (water_body_id, report_date, source_name,
		sources_json, flies_json, conditions_json, effectiveness, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(water_body_id, report_date) DO UPDATE SET
		source_name = excluded.source_name,
		sources_json = excluded.sources_json,
		flies_json = excluded.flies_json,
		conditions_json = excluded.conditions_json,
		effectiveness = excluded.effectiveness,
		created_at = excluded.created_at,
		expires_at = excluded.expires_at`,
		r.WaterBodyID, r.ReportDate, r.SourceName, string(sources), string(flies),
		string(conditions), r.Effectiveness, r.CreatedAt, r.ExpiresAt)
	return err
}

// GetCurrentFishingReport returns the newest unexpired report for a water
// body, or nil. Expired rows are misses even if present.
func (s *Store) GetCurrentFishingReport(ctx context.Context, waterBodyID string, now int64) (*FishingReport, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT water_body_id, report_date, source_name, sources_json, flies_json,
		conditions_json, effectiveness, created_at, expires_at
		FROM fishing_reports
		WHERE water_body_id = ? AND expires_at > ?
		ORDER BY created_at DESC LIMIT 1`, waterBodyID, now)
	return scanFishingReport(row.Scan)
}

// DeleteExpiredReports removes report rows past their expiry. Returns the
// number of rows deleted.
func (s *Store) DeleteExpiredReports(ctx context.Context, now int64) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM fishing_reports WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanFishingReport(scan func(...any) error) (*FishingReport, error) {
	var r FishingReport
	var sourcesJSON, fliesJSON, conditionsJSON string
	err := scan(&r.WaterBodyID, &r.ReportDate, &r.SourceName, &sourcesJSON,
		&fliesJSON, &conditionsJSON, &r.Effectiveness, &r.CreatedAt, &r.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &r.Sources); err != nil {
		return nil, fmt.Errorf("unmarshal sources: %w", err)
	}
	if err := json.Unmarshal([]byte(fliesJSON), &r.Flies); err != nil {
		return nil, fmt.Errorf("unmarshal flies: %w", err)
	}
	if err := json.Unmarshal([]byte(conditionsJSON), &r.Conditions); err != nil {
		return nil, fmt.Errorf("unmarshal conditions: %w", err)
	}
	return &r, nil
}
