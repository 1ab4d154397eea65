// CLAUDE:SUMMARY Shop source CRUD, coverage lookup, and the success/failure reliability state machine.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// InsertSource adds a shop source to the registry.
func (s *Store) InsertSource(ctx context.Context, src *ShopSource, now int64) error {
	if src.CreatedAt == 0 {
		src.CreatedAt = now
	}
	src.UpdatedAt = now
	waters, err := json.Marshal(src.Waters)
	if err != nil {
		return fmt.Errorf("marshal waters: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO shop_sources (id, name, website, reports_url, waters_json,
		active, consecutive_failures, last_success_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.Name, src.Website, src.ReportsURL, string(waters),
		src.Active, src.ConsecutiveFailures, nullableInt(src.LastSuccessAt),
		src.CreatedAt, src.UpdatedAt,
	)
	return err
}

// GetSource retrieves a shop source by ID.
func (s *Store) GetSource(ctx context.Context, id string) (*ShopSource, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, name, website, reports_url, waters_json, active,
		consecutive_failures, last_success_at, created_at, updated_at
		FROM shop_sources WHERE id = ?`, id)
	return scanSource(row)
}

// ListSources returns all shop sources, newest first.
func (s *Store) ListSources(ctx context.Context) ([]*ShopSource, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, website, reports_url, waters_json, active,
		consecutive_failures, last_success_at, created_at, updated_at
		FROM shop_sources ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*ShopSource
	for rows.Next() {
		src, err := scanSourceRows(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// DeleteSource removes a shop source.
func (s *Store) DeleteSource(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM shop_sources WHERE id = ?`, id)
	return err
}

// FindSourcesCovering returns active sources whose covered-waters set contains
// waterName. The match is exact and case-sensitive, as stored. Coverage lives
// in a JSON column, so the containment check happens here rather than in SQL.
func (s *Store) FindSourcesCovering(ctx context.Context, waterName string) ([]*ShopSource, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, website, reports_url, waters_json, active,
		consecutive_failures, last_success_at, created_at, updated_at
		FROM shop_sources WHERE active = 1 ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var covering []*ShopSource
	for rows.Next() {
		src, err := scanSourceRows(rows)
		if err != nil {
			return nil, err
		}
		for _, w := range src.Waters {
			if w == waterName {
				covering = append(covering, src)
				break
			}
		}
	}
	return covering, rows.Err()
}

// RecordSuccess resets a source's failure counter, reactivates it, and stamps
// the last successful scrape time.
func (s *Store) RecordSuccess(ctx context.Context, id string, now int64) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE shop_sources
		SET consecutive_failures = 0, active = 1, last_success_at = ?, updated_at = ?
		WHERE id = ?`, now, now, id)
	return err
}

// RecordFailure increments a source's failure counter and suspends it once
// the counter reaches MaxConsecutiveFailures. The increment and the
// deactivation decision happen in one UPDATE so concurrent recorders cannot
// observe a half-applied transition.
func (s *Store) RecordFailure(ctx context.Context, id string, now int64) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE shop_sources
		SET consecutive_failures = consecutive_failures + 1,
		    active = CASE WHEN consecutive_failures + 1 >= ? THEN 0 ELSE 1 END,
		    updated_at = ?
		WHERE id = ?`, MaxConsecutiveFailures, now, id)
	return err
}

func nullableInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func scanSource(row *sql.Row) (*ShopSource, error) {
	src, err := scanSourceFrom(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return src, err
}

func scanSourceRows(rows *sql.Rows) (*ShopSource, error) {
	return scanSourceFrom(rows.Scan)
}

func scanSourceFrom(scan func(...any) error) (*ShopSource, error) {
	var src ShopSource
	var watersJSON string
	var lastSuccess sql.NullInt64
	err := scan(&src.ID, &src.Name, &src.Website, &src.ReportsURL, &watersJSON,
		&src.Active, &src.ConsecutiveFailures, &lastSuccess,
		&src.CreatedAt, &src.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastSuccess.Valid {
		src.LastSuccessAt = lastSuccess.Int64
	}
	if err := json.Unmarshal([]byte(watersJSON), &src.Waters); err != nil {
		return nil, fmt.Errorf("unmarshal waters for %s: %w", src.ID, err)
	}
	return &src, nil
}
