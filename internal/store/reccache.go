package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// GetRecommendations returns the cached recommendation set for
// (waterBodyID, date), or nil on a miss. A row whose expires_at has passed
// is a miss even if present. Concurrent callers that both miss may each
// regenerate; the upsert in PutRecommendations makes that convergent.
func (s *Store) GetRecommendations(ctx context.Context, waterBodyID, date string, now int64) (*RecommendationSet, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT water_body_id, rec_date, recommendations_json, conditions_summary,
		report_json, created_at, expires_at
		FROM recommendation_cache
		WHERE water_body_id = ? AND rec_date = ? AND expires_at > ?`,
		waterBodyID, date, now)

	var set RecommendationSet
	var recsJSON string
	var reportJSON sql.NullString
	err := row.Scan(&set.WaterBodyID, &set.Date, &recsJSON, &set.ConditionsSummary,
		&reportJSON, &set.CreatedAt, &set.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(recsJSON), &set.Recommendations); err != nil {
		return nil, fmt.Errorf("unmarshal recommendations: %w", err)
	}
	if reportJSON.Valid && reportJSON.String != "" {
		var report FishingReport
		if err := json.Unmarshal([]byte(reportJSON.String), &report); err != nil {
			return nil, fmt.Errorf("unmarshal cached report: %w", err)
		}
		set.Report = &report
	}
	return &set, nil
}

// PutRecommendations upserts a recommendation set on its (water, day) key.
func (s *Store) PutRecommendations(ctx context.Context, set *RecommendationSet) error {
	recs, err := json.Marshal(set.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}
	var reportJSON any
	if set.Report != nil {
		raw, err := json.Marshal(set.Report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		reportJSON = string(raw)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO recommendation_cache (water_body_id, rec_date,
		recommendations_json, conditions_summary, report_json, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(water_body_id, rec_date) DO UPDATE SET
		recommendations_json = excluded.recommendations_json,
		conditions_summary = excluded.conditions_summary,
		report_json = excluded.report_json,
		created_at = excluded.created_at,
		expires_at = excluded.expires_at`,
		set.WaterBodyID, set.Date, string(recs), set.ConditionsSummary,
		reportJSON, set.CreatedAt, set.ExpiresAt)
	return err
}

// DeleteExpiredRecommendations removes cache rows past their expiry.
func (s *Store) DeleteExpiredRecommendations(ctx context.Context, now int64) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM recommendation_cache WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
