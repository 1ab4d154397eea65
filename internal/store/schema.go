package store

// Schema is the complete hatchwatch schema, applied idempotently at startup.
// All timestamps are Unix milliseconds.
const Schema = `
-- Water bodies: immutable reference data, seeded by import
CREATE TABLE IF NOT EXISTS water_bodies (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    water_type   TEXT NOT NULL DEFAULT 'river',
    state        TEXT NOT NULL DEFAULT '',
    lat          REAL NOT NULL DEFAULT 0,
    lon          REAL NOT NULL DEFAULT 0,
    species_json TEXT NOT NULL DEFAULT '[]',
    created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_water_bodies_name ON water_bodies(name);

-- Fly-shop sources: scraping targets with reliability tracking
CREATE TABLE IF NOT EXISTS shop_sources (
    id                   TEXT PRIMARY KEY,
    name                 TEXT NOT NULL,
    website              TEXT NOT NULL,
    reports_url          TEXT NOT NULL,
    waters_json          TEXT NOT NULL DEFAULT '[]',
    active               INTEGER NOT NULL DEFAULT 1,
    consecutive_failures INTEGER NOT NULL DEFAULT 0,
    last_success_at      INTEGER,
    created_at           INTEGER NOT NULL,
    updated_at           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_shop_sources_active ON shop_sources(active);

-- Aggregated fishing reports: one row per water body per report day, 3-day TTL
CREATE TABLE IF NOT EXISTS fishing_reports (
    water_body_id  TEXT NOT NULL,
    report_date    TEXT NOT NULL,
    source_name    TEXT NOT NULL,
    sources_json   TEXT NOT NULL DEFAULT '[]',
    flies_json     TEXT NOT NULL DEFAULT '[]',
    conditions_json TEXT NOT NULL DEFAULT '{}',
    effectiveness  TEXT NOT NULL DEFAULT '',
    created_at     INTEGER NOT NULL,
    expires_at     INTEGER NOT NULL,
    PRIMARY KEY (water_body_id, report_date)
);
CREATE INDEX IF NOT EXISTS idx_fishing_reports_expiry ON fishing_reports(expires_at);

-- Recommendation cache: one row per water body per day, 12-hour TTL
CREATE TABLE IF NOT EXISTS recommendation_cache (
    water_body_id        TEXT NOT NULL,
    rec_date             TEXT NOT NULL,
    recommendations_json TEXT NOT NULL DEFAULT '[]',
    conditions_summary   TEXT NOT NULL DEFAULT '',
    report_json          TEXT,
    created_at           INTEGER NOT NULL,
    expires_at           INTEGER NOT NULL,
    PRIMARY KEY (water_body_id, rec_date)
);
CREATE INDEX IF NOT EXISTS idx_recommendation_cache_expiry ON recommendation_cache(expires_at);
`
