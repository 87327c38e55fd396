package memory

// Schema is the learning-cache schema. One row per
// (platform, account, method) triple, created lazily on first attempt.
// Counters are monotonically non-decreasing for the lifetime of the file.
// Columns we don't know about are left alone by every statement here, so a
// file written by a newer build stays readable.
const Schema = `
CREATE TABLE IF NOT EXISTS method_stats (
    platform         TEXT NOT NULL,
    account          TEXT NOT NULL,
    method           TEXT NOT NULL,
    attempt_count    INTEGER NOT NULL DEFAULT 0,
    success_count    INTEGER NOT NULL DEFAULT 0,
    total_latency_ms INTEGER NOT NULL DEFAULT 0,
    total_yield      INTEGER NOT NULL DEFAULT 0,
    last_attempt_at  INTEGER NOT NULL DEFAULT 0,
    last_success_at  INTEGER NOT NULL DEFAULT 0,
    last_ok          INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (platform, account, method)
);
CREATE INDEX IF NOT EXISTS idx_method_stats_account ON method_stats(platform, account);
`
