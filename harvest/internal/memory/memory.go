// Package memory is the learning cache: per-(platform, account, method)
// performance statistics persisted in SQLite and used to rank extraction
// methods between runs.
package memory

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/toseeq44/automation-fb-sub002/dbopen"
)

// Stat is the persisted record for one (platform, account, method) triple.
type Stat struct {
	Platform string `json:"platform"`
	Account  string `json:"account"`
	Method   string `json:"method"`

	Attempts       int64 `json:"attempts"`
	Successes      int64 `json:"successes"`
	TotalLatencyMS int64 `json:"total_latency_ms"`
	TotalYield     int64 `json:"total_yield"`
	// Unix milliseconds; 0 means never.
	LastAttemptAt int64 `json:"last_attempt_at"`
	LastSuccessAt int64 `json:"last_success_at"`
	// LastOK records whether the most recent attempt succeeded.
	LastOK bool `json:"last_ok"`
}

// SuccessRate is successes over attempts, 0 for a never-attempted method.
func (s *Stat) SuccessRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Attempts)
}

// AvgLatencyMS is the mean latency across all attempts.
func (s *Stat) AvgLatencyMS() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.TotalLatencyMS) / float64(s.Attempts)
}

// AvgYield is the mean number of links per successful attempt.
func (s *Stat) AvgYield() float64 {
	if s.Successes == 0 {
		return 0
	}
	return float64(s.TotalYield) / float64(s.Successes)
}

// Cache is the durable statistics store. Every RecordOutcome is a single
// UPSERT with in-place increments, so concurrent runs touching the same key
// serialize inside SQLite and never observe a half-updated row.
type Cache struct {
	db  *sql.DB
	log *slog.Logger
	// degraded is set when the persisted file could not be opened and the
	// cache fell back to an in-memory database.
	degraded bool
}

// Open opens (or creates) the cache file. A corrupt or unopenable file
// degrades to an empty in-memory cache with a logged warning — ranking
// quality suffers but the run proceeds.
func Open(path string, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err == nil {
		return &Cache{db: db, log: log}
	}
	log.Warn("memory: cache unusable, starting empty", "path", path, "error", err)

	mem, memErr := dbopen.Open(":memory:", dbopen.WithSchema(Schema))
	if memErr != nil {
		// Should not happen; leave db nil and let every read return zeros.
		log.Error("memory: in-memory fallback failed", "error", memErr)
		return &Cache{log: log, degraded: true}
	}
	return &Cache{db: mem, log: log, degraded: true}
}

// NewWithDB wraps an already-opened database (tests). The schema must be
// applied by the caller or via dbopen.WithSchema.
func NewWithDB(db *sql.DB, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{db: db, log: log}
}

// Degraded reports whether the cache lost its backing file.
func (c *Cache) Degraded() bool { return c.degraded }

// Stats returns the record for a key, or a zeroed record when the key was
// never attempted. It never fails: read errors degrade to the zero record
// with a logged warning.
func (c *Cache) Stats(ctx context.Context, platform, account, method string) *Stat {
	zero := &Stat{Platform: platform, Account: account, Method: method}
	if c.db == nil {
		return zero
	}
	row := c.db.QueryRowContext(ctx,
		`SELECT attempt_count, success_count, total_latency_ms, total_yield,
		last_attempt_at, last_success_at, last_ok
		FROM method_stats WHERE platform = ? AND account = ? AND method = ?`,
		platform, account, method)

	var lastOK int
	err := row.Scan(&zero.Attempts, &zero.Successes, &zero.TotalLatencyMS,
		&zero.TotalYield, &zero.LastAttemptAt, &zero.LastSuccessAt, &lastOK)
	switch err {
	case nil:
		zero.LastOK = lastOK != 0
	case sql.ErrNoRows:
		// Lazily-created key: zero record is the contract.
	default:
		c.log.Warn("memory: stats read failed", "method", method, "error", err)
	}
	return zero
}

// AllStats returns every record for a (platform, account) pair.
func (c *Cache) AllStats(ctx context.Context, platform, account string) ([]*Stat, error) {
	if c.db == nil {
		return nil, nil
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT method, attempt_count, success_count, total_latency_ms, total_yield,
		last_attempt_at, last_success_at, last_ok
		FROM method_stats WHERE platform = ? AND account = ? ORDER BY method`,
		platform, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*Stat
	for rows.Next() {
		s := &Stat{Platform: platform, Account: account}
		var lastOK int
		if err := rows.Scan(&s.Method, &s.Attempts, &s.Successes, &s.TotalLatencyMS,
			&s.TotalYield, &s.LastAttemptAt, &s.LastSuccessAt, &lastOK); err != nil {
			return nil, err
		}
		s.LastOK = lastOK != 0
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// RecordOutcome registers one concluded attempt. The increments happen in a
// single UPSERT so the row is never observed half-updated. Cancelled
// attempts must NOT be recorded here — they would poison the ranking.
func (c *Cache) RecordOutcome(ctx context.Context, platform, account, method string, ok bool, latency time.Duration, yield int) error {
	if c.db == nil {
		return nil
	}
	now := time.Now().UnixMilli()
	success := 0
	successAt := int64(0)
	if ok {
		success = 1
		successAt = now
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO method_stats (platform, account, method, attempt_count,
		success_count, total_latency_ms, total_yield, last_attempt_at,
		last_success_at, last_ok)
		VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(platform, account, method) DO UPDATE SET
			attempt_count    = attempt_count + 1,
			success_count    = success_count + excluded.success_count,
			total_latency_ms = total_latency_ms + excluded.total_latency_ms,
			total_yield      = total_yield + excluded.total_yield,
			last_attempt_at  = excluded.last_attempt_at,
			last_success_at  = MAX(last_success_at, excluded.last_success_at),
			last_ok          = excluded.last_ok`,
		platform, account, method, success, latency.Milliseconds(), yield,
		now, successAt, success)
	if err != nil {
		c.log.Warn("memory: record outcome failed", "method", method, "error", err)
	}
	return err
}

// Flush forces a WAL checkpoint. Individual writes are already durable;
// this compacts the WAL at the end of a run.
func (c *Cache) Flush(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	_, err := c.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`)
	return err
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
