package memory

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/toseeq44/automation-fb-sub002/dbopen"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	return NewWithDB(db, slog.Default())
}

func TestStats_UnknownKeyIsZeroRecord(t *testing.T) {
	// WHAT: Reading a never-attempted key returns a zeroed record, not an error.
	// WHY: Keys are created lazily on first attempt; the selector treats a
	// zero record as "never attempted".
	c := testCache(t)

	s := c.Stats(context.Background(), "youtube", "https://example.com/@a", "feed")
	if s.Attempts != 0 || s.Successes != 0 || s.LastOK {
		t.Errorf("zero record expected, got %+v", s)
	}
	if s.SuccessRate() != 0 {
		t.Errorf("SuccessRate = %v, want 0", s.SuccessRate())
	}
}

func TestRecordOutcome_Accumulates(t *testing.T) {
	// WHAT: Outcomes accumulate counters and update recency fields.
	// WHY: The ranking reads rates and averages straight off these counters.
	c := testCache(t)
	ctx := context.Background()
	key := []string{"youtube", "https://example.com/@a", "ytdlp-flat"}

	if err := c.RecordOutcome(ctx, key[0], key[1], key[2], true, 2*time.Second, 40); err != nil {
		t.Fatalf("record success: %v", err)
	}
	if err := c.RecordOutcome(ctx, key[0], key[1], key[2], false, 1*time.Second, 0); err != nil {
		t.Fatalf("record failure: %v", err)
	}

	s := c.Stats(ctx, key[0], key[1], key[2])
	if s.Attempts != 2 || s.Successes != 1 {
		t.Fatalf("attempts/successes = %d/%d, want 2/1", s.Attempts, s.Successes)
	}
	if s.SuccessRate() != 0.5 {
		t.Errorf("SuccessRate = %v, want 0.5", s.SuccessRate())
	}
	if s.TotalLatencyMS != 3000 {
		t.Errorf("TotalLatencyMS = %d, want 3000", s.TotalLatencyMS)
	}
	if s.AvgYield() != 40 {
		t.Errorf("AvgYield = %v, want 40", s.AvgYield())
	}
	if s.LastOK {
		t.Error("LastOK should reflect the most recent (failed) attempt")
	}
	if s.LastSuccessAt == 0 || s.LastAttemptAt == 0 {
		t.Error("recency timestamps not set")
	}
}

func TestRecordOutcome_KeyIsolation(t *testing.T) {
	// WHAT: Outcomes for one account never touch another account's record.
	// WHY: A method blocked for one account can be the best for another.
	c := testCache(t)
	ctx := context.Background()

	c.RecordOutcome(ctx, "tiktok", "https://t.example/@a", "scrape", false, time.Second, 0)
	c.RecordOutcome(ctx, "tiktok", "https://t.example/@b", "scrape", true, time.Second, 10)

	a := c.Stats(ctx, "tiktok", "https://t.example/@a", "scrape")
	b := c.Stats(ctx, "tiktok", "https://t.example/@b", "scrape")
	if a.Successes != 0 || b.Successes != 1 {
		t.Errorf("cross-account leak: a=%+v b=%+v", a, b)
	}
}

func TestOpen_SurvivesReopen(t *testing.T) {
	// WHAT: Records written before Close are visible after reopening the file.
	// WHY: The whole point of the cache is memory across process restarts.
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	c := Open(path, slog.Default())
	if c.Degraded() {
		t.Fatal("fresh file should not be degraded")
	}
	c.RecordOutcome(ctx, "youtube", "acct", "feed", true, time.Second, 15)
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	c.Close()

	c2 := Open(path, slog.Default())
	defer c2.Close()
	s := c2.Stats(ctx, "youtube", "acct", "feed")
	if s.Attempts != 1 || s.Successes != 1 {
		t.Errorf("record lost across reopen: %+v", s)
	}
}

func TestOpen_CorruptFileDegrades(t *testing.T) {
	// WHAT: An unopenable path degrades to an in-memory cache.
	// WHY: A corrupt cache must never block extraction; it only costs
	// ranking quality.
	// A directory at the database path is reliably unopenable.
	path := t.TempDir()

	c := Open(path, slog.Default())
	defer c.Close()
	if !c.Degraded() {
		t.Fatal("expected degraded cache")
	}

	// Degraded cache still works for the rest of the run.
	ctx := context.Background()
	if err := c.RecordOutcome(ctx, "youtube", "acct", "feed", true, time.Second, 1); err != nil {
		t.Fatalf("record on degraded cache: %v", err)
	}
	if s := c.Stats(ctx, "youtube", "acct", "feed"); s.Attempts != 1 {
		t.Errorf("degraded cache not recording: %+v", s)
	}
}

func TestAllStats_ReturnsAllMethods(t *testing.T) {
	// WHAT: AllStats returns one record per attempted method for the pair.
	// WHY: Ranking fetches the whole cohort in one query.
	c := testCache(t)
	ctx := context.Background()

	c.RecordOutcome(ctx, "youtube", "acct", "feed", true, time.Second, 15)
	c.RecordOutcome(ctx, "youtube", "acct", "scrape", false, time.Second, 0)
	c.RecordOutcome(ctx, "youtube", "other", "feed", true, time.Second, 5)

	stats, err := c.AllStats(ctx, "youtube", "acct")
	if err != nil {
		t.Fatalf("AllStats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("got %d records, want 2", len(stats))
	}
}
