package memory

import (
	"testing"
	"time"
)

var scoreNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestScoreStat_NeverAttempted(t *testing.T) {
	// WHAT: A zero record scores as not-attempted with no bonus.
	// WHY: The selector substitutes the optimistic prior for these; the
	// score function must not invent a rate.
	sc := ScoreStat(&Stat{}, DefaultPolicy(), scoreNow)
	if sc.Attempted {
		t.Error("zero record must not count as attempted")
	}
	if sc.Rate != 0 || sc.Bonus != 0 {
		t.Errorf("unexpected score %+v", sc)
	}
}

func TestScoreStat_RateDominates(t *testing.T) {
	// WHAT: A higher success rate always outscores a lower one, whatever the
	// secondary signals say.
	// WHY: Ranking is success-rate first; recency and yield only break ties.
	pol := DefaultPolicy()
	strong := &Stat{Attempts: 10, Successes: 9, TotalLatencyMS: 500_000, TotalYield: 9,
		LastAttemptAt: scoreNow.UnixMilli(), LastOK: true}
	weak := &Stat{Attempts: 10, Successes: 5, TotalLatencyMS: 1000, TotalYield: 5000,
		LastAttemptAt: scoreNow.Add(-48 * time.Hour).UnixMilli(), LastOK: true}

	a := ScoreStat(strong, pol, scoreNow)
	b := ScoreStat(weak, pol, scoreNow)
	if a.Value() <= b.Value() {
		t.Errorf("strong %v should outscore weak %v", a.Value(), b.Value())
	}
}

func TestScoreStat_ProbeBoost(t *testing.T) {
	// WHAT: A method untouched for longer than ProbeAfter gets a bonus.
	// WHY: Platforms recover; a stale failure record should be re-probed.
	pol := DefaultPolicy()
	base := Stat{Attempts: 4, Successes: 2, LastOK: true}

	fresh := base
	fresh.LastAttemptAt = scoreNow.Add(-time.Hour).UnixMilli()
	stale := base
	stale.LastAttemptAt = scoreNow.Add(-48 * time.Hour).UnixMilli()

	if ScoreStat(&stale, pol, scoreNow).Bonus <= ScoreStat(&fresh, pol, scoreNow).Bonus {
		t.Error("stale method should carry the probe boost")
	}
}

func TestScoreStat_CooldownPenalty(t *testing.T) {
	// WHAT: A method that just failed is penalised inside the cooldown window.
	// WHY: Hammering a just-blocked method burns the account.
	pol := DefaultPolicy()
	base := Stat{Attempts: 4, Successes: 2}

	justFailed := base
	justFailed.LastOK = false
	justFailed.LastAttemptAt = scoreNow.Add(-5 * time.Minute).UnixMilli()

	cooledOff := base
	cooledOff.LastOK = false
	cooledOff.LastAttemptAt = scoreNow.Add(-2 * time.Hour).UnixMilli()

	if ScoreStat(&justFailed, pol, scoreNow).Bonus >= ScoreStat(&cooledOff, pol, scoreNow).Bonus {
		t.Error("recent failure should be penalised relative to a cooled-off one")
	}
}

func TestScoreStat_Deterministic(t *testing.T) {
	// WHAT: Same stat and same instant produce the same score.
	// WHY: Method selection must be reproducible for a given history.
	pol := DefaultPolicy()
	s := &Stat{Attempts: 7, Successes: 3, TotalLatencyMS: 21_000, TotalYield: 120,
		LastAttemptAt: scoreNow.Add(-3 * time.Hour).UnixMilli(), LastOK: true}

	a := ScoreStat(s, pol, scoreNow)
	b := ScoreStat(s, pol, scoreNow)
	if a != b {
		t.Errorf("non-deterministic score: %+v vs %+v", a, b)
	}
}
