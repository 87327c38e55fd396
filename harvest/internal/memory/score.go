package memory

import "time"

// Policy holds the named tunables of the scoring function. The defaults
// were chosen so a method that recovered platform-side gets re-probed
// within a day, while a method that just failed sits out the cooldown.
type Policy struct {
	// ProbeAfter: a method not attempted for this long gets a mild boost,
	// so methods that may have recovered are re-probed.
	ProbeAfter time.Duration
	// CooldownFor: a method whose last attempt failed within this window
	// gets a mild penalty, so a just-blocked method is not hammered.
	CooldownFor time.Duration
}

// DefaultPolicy returns the standard scoring tunables.
func DefaultPolicy() Policy {
	return Policy{
		ProbeAfter:  24 * time.Hour,
		CooldownFor: 30 * time.Minute,
	}
}

func (p *Policy) defaults() {
	if p.ProbeAfter <= 0 {
		p.ProbeAfter = 24 * time.Hour
	}
	if p.CooldownFor <= 0 {
		p.CooldownFor = 30 * time.Minute
	}
}

// Score is a ranking score broken into ordered components. Rate dominates:
// a strictly higher success rate always outranks a lower one regardless of
// bonus, which only breaks ties between methods with similar histories.
type Score struct {
	// Rate is the success rate for attempted methods. For never-attempted
	// methods the selector substitutes an optimistic prior.
	Rate float64 `json:"rate"`
	// Attempted is false for a never-attempted method.
	Attempted bool `json:"attempted"`
	// Bonus aggregates the secondary signals: recency boost/penalty,
	// average yield (higher better), average latency (lower better).
	// Bounded to (-1, 1).
	Bonus float64 `json:"bonus"`
}

// Value collapses the score into one number for display and logging. The
// rate is weighted so the bonus can never reorder methods with materially
// different success rates.
func (s Score) Value() float64 {
	return s.Rate*1000 + s.Bonus
}

// ScoreStat computes the score components for one stat snapshot at a given
// instant. Pure: same stat + same now = same score.
func ScoreStat(s *Stat, pol Policy, now time.Time) Score {
	pol.defaults()
	if s.Attempts == 0 {
		return Score{Attempted: false}
	}

	sc := Score{Rate: s.SuccessRate(), Attempted: true}

	sinceAttempt := now.Sub(time.UnixMilli(s.LastAttemptAt))
	if sinceAttempt >= pol.ProbeAfter {
		sc.Bonus += 0.25
	}
	if !s.LastOK && sinceAttempt < pol.CooldownFor {
		sc.Bonus -= 0.5
	}

	// Yield and latency are soft tie-breaks, each bounded to ±0.1.
	yield := s.AvgYield()
	sc.Bonus += 0.1 * (yield / (yield + 25))
	lat := s.AvgLatencyMS()
	sc.Bonus -= 0.1 * (lat / (lat + 30_000))

	return sc
}
