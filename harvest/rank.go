package harvest

import (
	"sort"
	"time"

	"github.com/toseeq44/automation-fb-sub002/harvest/internal/memory"
)

// ranked pairs a method with its score for one (platform, account) run.
type ranked struct {
	Method Method
	Score  memory.Score
}

// Rank orders the candidate methods for one run, best first. The order is
// lexicographic: effective success rate, then the bounded recency/yield
// bonus, then the static method ordinal, then the name. Never-attempted
// methods get an optimistic prior rate placed above the best known-failing
// rate and below the worst known-succeeding rate, so new methods are probed
// before proven failures without starving anything proven to work.
//
// Rank is deterministic: the same stats, policy and instant produce the
// same order.
func Rank(candidates []Method, stats map[string]*MethodStat, pol memory.Policy, now time.Time) []ranked {
	out := make([]ranked, 0, len(candidates))
	for _, m := range candidates {
		s := stats[m.Name()]
		if s == nil {
			s = &MethodStat{Method: m.Name()}
		}
		out = append(out, ranked{Method: m, Score: memory.ScoreStat(s, pol, now)})
	}

	prior := untriedPrior(out)
	for i := range out {
		if !out[i].Score.Attempted {
			out[i].Score.Rate = prior
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Score, out[j].Score
		if a.Rate != b.Rate {
			return a.Rate > b.Rate
		}
		if a.Bonus != b.Bonus {
			return a.Bonus > b.Bonus
		}
		if out[i].Method.Ordinal() != out[j].Method.Ordinal() {
			return out[i].Method.Ordinal() < out[j].Method.Ordinal()
		}
		return out[i].Method.Name() < out[j].Method.Name()
	})
	return out
}

// untriedPrior derives the optimistic prior for never-attempted methods
// from the attempted cohort: the midpoint between the best rate among
// methods that have never succeeded and the worst rate among methods that
// have. With no history at all the prior is 0.5.
func untriedPrior(rs []ranked) float64 {
	// lo = best rate among methods with zero successes (always 0), hi =
	// worst rate among methods with at least one.
	lo, hi := 0.0, 1.0
	anyFailing, anySucceeding := false, false
	for _, r := range rs {
		if !r.Score.Attempted {
			continue
		}
		if r.Score.Rate > 0 {
			anySucceeding = true
			if r.Score.Rate < hi {
				hi = r.Score.Rate
			}
		} else {
			anyFailing = true
		}
	}
	switch {
	case !anyFailing && !anySucceeding:
		return 0.5
	case !anySucceeding:
		// Everything attempted so far fails: probe the new method first.
		return lo + 0.5
	default:
		return (lo + hi) / 2
	}
}
