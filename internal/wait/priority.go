// Package wait orders players by how long they have been kept off court.
package wait

import (
	"slices"
	"strings"
	"time"

	"github.com/derekprior/courtq/internal/model"
)

type Tier int

const (
	Normal Tier = iota
	Significant
	Extreme
)

func (t Tier) String() string {
	switch t {
	case Extreme:
		return "extreme"
	case Significant:
		return "significant"
	default:
		return "normal"
	}
}

const (
	SignificantWait = 10 * time.Minute
	ExtremeWait     = 20 * time.Minute

	// credit for each pass a player sat out while others were placed
	WaitCountBonus = 30 * time.Second
)

// Priority is a player's wait credit at a moment in time.
type Priority struct {
	ID          string
	Wait        time.Duration
	GamesPlayed int
}

// Seconds returns the priority as float seconds.
func (p Priority) Seconds() float64 {
	return p.Wait.Seconds()
}

func (p Priority) Tier() Tier {
	return TierFor(p.Wait)
}

// TierFor buckets a wait duration.
func TierFor(d time.Duration) Tier {
	switch {
	case d >= ExtremeWait:
		return Extreme
	case d >= SignificantWait:
		return Significant
	default:
		return Normal
	}
}

// Of computes the priority of ps at now: accumulated wait, plus the open
// segment, plus the wait-count bonus.
func Of(id string, ps *model.PlayerStats, now time.Time) Priority {
	return Priority{
		ID:          id,
		Wait:        ps.CurrentWait(now) + time.Duration(ps.WaitCount)*WaitCountBonus,
		GamesPlayed: ps.GamesPlayed,
	}
}

// Calculator compares priorities using a difference threshold.
type Calculator struct {
	Threshold time.Duration
}

// Matters reports whether the wait difference between a and b is large
// enough to decide an ordering: different tiers, or a gap of at least the
// threshold. Below that the two are treated as equivalent.
func (c Calculator) Matters(a, b Priority) bool {
	if a.Tier() != b.Tier() {
		return true
	}
	gap := a.Wait - b.Wait
	if gap < 0 {
		gap = -gap
	}
	return gap >= c.Threshold
}

// Compare orders a before b (negative) when a should be seated first.
// Meaningful wait differences win; otherwise fewer games played, then
// longer raw wait, then id.
func (c Calculator) Compare(a, b Priority) int {
	if c.Matters(a, b) {
		if a.Wait > b.Wait {
			return -1
		}
		return 1
	}
	if a.GamesPlayed != b.GamesPlayed {
		if a.GamesPlayed < b.GamesPlayed {
			return -1
		}
		return 1
	}
	if a.Wait != b.Wait {
		if a.Wait > b.Wait {
			return -1
		}
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}

// Order returns priorities for ids, highest priority first.
func (c Calculator) Order(s *model.Session, ids []string) []Priority {
	now := s.Now()
	out := make([]Priority, 0, len(ids))
	for _, id := range ids {
		out = append(out, Of(id, s.Stats(id), now))
	}
	slices.SortStableFunc(out, c.Compare)
	return out
}

// OrderedIDs is Order reduced to ids.
func (c Calculator) OrderedIDs(s *model.Session, ids []string) []string {
	ordered := c.Order(s, ids)
	out := make([]string, len(ordered))
	for i, p := range ordered {
		out[i] = p.ID
	}
	return out
}

// ForSession builds a calculator from the session config.
func ForSession(s *model.Session) Calculator {
	return Calculator{Threshold: s.Config.Wait.DifferenceThreshold.Duration}
}
