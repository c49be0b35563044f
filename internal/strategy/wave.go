package strategy

import (
	"slices"

	"go.uber.org/zap"

	"github.com/derekprior/courtq/internal/config"
	"github.com/derekprior/courtq/internal/model"
	"github.com/derekprior/courtq/internal/pairing"
)

// MinSwap is how many players a wave match must bring in from outside the
// match that just left the court.
const MinSwap = 2

// WaveFlow schedules the first round up front for review, then rolls each
// court over as it frees up, mixing the players who just came off with the
// longest waiters.
type WaveFlow struct{ offCourt }

func (*WaveFlow) Mode() config.Mode { return config.ContinuousWaveFlow }

func (w *WaveFlow) Fill(p *pairing.Pairer, courts []int) []*model.Match {
	s := p.Session()
	if len(s.Queue) > 0 {
		return promoteQueue(p, courts, seats{}, freeEntries)
	}
	if len(s.Matches) == 0 {
		w.queueFirstRound(p, courts)
		return nil
	}

	used := seats{}
	free := p.Ordered(s.FreePlayers())
	var out []*model.Match
	for _, court := range courts {
		vacated := used.without(intersect(s.Vacated[court], free))
		waiting := used.without(slices.DeleteFunc(slices.Clone(free), func(id string) bool {
			return slices.Contains(vacated, id)
		}))
		if floor := s.Config.Queue.MinWaitlist; len(waiting) < floor {
			p.Logger().Warn("waitlist below minimum",
				zap.Int("court", court),
				zap.Int("waiting", len(waiting)),
				zap.Int("min_waitlist", floor))
		}

		req := pairing.Request{Court: court, Pool: append(slices.Clone(vacated), waiting...)}
		if len(vacated) > 0 && len(waiting) >= MinSwap {
			req.Constraint = func(team1, team2 []string) bool {
				incoming := 0
				for _, id := range append(slices.Clone(team1), team2...) {
					if !slices.Contains(vacated, id) {
						incoming++
					}
				}
				return incoming >= MinSwap
			}
		}
		c, ok := p.Best(req)
		if !ok {
			continue
		}
		p.Note(c.Team1, c.Team2)
		used.take(c.Team1...)
		used.take(c.Team2...)
		delete(s.Vacated, court)
		out = append(out, place(p, c))
	}
	return out
}

// queueFirstRound searches every court and parks the result in the queue
// so the host can review it before play starts.
func (*WaveFlow) queueFirstRound(p *pairing.Pairer, courts []int) {
	s := p.Session()
	for _, c := range searchCourts(p, courts, seats{}) {
		s.Queue = append(s.Queue, model.QueuedMatch{Team1: c.Team1, Team2: c.Team2})
	}
	p.Logger().Info("first wave queued for review", zap.Int("matches", len(s.Queue)))
}

// intersect keeps the ids of a that are also in b, in b's order.
func intersect(a, b []string) []string {
	return slices.DeleteFunc(slices.Clone(b), func(id string) bool {
		return !slices.Contains(a, id)
	})
}
