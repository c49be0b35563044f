package strategy

import (
	"github.com/derekprior/courtq/internal/config"
	"github.com/derekprior/courtq/internal/model"
	"github.com/derekprior/courtq/internal/pairing"
)

// StrictRoundRobin consumes the queue first in, first out. An entry jumps
// ahead only when it shares no player with anything in front of it.
type StrictRoundRobin struct{ offCourt }

func (*StrictRoundRobin) Mode() config.Mode { return config.StrictContinuousRR }

func (*StrictRoundRobin) Fill(p *pairing.Pairer, courts []int) []*model.Match {
	return promoteQueue(p, courts, seats{}, func(s *model.Session, _ seats) []int {
		busy := s.Busy()
		for id := range s.Roster {
			if !s.Active[id] {
				busy[id] = true
			}
		}
		return StrictOrder(s.Queue, busy)
	})
}

// StrictOrder marks queue entries blocked or promotable and returns the
// indexes of the promotable ones in queue order. An entry is promotable
// only if none of its players is busy or appears in an earlier entry.
// Blocked entries keep their place; their players block later entries too.
func StrictOrder(queue []model.QueuedMatch, busy map[string]bool) []int {
	ahead := make(map[string]bool)
	var promotable []int
	for i := range queue {
		players := queue[i].Players()
		blocked := false
		for _, id := range players {
			if busy[id] || ahead[id] {
				blocked = true
				break
			}
		}
		queue[i].Blocked = blocked
		if !blocked {
			promotable = append(promotable, i)
		}
		for _, id := range players {
			ahead[id] = true
		}
	}
	return promotable
}
