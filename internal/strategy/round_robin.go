package strategy

import (
	"slices"

	"go.uber.org/zap"

	"github.com/derekprior/courtq/internal/config"
	"github.com/derekprior/courtq/internal/model"
	"github.com/derekprior/courtq/internal/pairing"
)

// RoundRobin places queue entries in order, skipping any entry whose
// players are not all free and active right now. Courts the queue cannot
// fill get fresh matchups over whoever is left waiting.
type RoundRobin struct{ offCourt }

func (*RoundRobin) Mode() config.Mode { return config.RoundRobin }

func (*RoundRobin) Fill(p *pairing.Pairer, courts []int) []*model.Match {
	used := seats{}
	out := promoteQueue(p, courts, used, freeEntries)
	return append(out, topUp(p, courts[len(out):], used)...)
}

// topUp builds matchups among the free players not seated yet and places
// them on the remaining courts. The queue is left untouched.
func topUp(p *pairing.Pairer, courts []int, used seats) []*model.Match {
	s := p.Session()
	free := used.without(s.FreePlayers())
	if len(courts) == 0 || len(free) < s.Config.PlayersPerMatch() {
		return nil
	}
	var out []*model.Match
	for _, e := range buildOver(p, free, len(courts)) {
		if len(out) == len(courts) {
			break
		}
		if used.anyTaken(e.Players()) {
			continue
		}
		used.take(e.Players()...)
		m := s.NewMatch(courts[len(out)], e.Team1, e.Team2)
		p.Note(m.Team1, m.Team2)
		out = append(out, m)
	}
	if len(out) > 0 {
		p.Logger().Debug("queue starved, built fresh matchups",
			zap.Int("matches", len(out)),
			zap.Int("free", len(free)))
	}
	return out
}

// freeEntries picks queue entries whose players are all available, first
// come first served.
func freeEntries(s *model.Session, used seats) []int {
	var ready []int
	for i, e := range s.Queue {
		if playable(s, e.Players(), used) {
			ready = append(ready, i)
			used.take(e.Players()...)
		}
	}
	return ready
}

// promoteQueue moves the entries chosen by pick onto courts, in court order,
// and drops them from the queue. Promoted players are marked in used.
func promoteQueue(p *pairing.Pairer, courts []int, used seats, pick func(*model.Session, seats) []int) []*model.Match {
	s := p.Session()
	ready := pick(s, seats{})
	if len(ready) > len(courts) {
		ready = ready[:len(courts)]
	}
	var out []*model.Match
	for i, idx := range ready {
		e := s.Queue[idx]
		used.take(e.Players()...)
		m := s.NewMatch(courts[i], e.Team1, e.Team2)
		p.Note(m.Team1, m.Team2)
		out = append(out, m)
	}
	promoted := make(map[int]bool, len(ready))
	for _, idx := range ready {
		promoted[idx] = true
	}
	queue := s.Queue[:0]
	for i, e := range s.Queue {
		if !promoted[i] {
			queue = append(queue, e)
		}
	}
	s.Queue = slices.Clip(queue)
	return out
}

// playable reports whether every id is active, off court and not already
// seated this pass.
func playable(s *model.Session, ids []string, used seats) bool {
	busy := s.Busy()
	for _, id := range ids {
		if !s.Active[id] || busy[id] || used[id] {
			return false
		}
	}
	return true
}
