// Package pairing scores candidate matchups and searches a bounded
// candidate pool for the best one.
package pairing

import (
	"go.uber.org/zap"

	"github.com/derekprior/courtq/internal/adaptive"
	"github.com/derekprior/courtq/internal/history"
	"github.com/derekprior/courtq/internal/model"
	"github.com/derekprior/courtq/internal/rating"
	"github.com/derekprior/courtq/internal/wait"
)

// Pairer is a read-only snapshot of everything a scheduling pass needs.
// Build a fresh one for every pass.
type Pairer struct {
	s        *model.Session
	log      *zap.Logger
	settings adaptive.Settings
	ratings  map[string]float64
	ranking  *rating.Ranking
	tracker  *history.Tracker
	waits    wait.Calculator
	priority map[string]wait.Priority
	groups   map[string]int
	avgGames float64
	cap      int
}

// New snapshots the session for one scheduling pass.
func New(s *model.Session, log *zap.Logger) *Pairer {
	if log == nil {
		log = zap.NewNop()
	}
	settings := adaptive.Current(s)
	p := &Pairer{
		s:        s,
		log:      log,
		settings: settings,
		ratings:  rating.Ratings(s),
		ranking:  rating.ForSession(s),
		tracker:  history.New(s, settings),
		waits:    wait.ForSession(s),
		priority: make(map[string]wait.Priority),
		groups:   make(map[string]int),
		avgGames: s.AverageGames(),
		cap:      s.Config.Search.CandidateCap,
	}
	now := s.Now()
	for _, id := range s.ActivePlayers() {
		p.priority[id] = wait.Of(id, s.Stats(id), now)
	}
	for _, m := range s.Matches {
		if m.Status != model.Forfeited {
			p.groups[model.GroupKey(m.Team1, m.Team2)]++
		}
	}
	return p
}

func (p *Pairer) Session() *model.Session     { return p.s }
func (p *Pairer) Settings() adaptive.Settings { return p.settings }
func (p *Pairer) Ranking() *rating.Ranking    { return p.ranking }
func (p *Pairer) Tracker() *history.Tracker   { return p.tracker }
func (p *Pairer) Logger() *zap.Logger         { return p.log }
func (p *Pairer) Rating(id string) float64    { return p.ratings[id] }
func (p *Pairer) Waits() wait.Calculator      { return p.waits }
func (p *Pairer) Priority(id string) wait.Priority {
	if pr, ok := p.priority[id]; ok {
		return pr
	}
	return wait.Of(id, p.s.Stats(id), p.s.Now())
}

// Ordered sorts ids by wait priority, highest first.
func (p *Pairer) Ordered(ids []string) []string {
	return p.waits.OrderedIDs(p.s, ids)
}

// Note records a matchup chosen earlier in the same pass so later courts
// see its group as already played.
func (p *Pairer) Note(team1, team2 []string) {
	p.groups[model.GroupKey(team1, team2)]++
}
