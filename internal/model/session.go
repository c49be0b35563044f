package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/derekprior/courtq/internal/config"
)

// Session is the owned state of one multi-court session. Every component
// receives it explicitly; nothing is kept in package globals.
type Session struct {
	ID     string
	Config *config.Config
	Mode   config.Mode
	Now    func() time.Time

	Roster      map[string]config.Player // everyone ever added
	Active      map[string]bool
	Matches     []*Match
	PlayerStats map[string]*PlayerStats
	Queue       []QueuedMatch

	// MatchSeq numbers every match ever created, forfeits included.
	MatchSeq int
	// Completed counts completed matches only and drives the adaptive phase.
	Completed int
	// Relaxations counts matches built after constraint relaxation.
	Relaxations int

	// mode-specific state
	TeamOpponents map[string][]string // locked team key -> opponent team keys, oldest first
	Vacated       map[int][]string    // court -> players of the match that just ended there
	KingStreak    map[int]int         // court -> consecutive wins by the holding team
	KingHolders   map[int][]string    // court -> team holding the court
}

// NewSession builds a session with every configured player active.
func NewSession(cfg *config.Config, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	s := &Session{
		ID:            uuid.NewString(),
		Config:        cfg,
		Mode:          cfg.Mode(),
		Now:           now,
		Roster:        make(map[string]config.Player),
		Active:        make(map[string]bool),
		PlayerStats:   make(map[string]*PlayerStats),
		TeamOpponents: make(map[string][]string),
		Vacated:       make(map[int][]string),
		KingStreak:    make(map[int]int),
		KingHolders:   make(map[int][]string),
	}
	for _, p := range cfg.Players {
		s.Roster[p.ID] = p
		s.Active[p.ID] = true
	}
	return s
}

// Stats returns the stats for id, creating them on first reference.
func (s *Session) Stats(id string) *PlayerStats {
	ps, ok := s.PlayerStats[id]
	if !ok {
		ps = newPlayerStats()
		s.PlayerStats[id] = ps
	}
	return ps
}

// ActiveMatches returns waiting and in-progress matches in creation order.
func (s *Session) ActiveMatches() []*Match {
	return lo.Filter(s.Matches, func(m *Match, _ int) bool {
		return m.Active()
	})
}

// MatchOnCourt returns the active match occupying court, or nil.
func (s *Session) MatchOnCourt(court int) *Match {
	for _, m := range s.Matches {
		if m.Active() && m.Court == court {
			return m
		}
	}
	return nil
}

// Match looks up a match by id.
func (s *Session) Match(id string) (*Match, error) {
	for _, m := range s.Matches {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, fmt.Errorf("match %q: %w", id, ErrNotFound)
}

// Busy returns the players currently held by an active match.
func (s *Session) Busy() map[string]bool {
	busy := make(map[string]bool)
	for _, m := range s.ActiveMatches() {
		for _, id := range m.Players() {
			busy[id] = true
		}
	}
	return busy
}

// FreePlayers returns active players not in an active match, sorted by id.
func (s *Session) FreePlayers() []string {
	busy := s.Busy()
	free := lo.Filter(lo.Keys(s.Active), func(id string, _ int) bool {
		return s.Active[id] && !busy[id]
	})
	slices.Sort(free)
	return free
}

// ActivePlayers returns the active roster sorted by id.
func (s *Session) ActivePlayers() []string {
	ids := lo.Filter(lo.Keys(s.Active), func(id string, _ int) bool {
		return s.Active[id]
	})
	slices.Sort(ids)
	return ids
}

// EmptyCourts returns the 1-based court numbers with no active match.
func (s *Session) EmptyCourts() []int {
	var empty []int
	for c := 1; c <= s.Config.Session.Courts; c++ {
		if s.MatchOnCourt(c) == nil {
			empty = append(empty, c)
		}
	}
	return empty
}

// NewMatch allocates the next match number. The match is not yet appended.
func (s *Session) NewMatch(court int, team1, team2 []string) *Match {
	s.MatchSeq++
	return &Match{
		ID:     uuid.NewString(),
		Number: s.MatchSeq,
		Court:  court,
		Team1:  slices.Clone(team1),
		Team2:  slices.Clone(team2),
		Status: Waiting,
	}
}

// AverageGames is the mean games_played over active players.
func (s *Session) AverageGames() float64 {
	ids := s.ActivePlayers()
	if len(ids) == 0 {
		return 0
	}
	total := 0
	for _, id := range ids {
		total += s.Stats(id).GamesPlayed
	}
	return float64(total) / float64(len(ids))
}

// ApplyResult records a completed match into every participant's stats.
// Relationship counters are only ever written here, so they stay symmetric.
func (s *Session) ApplyResult(m *Match) {
	if m.Score == nil {
		return
	}
	sides := []struct {
		team, opp []string
		pf, pa    int
		won       bool
	}{
		{m.Team1, m.Team2, m.Score.Team1, m.Score.Team2, m.Score.Team1 > m.Score.Team2},
		{m.Team2, m.Team1, m.Score.Team2, m.Score.Team1, m.Score.Team2 > m.Score.Team1},
	}

	for _, side := range sides {
		for _, id := range side.team {
			ps := s.Stats(id)
			ps.GamesPlayed++
			if side.won {
				ps.Wins++
			} else {
				ps.Losses++
			}
			ps.PointsFor += side.pf
			ps.PointsAgainst += side.pa
			ps.Courts[m.Court]++

			ps.LastPartners = lo.Without(side.team, id)
			ps.LastOpponents = slices.Clone(side.opp)
			for _, p := range ps.LastPartners {
				r := ps.Partners[p]
				r.Count++
				r.LastGame = ps.GamesPlayed
				ps.Partners[p] = r
			}
			for _, o := range side.opp {
				r := ps.Opponents[o]
				r.Count++
				r.LastGame = ps.GamesPlayed
				ps.Opponents[o] = r
			}
		}
	}
	s.Completed++
}

// CheckConsistency verifies the invariants that depend on caller event
// ordering. A non-nil error wraps ErrStateInconsistency.
func (s *Session) CheckConsistency() error {
	seen := make(map[string]int)
	for _, m := range s.ActiveMatches() {
		for _, id := range m.Players() {
			if !s.Active[id] {
				return fmt.Errorf("%w: player %q is in match %d but not active", ErrStateInconsistency, id, m.Number)
			}
			if prev, ok := seen[id]; ok {
				return fmt.Errorf("%w: player %q is in matches %d and %d", ErrStateInconsistency, id, prev, m.Number)
			}
			seen[id] = m.Number
		}
	}
	for id, ps := range s.PlayerStats {
		if ps.Wins+ps.Losses != ps.GamesPlayed {
			return fmt.Errorf("%w: player %q has %d wins + %d losses but %d games",
				ErrStateInconsistency, id, ps.Wins, ps.Losses, ps.GamesPlayed)
		}
	}
	return nil
}
