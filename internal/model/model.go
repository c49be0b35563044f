package model

import (
	"slices"
	"strings"
	"time"
)

// Status is the lifecycle state of a match. Transitions only move forward:
// Waiting -> InProgress -> Completed | Forfeited.
type Status int

const (
	Waiting Status = iota
	InProgress
	Completed
	Forfeited
)

func (s Status) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case InProgress:
		return "in-progress"
	case Completed:
		return "completed"
	case Forfeited:
		return "forfeited"
	default:
		return "unknown"
	}
}

// Relation records how often two players held a role together and this
// player's games_played count when it last happened.
type Relation struct {
	Count    int
	LastGame int
}

// PlayerStats is the per-player running tally for a session.
type PlayerStats struct {
	GamesPlayed   int
	Wins          int
	Losses        int
	PointsFor     int
	PointsAgainst int

	Partners  map[string]Relation
	Opponents map[string]Relation
	Courts    map[int]int // court -> games played there

	// roles held in the most recent completed match
	LastPartners  []string
	LastOpponents []string

	WaitStart time.Time // zero while playing
	TotalWait time.Duration
	WaitCount int // passes spent waiting while others were placed
}

func newPlayerStats() *PlayerStats {
	return &PlayerStats{
		Partners:  make(map[string]Relation),
		Opponents: make(map[string]Relation),
		Courts:    make(map[int]int),
	}
}

// StartWaiting opens a wait segment if one is not already open.
func (ps *PlayerStats) StartWaiting(now time.Time) {
	if ps.WaitStart.IsZero() {
		ps.WaitStart = now
	}
}

// StopWaiting closes the open wait segment into TotalWait.
func (ps *PlayerStats) StopWaiting(now time.Time) {
	if ps.WaitStart.IsZero() {
		return
	}
	if d := now.Sub(ps.WaitStart); d > 0 {
		ps.TotalWait += d
	}
	ps.WaitStart = time.Time{}
}

// CurrentWait is the accumulated wait plus the open segment, if any.
func (ps *PlayerStats) CurrentWait(now time.Time) time.Duration {
	w := ps.TotalWait
	if !ps.WaitStart.IsZero() {
		if d := now.Sub(ps.WaitStart); d > 0 {
			w += d
		}
	}
	return w
}

// Score is a final result; ties are not allowed.
type Score struct {
	Team1 int
	Team2 int
}

// Match is one game on one court.
type Match struct {
	ID      string
	Number  int
	Court   int
	Team1   []string
	Team2   []string
	Status  Status
	Score   *Score
	Start   time.Time
	End     time.Time
	Manual  bool
	Relaxed bool    // built after constraint relaxation
	Quality float64 // predicted draw probability, 0..1
}

// Players returns both teams, team 1 first.
func (m *Match) Players() []string {
	out := make([]string, 0, len(m.Team1)+len(m.Team2))
	out = append(out, m.Team1...)
	return append(out, m.Team2...)
}

// Active reports whether the match still holds its players.
func (m *Match) Active() bool {
	return m.Status == Waiting || m.Status == InProgress
}

func (m *Match) Terminal() bool {
	return m.Status == Completed || m.Status == Forfeited
}

func (m *Match) Contains(id string) bool {
	return slices.Contains(m.Team1, id) || slices.Contains(m.Team2, id)
}

// Winners returns the winning team of a completed match.
func (m *Match) Winners() []string {
	if m.Status != Completed || m.Score == nil {
		return nil
	}
	if m.Score.Team1 > m.Score.Team2 {
		return m.Team1
	}
	return m.Team2
}

// Losers returns the losing team of a completed match.
func (m *Match) Losers() []string {
	if m.Status != Completed || m.Score == nil {
		return nil
	}
	if m.Score.Team1 > m.Score.Team2 {
		return m.Team2
	}
	return m.Team1
}

// QueuedMatch is a pre-computed matchup waiting for a court.
type QueuedMatch struct {
	Team1   []string
	Team2   []string
	Blocked bool
}

func (q QueuedMatch) Players() []string {
	out := make([]string, 0, len(q.Team1)+len(q.Team2))
	out = append(out, q.Team1...)
	return append(out, q.Team2...)
}

// TeamKey is an order-independent key for a team.
func TeamKey(team []string) string {
	ids := slices.Clone(team)
	slices.Sort(ids)
	return strings.Join(ids, "+")
}

// GroupKey is an order-independent key for everyone in a matchup.
func GroupKey(team1, team2 []string) string {
	ids := append(slices.Clone(team1), team2...)
	slices.Sort(ids)
	return strings.Join(ids, ",")
}

// MatchupKey identifies a (team1, team2) combination regardless of side.
func MatchupKey(team1, team2 []string) string {
	a, b := TeamKey(team1), TeamKey(team2)
	if a > b {
		a, b = b, a
	}
	return a + " vs " + b
}

// CourtSlide tells a presentation layer that a player moved after a match
// ended. Court 0 is the waitlist. The engine defines slides but never
// renders them.
type CourtSlide struct {
	Player string
	From   int
	To     int
}
