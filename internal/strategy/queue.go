package strategy

import (
	"math"
	"slices"

	"github.com/derekprior/courtq/internal/model"
	"github.com/derekprior/courtq/internal/pairing"
)

// Bye fills the odd seat in singles rotation. Pairings against it are dropped.
const Bye = "BYE"

// novelty levels, tried in order until a round can be packed
const (
	strictNovelty  = iota // no repeated partner, opponent or matchup
	partnerRepeats        // repeated relations allowed, matchup still new
	anyMatchup            // duplicates allowed
)

const (
	queueNewPartner    = 100.0
	queueNewOpponent   = 40.0
	queueAppearance    = 200.0 // per appearance above the round's minimum
	queueBalanceWeight = 0.25
)

// QueueLength returns the configured queue length, or one full rotation
// (N-1 rounds of N/players-per-match matches) when it is 0.
func QueueLength(s *model.Session) int {
	if s.Config.Queue.Length > 0 {
		return s.Config.Queue.Length
	}
	n := len(s.ActivePlayers())
	perRound := n / s.Config.PlayersPerMatch()
	return max(n-1, 1) * max(perRound, 1)
}

// BuildQueue pre-builds up to length matchups over the active roster. It
// never returns fewer entries than length while a legal matchup exists.
func BuildQueue(p *pairing.Pairer, length int) []model.QueuedMatch {
	s := p.Session()
	if s.Config.Session.TeamSize == 1 {
		return circleQueue(s.ActivePlayers(), length)
	}
	return newQueueState(p, s.ActivePlayers()).build(length)
}

// buildOver builds up to length matchups among players only. Session
// history still counts, so the entries favour new relations.
func buildOver(p *pairing.Pairer, players []string, length int) []model.QueuedMatch {
	if p.Session().Config.Session.TeamSize == 1 {
		return circleQueue(players, length)
	}
	return newQueueState(p, players).build(length)
}

// circleQueue rotates every player but the first around a fixed seat. An
// odd roster gets a BYE; whoever draws it sits the round out.
func circleQueue(players []string, length int) []model.QueuedMatch {
	ids := slices.Clone(players)
	if len(ids) < 2 {
		return nil
	}
	if len(ids)%2 == 1 {
		ids = append(ids, Bye)
	}
	n := len(ids)
	var out []model.QueuedMatch
	for len(out) < length {
		for i := range n / 2 {
			a, b := ids[i], ids[n-1-i]
			if a == Bye || b == Bye {
				continue
			}
			out = append(out, model.QueuedMatch{Team1: []string{a}, Team2: []string{b}})
			if len(out) == length {
				break
			}
		}
		// rotate everything after the fixed first seat clockwise
		last := ids[n-1]
		copy(ids[2:], ids[1:n-1])
		ids[1] = last
	}
	return out
}

// queueState is the doubles queue generator's running history, seeded from
// the session so a rebuilt queue keeps pushing novelty.
type queueState struct {
	p           *pairing.Pairer
	players     []string
	partners    map[string]int
	opponents   map[string]int
	matchups    map[string]int
	appearances map[string]int
}

func newQueueState(p *pairing.Pairer, players []string) *queueState {
	s := p.Session()
	q := &queueState{
		p:           p,
		players:     players,
		partners:    make(map[string]int),
		opponents:   make(map[string]int),
		matchups:    make(map[string]int),
		appearances: make(map[string]int),
	}
	for _, m := range s.Matches {
		if m.Status != model.Forfeited {
			q.record(m.Team1, m.Team2)
		}
	}
	// appearances only balance the queue itself
	clear(q.appearances)
	return q
}

func (q *queueState) record(team1, team2 []string) {
	for _, team := range [][]string{team1, team2} {
		q.partners[model.TeamKey(team)]++
	}
	for _, a := range team1 {
		for _, b := range team2 {
			q.opponents[model.TeamKey([]string{a, b})]++
		}
	}
	q.matchups[model.MatchupKey(team1, team2)]++
	for _, id := range append(slices.Clone(team1), team2...) {
		q.appearances[id]++
	}
}

func (q *queueState) build(length int) []model.QueuedMatch {
	var out []model.QueuedMatch
	perMatch := q.p.Session().Config.PlayersPerMatch()
	for len(out) < length {
		available := slices.Clone(q.players)
		packed := 0
		for len(available) >= perMatch && len(out) < length {
			team1, team2, ok := q.pick(available)
			if !ok {
				break
			}
			q.record(team1, team2)
			out = append(out, model.QueuedMatch{Team1: team1, Team2: team2})
			available = slices.DeleteFunc(available, func(id string) bool {
				return slices.Contains(team1, id) || slices.Contains(team2, id)
			})
			packed++
		}
		if packed == 0 {
			break
		}
	}
	return out
}

// pick chooses the best disjoint matchup among available players at the
// strictest novelty level that offers one.
func (q *queueState) pick(available []string) (team1, team2 []string, ok bool) {
	candidates := q.candidates(available)
	minAppear := math.MaxInt
	for _, id := range available {
		minAppear = min(minAppear, q.appearances[id])
	}
	for level := strictNovelty; level <= anyMatchup; level++ {
		best := math.Inf(-1)
		for _, c := range candidates {
			if !q.novel(c[0], c[1], level) {
				continue
			}
			if score := q.score(c[0], c[1], minAppear); score > best {
				best = score
				team1, team2, ok = c[0], c[1], true
			}
		}
		if ok {
			return team1, team2, true
		}
	}
	return nil, nil, false
}

// candidates enumerates every legal 2v2 split of every 4 available players.
func (q *queueState) candidates(available []string) [][2][]string {
	cfg := q.p.Session().Config
	var out [][2][]string
	pairing.Combinations(len(available), 4, func(idx []int) {
		g := []string{available[idx[0]], available[idx[1]], available[idx[2]], available[idx[3]]}
		for _, split := range [][2][]string{
			{{g[0], g[1]}, {g[2], g[3]}},
			{{g[0], g[2]}, {g[1], g[3]}},
			{{g[0], g[3]}, {g[1], g[2]}},
		} {
			if legalSplit(cfg.LockedPartner, cfg.IsBanned, split[0], split[1]) {
				out = append(out, split)
			}
		}
	})
	return out
}

// legalSplit keeps locked partners together on one team and banned pairs
// apart.
func legalSplit(lockedPartner func(string) (string, bool), banned func(a, b string) bool, team1, team2 []string) bool {
	for _, team := range [][]string{team1, team2} {
		if len(team) == 2 && banned(team[0], team[1]) {
			return false
		}
		for _, id := range team {
			if partner, ok := lockedPartner(id); ok && !slices.Contains(team, partner) {
				return false
			}
		}
	}
	return true
}

func (q *queueState) novel(team1, team2 []string, level int) bool {
	if level == anyMatchup {
		return true
	}
	if q.matchups[model.MatchupKey(team1, team2)] > 0 {
		return false
	}
	if level == partnerRepeats {
		return true
	}
	cfg := q.p.Session().Config
	for _, team := range [][]string{team1, team2} {
		if !cfg.IsLocked(team[0], team[1]) && q.partners[model.TeamKey(team)] > 0 {
			return false
		}
	}
	for _, a := range team1 {
		for _, b := range team2 {
			if q.opponents[model.TeamKey([]string{a, b})] > 0 {
				return false
			}
		}
	}
	return true
}

func (q *queueState) score(team1, team2 []string, minAppear int) float64 {
	score := 0.0
	for _, team := range [][]string{team1, team2} {
		if q.partners[model.TeamKey(team)] == 0 {
			score += queueNewPartner
		}
	}
	for _, a := range team1 {
		for _, b := range team2 {
			if q.opponents[model.TeamKey([]string{a, b})] == 0 {
				score += queueNewOpponent
			}
		}
	}
	for _, id := range append(slices.Clone(team1), team2...) {
		score -= float64(q.appearances[id]-minAppear) * queueAppearance
	}
	avg := func(team []string) float64 {
		return (q.p.Rating(team[0]) + q.p.Rating(team[1])) / 2
	}
	return score - math.Abs(avg(team1)-avg(team2))*queueBalanceWeight
}
