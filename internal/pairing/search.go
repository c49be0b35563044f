package pairing

import (
	"slices"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/derekprior/courtq/internal/history"
)

// Constraint is an extra caller rule a candidate matchup must satisfy.
// It is never relaxed.
type Constraint func(team1, team2 []string) bool

// Request describes one court to fill.
type Request struct {
	Court int
	// Pool is ordered by priority, highest first.
	Pool []string
	// Fixed, when set, is team 1; the search only picks its opponents.
	Fixed      []string
	Constraint Constraint
	// NoRelax disables the relaxation fallback.
	NoRelax bool
}

// Candidate is a scored matchup.
type Candidate struct {
	Court   int
	Team1   []string
	Team2   []string
	Score   float64
	Relaxed bool
}

// relaxation stages, tried in order until one yields a matchup
type stage int

const (
	stageStrict  stage = iota // every rule
	stageRepeats              // repetition rules and gap cap dropped, ranking kept
	stageOpen                 // ranking dropped too
)

func (s stage) String() string {
	switch s {
	case stageStrict:
		return "strict"
	case stageRepeats:
		return "repeats"
	default:
		return "open"
	}
}

// Best searches the top-K priority candidates of the pool for the highest
// scoring matchup that passes every hard constraint. When nothing passes it
// retries over a wider pool, first allowing repeats and ignoring the gap
// cap while staying inside the ranking, then crossing ranks as a last
// resort, so a court is never left empty while a legal group exists.
func (p *Pairer) Best(req Request) (Candidate, bool) {
	teamSize := p.s.Config.Session.TeamSize
	pool := lo.Filter(req.Pool, func(id string, _ int) bool {
		return !slices.Contains(req.Fixed, id)
	})

	need := 2 * teamSize
	if len(req.Fixed) > 0 {
		need = teamSize
	}
	if len(pool) < need {
		return Candidate{}, false
	}

	if c, ok := p.search(req, p.topK(pool, p.cap), need, stageStrict); ok {
		return c, true
	}
	if req.NoRelax {
		return Candidate{}, false
	}

	wide := p.topK(pool, 2*p.cap)
	for _, st := range []stage{stageRepeats, stageOpen} {
		c, ok := p.search(req, wide, need, st)
		if !ok {
			continue
		}
		c.Relaxed = true
		p.log.Warn("constraint relaxation applied",
			zap.Int("court", req.Court),
			zap.Stringer("stage", st),
			zap.Strings("team1", c.Team1),
			zap.Strings("team2", c.Team2),
			zap.String("phase", p.settings.Phase.String()))
		return c, true
	}
	return Candidate{}, false
}

// topK takes the first k players of the pool, pulling in free locked
// partners so locked teams can be selected together.
func (p *Pairer) topK(pool []string, k int) []string {
	inPool := make(map[string]bool, len(pool))
	for _, id := range pool {
		inPool[id] = true
	}
	out := make([]string, 0, k+1)
	taken := make(map[string]bool)
	for _, id := range pool {
		if len(out) >= k {
			break
		}
		if taken[id] {
			continue
		}
		out = append(out, id)
		taken[id] = true
		if partner, ok := p.s.Config.LockedPartner(id); ok && inPool[partner] && !taken[partner] {
			out = append(out, partner)
			taken[partner] = true
		}
	}
	return out
}

func (p *Pairer) search(req Request, candidates []string, need int, st stage) (Candidate, bool) {
	tracker := p.tracker
	if st > stageStrict {
		tracker = tracker.Relaxed()
	}
	best := Candidate{Court: req.Court, Score: Rejected}
	found := false

	Combinations(len(candidates), need, func(idx []int) {
		group := make([]string, len(idx))
		for i, j := range idx {
			group[i] = candidates[j]
		}
		if !p.locksComplete(group, req.Fixed) {
			return
		}
		for _, split := range p.partitions(group, req.Fixed) {
			team1, team2 := split[0], split[1]
			if !p.allowed(tracker, team1, team2, len(req.Fixed) > 0) {
				continue
			}
			if st < stageOpen && !p.ranking.GroupCompatible(append(slices.Clone(team1), team2...)) {
				continue
			}
			if req.Constraint != nil && !req.Constraint(team1, team2) {
				continue
			}
			score := p.score(req.Court, team1, team2, st == stageStrict)
			if score == Rejected {
				continue
			}
			if !found || score > best.Score {
				best = Candidate{Court: req.Court, Team1: team1, Team2: team2, Score: score}
				found = true
			}
		}
	})
	return best, found
}

// allowed applies the repetition rules. A fixed team already stands
// together on court, so only its opponents and the new team are checked.
func (p *Pairer) allowed(tracker *history.Tracker, team1, team2 []string, fixed bool) bool {
	if fixed {
		return tracker.PartnersAllowed(team2) && tracker.OpponentsAllowed(team1, team2)
	}
	return tracker.TeamsAllowed(team1, team2)
}

// locksComplete requires every locked player in the matchup to bring their
// locked partner.
func (p *Pairer) locksComplete(group, fixed []string) bool {
	all := append(slices.Clone(fixed), group...)
	for _, id := range all {
		if partner, ok := p.s.Config.LockedPartner(id); ok && !slices.Contains(all, partner) {
			return false
		}
	}
	return true
}

// partitions splits group into two teams. With a fixed team the group is
// the whole opposing team. Otherwise team 1 always holds group[0], which
// yields 3 splits for doubles and 1 for singles.
func (p *Pairer) partitions(group, fixed []string) [][2][]string {
	if len(fixed) > 0 {
		return [][2][]string{{slices.Clone(fixed), slices.Clone(group)}}
	}
	teamSize := len(group) / 2
	var out [][2][]string
	Combinations(len(group)-1, teamSize-1, func(idx []int) {
		team1 := []string{group[0]}
		inTeam1 := map[int]bool{0: true}
		for _, i := range idx {
			team1 = append(team1, group[i+1])
			inTeam1[i+1] = true
		}
		var team2 []string
		for i, id := range group {
			if !inTeam1[i] {
				team2 = append(team2, id)
			}
		}
		out = append(out, [2][]string{team1, team2})
	})
	return out
}

// Combinations calls fn with every k-subset of [0, n) in lexicographic
// order. The slice passed to fn is reused.
func Combinations(n, k int, fn func([]int)) {
	if k < 0 || k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		fn(idx)
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
