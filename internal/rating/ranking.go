package rating

import (
	"math"
	"slices"

	"github.com/derekprior/courtq/internal/model"
)

// BracketMinPlayers is the non-provisional head count at which the hard
// top-half / bottom-half bracket replaces the roaming window.
const BracketMinPlayers = 12

// Ranking orders active players and answers who may be matched with whom.
type Ranking struct {
	order       []string
	ranks       map[string]int
	provisional map[string]bool
	topHalf     map[string]bool
	window      int
	bracket     bool
}

// NewRanking ranks ids by rating (best first, ties by id) and sets up the
// roaming window of floor(N*roamingPercent) ranks.
func NewRanking(ids []string, ratings map[string]float64, provisional map[string]bool, roamingPercent float64) *Ranking {
	order := slices.Clone(ids)
	slices.SortFunc(order, func(a, b string) int {
		if ratings[a] != ratings[b] {
			if ratings[a] > ratings[b] {
				return -1
			}
			return 1
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})

	r := &Ranking{
		order:       order,
		ranks:       make(map[string]int, len(order)),
		provisional: make(map[string]bool, len(order)),
		topHalf:     make(map[string]bool),
		window:      int(math.Floor(float64(len(order)) * roamingPercent)),
	}
	var ranked []string
	for i, id := range order {
		r.ranks[id] = i + 1
		if provisional[id] {
			r.provisional[id] = true
			continue
		}
		ranked = append(ranked, id)
	}

	if len(ranked) >= BracketMinPlayers {
		r.bracket = true
		cut := (len(ranked) + 1) / 2
		for i, id := range ranked {
			if i < cut {
				r.topHalf[id] = true
			}
		}
	}
	return r
}

// ForSession ranks the session's active players.
func ForSession(s *model.Session) *Ranking {
	ids := s.ActivePlayers()
	ratings := Ratings(s)
	provisional := make(map[string]bool)
	for _, id := range ids {
		provisional[id] = Provisional(s.Stats(id), s.Config.Ranking.ProvisionalGames)
	}
	return NewRanking(ids, ratings, provisional, s.Config.Ranking.RoamingPercent)
}

// Rank returns the 1-based rank of id, or 0 if unranked.
func (r *Ranking) Rank(id string) int {
	return r.ranks[id]
}

// Order returns player ids best first.
func (r *Ranking) Order() []string {
	return slices.Clone(r.order)
}

func (r *Ranking) Bracketed() bool {
	return r.bracket
}

func (r *Ranking) TopHalf(id string) bool {
	return r.topHalf[id]
}

func (r *Ranking) IsProvisional(id string) bool {
	return r.provisional[id]
}

// Compatible reports whether a and b may share a court. Provisional players
// are exempt. With a bracket both must sit in the same half; otherwise each
// must fall inside the other's roaming window.
func (r *Ranking) Compatible(a, b string) bool {
	if r.provisional[a] || r.provisional[b] {
		return true
	}
	if r.bracket {
		return r.topHalf[a] == r.topHalf[b]
	}
	return r.inWindow(a, b) && r.inWindow(b, a)
}

// GroupCompatible checks every pair in ids.
func (r *Ranking) GroupCompatible(ids []string) bool {
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if !r.Compatible(ids[i], ids[j]) {
				return false
			}
		}
	}
	return true
}

func (r *Ranking) inWindow(from, to string) bool {
	rf, rt := r.ranks[from], r.ranks[to]
	if rf == 0 || rt == 0 {
		return true
	}
	lo, hi := rf-r.window, rf+r.window
	return rt >= lo && rt <= hi
}
