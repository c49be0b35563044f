package strategy

import (
	"math"
	"slices"

	"github.com/derekprior/courtq/internal/config"
	"github.com/derekprior/courtq/internal/model"
	"github.com/derekprior/courtq/internal/pairing"
	"github.com/derekprior/courtq/internal/wait"
)

// RecentOpponentShare sizes the trailing window of opponents a locked team
// avoids before repeats are allowed, as a share of the team count.
const RecentOpponentShare = 0.6

// TeamVariety plays whole locked teams against each other.
type TeamVariety struct{}

func (*TeamVariety) Mode() config.Mode { return config.TeamCompetitiveVariety }

func (*TeamVariety) Fill(p *pairing.Pairer, courts []int) []*model.Match {
	s := p.Session()
	teams := readyTeams(p)
	window := int(math.Floor(RecentOpponentShare * float64(len(s.Config.LockedTeams))))

	var out []*model.Match
	for _, court := range courts {
		if len(teams) < 2 {
			break
		}
		home := teams[0]
		recent := lastN(s.TeamOpponents[model.TeamKey(home)], window)

		best := -1
		bestScore := math.Inf(-1)
		for _, fresh := range []bool{true, false} {
			for i := 1; i < len(teams); i++ {
				if fresh && slices.Contains(recent, model.TeamKey(teams[i])) {
					continue
				}
				if score := p.Score(court, home, teams[i]); best < 0 || score > bestScore {
					best, bestScore = i, score
				}
			}
			if best >= 0 {
				break
			}
		}

		m := s.NewMatch(court, home, teams[best])
		p.Note(m.Team1, m.Team2)
		out = append(out, m)
		teams = slices.Delete(teams, best, best+1)[1:]
	}
	return out
}

// Finished records the opponent for both teams, then sends everyone off.
func (*TeamVariety) Finished(s *model.Session, m *model.Match) []model.CourtSlide {
	if m.Status == model.Completed {
		k1, k2 := model.TeamKey(m.Team1), model.TeamKey(m.Team2)
		s.TeamOpponents[k1] = append(s.TeamOpponents[k1], k2)
		s.TeamOpponents[k2] = append(s.TeamOpponents[k2], k1)
	}
	return slideAll(m.Players(), m.Court)
}

// readyTeams returns locked teams with every member free, ordered by the
// longest wait in the team, then fewest games.
func readyTeams(p *pairing.Pairer) [][]string {
	s := p.Session()
	free := make(map[string]bool)
	for _, id := range s.FreePlayers() {
		free[id] = true
	}

	type team struct {
		ids []string
		pr  wait.Priority
	}
	var ready []team
	for _, t := range s.Config.LockedTeams {
		if !free[t[0]] || !free[t[1]] {
			continue
		}
		pr := wait.Priority{ID: model.TeamKey(t), GamesPlayed: math.MaxInt}
		for _, id := range t {
			member := p.Priority(id)
			pr.Wait = max(pr.Wait, member.Wait)
			pr.GamesPlayed = min(pr.GamesPlayed, member.GamesPlayed)
		}
		ready = append(ready, team{ids: slices.Clone(t), pr: pr})
	}

	calc := p.Waits()
	slices.SortStableFunc(ready, func(a, b team) int {
		return calc.Compare(a.pr, b.pr)
	})
	out := make([][]string, len(ready))
	for i, t := range ready {
		out[i] = t.ids
	}
	return out
}

func lastN(keys []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if len(keys) <= n {
		return keys
	}
	return keys[len(keys)-n:]
}
