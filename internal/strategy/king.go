package strategy

import (
	"slices"

	"go.uber.org/zap"

	"github.com/derekprior/courtq/internal/config"
	"github.com/derekprior/courtq/internal/model"
	"github.com/derekprior/courtq/internal/pairing"
)

// KingMaxStreak is how many wins in a row retire the holding team.
const KingMaxStreak = 3

// KingOfCourt keeps winners on their court to face the best challengers
// from the waitlist. Courts with no holder fill like CompetitiveVariety.
type KingOfCourt struct{}

func (*KingOfCourt) Mode() config.Mode { return config.KingOfCourt }

func (*KingOfCourt) Fill(p *pairing.Pairer, courts []int) []*model.Match {
	s := p.Session()
	used := seats{}

	// holders are spoken for until their own court is considered
	reserved := seats{}
	for _, court := range courts {
		reserved.take(s.KingHolders[court]...)
	}

	var out []*model.Match
	var open []int
	for _, court := range courts {
		holders := s.KingHolders[court]
		if len(holders) == 0 {
			open = append(open, court)
			continue
		}
		if !playable(s, holders, used) {
			dethrone(s, court)
			open = append(open, court)
			continue
		}
		free := p.Ordered(s.FreePlayers())
		c, ok := p.Best(pairing.Request{
			Court: court,
			Pool:  reserved.without(used.without(free)),
			Fixed: holders,
		})
		if !ok {
			p.Logger().Info("no challengers for court holders",
				zap.Int("court", court),
				zap.Strings("holders", holders))
			used.take(holders...)
			continue
		}
		p.Note(c.Team1, c.Team2)
		used.take(c.Team1...)
		used.take(c.Team2...)
		out = append(out, place(p, c))
	}

	for _, c := range searchCourts(p, open, used) {
		out = append(out, place(p, c))
	}
	return out
}

// Finished keeps winners on court until they hit the streak limit. Losers,
// and retiring winners, slide to the waitlist.
func (*KingOfCourt) Finished(s *model.Session, m *model.Match) []model.CourtSlide {
	if m.Status != model.Completed {
		dethrone(s, m.Court)
		return slideAll(m.Players(), m.Court)
	}

	winners := m.Winners()
	streak := 1
	if model.TeamKey(s.KingHolders[m.Court]) == model.TeamKey(winners) {
		streak = s.KingStreak[m.Court] + 1
	}
	if streak >= KingMaxStreak {
		dethrone(s, m.Court)
		return slideAll(m.Players(), m.Court)
	}
	s.KingHolders[m.Court] = slices.Clone(winners)
	s.KingStreak[m.Court] = streak
	return slideAll(m.Losers(), m.Court)
}

func dethrone(s *model.Session, court int) {
	delete(s.KingHolders, court)
	delete(s.KingStreak, court)
}
