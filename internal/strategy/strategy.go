package strategy

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/derekprior/courtq/internal/config"
	"github.com/derekprior/courtq/internal/model"
	"github.com/derekprior/courtq/internal/pairing"
)

// Strategy fills empty courts for one game mode.
type Strategy interface {
	Mode() config.Mode

	// Fill proposes matches for the given empty courts. Matches are
	// allocated on the session but not appended or started; the caller
	// does that. Fewer matches than courts is normal.
	Fill(p *pairing.Pairer, courts []int) []*model.Match

	// Finished is called once a match is completed or forfeited, after
	// stats are applied. It returns the court slides to show.
	Finished(s *model.Session, m *model.Match) []model.CourtSlide
}

// Get returns the Strategy for a mode.
func Get(mode config.Mode) (Strategy, error) {
	switch mode {
	case config.RoundRobin:
		return &RoundRobin{}, nil
	case config.CompetitiveVariety:
		return &CompetitiveVariety{}, nil
	case config.TeamCompetitiveVariety:
		return &TeamVariety{}, nil
	case config.ContinuousWaveFlow:
		return &WaveFlow{}, nil
	case config.StrictContinuousRR:
		return &StrictRoundRobin{}, nil
	case config.KingOfCourt:
		return &KingOfCourt{}, nil
	default:
		return nil, fmt.Errorf("unknown mode: %v", mode)
	}
}

// offCourt is the default Finished behaviour: everyone returns to the
// waitlist.
type offCourt struct{}

func (offCourt) Finished(_ *model.Session, m *model.Match) []model.CourtSlide {
	return slideAll(m.Players(), m.Court)
}

func slideAll(ids []string, court int) []model.CourtSlide {
	return lo.Map(ids, func(id string, _ int) model.CourtSlide {
		return model.CourtSlide{Player: id, From: court, To: 0}
	})
}

// place allocates a match for a search candidate.
func place(p *pairing.Pairer, c pairing.Candidate) *model.Match {
	m := p.Session().NewMatch(c.Court, c.Team1, c.Team2)
	m.Relaxed = c.Relaxed
	return m
}

// seats tracks which players a pass has already put on a court.
type seats map[string]bool

func (u seats) take(ids ...string) {
	for _, id := range ids {
		u[id] = true
	}
}

func (u seats) anyTaken(ids []string) bool {
	return lo.SomeBy(ids, func(id string) bool { return u[id] })
}

func (u seats) without(ids []string) []string {
	return lo.Filter(ids, func(id string, _ int) bool { return !u[id] })
}

// searchCourts runs the team formation search court by court over the free
// players in priority order. It stops at the first court it cannot fill.
func searchCourts(p *pairing.Pairer, courts []int, used seats) []pairing.Candidate {
	free := p.Ordered(p.Session().FreePlayers())
	var out []pairing.Candidate
	for _, court := range courts {
		c, ok := p.Best(pairing.Request{Court: court, Pool: used.without(free)})
		if !ok {
			break
		}
		p.Note(c.Team1, c.Team2)
		used.take(c.Team1...)
		used.take(c.Team2...)
		out = append(out, c)
	}
	return out
}

// CompetitiveVariety fills every empty court straight from the search.
type CompetitiveVariety struct{ offCourt }

func (*CompetitiveVariety) Mode() config.Mode { return config.CompetitiveVariety }

func (*CompetitiveVariety) Fill(p *pairing.Pairer, courts []int) []*model.Match {
	return lo.Map(searchCourts(p, courts, seats{}), func(c pairing.Candidate, _ int) *model.Match {
		return place(p, c)
	})
}
