package pairing

import (
	"github.com/intinig/go-openskill/rating"
	"github.com/intinig/go-openskill/types"
)

const (
	// elo points per openskill mu unit; 1500 maps to the openskill default of 25
	eloPerMu = 60.0

	provisionalSigma = 25.0 / 3.0
	establishedSigma = 25.0 / 6.0
)

// Quality predicts the draw probability of team1 vs team2, 0..1.
// Closer to 1 means a more even match.
func (p *Pairer) Quality(team1, team2 []string) float64 {
	if len(team1) == 0 || len(team2) == 0 {
		return 0
	}
	teams := []types.Team{p.skillTeam(team1), p.skillTeam(team2)}
	return rating.PredictDraw(teams, nil)
}

func (p *Pairer) skillTeam(ids []string) types.Team {
	team := make(types.Team, 0, len(ids))
	for _, id := range ids {
		sigma := establishedSigma
		if p.ranking.IsProvisional(id) {
			sigma = provisionalSigma
		}
		team = append(team, types.Rating{
			Mu:    p.Rating(id) / eloPerMu,
			Sigma: sigma,
			Z:     3,
		})
	}
	return team
}
