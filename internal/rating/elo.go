package rating

import (
	"github.com/derekprior/courtq/internal/config"
	"github.com/derekprior/courtq/internal/model"
)

const (
	Base = 1500.0
	Min  = 800.0
	Max  = 2200.0

	// a perfect record adds winRateSpan/2 over Base
	winRateSpan = 800.0
	// rating points per point of average margin
	marginWeight = 20.0

	// external 1.0-5.5 scale: 3.0 -> 1200, +500 per skill point, capped at 5.0
	seedAnchorSkill  = 3.0
	seedAnchorRating = 1200.0
	seedSlope        = 500.0
)

// FromStats derives a rating from win rate and average point margin.
// Players with no games get Base.
func FromStats(ps *model.PlayerStats) float64 {
	if ps == nil || ps.GamesPlayed == 0 {
		return Base
	}
	games := float64(ps.GamesPlayed)
	winRate := float64(ps.Wins) / games
	margin := float64(ps.PointsFor-ps.PointsAgainst) / games
	return clamp(Base + (winRate-0.5)*winRateSpan + margin*marginWeight)
}

// FromSkill maps an external skill rating onto the ELO scale.
func FromSkill(skill float64) float64 {
	return clamp(seedAnchorRating + (skill-seedAnchorSkill)*seedSlope)
}

// Provisional reports whether a player has too few games to be ranked.
func Provisional(ps *model.PlayerStats, threshold int) bool {
	return ps == nil || ps.GamesPlayed < threshold
}

// For returns the working rating of a player. A seeded skill wins while
// the player is still provisional.
func For(p config.Player, ps *model.PlayerStats, provisionalGames int) float64 {
	if p.Skill > 0 && Provisional(ps, provisionalGames) {
		return FromSkill(p.Skill)
	}
	return FromStats(ps)
}

// Ratings returns the working rating of every active player.
func Ratings(s *model.Session) map[string]float64 {
	out := make(map[string]float64, len(s.Active))
	for _, id := range s.ActivePlayers() {
		out[id] = For(s.Roster[id], s.Stats(id), s.Config.Ranking.ProvisionalGames)
	}
	return out
}

func clamp(r float64) float64 {
	return min(max(r, Min), Max)
}
