package pairing

import (
	"math"

	"github.com/derekprior/courtq/internal/model"
)

// Rejected is returned when the rating gap exceeds the phase cap. It is a
// soft signal: search skips the candidate unless it is relaxing.
const Rejected = -1_000_000.0

const (
	RepeatPenalty = 2000.0

	newPartnerBonus  = 100.0
	newOpponentBonus = 40.0

	homogeneityRange  = 300.0
	homogeneityWeight = 0.2
	clusterRange      = 200.0
	clusterBonus      = 50.0

	belowAverageBonus = 25.0 // per game under the session average

	freshPlayerBonus = 60.0 // inter-court: never played anywhere
	newCourtBonus    = 15.0 // inter-court: first game on this court

	waitBonusPerMinute = 2.0
)

// Score rates team1 vs team2 on court. Higher is better.
func (p *Pairer) Score(court int, team1, team2 []string) float64 {
	return p.score(court, team1, team2, true)
}

func (p *Pairer) score(court int, team1, team2 []string, enforceCap bool) float64 {
	avg1, avg2 := p.teamAverage(team1), p.teamAverage(team2)
	gap := math.Abs(avg1 - avg2)
	if enforceCap && gap > p.settings.GapCap {
		return Rejected
	}

	score := -gap * p.settings.Weight

	// homogeneity within each team and across the whole group
	for _, team := range [][]string{team1, team2} {
		spread := p.spread(team)
		score += math.Max(0, homogeneityRange-spread) * homogeneityWeight
	}
	all := append(append([]string{}, team1...), team2...)
	if p.spread(all) <= clusterRange {
		score += clusterBonus
	}

	score += p.varietyScore(team1, team2)

	interCourt := p.s.Mode.InterCourt()
	for _, id := range all {
		ps := p.s.Stats(id)
		if below := p.avgGames - float64(ps.GamesPlayed); below > 0 {
			score += below * belowAverageBonus
		}
		if interCourt {
			if ps.GamesPlayed == 0 {
				score += freshPlayerBonus
			} else if ps.Courts[court] == 0 {
				score += newCourtBonus
			}
		}
		score += p.Priority(id).Wait.Minutes() * waitBonusPerMinute
	}

	return score
}

// varietyScore rewards first-time relations and punishes every repeat.
func (p *Pairer) varietyScore(team1, team2 []string) float64 {
	score := 0.0
	cfg := p.s.Config
	for _, team := range [][]string{team1, team2} {
		for i := range team {
			for j := i + 1; j < len(team); j++ {
				if cfg.IsLocked(team[i], team[j]) {
					continue
				}
				if p.tracker.PartnerCount(team[i], team[j]) == 0 {
					score += newPartnerBonus
				} else {
					score -= RepeatPenalty
				}
			}
		}
	}
	for _, a := range team1 {
		for _, b := range team2 {
			if p.tracker.OpponentCount(a, b) == 0 {
				score += newOpponentBonus
			} else {
				score -= RepeatPenalty
			}
		}
	}
	if p.groups[model.GroupKey(team1, team2)] > 0 {
		score -= RepeatPenalty
	}
	return score
}

func (p *Pairer) teamAverage(team []string) float64 {
	if len(team) == 0 {
		return 0
	}
	total := 0.0
	for _, id := range team {
		total += p.ratings[id]
	}
	return total / float64(len(team))
}

func (p *Pairer) spread(ids []string) float64 {
	if len(ids) == 0 {
		return 0
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, id := range ids {
		r := p.ratings[id]
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}
	return hi - lo
}
