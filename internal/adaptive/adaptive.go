// Package adaptive tunes repetition strictness and balance weight as a
// session progresses.
package adaptive

import (
	"math"

	"github.com/derekprior/courtq/internal/config"
	"github.com/derekprior/courtq/internal/model"
)

type Phase int

const (
	Early Phase = iota
	Mid
	Late
)

func (p Phase) String() string {
	switch p {
	case Mid:
		return "mid"
	case Late:
		return "late"
	default:
		return "early"
	}
}

const (
	// phase boundaries in games per active player
	MidGamesPerPlayer  = 4.0
	LateGamesPerPlayer = 6.0

	limitFloor = 1
)

var (
	phaseWeights = map[Phase]float64{Early: 1.0, Mid: 3.0, Late: 5.0}
	phaseGapCaps = map[Phase]float64{Early: 400, Mid: 300, Late: 200}
)

// Settings are the knobs a phase hands to the tracker and scorer.
type Settings struct {
	Phase         Phase
	PartnerLimit  int
	OpponentLimit int
	Weight        float64
	GapCap        float64 // max team-average rating gap before rejection
}

// Thresholds returns the completed-match counts at which Mid and Late begin
// for a roster of players, playersPerMatch on each court.
func Thresholds(players, playersPerMatch int) (mid, late int) {
	if players <= 0 || playersPerMatch <= 0 {
		return 0, 0
	}
	perMatch := float64(playersPerMatch)
	mid = int(math.Ceil(MidGamesPerPlayer * float64(players) / perMatch))
	late = int(math.Ceil(LateGamesPerPlayer * float64(players) / perMatch))
	return mid, late
}

// PhaseFor maps a completed-match count onto a phase.
func PhaseFor(completed, players, playersPerMatch int) Phase {
	mid, late := Thresholds(players, playersPerMatch)
	switch {
	case players == 0:
		return Early
	case completed >= late:
		return Late
	case completed >= mid:
		return Mid
	default:
		return Early
	}
}

// For returns the settings for phase given the configured base limits.
// Limits step down by one per phase, never below 1. A disabled controller
// always answers with Early settings; a weight override pins only the weight.
func For(phase Phase, cfg *config.Config) Settings {
	if cfg.Adaptive.Disabled {
		phase = Early
	}
	step := int(phase)
	s := Settings{
		Phase:         phase,
		PartnerLimit:  max(cfg.Repetition.PartnerGap-step, limitFloor),
		OpponentLimit: max(cfg.Repetition.OpponentGap-step, limitFloor),
		Weight:        phaseWeights[phase],
		GapCap:        phaseGapCaps[phase],
	}
	if cfg.Adaptive.Disabled {
		s.Weight = phaseWeights[Early]
	} else if cfg.Adaptive.WeightOverride > 0 {
		s.Weight = cfg.Adaptive.WeightOverride
	}
	return s
}

// Current returns the settings for the session's progress so far.
func Current(s *model.Session) Settings {
	phase := PhaseFor(s.Completed, len(s.ActivePlayers()), s.Config.PlayersPerMatch())
	return For(phase, s.Config)
}
