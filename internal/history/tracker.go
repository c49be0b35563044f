// Package history answers whether two players may partner or oppose each
// other given their match history.
package history

import (
	"slices"

	"github.com/derekprior/courtq/internal/adaptive"
	"github.com/derekprior/courtq/internal/config"
	"github.com/derekprior/courtq/internal/model"
)

// GuardLookback is how many games back the partner->opponent->partner guard
// looks for the intervening opponent match.
const GuardLookback = 6

// Tracker evaluates role eligibility against the session's stats.
type Tracker struct {
	s        *model.Session
	cfg      *config.Config
	settings adaptive.Settings
	relaxed  bool
}

// New returns a tracker using the limits in settings.
func New(s *model.Session, settings adaptive.Settings) *Tracker {
	return &Tracker{s: s, cfg: s.Config, settings: settings}
}

// Relaxed returns a copy of the tracker that ignores gap, back-to-back and
// guard rules. Locks and bans still apply.
func (t *Tracker) Relaxed() *Tracker {
	c := *t
	c.relaxed = true
	return &c
}

// CanPartner reports whether a and b may be teammates now.
func (t *Tracker) CanPartner(a, b string) bool {
	if t.cfg.IsBanned(a, b) {
		return false
	}
	if t.cfg.IsLocked(a, b) {
		return true
	}
	if t.relaxed {
		return true
	}
	pa, pb := t.s.Stats(a), t.s.Stats(b)
	if slices.Contains(pa.LastPartners, b) || slices.Contains(pb.LastPartners, a) {
		return false
	}
	if !gapOK(pa, pa.Partners, b, t.settings.PartnerLimit) || !gapOK(pb, pb.Partners, a, t.settings.PartnerLimit) {
		return false
	}
	if t.settings.Phase >= adaptive.Mid && partnerOpponentPartner(pa, b) {
		return false
	}
	return true
}

// CanOppose reports whether a and b may face each other now.
func (t *Tracker) CanOppose(a, b string) bool {
	if t.cfg.IsLocked(a, b) {
		return false
	}
	if t.relaxed {
		return true
	}
	pa, pb := t.s.Stats(a), t.s.Stats(b)
	if slices.Contains(pa.LastOpponents, b) || slices.Contains(pb.LastOpponents, a) {
		return false
	}
	return gapOK(pa, pa.Opponents, b, t.settings.OpponentLimit) && gapOK(pb, pb.Opponents, a, t.settings.OpponentLimit)
}

// TeamsAllowed checks every partner pair within each team and every
// opponent pair across them.
func (t *Tracker) TeamsAllowed(team1, team2 []string) bool {
	return t.PartnersAllowed(team1) && t.PartnersAllowed(team2) && t.OpponentsAllowed(team1, team2)
}

// PartnersAllowed checks every partner pair within team.
func (t *Tracker) PartnersAllowed(team []string) bool {
	for i := range team {
		for j := i + 1; j < len(team); j++ {
			if !t.CanPartner(team[i], team[j]) {
				return false
			}
		}
	}
	return true
}

// OpponentsAllowed checks every pair across the two teams.
func (t *Tracker) OpponentsAllowed(team1, team2 []string) bool {
	for _, a := range team1 {
		for _, b := range team2 {
			if !t.CanOppose(a, b) {
				return false
			}
		}
	}
	return true
}

// PartnerCount and OpponentCount expose the symmetric relation counters.
func (t *Tracker) PartnerCount(a, b string) int {
	return t.s.Stats(a).Partners[b].Count
}

func (t *Tracker) OpponentCount(a, b string) int {
	return t.s.Stats(a).Opponents[b].Count
}

// gapOK requires at least limit games since the relation last formed.
func gapOK(ps *model.PlayerStats, rel map[string]model.Relation, other string, limit int) bool {
	r, ok := rel[other]
	if !ok || r.Count == 0 {
		return true
	}
	return ps.GamesPlayed-r.LastGame >= limit
}

// partnerOpponentPartner is true when a and b partnered, then most recently
// met as opponents within the lookback window.
func partnerOpponentPartner(pa *model.PlayerStats, b string) bool {
	partnered, okP := pa.Partners[b]
	opposed, okO := pa.Opponents[b]
	if !okP || !okO || partnered.Count == 0 || opposed.Count == 0 {
		return false
	}
	if opposed.LastGame <= partnered.LastGame {
		return false
	}
	return pa.GamesPlayed-opposed.LastGame < GuardLookback
}
