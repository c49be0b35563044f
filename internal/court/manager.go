// Package court owns a session and drives it: it fills empty courts through
// the mode's strategy and applies results, forfeits, manual matches and
// roster changes.
//
// A Manager is not safe for concurrent use. Callers serialize calls per
// session.
package court

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/derekprior/courtq/internal/adaptive"
	"github.com/derekprior/courtq/internal/config"
	"github.com/derekprior/courtq/internal/model"
	"github.com/derekprior/courtq/internal/pairing"
	"github.com/derekprior/courtq/internal/rating"
	"github.com/derekprior/courtq/internal/strategy"
	"github.com/derekprior/courtq/internal/wait"
)

type Manager struct {
	s        *model.Session
	strategy strategy.Strategy
	log      *zap.Logger
}

type Option func(*options)

type options struct {
	now func() time.Time
	log *zap.Logger
}

// WithClock injects the time source. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// New applies defaults to cfg, validates it and starts a session with
// every configured player on the waitlist.
func New(cfg *config.Config, opts ...Option) (*Manager, error) {
	o := options{now: time.Now, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	strat, err := strategy.Get(cfg.Mode())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	s := model.NewSession(cfg, o.now)
	now := s.Now()
	for _, id := range s.ActivePlayers() {
		s.Stats(id).StartWaiting(now)
	}
	m := &Manager{
		s:        s,
		strategy: strat,
		log:      o.log.With(zap.String("session", s.ID), zap.String("mode", cfg.Mode().String())),
	}
	return m, nil
}

// Session exposes the underlying state for read-only use by hosts.
func (m *Manager) Session() *model.Session { return m.s }

// Advance fills as many empty courts as the waitlist allows and starts the
// new matches. Zero matches is not an error.
func (m *Manager) Advance() ([]*model.Match, error) {
	s := m.s
	if err := s.CheckConsistency(); err != nil {
		m.log.Error("session state inconsistent", zap.Error(err))
		return nil, err
	}
	courts := s.EmptyCourts()
	if len(courts) == 0 {
		return nil, nil
	}

	p := pairing.New(s, m.log)
	if s.Mode.QueueDriven() && len(s.Queue) == 0 {
		s.Queue = strategy.BuildQueue(p, strategy.QueueLength(s))
		m.log.Debug("queue built", zap.Int("entries", len(s.Queue)))
	}

	matches := m.strategy.Fill(p, courts)
	now := s.Now()
	for _, match := range matches {
		match.Quality = p.Quality(match.Team1, match.Team2)
		m.start(match, now)
		if match.Relaxed {
			s.Relaxations++
		}
	}
	if len(matches) > 0 {
		for _, id := range s.FreePlayers() {
			s.Stats(id).WaitCount++
		}
	}

	m.log.Debug("advance",
		zap.Int("empty_courts", len(courts)),
		zap.Int("placed", len(matches)),
		zap.Int("waiting", len(s.FreePlayers())),
		zap.String("phase", p.Settings().Phase.String()))
	return matches, nil
}

func (m *Manager) start(match *model.Match, now time.Time) {
	match.Status = model.InProgress
	match.Start = now
	m.s.Matches = append(m.s.Matches, match)
	for _, id := range match.Players() {
		m.s.Stats(id).StopWaiting(now)
	}
}

// Complete records a final score. Ties are rejected. The returned slides
// describe where each player goes next.
func (m *Manager) Complete(id string, team1Score, team2Score int) ([]model.CourtSlide, error) {
	match, err := m.activeMatch(id)
	if err != nil {
		return nil, err
	}
	if team1Score < 0 || team2Score < 0 {
		return nil, fmt.Errorf("%w: negative score %d-%d", model.ErrValidation, team1Score, team2Score)
	}
	if team1Score == team2Score {
		return nil, fmt.Errorf("%w: tied score %d-%d", model.ErrValidation, team1Score, team2Score)
	}

	match.Status = model.Completed
	match.Score = &model.Score{Team1: team1Score, Team2: team2Score}
	m.s.ApplyResult(match)
	slides := m.release(match)

	if err := m.s.CheckConsistency(); err != nil {
		m.log.Error("session state inconsistent after completion", zap.Int("match", match.Number), zap.Error(err))
		return slides, err
	}
	m.log.Info("match completed",
		zap.Int("match", match.Number),
		zap.Int("court", match.Court),
		zap.Int("team1_score", team1Score),
		zap.Int("team2_score", team2Score))
	return slides, nil
}

// Forfeit ends a match without a result. Nobody's stats change.
func (m *Manager) Forfeit(id string) ([]model.CourtSlide, error) {
	match, err := m.activeMatch(id)
	if err != nil {
		return nil, err
	}
	match.Status = model.Forfeited
	m.log.Info("match forfeited", zap.Int("match", match.Number), zap.Int("court", match.Court))
	return m.release(match), nil
}

// release ends a match's hold on its court and players.
func (m *Manager) release(match *model.Match) []model.CourtSlide {
	now := m.s.Now()
	match.End = now
	for _, id := range match.Players() {
		if m.s.Active[id] {
			m.s.Stats(id).StartWaiting(now)
		}
	}
	m.s.Vacated[match.Court] = match.Players()
	return m.strategy.Finished(m.s, match)
}

func (m *Manager) activeMatch(id string) (*model.Match, error) {
	match, err := m.s.Match(id)
	if err != nil {
		return nil, err
	}
	if match.Terminal() {
		return nil, fmt.Errorf("match %d is %s: %w", match.Number, match.Status, model.ErrTerminal)
	}
	return match, nil
}

// CreateManual puts a hand-picked match on an empty court and starts it.
func (m *Manager) CreateManual(court int, team1, team2 []string) (*model.Match, error) {
	if court < 1 || court > m.s.Config.Session.Courts {
		return nil, fmt.Errorf("%w: court %d out of range 1-%d", model.ErrValidation, court, m.s.Config.Session.Courts)
	}
	if existing := m.s.MatchOnCourt(court); existing != nil {
		return nil, fmt.Errorf("%w: court %d is occupied by match %d", model.ErrValidation, court, existing.Number)
	}
	if err := m.checkTeams(team1, team2, nil); err != nil {
		return nil, err
	}

	match := m.s.NewMatch(court, team1, team2)
	match.Manual = true
	match.Quality = pairing.New(m.s, m.log).Quality(team1, team2)
	m.start(match, m.s.Now())
	m.log.Info("manual match created", zap.Int("match", match.Number), zap.Int("court", court))
	return match, nil
}

// EditTeams replaces the teams of a match still on court. Players leaving
// the match go back to the waitlist.
func (m *Manager) EditTeams(id string, team1, team2 []string) error {
	match, err := m.activeMatch(id)
	if err != nil {
		return err
	}
	if err := m.checkTeams(team1, team2, match); err != nil {
		return err
	}

	now := m.s.Now()
	incoming := append(slices.Clone(team1), team2...)
	for _, pid := range match.Players() {
		if !slices.Contains(incoming, pid) {
			m.s.Stats(pid).StartWaiting(now)
		}
	}
	for _, pid := range incoming {
		m.s.Stats(pid).StopWaiting(now)
	}
	match.Team1 = slices.Clone(team1)
	match.Team2 = slices.Clone(team2)
	match.Manual = true
	match.Quality = pairing.New(m.s, m.log).Quality(team1, team2)
	m.log.Info("match teams edited", zap.Int("match", match.Number))
	return nil
}

// checkTeams validates hand-built teams. self is the match being edited, if
// any; its own players do not count as busy.
func (m *Manager) checkTeams(team1, team2 []string, self *model.Match) error {
	cfg := m.s.Config
	size := cfg.Session.TeamSize
	if len(team1) != size || len(team2) != size {
		return fmt.Errorf("%w: teams must have %d players each, got %d and %d",
			model.ErrValidation, size, len(team1), len(team2))
	}
	all := append(slices.Clone(team1), team2...)
	if dups := lo.FindDuplicates(all); len(dups) > 0 {
		return fmt.Errorf("%w: player %q appears more than once", model.ErrValidation, dups[0])
	}

	busy := m.s.Busy()
	if self != nil {
		for _, id := range self.Players() {
			delete(busy, id)
		}
	}
	for _, id := range all {
		if _, ok := m.s.Roster[id]; !ok {
			return fmt.Errorf("%w: unknown player %q", model.ErrValidation, id)
		}
		if !m.s.Active[id] {
			return fmt.Errorf("%w: player %q is not active", model.ErrValidation, id)
		}
		if busy[id] {
			return fmt.Errorf("%w: player %q is already on court", model.ErrValidation, id)
		}
	}

	for _, team := range [][]string{team1, team2} {
		for i := range team {
			for j := i + 1; j < len(team); j++ {
				if cfg.IsBanned(team[i], team[j]) {
					return fmt.Errorf("%w: %q and %q may not partner", model.ErrValidation, team[i], team[j])
				}
			}
			if partner, ok := cfg.LockedPartner(team[i]); ok && !slices.Contains(team, partner) {
				return fmt.Errorf("%w: %q must partner %q", model.ErrValidation, team[i], partner)
			}
		}
	}
	return nil
}

// AddPlayer adds a new player, or brings back one who left, and puts them
// on the waitlist.
func (m *Manager) AddPlayer(p config.Player) error {
	if p.ID == "" {
		return fmt.Errorf("%w: player id is required", model.ErrValidation)
	}
	if m.s.Active[p.ID] {
		return fmt.Errorf("%w: player %q is already active", model.ErrValidation, p.ID)
	}
	if _, known := m.s.Roster[p.ID]; !known {
		m.s.Roster[p.ID] = p
	}
	m.s.Active[p.ID] = true
	m.s.Stats(p.ID).StartWaiting(m.s.Now())
	m.log.Info("player added", zap.String("player", p.ID))
	return nil
}

// RemovePlayer takes a player off the waitlist. Their history is kept.
// Players on court must finish or forfeit first.
func (m *Manager) RemovePlayer(id string) error {
	if !m.s.Active[id] {
		return fmt.Errorf("player %q: %w", id, model.ErrNotFound)
	}
	if m.s.Busy()[id] {
		return fmt.Errorf("%w: player %q is on court", model.ErrValidation, id)
	}
	m.s.Active[id] = false
	m.s.Stats(id).StopWaiting(m.s.Now())
	m.s.Queue = slices.DeleteFunc(m.s.Queue, func(q model.QueuedMatch) bool {
		return slices.Contains(q.Players(), id)
	})
	m.log.Info("player removed", zap.String("player", id))
	return nil
}

// EmptyCourts returns the courts with no active match.
func (m *Manager) EmptyCourts() []int { return m.s.EmptyCourts() }

// MatchForCourt returns the active match on court.
func (m *Manager) MatchForCourt(court int) (*model.Match, bool) {
	match := m.s.MatchOnCourt(court)
	return match, match != nil
}

// Waitlist returns free players, highest priority first.
func (m *Manager) Waitlist() []wait.Priority {
	return wait.ForSession(m.s).Order(m.s, m.s.FreePlayers())
}

// QueuedPairs renders the pending queue as "Ana & Ben vs Cal & Dee".
func (m *Manager) QueuedPairs() []string {
	return lo.Map(m.s.Queue, func(q model.QueuedMatch, _ int) string {
		line := m.teamName(q.Team1) + " vs " + m.teamName(q.Team2)
		if q.Blocked {
			line += " (blocked)"
		}
		return line
	})
}

func (m *Manager) teamName(team []string) string {
	return strings.Join(lo.Map(team, func(id string, _ int) string {
		return m.Name(id)
	}), " & ")
}

// Name returns a player's display name, falling back to the id.
func (m *Manager) Name(id string) string {
	if p, ok := m.s.Roster[id]; ok && p.Name != "" {
		return p.Name
	}
	return id
}

// Standing is one player's line in a Summary.
type Standing struct {
	ID            string
	Name          string
	Active        bool
	Rating        float64
	Rank          int
	Games         int
	Wins          int
	Losses        int
	PointsFor     int
	PointsAgainst int
	Wait          time.Duration
}

type Summary struct {
	Mode        config.Mode
	Phase       adaptive.Phase
	Courts      int
	InPlay      int
	Completed   int
	Forfeited   int
	Waiting     int
	Queued      int
	Relaxations int
	Standings   []Standing
}

// Summary reports session progress. Standings are ordered by wins, then
// point difference, then id.
func (m *Manager) Summary() Summary {
	s := m.s
	ranking := rating.ForSession(s)
	now := s.Now()
	sum := Summary{
		Mode:        s.Mode,
		Phase:       adaptive.Current(s).Phase,
		Courts:      s.Config.Session.Courts,
		InPlay:      len(s.ActiveMatches()),
		Completed:   s.Completed,
		Waiting:     len(s.FreePlayers()),
		Queued:      len(s.Queue),
		Relaxations: s.Relaxations,
		Forfeited: lo.CountBy(s.Matches, func(match *model.Match) bool {
			return match.Status == model.Forfeited
		}),
	}

	for _, id := range lo.Keys(s.Roster) {
		ps := s.Stats(id)
		sum.Standings = append(sum.Standings, Standing{
			ID:            id,
			Name:          m.Name(id),
			Active:        s.Active[id],
			Rating:        rating.For(s.Roster[id], ps, s.Config.Ranking.ProvisionalGames),
			Rank:          ranking.Rank(id),
			Games:         ps.GamesPlayed,
			Wins:          ps.Wins,
			Losses:        ps.Losses,
			PointsFor:     ps.PointsFor,
			PointsAgainst: ps.PointsAgainst,
			Wait:          ps.CurrentWait(now),
		})
	}
	slices.SortFunc(sum.Standings, func(a, b Standing) int {
		if a.Wins != b.Wins {
			return b.Wins - a.Wins
		}
		da, db := a.PointsFor-a.PointsAgainst, b.PointsFor-b.PointsAgainst
		if da != db {
			return db - da
		}
		return strings.Compare(a.ID, b.ID)
	})
	return sum
}
