// Package schedule plays out a whole session against a simulated clock.
// Match lengths and results come from a seeded random source, so a given
// config and seed always produce the same session.
package schedule

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/derekprior/courtq/internal/config"
	"github.com/derekprior/courtq/internal/court"
	"github.com/derekprior/courtq/internal/model"
	"github.com/derekprior/courtq/internal/rating"
)

const (
	DefaultMinLength = 10 * time.Minute
	DefaultMaxLength = 18 * time.Minute

	winningScore = 11
	// rating points for 10:1 odds, as in chess ELO
	eloScale = 400.0
)

// Options tune a simulated session.
type Options struct {
	Matches     int   // stop once this many matches have ended
	Seed        int64 // seeds match lengths and results
	MinLength   time.Duration
	MaxLength   time.Duration
	Start       time.Time
	ForfeitRate float64 // chance a match ends in a forfeit, 0-1
}

func (o *Options) applyDefaults() {
	if o.MinLength == 0 {
		o.MinLength = DefaultMinLength
	}
	if o.MaxLength < o.MinLength {
		o.MaxLength = max(DefaultMaxLength, o.MinLength)
	}
	if o.Start.IsZero() {
		o.Start = time.Date(2026, 1, 6, 19, 0, 0, 0, time.UTC)
	}
}

// PlayerMetrics holds per-player session statistics.
type PlayerMetrics struct {
	Games     int
	Wins      int
	Partners  int // distinct
	Opponents int // distinct
	Courts    int // distinct
	Wait      time.Duration
}

// Result is the output of a simulated session.
type Result struct {
	Manager       *court.Manager
	Warnings      []string
	PlayerMetrics map[string]*PlayerMetrics
}

// Simulate runs a session until opts.Matches matches have ended or no court
// can be filled. On failure it returns the partial Result alongside the
// error.
func Simulate(cfg *config.Config, opts Options, log *zap.Logger) (*Result, error) {
	opts.applyDefaults()
	sim := &simulator{
		clock: opts.Start,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		opts:  opts,
		ends:  make(map[string]time.Time),
	}
	mgr, err := court.New(cfg,
		court.WithClock(func() time.Time { return sim.clock }),
		court.WithLogger(log))
	if err != nil {
		return nil, err
	}
	sim.mgr = mgr

	runErr := sim.run()
	warnings, metrics := sim.buildMetrics()
	return &Result{Manager: mgr, Warnings: warnings, PlayerMetrics: metrics}, runErr
}

type simulator struct {
	mgr   *court.Manager
	clock time.Time
	rng   *rand.Rand
	opts  Options
	ends  map[string]time.Time // match id -> simulated finish
	ended int
	stall bool
}

func (s *simulator) run() error {
	for s.ended < s.opts.Matches {
		if err := s.advance(); err != nil {
			return err
		}

		active := s.mgr.Session().ActiveMatches()
		if len(active) == 0 {
			s.stall = true
			return nil
		}
		next := slices.MinFunc(active, func(a, b *model.Match) int {
			if c := s.ends[a.ID].Compare(s.ends[b.ID]); c != 0 {
				return c
			}
			return a.Number - b.Number
		})
		s.clock = s.ends[next.ID]

		if s.rng.Float64() < s.opts.ForfeitRate {
			if _, err := s.mgr.Forfeit(next.ID); err != nil {
				return fmt.Errorf("forfeiting match %d: %w", next.Number, err)
			}
		} else {
			s1, s2 := s.score(next)
			if _, err := s.mgr.Complete(next.ID, s1, s2); err != nil {
				return fmt.Errorf("completing match %d: %w", next.Number, err)
			}
		}
		s.ended++
	}
	return nil
}

// advance fills courts. A pass that only queues a round for review is
// followed by one more pass to start it.
func (s *simulator) advance() error {
	started, err := s.mgr.Advance()
	if err != nil {
		return fmt.Errorf("advancing: %w", err)
	}
	if len(started) == 0 && len(s.mgr.Session().Queue) > 0 {
		if started, err = s.mgr.Advance(); err != nil {
			return fmt.Errorf("advancing: %w", err)
		}
	}
	span := s.opts.MaxLength - s.opts.MinLength
	for _, m := range started {
		length := s.opts.MinLength
		if span > 0 {
			length += time.Duration(s.rng.Int63n(int64(span)))
		}
		s.ends[m.ID] = s.clock.Add(length)
	}
	return nil
}

// score draws a result. The stronger team wins with ELO odds; the loser
// scores 0-9.
func (s *simulator) score(m *model.Match) (int, int) {
	r1, r2 := s.teamRating(m.Team1), s.teamRating(m.Team2)
	pTeam1 := 1 / (1 + math.Pow(10, (r2-r1)/eloScale))
	loser := s.rng.Intn(winningScore - 1)
	if s.rng.Float64() < pTeam1 {
		return winningScore, loser
	}
	return loser, winningScore
}

func (s *simulator) teamRating(team []string) float64 {
	sess := s.mgr.Session()
	total := 0.0
	for _, id := range team {
		total += rating.For(sess.Roster[id], sess.Stats(id), sess.Config.Ranking.ProvisionalGames)
	}
	return total / float64(len(team))
}

func (s *simulator) buildMetrics() ([]string, map[string]*PlayerMetrics) {
	var warnings []string
	sess := s.mgr.Session()
	metrics := make(map[string]*PlayerMetrics)

	ids := sess.ActivePlayers()
	for _, id := range ids {
		ps := sess.Stats(id)
		metrics[id] = &PlayerMetrics{
			Games:     ps.GamesPlayed,
			Wins:      ps.Wins,
			Partners:  len(ps.Partners),
			Opponents: len(ps.Opponents),
			Courts:    len(ps.Courts),
			Wait:      ps.CurrentWait(s.clock),
		}
	}

	if s.stall {
		warnings = append(warnings, fmt.Sprintf("session stalled after %d matches: no court could be filled", s.ended))
	}
	if sess.Relaxations > 0 {
		warnings = append(warnings, fmt.Sprintf("%d matches were built with relaxed constraints", sess.Relaxations))
	}

	// Games balance
	maxGames, minGames := 0, math.MaxInt
	for _, id := range ids {
		m := metrics[id]
		maxGames = max(maxGames, m.Games)
		minGames = min(minGames, m.Games)
		if m.Games == 0 && s.ended > 0 {
			warnings = append(warnings, fmt.Sprintf("%s never played", id))
		}
	}
	if len(ids) > 0 && maxGames-minGames > 2 {
		warnings = append(warnings, fmt.Sprintf(
			"games imbalance: min %d, max %d across players", minGames, maxGames))
	}

	return warnings, metrics
}
