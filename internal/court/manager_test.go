package court

import (
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derekprior/courtq/internal/config"
	"github.com/derekprior/courtq/internal/model"
	"github.com/derekprior/courtq/internal/pairing"
	"github.com/derekprior/courtq/internal/rating"
	"github.com/derekprior/courtq/internal/strategy"
)

type clock struct{ now time.Time }

func newClock() *clock {
	return &clock{now: time.Date(2026, 1, 6, 19, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func playerID(i int) string { return fmt.Sprintf("p%02d", i) }

func hasBoth(team []string, a, b string) bool {
	return slices.Contains(team, a) && slices.Contains(team, b)
}

type fixture struct {
	mode     config.Mode
	players  int
	courts   int
	teamSize int
	locked   [][]string
	banned   [][]string
}

func newManager(t *testing.T, f fixture) (*Manager, *clock) {
	t.Helper()
	cfg := &config.Config{
		Session:     config.Session{Mode: f.mode.String(), Courts: f.courts, TeamSize: f.teamSize},
		LockedTeams: f.locked,
		BannedPairs: f.banned,
	}
	for i := range f.players {
		id := playerID(i + 1)
		cfg.Players = append(cfg.Players, config.Player{ID: id, Name: strings.ToUpper(id)})
	}
	c := newClock()
	mgr, err := New(cfg, WithClock(c.Now))
	require.NoError(t, err)
	return mgr, c
}

func TestNew(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		cfg := &config.Config{Session: config.Session{Mode: "ladder"}}
		_, err := New(cfg)
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("everyone starts on the waitlist", func(t *testing.T) {
		mgr, _ := newManager(t, fixture{mode: config.CompetitiveVariety, players: 6, courts: 1})
		assert.Len(t, mgr.Waitlist(), 6)
		assert.Equal(t, []int{1}, mgr.EmptyCourts())
		assert.Equal(t, "P01", mgr.Name("p01"))
		assert.Equal(t, "ghost", mgr.Name("ghost"))
	})
}

func TestAdvance(t *testing.T) {
	t.Run("twelve players fill three courts", func(t *testing.T) {
		mgr, _ := newManager(t, fixture{mode: config.CompetitiveVariety, players: 12, courts: 3})
		matches, err := mgr.Advance()
		require.NoError(t, err)
		assert.Len(t, matches, 3)
		assert.Empty(t, mgr.Waitlist())
		assert.Empty(t, mgr.EmptyCourts())
		for _, m := range matches {
			assert.Equal(t, model.InProgress, m.Status)
			assert.Greater(t, m.Quality, 0.0)
			assert.LessOrEqual(t, m.Quality, 1.0)
		}
	})

	t.Run("full courts place nothing more", func(t *testing.T) {
		mgr, _ := newManager(t, fixture{mode: config.CompetitiveVariety, players: 8, courts: 2})
		matches, err := mgr.Advance()
		require.NoError(t, err)
		assert.Len(t, matches, 2)
		assert.Empty(t, mgr.Waitlist())

		matches, err = mgr.Advance()
		require.NoError(t, err)
		assert.Empty(t, matches)
		assert.Len(t, mgr.Session().Matches, 2)
	})

	t.Run("players left off earn a wait count", func(t *testing.T) {
		mgr, _ := newManager(t, fixture{mode: config.CompetitiveVariety, players: 10, courts: 2})
		_, err := mgr.Advance()
		require.NoError(t, err)
		waiting := mgr.Waitlist()
		require.Len(t, waiting, 2)
		for _, w := range waiting {
			assert.Equal(t, 1, mgr.Session().Stats(w.ID).WaitCount)
		}
	})

	t.Run("queue modes build a queue", func(t *testing.T) {
		mgr, _ := newManager(t, fixture{mode: config.RoundRobin, players: 8, courts: 2})
		matches, err := mgr.Advance()
		require.NoError(t, err)
		assert.Len(t, matches, 2)
		pairs := mgr.QueuedPairs()
		assert.Len(t, pairs, 12)
		assert.Contains(t, pairs[0], " vs ")
		assert.Contains(t, pairs[0], " & ")
	})

	t.Run("wave queues its first round", func(t *testing.T) {
		mgr, _ := newManager(t, fixture{mode: config.ContinuousWaveFlow, players: 8, courts: 2})
		matches, err := mgr.Advance()
		require.NoError(t, err)
		assert.Empty(t, matches)
		assert.Len(t, mgr.QueuedPairs(), 2)

		matches, err = mgr.Advance()
		require.NoError(t, err)
		assert.Len(t, matches, 2)
	})
}

func TestComplete(t *testing.T) {
	mgr, c := newManager(t, fixture{mode: config.CompetitiveVariety, players: 8, courts: 2})
	matches, err := mgr.Advance()
	require.NoError(t, err)
	m := matches[0]

	t.Run("rejects ties and negative scores", func(t *testing.T) {
		_, err := mgr.Complete(m.ID, 9, 9)
		assert.ErrorIs(t, err, model.ErrValidation)
		_, err = mgr.Complete(m.ID, -1, 11)
		assert.ErrorIs(t, err, model.ErrValidation)
		assert.Equal(t, model.InProgress, m.Status)
	})

	t.Run("unknown match", func(t *testing.T) {
		_, err := mgr.Complete("nope", 11, 3)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("records the result", func(t *testing.T) {
		c.Advance(12 * time.Minute)
		slides, err := mgr.Complete(m.ID, 11, 7)
		require.NoError(t, err)
		assert.Len(t, slides, 4)
		assert.Equal(t, model.Completed, m.Status)
		assert.Equal(t, c.Now(), m.End)

		for _, id := range m.Team1 {
			assert.Equal(t, 1, mgr.Session().Stats(id).Wins)
		}
		for _, id := range m.Team2 {
			assert.Equal(t, 1, mgr.Session().Stats(id).Losses)
		}
		assert.Equal(t, []int{m.Court}, mgr.EmptyCourts())
		assert.Len(t, mgr.Waitlist(), 4)
		assert.ElementsMatch(t, m.Players(), mgr.Session().Vacated[m.Court])
	})

	t.Run("terminal matches cannot change", func(t *testing.T) {
		_, err := mgr.Complete(m.ID, 11, 2)
		assert.ErrorIs(t, err, model.ErrTerminal)
		_, err = mgr.Forfeit(m.ID)
		assert.ErrorIs(t, err, model.ErrTerminal)
		assert.ErrorIs(t, mgr.EditTeams(m.ID, m.Team1, m.Team2), model.ErrTerminal)
	})

	t.Run("summary standings", func(t *testing.T) {
		sum := mgr.Summary()
		assert.Equal(t, 1, sum.Completed)
		assert.Equal(t, 1, sum.InPlay)
		assert.Equal(t, 4, sum.Waiting)
		require.Len(t, sum.Standings, 8)
		assert.Equal(t, 1, sum.Standings[0].Wins)
		assert.Equal(t, 1, sum.Standings[1].Wins)
		assert.Contains(t, m.Team1, sum.Standings[0].ID)
	})
}

func TestForfeit(t *testing.T) {
	mgr, _ := newManager(t, fixture{mode: config.CompetitiveVariety, players: 8, courts: 2})
	matches, err := mgr.Advance()
	require.NoError(t, err)
	m := matches[1]

	slides, err := mgr.Forfeit(m.ID)
	require.NoError(t, err)
	assert.Len(t, slides, 4)
	assert.Equal(t, model.Forfeited, m.Status)
	for _, id := range m.Players() {
		assert.Zero(t, mgr.Session().Stats(id).GamesPlayed)
	}
	assert.Zero(t, mgr.Session().Completed)
	assert.Equal(t, 1, mgr.Summary().Forfeited)
}

func TestCreateManual(t *testing.T) {
	mgr, _ := newManager(t, fixture{
		mode: config.CompetitiveVariety, players: 8, courts: 2,
		locked: [][]string{{"p01", "p02"}},
		banned: [][]string{{"p03", "p04"}},
	})

	tests := []struct {
		name         string
		court        int
		team1, team2 []string
	}{
		{"court out of range", 3, []string{"p01", "p02"}, []string{"p05", "p06"}},
		{"wrong team size", 1, []string{"p01", "p02", "p05"}, []string{"p06"}},
		{"duplicate player", 1, []string{"p05", "p06"}, []string{"p06", "p07"}},
		{"unknown player", 1, []string{"p05", "p06"}, []string{"p07", "zed"}},
		{"banned partners", 1, []string{"p03", "p04"}, []string{"p05", "p06"}},
		{"locked team split", 1, []string{"p01", "p05"}, []string{"p02", "p06"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mgr.CreateManual(tc.court, tc.team1, tc.team2)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}

	m, err := mgr.CreateManual(1, []string{"p01", "p02"}, []string{"p03", "p05"})
	require.NoError(t, err)
	assert.True(t, m.Manual)
	assert.Equal(t, model.InProgress, m.Status)
	got, ok := mgr.MatchForCourt(1)
	assert.True(t, ok)
	assert.Same(t, m, got)

	t.Run("occupied court", func(t *testing.T) {
		_, err := mgr.CreateManual(1, []string{"p06", "p07"}, []string{"p08", "p04"})
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("busy player", func(t *testing.T) {
		_, err := mgr.CreateManual(2, []string{"p05", "p06"}, []string{"p07", "p08"})
		assert.ErrorIs(t, err, model.ErrValidation)
	})
}

func TestEditTeams(t *testing.T) {
	mgr, _ := newManager(t, fixture{mode: config.CompetitiveVariety, players: 6, courts: 1})
	m, err := mgr.CreateManual(1, []string{"p01", "p02"}, []string{"p03", "p04"})
	require.NoError(t, err)

	require.NoError(t, mgr.EditTeams(m.ID, []string{"p01", "p05"}, []string{"p03", "p04"}))
	assert.Equal(t, []string{"p01", "p05"}, m.Team1)

	waiting := make([]string, 0)
	for _, w := range mgr.Waitlist() {
		waiting = append(waiting, w.ID)
	}
	assert.ElementsMatch(t, []string{"p02", "p06"}, waiting)
	assert.NoError(t, mgr.Session().CheckConsistency())

	t.Run("swapping sides is allowed", func(t *testing.T) {
		assert.NoError(t, mgr.EditTeams(m.ID, []string{"p03", "p04"}, []string{"p01", "p05"}))
	})

	t.Run("still validated", func(t *testing.T) {
		err := mgr.EditTeams(m.ID, []string{"p01", "p01"}, []string{"p03", "p04"})
		assert.ErrorIs(t, err, model.ErrValidation)
	})
}

func TestRoster(t *testing.T) {
	mgr, _ := newManager(t, fixture{mode: config.RoundRobin, players: 9, courts: 2})
	matches, err := mgr.Advance()
	require.NoError(t, err)
	require.Len(t, matches, 2)
	onCourt := matches[0].Team1[0]
	free := mgr.Waitlist()[0].ID

	t.Run("cannot remove a player on court", func(t *testing.T) {
		assert.ErrorIs(t, mgr.RemovePlayer(onCourt), model.ErrValidation)
	})

	t.Run("unknown player", func(t *testing.T) {
		assert.ErrorIs(t, mgr.RemovePlayer("nobody"), model.ErrNotFound)
	})

	t.Run("removal drops queue entries", func(t *testing.T) {
		require.NoError(t, mgr.RemovePlayer(free))
		for _, q := range mgr.Session().Queue {
			assert.NotContains(t, q.Players(), free)
		}
		for _, w := range mgr.Waitlist() {
			assert.NotEqual(t, free, w.ID)
		}
		assert.ErrorIs(t, mgr.RemovePlayer(free), model.ErrNotFound)
	})

	t.Run("players can return", func(t *testing.T) {
		require.NoError(t, mgr.AddPlayer(config.Player{ID: free}))
		assert.True(t, mgr.Session().Active[free])
		assert.ErrorIs(t, mgr.AddPlayer(config.Player{ID: free}), model.ErrValidation)
	})

	t.Run("new players join the waitlist", func(t *testing.T) {
		require.NoError(t, mgr.AddPlayer(config.Player{ID: "late", Name: "Latecomer"}))
		assert.Equal(t, "Latecomer", mgr.Name("late"))
		assert.ErrorIs(t, mgr.AddPlayer(config.Player{}), model.ErrValidation)
	})
}

// TestLongSession plays every mode for many matches and checks the hard
// rules after each one.
func TestLongSession(t *testing.T) {
	lockedTeams := [][]string{
		{"p01", "p02"}, {"p03", "p04"}, {"p05", "p06"},
		{"p07", "p08"}, {"p09", "p10"}, {"p11", "p12"},
	}
	fixtures := map[config.Mode]fixture{
		config.RoundRobin:             {players: 13},
		config.CompetitiveVariety:     {players: 16},
		config.TeamCompetitiveVariety: {players: 12, locked: lockedTeams},
		config.ContinuousWaveFlow:     {players: 16},
		config.StrictContinuousRR:     {players: 12},
		config.KingOfCourt:            {players: 16},
	}

	for mode, f := range fixtures {
		t.Run(mode.String(), func(t *testing.T) {
			f.mode, f.courts = mode, 3
			if f.locked == nil {
				f.locked = [][]string{{"p01", "p02"}}
				f.banned = [][]string{{"p03", "p04"}}
			}
			mgr, c := newManager(t, f)
			s := mgr.Session()
			searched := mode == config.CompetitiveVariety || mode == config.ContinuousWaveFlow || mode == config.KingOfCourt

			for game := range 40 {
				ranking := rating.ForSession(s)
				state := snapshot(s)
				started, err := mgr.Advance()
				require.NoError(t, err)
				if len(s.ActiveMatches()) == 0 {
					state = snapshot(s)
					started, err = mgr.Advance()
					require.NoError(t, err)
				}
				active := s.ActiveMatches()
				require.NotEmpty(t, active, "game %d: nothing on court", game)

				if mode != config.StrictContinuousRR {
					empty := s.EmptyCourts()
					assert.True(t, len(empty) == 0 || !legalGroup(s.Config, nil, s.FreePlayers(), nil, nil),
						"game %d: courts %v empty while %v could play", game, empty, s.FreePlayers())
				}

				seated := make(map[string]bool)
				for _, m := range started {
					checkTeams(t, s.Config, m)
					pool := lo.Filter(state.free, func(id string, _ int) bool { return !seated[id] })
					for _, id := range m.Players() {
						seated[id] = true
					}
					if !searched || !ranking.Bracketed() || ranking.GroupCompatible(m.Players()) {
						continue
					}
					var accept func([]string) bool
					if mode == config.ContinuousWaveFlow {
						accept = waveSwap(pool, state.vacated[m.Court])
					}
					assert.False(t, legalGroup(s.Config, ranking, pool, state.holders[m.Court], accept),
						"match %d crosses the bracket though %v held a group inside it", m.Number, pool)
				}

				c.Advance(7 * time.Minute)
				next := slices.MinFunc(active, func(a, b *model.Match) int { return a.Number - b.Number })
				score1, score2 := 11, game%9
				if game%2 == 1 {
					score1, score2 = score2, score1
				}
				_, err = mgr.Complete(next.ID, score1, score2)
				require.NoError(t, err)
				require.NoError(t, s.CheckConsistency())
			}

			assert.Equal(t, 40, s.Completed)
			for _, id := range s.ActivePlayers() {
				ps := s.Stats(id)
				assert.Positive(t, ps.GamesPlayed, "%s never played", id)
			}
		})
	}
}

// courtState is what the schedulers see before an advance.
type courtState struct {
	free    []string
	holders map[int][]string
	vacated map[int][]string
}

func snapshot(s *model.Session) courtState {
	st := courtState{free: s.FreePlayers(), holders: make(map[int][]string), vacated: make(map[int][]string)}
	for court, ids := range s.KingHolders {
		st.holders[court] = slices.Clone(ids)
	}
	for court, ids := range s.Vacated {
		st.vacated[court] = slices.Clone(ids)
	}
	return st
}

// waveSwap mirrors the wave rule that a rolled-over court brings in at
// least strategy.MinSwap players from outside the match that left it.
func waveSwap(pool, vacated []string) func([]string) bool {
	left := lo.Intersect(vacated, pool)
	if len(left) == 0 || len(pool)-len(left) < strategy.MinSwap {
		return nil
	}
	return func(group []string) bool {
		return len(lo.Without(group, left...)) >= strategy.MinSwap
	}
}

// legalGroup reports whether pool holds a doubles matchup that keeps locked
// teams whole, splits banned pairs and, with a ranking, stays compatible.
// A fixed team must be one side of it; accept, when set, must pass too.
func legalGroup(cfg *config.Config, ranking *rating.Ranking, pool, fixed []string, accept func([]string) bool) bool {
	pool = lo.Without(pool, fixed...)
	need := cfg.PlayersPerMatch() - len(fixed)
	found := false
	pairing.Combinations(len(pool), need, func(idx []int) {
		if found {
			return
		}
		picked := lo.Map(idx, func(i int, _ int) string { return pool[i] })
		group := append(slices.Clone(fixed), picked...)
		if ranking != nil && !ranking.GroupCompatible(group) {
			return
		}
		if accept != nil && !accept(group) {
			return
		}
		splits := [][2][]string{{fixed, picked}}
		if len(fixed) == 0 {
			g := group
			splits = [][2][]string{
				{{g[0], g[1]}, {g[2], g[3]}},
				{{g[0], g[2]}, {g[1], g[3]}},
				{{g[0], g[3]}, {g[1], g[2]}},
			}
		}
		for _, split := range splits {
			if legalTeam(cfg, split[0]) && legalTeam(cfg, split[1]) {
				found = true
				return
			}
		}
	})
	return found
}

func legalTeam(cfg *config.Config, team []string) bool {
	for _, id := range team {
		if partner, ok := cfg.LockedPartner(id); ok && !slices.Contains(team, partner) {
			return false
		}
	}
	return len(team) != 2 || !cfg.IsBanned(team[0], team[1])
}

func checkTeams(t *testing.T, cfg *config.Config, m *model.Match) {
	t.Helper()
	for _, team := range [][]string{m.Team1, m.Team2} {
		for _, pair := range cfg.BannedPairs {
			assert.False(t, hasBoth(team, pair[0], pair[1]), "match %d partners banned pair %v", m.Number, pair)
		}
		for _, id := range team {
			if partner, ok := cfg.LockedPartner(id); ok {
				assert.Contains(t, team, partner, "match %d splits locked team of %s", m.Number, id)
			}
		}
	}
}
