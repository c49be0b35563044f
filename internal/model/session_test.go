package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derekprior/courtq/internal/config"
)

func testSession(t *testing.T, players int) (*Session, *time.Time) {
	t.Helper()
	cfg := &config.Config{Session: config.Session{Courts: 2}}
	for i := range players {
		cfg.Players = append(cfg.Players, config.Player{ID: fmt.Sprintf("p%d", i+1)})
	}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	now := time.Date(2026, 1, 6, 19, 0, 0, 0, time.UTC)
	return NewSession(cfg, func() time.Time { return now }), &now
}

func completed(s *Session, court int, team1, team2 []string, s1, s2 int) *Match {
	m := s.NewMatch(court, team1, team2)
	m.Status = Completed
	m.Score = &Score{Team1: s1, Team2: s2}
	s.Matches = append(s.Matches, m)
	s.ApplyResult(m)
	return m
}

func TestApplyResult(t *testing.T) {
	s, _ := testSession(t, 4)
	completed(s, 1, []string{"p1", "p2"}, []string{"p3", "p4"}, 11, 7)

	t.Run("games and results", func(t *testing.T) {
		for _, id := range []string{"p1", "p2", "p3", "p4"} {
			ps := s.Stats(id)
			assert.Equal(t, 1, ps.GamesPlayed, id)
			assert.Equal(t, ps.GamesPlayed, ps.Wins+ps.Losses, id)
			assert.Equal(t, 1, ps.Courts[1], id)
		}
		assert.Equal(t, 1, s.Stats("p1").Wins)
		assert.Equal(t, 1, s.Stats("p4").Losses)
		assert.Equal(t, 11, s.Stats("p2").PointsFor)
		assert.Equal(t, 7, s.Stats("p2").PointsAgainst)
		assert.Equal(t, 1, s.Completed)
	})

	t.Run("relations are symmetric", func(t *testing.T) {
		completed(s, 2, []string{"p1", "p3"}, []string{"p2", "p4"}, 5, 11)
		ids := []string{"p1", "p2", "p3", "p4"}
		for _, a := range ids {
			for _, b := range ids {
				assert.Equal(t, s.Stats(a).Partners[b].Count, s.Stats(b).Partners[a].Count, "partners %s/%s", a, b)
				assert.Equal(t, s.Stats(a).Opponents[b].Count, s.Stats(b).Opponents[a].Count, "opponents %s/%s", a, b)
			}
		}
		assert.Equal(t, 1, s.Stats("p1").Partners["p2"].Count)
		assert.Equal(t, 1, s.Stats("p1").Opponents["p2"].Count)
		assert.Equal(t, 2, s.Stats("p1").Opponents["p4"].Count)
	})

	t.Run("last game and last roles", func(t *testing.T) {
		ps := s.Stats("p1")
		assert.Equal(t, 1, ps.Partners["p2"].LastGame)
		assert.Equal(t, 2, ps.Partners["p3"].LastGame)
		assert.Equal(t, []string{"p3"}, ps.LastPartners)
		assert.ElementsMatch(t, []string{"p2", "p4"}, ps.LastOpponents)
	})

	t.Run("no score is ignored", func(t *testing.T) {
		before := s.Completed
		s.ApplyResult(&Match{Team1: []string{"p1"}, Team2: []string{"p2"}})
		assert.Equal(t, before, s.Completed)
	})
}

func TestMatchSequence(t *testing.T) {
	s, _ := testSession(t, 4)
	a := s.NewMatch(1, []string{"p1", "p2"}, []string{"p3", "p4"})
	b := s.NewMatch(2, []string{"p1", "p2"}, []string{"p3", "p4"})

	assert.Equal(t, 1, a.Number)
	assert.Equal(t, 2, b.Number)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, Waiting, a.Status)
	assert.Empty(t, s.Matches, "NewMatch must not append")
}

func TestCourtsAndPlayers(t *testing.T) {
	s, _ := testSession(t, 6)
	m := s.NewMatch(2, []string{"p1", "p2"}, []string{"p3", "p4"})
	m.Status = InProgress
	s.Matches = append(s.Matches, m)

	assert.Equal(t, []int{1}, s.EmptyCourts())
	assert.Same(t, m, s.MatchOnCourt(2))
	assert.Nil(t, s.MatchOnCourt(1))
	assert.Equal(t, []string{"p5", "p6"}, s.FreePlayers())

	found, err := s.Match(m.ID)
	require.NoError(t, err)
	assert.Same(t, m, found)

	_, err = s.Match("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCheckConsistency(t *testing.T) {
	t.Run("clean session", func(t *testing.T) {
		s, _ := testSession(t, 4)
		completed(s, 1, []string{"p1", "p2"}, []string{"p3", "p4"}, 11, 3)
		assert.NoError(t, s.CheckConsistency())
	})

	t.Run("player in two active matches", func(t *testing.T) {
		s, _ := testSession(t, 6)
		for _, teams := range [][2][]string{{{"p1", "p2"}, {"p3", "p4"}}, {{"p1", "p5"}, {"p6", "p2"}}} {
			m := s.NewMatch(1, teams[0], teams[1])
			m.Status = InProgress
			s.Matches = append(s.Matches, m)
		}
		assert.ErrorIs(t, s.CheckConsistency(), ErrStateInconsistency)
	})

	t.Run("inactive player on court", func(t *testing.T) {
		s, _ := testSession(t, 4)
		m := s.NewMatch(1, []string{"p1", "p2"}, []string{"p3", "p4"})
		m.Status = InProgress
		s.Matches = append(s.Matches, m)
		s.Active["p3"] = false
		assert.ErrorIs(t, s.CheckConsistency(), ErrStateInconsistency)
	})

	t.Run("wins and losses out of step", func(t *testing.T) {
		s, _ := testSession(t, 4)
		s.Stats("p1").GamesPlayed = 2
		assert.ErrorIs(t, s.CheckConsistency(), ErrStateInconsistency)
	})
}

func TestWaitSegments(t *testing.T) {
	s, now := testSession(t, 2)
	ps := s.Stats("p1")
	start := *now

	ps.StartWaiting(start)
	ps.StartWaiting(start.Add(time.Minute)) // already open
	assert.Equal(t, 3*time.Minute, ps.CurrentWait(start.Add(3*time.Minute)))

	ps.StopWaiting(start.Add(4 * time.Minute))
	assert.True(t, ps.WaitStart.IsZero())
	assert.Equal(t, 4*time.Minute, ps.TotalWait)
	assert.Equal(t, 4*time.Minute, ps.CurrentWait(start.Add(time.Hour)))

	ps.StartWaiting(start.Add(10 * time.Minute))
	assert.Equal(t, 6*time.Minute, ps.CurrentWait(start.Add(12*time.Minute)))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, TeamKey([]string{"b", "a"}), TeamKey([]string{"a", "b"}))
	assert.Equal(t, GroupKey([]string{"a", "d"}, []string{"c", "b"}), GroupKey([]string{"b", "c"}, []string{"a", "d"}))
	assert.Equal(t, MatchupKey([]string{"a", "b"}, []string{"c", "d"}), MatchupKey([]string{"d", "c"}, []string{"b", "a"}))
	assert.NotEqual(t, MatchupKey([]string{"a", "b"}, []string{"c", "d"}), MatchupKey([]string{"a", "c"}, []string{"b", "d"}))
}

func TestWinnersAndLosers(t *testing.T) {
	m := &Match{Team1: []string{"a"}, Team2: []string{"b"}, Status: Completed, Score: &Score{Team1: 4, Team2: 11}}
	assert.Equal(t, []string{"b"}, m.Winners())
	assert.Equal(t, []string{"a"}, m.Losers())

	m.Status = Forfeited
	assert.Nil(t, m.Winners())
}
