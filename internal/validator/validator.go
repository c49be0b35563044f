package validator

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/derekprior/courtq/internal/config"
	"github.com/derekprior/courtq/internal/excel"
)

// Violation represents an invariant broken in an exported session.
type Violation struct {
	Sheet   string
	Row     int
	Type    string // "error" or "warning"
	Message string
}

// Validate reads a session workbook and checks it against the config's
// roster, locked teams and banned pairs.
func Validate(cfg *config.Config, path string) ([]Violation, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	matches, err := readMatches(f)
	if err != nil {
		return nil, fmt.Errorf("reading matches: %w", err)
	}
	players, err := readPlayers(f)
	if err != nil {
		return nil, fmt.Errorf("reading players: %w", err)
	}

	var violations []Violation

	// Check hard constraints
	violations = append(violations, checkTeams(cfg, matches)...)
	violations = append(violations, checkLocksAndBans(cfg, matches)...)
	violations = append(violations, checkScores(matches)...)
	violations = append(violations, checkOverlaps(matches)...)
	violations = append(violations, checkStandings(matches, players)...)

	// Check soft constraints
	violations = append(violations, checkRelaxed(matches)...)
	violations = append(violations, checkBackToBackPartners(cfg, matches)...)

	sort.SliceStable(violations, func(i, j int) bool {
		if violations[i].Sheet != violations[j].Sheet {
			return violations[i].Sheet < violations[j].Sheet
		}
		return violations[i].Row < violations[j].Row
	})
	return violations, nil
}

type parsedMatch struct {
	Row     int
	Number  int
	Court   int
	Team1   []string
	Team2   []string
	Score1  int
	Score2  int
	Scored  bool
	Status  string
	Start   time.Time
	End     time.Time
	Relaxed bool
}

func (m parsedMatch) players() []string {
	return append(slices.Clone(m.Team1), m.Team2...)
}

// holdsCourt reports whether the match occupied its court for the time
// span it covers.
func (m parsedMatch) holdsCourt() bool {
	return m.Status == "in-progress" || m.Status == "completed" || m.Status == "forfeited"
}

type parsedPlayer struct {
	Row    int
	ID     string
	Games  int
	Wins   int
	Losses int
}

func readMatches(f *excelize.File) ([]parsedMatch, error) {
	rows, err := f.GetRows(excel.MatchesSheet)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", excel.MatchesSheet, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%s is empty", excel.MatchesSheet)
	}

	var matches []parsedMatch
	for i, row := range rows {
		if i == 0 || len(row) < 7 || row[0] == "" {
			continue
		}
		num, err := strconv.Atoi(row[0])
		if err != nil {
			continue
		}
		court, _ := strconv.Atoi(row[1])
		m := parsedMatch{
			Row:    i + 1,
			Number: num,
			Court:  court,
			Team1:  splitTeam(row[2]),
			Team2:  splitTeam(row[3]),
			Status: row[5],
		}
		if s1, s2, ok := parseScore(row[4]); ok {
			m.Score1, m.Score2, m.Scored = s1, s2, true
		}
		m.Start, _ = time.Parse(excel.TimeLayout, row[6])
		if len(row) > 7 && row[7] != "" {
			m.End, _ = time.Parse(excel.TimeLayout, row[7])
		}
		if len(row) > 9 {
			m.Relaxed = strings.Contains(row[9], "relaxed")
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func readPlayers(f *excelize.File) ([]parsedPlayer, error) {
	rows, err := f.GetRows(excel.PlayersSheet)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", excel.PlayersSheet, err)
	}

	var players []parsedPlayer
	for i, row := range rows {
		if i == 0 || len(row) < 5 || row[0] == "" {
			continue
		}
		games, err1 := strconv.Atoi(row[2])
		wins, err2 := strconv.Atoi(row[3])
		losses, err3 := strconv.Atoi(row[4])
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		players = append(players, parsedPlayer{Row: i + 1, ID: row[0], Games: games, Wins: wins, Losses: losses})
	}
	return players, nil
}

func splitTeam(cell string) []string {
	if cell == "" {
		return nil
	}
	return strings.Split(cell, excel.TeamSeparator)
}

// parseScore parses "11-7" and returns (11, 7, true).
func parseScore(cell string) (int, int, bool) {
	a, b, ok := strings.Cut(cell, "-")
	if !ok {
		return 0, 0, false
	}
	s1, err1 := strconv.Atoi(a)
	s2, err2 := strconv.Atoi(b)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return s1, s2, true
}

func matchViolation(m parsedMatch, typ, format string, args ...any) Violation {
	return Violation{
		Sheet:   excel.MatchesSheet,
		Row:     m.Row,
		Type:    typ,
		Message: fmt.Sprintf("Match %d: ", m.Number) + fmt.Sprintf(format, args...),
	}
}

func checkTeams(cfg *config.Config, matches []parsedMatch) []Violation {
	known := make(map[string]bool)
	for _, p := range cfg.Players {
		known[p.ID] = true
	}

	var violations []Violation
	for _, m := range matches {
		if len(m.Team1) != cfg.Session.TeamSize || len(m.Team2) != cfg.Session.TeamSize {
			violations = append(violations, matchViolation(m, "error",
				"teams have %d and %d players, want %d", len(m.Team1), len(m.Team2), cfg.Session.TeamSize))
		}
		if m.Court < 1 || m.Court > cfg.Session.Courts {
			violations = append(violations, matchViolation(m, "error", "court %d does not exist", m.Court))
		}
		seen := make(map[string]bool)
		for _, id := range m.players() {
			if seen[id] {
				violations = append(violations, matchViolation(m, "error", "%s appears twice", id))
			}
			seen[id] = true
			if !known[id] {
				// players added mid-session are not in the config roster
				violations = append(violations, matchViolation(m, "warning", "%s is not in the config roster", id))
			}
		}
	}
	return violations
}

func checkLocksAndBans(cfg *config.Config, matches []parsedMatch) []Violation {
	var violations []Violation
	for _, m := range matches {
		for _, a := range m.Team1 {
			for _, b := range m.Team2 {
				if cfg.IsLocked(a, b) {
					violations = append(violations, matchViolation(m, "error", "locked teammates %s and %s are opponents", a, b))
				}
			}
		}
		for _, team := range [][]string{m.Team1, m.Team2} {
			for i := range team {
				for j := i + 1; j < len(team); j++ {
					if cfg.IsBanned(team[i], team[j]) {
						violations = append(violations, matchViolation(m, "error", "banned pair %s and %s are partners", team[i], team[j]))
					}
				}
			}
		}
	}
	return violations
}

func checkScores(matches []parsedMatch) []Violation {
	var violations []Violation
	for _, m := range matches {
		switch {
		case m.Status == "completed" && !m.Scored:
			violations = append(violations, matchViolation(m, "error", "completed without a score"))
		case m.Status == "completed" && m.Score1 == m.Score2:
			violations = append(violations, matchViolation(m, "error", "tied score %d-%d", m.Score1, m.Score2))
		case m.Status != "completed" && m.Scored:
			violations = append(violations, matchViolation(m, "error", "%s match has a score", m.Status))
		}
	}
	return violations
}

// checkOverlaps flags a court or a player held by two matches at once.
// Matches still in progress run to the end of the session.
func checkOverlaps(matches []parsedMatch) []Violation {
	var latest time.Time
	for _, m := range matches {
		if m.End.After(latest) {
			latest = m.End
		}
		if m.Start.After(latest) {
			latest = m.Start
		}
	}
	end := func(m parsedMatch) time.Time {
		if m.End.IsZero() {
			return latest.Add(time.Second)
		}
		return m.End
	}

	var violations []Violation
	for i, a := range matches {
		if !a.holdsCourt() {
			continue
		}
		for _, b := range matches[i+1:] {
			if !b.holdsCourt() {
				continue
			}
			if !(a.Start.Before(end(b)) && b.Start.Before(end(a))) {
				continue
			}
			if a.Court == b.Court {
				violations = append(violations, matchViolation(b, "error", "court %d is also used by match %d", b.Court, a.Number))
			}
			for _, id := range b.players() {
				if slices.Contains(a.players(), id) {
					violations = append(violations, matchViolation(b, "error", "%s is also playing match %d", id, a.Number))
				}
			}
		}
	}
	return violations
}

// checkStandings re-derives games, wins and losses from completed matches
// and compares them with the Players sheet.
func checkStandings(matches []parsedMatch, players []parsedPlayer) []Violation {
	games := make(map[string]int)
	wins := make(map[string]int)
	for _, m := range matches {
		if m.Status != "completed" || !m.Scored {
			continue
		}
		winners := m.Team1
		if m.Score2 > m.Score1 {
			winners = m.Team2
		}
		for _, id := range m.players() {
			games[id]++
		}
		for _, id := range winners {
			wins[id]++
		}
	}

	var violations []Violation
	for _, p := range players {
		add := func(format string, args ...any) {
			violations = append(violations, Violation{
				Sheet: excel.PlayersSheet, Row: p.Row, Type: "error",
				Message: fmt.Sprintf("%s: ", p.ID) + fmt.Sprintf(format, args...),
			})
		}
		if p.Wins+p.Losses != p.Games {
			add("%d wins + %d losses != %d games", p.Wins, p.Losses, p.Games)
		}
		if p.Games != games[p.ID] {
			add("%d games recorded, %d completed matches found", p.Games, games[p.ID])
		}
		if p.Wins != wins[p.ID] {
			add("%d wins recorded, %d found", p.Wins, wins[p.ID])
		}
	}
	return violations
}

func checkRelaxed(matches []parsedMatch) []Violation {
	var violations []Violation
	for _, m := range matches {
		if m.Relaxed {
			violations = append(violations, matchViolation(m, "warning", "built with relaxed constraints"))
		}
	}
	return violations
}

// checkBackToBackPartners warns when a player partners the same
// non-locked teammate in two consecutive completed games.
func checkBackToBackPartners(cfg *config.Config, matches []parsedMatch) []Violation {
	ordered := slices.Clone(matches)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	last := make(map[string][]string) // player -> partners in their previous game
	var violations []Violation
	for _, m := range ordered {
		if m.Status != "completed" {
			continue
		}
		for _, team := range [][]string{m.Team1, m.Team2} {
			for _, id := range team {
				for _, mate := range team {
					if mate == id || id > mate || cfg.IsLocked(id, mate) {
						continue
					}
					if slices.Contains(last[id], mate) {
						violations = append(violations, matchViolation(m, "warning", "%s and %s partner in consecutive games", id, mate))
					}
				}
			}
		}
		for _, team := range [][]string{m.Team1, m.Team2} {
			for _, id := range team {
				last[id] = slices.DeleteFunc(slices.Clone(team), func(x string) bool { return x == id })
			}
		}
	}
	return violations
}
