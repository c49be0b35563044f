package excel

import (
	"fmt"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/derekprior/courtq/internal/model"
	"github.com/derekprior/courtq/internal/rating"
)

const (
	MatchesSheet = "Matches"
	PlayersSheet = "Players"

	// TimeLayout is how start and end times are written.
	TimeLayout = "2006-01-02 15:04:05"
	// TeamSeparator joins player ids within a team cell.
	TeamSeparator = " & "
)

// MatchHeaders and PlayerHeaders are the column titles the validator reads back.
var (
	MatchHeaders  = []string{"Match", "Court", "Team 1", "Team 2", "Score", "Status", "Start", "End", "Quality", "Notes"}
	PlayerHeaders = []string{"ID", "Name", "Games", "Wins", "Losses", "Points For", "Points Against", "Wait (min)", "Rating", "Active"}
)

// Generate creates a workbook with every match of the session and the
// player standings.
func Generate(s *model.Session) (*excelize.File, error) {
	f := excelize.NewFile()

	// Set default font for the workbook
	f.SetDefaultFont("Arial")

	if err := writeMatchesSheet(f, s); err != nil {
		return nil, fmt.Errorf("writing matches sheet: %w", err)
	}

	if err := writePlayersSheet(f, s); err != nil {
		return nil, fmt.Errorf("writing players sheet: %w", err)
	}

	f.DeleteSheet("Sheet1")
	return f, nil
}

func writeHeaders(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		f.SetCellValue(sheet, cellRef(i+1, 1), h)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 14, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if headerStyle != 0 {
		f.SetCellStyle(sheet, cellRef(1, 1), cellRef(len(headers), 1), headerStyle)
	}
}

func writeMatchesSheet(f *excelize.File, s *model.Session) error {
	sheet := MatchesSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	writeHeaders(f, sheet, MatchHeaders)

	cellStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 14, Family: "Arial"},
	})

	matches := slices.Clone(s.Matches)
	slices.SortFunc(matches, func(a, b *model.Match) int { return a.Number - b.Number })

	for i, m := range matches {
		row := i + 2
		score := ""
		if m.Score != nil {
			score = fmt.Sprintf("%d-%d", m.Score.Team1, m.Score.Team2)
		}
		end := ""
		if !m.End.IsZero() {
			end = m.End.Format(TimeLayout)
		}
		var notes []string
		if m.Manual {
			notes = append(notes, "manual")
		}
		if m.Relaxed {
			notes = append(notes, "relaxed")
		}

		values := []any{
			m.Number,
			m.Court,
			strings.Join(m.Team1, TeamSeparator),
			strings.Join(m.Team2, TeamSeparator),
			score,
			m.Status.String(),
			m.Start.Format(TimeLayout),
			end,
			fmt.Sprintf("%.2f", m.Quality),
			strings.Join(notes, ", "),
		}
		for col, v := range values {
			f.SetCellValue(sheet, cellRef(col+1, row), v)
		}
		if cellStyle != 0 {
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(values), row), cellStyle)
		}
	}

	widths := map[string]float64{"A": 10, "B": 8, "C": 24, "D": 24, "E": 10, "F": 14, "G": 22, "H": 22, "I": 10, "J": 18}
	for col, w := range widths {
		f.SetColWidth(sheet, col, col, w)
	}

	// Relaxed matches get a light red fill
	if len(matches) > 0 {
		redFill, _ := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFC7CE"}},
			Font: &excelize.Font{Size: 14, Family: "Arial"},
		})
		lastRow := len(matches) + 1
		f.SetConditionalFormat(sheet, fmt.Sprintf("A2:J%d", lastRow), []excelize.ConditionalFormatOptions{
			{
				Type:     "formula",
				Criteria: `ISNUMBER(SEARCH("relaxed",$J2))`,
				Format:   &redFill,
			},
		})
	}
	return nil
}

func writePlayersSheet(f *excelize.File, s *model.Session) error {
	sheet := PlayersSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	writeHeaders(f, sheet, PlayerHeaders)

	cellStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 14, Family: "Arial"},
	})

	ids := make([]string, 0, len(s.Roster))
	for id := range s.Roster {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	now := s.Now()
	for i, id := range ids {
		row := i + 2
		p := s.Roster[id]
		ps := s.Stats(id)
		active := "no"
		if s.Active[id] {
			active = "yes"
		}
		values := []any{
			id,
			p.Name,
			ps.GamesPlayed,
			ps.Wins,
			ps.Losses,
			ps.PointsFor,
			ps.PointsAgainst,
			fmt.Sprintf("%.1f", ps.CurrentWait(now).Minutes()),
			fmt.Sprintf("%.0f", rating.For(p, ps, s.Config.Ranking.ProvisionalGames)),
			active,
		}
		for col, v := range values {
			f.SetCellValue(sheet, cellRef(col+1, row), v)
		}
		if cellStyle != 0 {
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(values), row), cellStyle)
		}
	}

	f.SetColWidth(sheet, "A", "A", 14)
	f.SetColWidth(sheet, "B", "B", 24)
	for i := 3; i <= len(PlayerHeaders); i++ {
		col := colLetter(i)
		f.SetColWidth(sheet, col, col, 14)
	}
	return nil
}

func cellRef(col, row int) string {
	return fmt.Sprintf("%s%d", colLetter(col), row)
}

func colLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
