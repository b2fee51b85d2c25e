package export

import (
	"bytes"
	"fmt"

	"github.com/lshigami/Symposium/internal/dto"
	"github.com/xuri/excelize/v2"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	sheetName       = "Leaderboard"
	timeLayout      = "2006-01-02 15:04:05"
)

var roundHeader = []interface{}{"Rank", "User ID", "Attempt ID", "Score", "Max Score", "Percentage", "Submitted At"}
var eventHeader = []interface{}{"Rank", "User ID", "Score", "Max Score", "Percentage", "Rounds Completed", "Last Submitted At"}

// RoundLeaderboard renders a round leaderboard as an xlsx workbook.
func RoundLeaderboard(title string, entries []dto.LeaderboardEntryResponse) ([]byte, error) {
	rows := make([][]interface{}, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []interface{}{
			e.Rank, e.UserID, e.AttemptID, e.TotalScore, e.MaxScore, e.Percentage,
			e.SubmittedAt.UTC().Format(timeLayout),
		})
	}
	return write(title, roundHeader, rows)
}

// EventLeaderboard renders the aggregated event leaderboard.
func EventLeaderboard(title string, entries []dto.EventLeaderboardEntryResponse) ([]byte, error) {
	rows := make([][]interface{}, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []interface{}{
			e.Rank, e.UserID, e.TotalScore, e.MaxScore, e.Percentage, e.RoundsCompleted,
			e.LastSubmittedAt.UTC().Format(timeLayout),
		})
	}
	return write(title, eventHeader, rows)
}

func write(title string, header []interface{}, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetCellValue(sheetName, "A1", title); err != nil {
		return nil, fmt.Errorf("write title: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A3", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			return nil, err
		}
		row := row
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
