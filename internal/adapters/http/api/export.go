package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/s3m-esports/standings/internal/app/view"
	"github.com/s3m-esports/standings/internal/domain/types"
)

const exportSheet = "Leaderboard"

var exportHeader = []any{
	"Rank", "Player ID", "Player", "Points", "Wins", "Losses",
	"Kills", "Deaths", "Games", "K/D", "Win rate %",
}

// HandleExport handles GET /leaderboard/export.xlsx: every visible row in one sheet.
func (h *LeaderboardHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_leaderboard"

	var rows []types.Row
	for offset := 0; ; {
		board, err := h.deps.Board(r.Context(), view.Page{Limit: h.maxLimit, Offset: offset})
		if err != nil {
			writeError(w, r, Wrap(op, err))
			return
		}
		rows = append(rows, board.Rows...)
		offset += len(board.Rows)
		if len(board.Rows) == 0 || offset >= board.Total {
			break
		}
	}

	f, err := buildWorkbook(rows)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	defer f.Close()

	name := fmt.Sprintf("leaderboard-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_ = f.Write(w)
}

func buildWorkbook(rows []types.Row) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(exportSheet, 1, 1, bold)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		values := []any{
			row.Rank, row.PlayerID, row.DisplayName, row.Points, row.Wins, row.Losses,
			row.Kills, row.Deaths, row.GamesPlayed, row.KD, row.WinRate,
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	_ = f.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return f, nil
}
