package reporting

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/haidang-fin/dex-band-bot/internal/backtest"
)

const leaderboardSheet = "Leaderboard"

// WriteLeaderboardExcel writes the sweep leaderboard as a styled
// workbook for offline analysis.
func WriteLeaderboardExcel(path string, rows []backtest.SweepRow) error {
	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), leaderboardSheet)

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to build header style: %w", err)
	}

	positiveStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "006100"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	negativeStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "9C0006"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	header := []interface{}{
		"Rank", "Config", "Alpha", "Band bps", "Edge bps", "Cooldown ms",
		"Trail bps", "Hard bps", "Size %",
		"Return %", "Annual %", "Max DD %", "Sharpe", "PF", "Win %", "Trades", "Forced", "Error",
	}
	if err := fx.SetSheetRow(leaderboardSheet, "A1", &header); err != nil {
		return err
	}
	endCol, _ := excelize.ColumnNumberToName(len(header))
	fx.SetCellStyle(leaderboardSheet, "A1", endCol+"1", headerStyle)

	for i, r := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		row := []interface{}{
			i + 1, r.ConfigID, r.Alpha, r.BandBps, r.EdgeBps, r.CooldownMs,
			r.TrailStopBps, r.HardStopBps, r.SizePct,
			round2(r.TotalReturn), round2(r.AnnualizedReturn), round2(r.MaxDrawdown),
			round2(r.SharpeRatio), round2(r.ProfitFactor), round2(r.WinRate),
			r.Trades, r.ForcedCloses, r.Error,
		}
		if err := fx.SetSheetRow(leaderboardSheet, cell, &row); err != nil {
			return err
		}

		returnCell := fmt.Sprintf("J%d", i+2)
		if r.Error == "" {
			if r.TotalReturn >= 0 {
				fx.SetCellStyle(leaderboardSheet, returnCell, returnCell, positiveStyle)
			} else {
				fx.SetCellStyle(leaderboardSheet, returnCell, returnCell, negativeStyle)
			}
		}
	}

	fx.SetColWidth(leaderboardSheet, "B", "B", 30)

	return fx.SaveAs(path)
}

// round2 keeps workbook cells readable and avoids Inf cells from
// loss-free profit factors.
func round2(v float64) interface{} {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return ""
	}
	return math.Round(v*100) / 100
}
