package reporting

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/haidang-fin/dex-band-bot/internal/backtest"
)

// OutputResults prints one backtest's results to the console.
func OutputResults(results *backtest.Results) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("📊 BACKTEST RESULTS")
	fmt.Println(strings.Repeat("=", 50))

	fmt.Printf("🔖 Config:             %s\n", results.ConfigID)
	fmt.Printf("📅 Period:             %s → %s\n",
		results.StartTime.Format("2006-01-02"), results.EndTime.Format("2006-01-02"))
	fmt.Printf("💰 Initial Equity:     %.6f (base units)\n", results.InitialEquity)
	fmt.Printf("💰 Final Equity:       %.6f (base units)\n", results.FinalEquity)
	fmt.Printf("📈 Total Return:       %.2f%%\n", results.TotalReturn())
	fmt.Printf("📈 Annualized Return:  %.2f%%\n", results.AnnualizedReturn())
	fmt.Printf("📉 Max Drawdown:       %.2f%%\n", results.MaxDrawdown())
	fmt.Printf("📊 Sharpe Ratio:       %.2f\n", results.CalculateSharpeRatio())
	fmt.Printf("💹 Profit Factor:      %.2f\n", results.CalculateProfitFactor())
	fmt.Printf("🔄 Completed Cycles:   %d\n", len(results.Trades))
	fmt.Printf("✅ Win Rate:           %.1f%%\n", results.CalculateWinRate())
	fmt.Printf("🛑 Forced Closes:      %d\n", results.ForcedCount)
	fmt.Printf("⏭️  Skipped (no size):  %d\n", results.SkippedNoSize)
}

// PrintLeaderboard renders the top sweep rows as a console table.
func PrintLeaderboard(rows []backtest.SweepRow, topN int) {
	if topN > len(rows) {
		topN = len(rows)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("SWEEP LEADERBOARD (top %d of %d)", topN, len(rows))
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{
		"#", "Config", "Return %", "Annual %", "Max DD %", "Sharpe", "PF", "Win %", "Trades", "Forced",
	})

	for i := 0; i < topN; i++ {
		r := rows[i]
		if r.Error != "" {
			t.AppendRow(table.Row{i + 1, r.ConfigID, "ERROR", r.Error, "", "", "", "", "", ""})
			continue
		}
		t.AppendRow(table.Row{
			i + 1,
			r.ConfigID,
			fmt.Sprintf("%.2f", r.TotalReturn),
			fmt.Sprintf("%.2f", r.AnnualizedReturn),
			fmt.Sprintf("%.2f", r.MaxDrawdown),
			fmt.Sprintf("%.2f", r.SharpeRatio),
			fmt.Sprintf("%.2f", r.ProfitFactor),
			fmt.Sprintf("%.1f", r.WinRate),
			r.Trades,
			r.ForcedCloses,
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMin: 20, WidthMax: 34, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}
