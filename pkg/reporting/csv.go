package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/haidang-fin/dex-band-bot/internal/backtest"
)

var leaderboardHeader = []string{
	"rank", "config_id", "alpha", "band_bps", "edge_bps", "cooldown_ms",
	"trail_stop_bps", "hard_stop_bps", "size_pct",
	"total_return_pct", "annualized_return_pct", "max_drawdown_pct",
	"sharpe_ratio", "profit_factor", "win_rate_pct", "trades", "forced_closes", "error",
}

// WriteLeaderboardCSV writes the full sweep leaderboard to path.
func WriteLeaderboardCSV(path string, rows []backtest.SweepRow) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create leaderboard %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(leaderboardHeader); err != nil {
		return err
	}

	for i, r := range rows {
		record := []string{
			strconv.Itoa(i + 1),
			r.ConfigID,
			ff(r.Alpha),
			ff(r.BandBps),
			ff(r.EdgeBps),
			strconv.FormatInt(r.CooldownMs, 10),
			ff(r.TrailStopBps),
			ff(r.HardStopBps),
			ff(r.SizePct),
			ff(r.TotalReturn),
			ff(r.AnnualizedReturn),
			ff(r.MaxDrawdown),
			ff(r.SharpeRatio),
			ff(r.ProfitFactor),
			ff(r.WinRate),
			strconv.Itoa(r.Trades),
			strconv.Itoa(r.ForcedCloses),
			r.Error,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
