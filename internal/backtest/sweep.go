package backtest

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

// Grid enumerates the swept strategy dimensions. An empty dimension
// keeps the base config's value.
type Grid struct {
	Alphas       []float64
	BandBps      []float64
	EdgeBps      []float64
	CooldownsMs  []int64
	TrailStopBps []float64
	HardStopBps  []float64
	SizePcts     []float64 // applied to both sides' max pct
}

// SweepRow is one leaderboard line: the parameter combination plus its
// replay metrics.
type SweepRow struct {
	ConfigID string

	Alpha        float64
	BandBps      float64
	EdgeBps      float64
	CooldownMs   int64
	TrailStopBps float64
	HardStopBps  float64
	SizePct      float64

	TotalReturn      float64
	AnnualizedReturn float64
	MaxDrawdown      float64
	SharpeRatio      float64
	ProfitFactor     float64
	WinRate          float64
	Trades           int
	ForcedCloses     int

	Error string // non-empty when the combination failed to run
}

// Combinations expands the grid against a base config. The base carries
// everything the grid does not sweep: sizing floors, commission,
// initial balances, profit filter settings.
func (g Grid) Combinations(base Config) []Config {
	orFloat := func(vals []float64, def float64) []float64 {
		if len(vals) == 0 {
			return []float64{def}
		}
		return vals
	}
	orInt := func(vals []int64, def int64) []int64 {
		if len(vals) == 0 {
			return []int64{def}
		}
		return vals
	}

	alphas := orFloat(g.Alphas, base.EmaAlpha)
	bands := orFloat(g.BandBps, base.Decision.BandBps)
	edges := orFloat(g.EdgeBps, base.Decision.EdgeBps)
	cooldowns := orInt(g.CooldownsMs, base.Decision.Cooldown.Milliseconds())
	trails := orFloat(g.TrailStopBps, base.Decision.TrailStopBps)
	hards := orFloat(g.HardStopBps, base.Decision.HardStopBps)
	pcts := orFloat(g.SizePcts, base.Sizing.Base.MaxPctOfBalance)

	var combos []Config
	for _, alpha := range alphas {
		for _, bandBps := range bands {
			for _, edge := range edges {
				for _, cd := range cooldowns {
					for _, trail := range trails {
						for _, hard := range hards {
							for _, pct := range pcts {
								cfg := base
								cfg.EmaAlpha = alpha
								cfg.Decision.BandBps = bandBps
								cfg.Decision.EdgeBps = edge
								cfg.Decision.Cooldown = time.Duration(cd) * time.Millisecond
								cfg.Decision.TrailStopBps = trail
								cfg.Decision.HardStopBps = hard
								cfg.Sizing.Base.MaxPctOfBalance = pct
								cfg.Sizing.Quote.MaxPctOfBalance = pct
								cfg.ConfigID = fmt.Sprintf("a%.3f-b%.0f-e%.0f-cd%d-t%.0f-h%.0f-p%.0f",
									alpha, bandBps, edge, cd/1000, trail, hard, pct)
								combos = append(combos, cfg)
							}
						}
					}
				}
			}
		}
	}
	return combos
}

// RunSweep replays every combination over the worker pool and returns
// the leaderboard sorted by total return, best first. Failed
// combinations stay in the output with their error instead of silently
// disappearing from the grid.
func RunSweep(base Config, grid Grid, candles []types.Candle, workers int) []SweepRow {
	combos := grid.Combinations(base)

	pool := NewWorkerPool(workers, len(combos))
	pool.Start()

	go func() {
		for _, cfg := range combos {
			if err := pool.SubmitJob(SweepJob{ID: cfg.ConfigID, Config: cfg, Candles: candles}); err != nil {
				log.Printf("⚠️ Dropping combination %s: %v", cfg.ConfigID, err)
			}
		}
		pool.Stop()
	}()

	rows := make([]SweepRow, 0, len(combos))
	for res := range pool.GetResults() {
		rows = append(rows, toRow(res))
	}

	sort.Slice(rows, func(i, j int) bool {
		// Errored rows sink to the bottom.
		if (rows[i].Error == "") != (rows[j].Error == "") {
			return rows[i].Error == ""
		}
		return rows[i].TotalReturn > rows[j].TotalReturn
	})
	return rows
}

func toRow(res SweepJobResult) SweepRow {
	row := SweepRow{
		ConfigID:     res.ID,
		Alpha:        res.Config.EmaAlpha,
		BandBps:      res.Config.Decision.BandBps,
		EdgeBps:      res.Config.Decision.EdgeBps,
		CooldownMs:   res.Config.Decision.Cooldown.Milliseconds(),
		TrailStopBps: res.Config.Decision.TrailStopBps,
		HardStopBps:  res.Config.Decision.HardStopBps,
		SizePct:      res.Config.Sizing.Base.MaxPctOfBalance,
	}
	if res.Error != nil {
		row.Error = res.Error.Error()
		return row
	}

	row.TotalReturn = res.Results.TotalReturn()
	row.AnnualizedReturn = res.Results.AnnualizedReturn()
	row.MaxDrawdown = res.Results.MaxDrawdown()
	row.SharpeRatio = res.Results.CalculateSharpeRatio()
	row.ProfitFactor = res.Results.CalculateProfitFactor()
	row.WinRate = res.Results.CalculateWinRate()
	row.Trades = len(res.Results.Trades)
	row.ForcedCloses = res.Results.ForcedCount
	return row
}
