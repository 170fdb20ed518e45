package main

import (
	"flag"
	"fmt"
	"log"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/haidang-fin/dex-band-bot/internal/backtest"
	"github.com/haidang-fin/dex-band-bot/internal/config"
	"github.com/haidang-fin/dex-band-bot/pkg/data"
	"github.com/haidang-fin/dex-band-bot/pkg/reporting"
)

func main() {
	var (
		configFile   = flag.String("config", "", "Base configuration file (e.g., sol-usdc.json)")
		dataFile     = flag.String("data", "", "Candle CSV file to replay")
		envFile      = flag.String("env", ".env", "Environment file path")
		invert       = flag.Bool("invert", false, "Invert the candle series to the reciprocal pair")
		initialBase  = flag.Float64("initial-base", 10, "Starting base balance")
		initialQuote = flag.Float64("initial-quote", 1000, "Starting quote balance")
		commission   = flag.Float64("commission-bps", 10, "Per-fill commission in bps")
		workers      = flag.Int("workers", runtime.NumCPU(), "Parallel backtest workers")
		topN         = flag.Int("top", 20, "Leaderboard rows to print")
		csvOut       = flag.String("csv", "results/sweep.csv", "Leaderboard CSV output path")
		excelOut     = flag.String("excel", "", "Optional leaderboard Excel output path")

		alphas    = flag.String("alphas", "", "Comma-separated EMA alphas to sweep")
		bands     = flag.String("bands", "", "Comma-separated band widths (bps) to sweep")
		edges     = flag.String("edges", "", "Comma-separated edge thresholds (bps) to sweep")
		cooldowns = flag.String("cooldowns", "", "Comma-separated cooldowns (ms) to sweep")
		trails    = flag.String("trails", "", "Comma-separated trailing stops (bps) to sweep")
		hards     = flag.String("hards", "", "Comma-separated hard stops (bps) to sweep")
		pcts      = flag.String("pcts", "", "Comma-separated size percentages to sweep")
	)
	flag.Parse()

	if *configFile == "" || *dataFile == "" {
		log.Fatal("Please specify -config and -data flags")
	}

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("Warning: Could not load %s (%v), using existing environment", *envFile, err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	candles, err := data.NewCSVProvider().LoadCandles(*dataFile)
	if err != nil {
		log.Fatalf("Failed to load candles: %v", err)
	}
	if *invert {
		candles = data.Invert(candles)
	}

	base := backtest.Config{
		ConfigID:      cfg.ConfigID,
		EmaAlpha:      cfg.Strategy.EmaAlpha,
		Decision:      cfg.DecisionConfig(),
		Sizing:        cfg.SizingConfig(),
		InitialBase:   *initialBase,
		InitialQuote:  *initialQuote,
		CommissionBps: *commission,
	}

	grid := backtest.Grid{
		Alphas:       parseFloats(*alphas),
		BandBps:      parseFloats(*bands),
		EdgeBps:      parseFloats(*edges),
		CooldownsMs:  parseInts(*cooldowns),
		TrailStopBps: parseFloats(*trails),
		HardStopBps:  parseFloats(*hards),
		SizePcts:     parseFloats(*pcts),
	}

	combos := len(grid.Combinations(base))
	fmt.Printf("🔬 Sweeping %d combinations over %d candles with %d workers\n",
		combos, len(candles), *workers)

	start := time.Now()
	rows := backtest.RunSweep(base, grid, candles, *workers)
	fmt.Printf("⏱️  Sweep finished in %s\n", time.Since(start).Round(time.Millisecond))

	reporting.PrintLeaderboard(rows, *topN)

	if err := reporting.WriteLeaderboardCSV(*csvOut, rows); err != nil {
		log.Fatalf("Failed to write leaderboard CSV: %v", err)
	}
	fmt.Printf("💾 Leaderboard saved to %s\n", *csvOut)

	if *excelOut != "" {
		if err := reporting.WriteLeaderboardExcel(*excelOut, rows); err != nil {
			log.Fatalf("Failed to write leaderboard Excel: %v", err)
		}
		fmt.Printf("💾 Excel report saved to %s\n", *excelOut)
	}
}

func parseFloats(s string) []float64 {
	if s == "" {
		return nil
	}
	var out []float64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			log.Fatalf("Invalid numeric list entry %q: %v", part, err)
		}
		out = append(out, v)
	}
	return out
}

func parseInts(s string) []int64 {
	if s == "" {
		return nil
	}
	var out []int64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			log.Fatalf("Invalid integer list entry %q: %v", part, err)
		}
		out = append(out, v)
	}
	return out
}
