package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/haidang-fin/dex-band-bot/internal/backtest"
	"github.com/haidang-fin/dex-band-bot/internal/config"
	"github.com/haidang-fin/dex-band-bot/pkg/data"
	"github.com/haidang-fin/dex-band-bot/pkg/reporting"
)

func main() {
	var (
		configFile   = flag.String("config", "", "Configuration file (e.g., sol-usdc.json)")
		dataFile     = flag.String("data", "", "Candle CSV file to replay")
		envFile      = flag.String("env", ".env", "Environment file path")
		invert       = flag.Bool("invert", false, "Invert the candle series to the reciprocal pair")
		initialBase  = flag.Float64("initial-base", 10, "Starting base balance")
		initialQuote = flag.Float64("initial-quote", 1000, "Starting quote balance")
		commission   = flag.Float64("commission-bps", 10, "Per-fill commission in bps")
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

	fmt.Printf("📂 Loaded %d candles from %s (%s → %s)\n",
		len(candles), *dataFile,
		candles[0].Timestamp.Format("2006-01-02"),
		candles[len(candles)-1].Timestamp.Format("2006-01-02"))

	btCfg := backtest.Config{
		ConfigID:      cfg.ConfigID,
		EmaAlpha:      cfg.Strategy.EmaAlpha,
		Decision:      cfg.DecisionConfig(),
		Sizing:        cfg.SizingConfig(),
		InitialBase:   *initialBase,
		InitialQuote:  *initialQuote,
		CommissionBps: *commission,
	}

	engine, err := backtest.NewEngine(btCfg)
	if err != nil {
		log.Fatalf("Invalid backtest configuration: %v", err)
	}

	results, err := engine.Run(candles)
	if err != nil {
		log.Fatalf("Backtest failed: %v", err)
	}

	reporting.OutputResults(results)
}
