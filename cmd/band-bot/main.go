package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/haidang-fin/dex-band-bot/internal/bot"
	"github.com/haidang-fin/dex-band-bot/internal/config"
	"github.com/haidang-fin/dex-band-bot/internal/exchange"
	"github.com/haidang-fin/dex-band-bot/internal/exchange/aggregator"
	"github.com/haidang-fin/dex-band-bot/internal/ledger"
	"github.com/haidang-fin/dex-band-bot/internal/logger"
	"github.com/haidang-fin/dex-band-bot/internal/monitoring"
	"github.com/haidang-fin/dex-band-bot/internal/state"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file (e.g., sol-usdc.json)")
		envFile    = flag.String("env", ".env", "Environment file path")
		dryRun     = flag.Bool("dry-run", false, "Force dry-run mode regardless of config")
	)
	flag.Parse()

	if *configFile == "" {
		log.Fatal("Please specify a config file with -config flag")
	}

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("Warning: Could not load %s (%v), using existing environment", *envFile, err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dryRun {
		cfg.Execution.DryRun = true
	}

	pair := cfg.TradingPair()
	fmt.Println("🚀 Band Bot Starting...")
	fmt.Printf("📊 Pair: %s\n", pair)
	fmt.Printf("🌐 Network: %s\n", cfg.Network)
	fmt.Printf("📐 Band: %.0f bps (+%.0f edge) around EMA(alpha=%.3f)\n",
		cfg.Strategy.BandBps, cfg.Strategy.EdgeBps, cfg.Strategy.EmaAlpha)
	fmt.Printf("⏰ Poll: %s | Cooldown: %s\n", cfg.PollInterval(), cfg.DecisionConfig().Cooldown)
	fmt.Printf("🧪 Dry Run: %v\n", cfg.Execution.DryRun)
	fmt.Println("=" + strings.Repeat("=", 50))

	fileLogger, err := logger.NewLogger(pair.String(), cfg.Paths.LogFile)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	store, err := state.NewStore(cfg.Paths.DataDir, pair)
	if err != nil {
		log.Fatalf("Failed to open state store: %v", err)
	}

	fills, err := ledger.Open(cfg.Paths.FillLog)
	if err != nil {
		log.Fatalf("Failed to open fill log: %v", err)
	}
	defer fills.Close()

	client := aggregator.NewClient(cfg.Execution.AggregatorURL, cfg.Execution.APIKey,
		cfg.Execution.WalletAddress, cfg.Execution.OnlyVerifiedPools)

	var adapter exchange.ExecutionAdapter = client
	if cfg.Execution.DryRun {
		adapter = aggregator.NewDryRunAdapter(client)
	}

	var balances exchange.BalanceService
	if cfg.Execution.DryRun || cfg.Execution.WalletAddress == "" {
		// No wallet to read: sizing is capped by config alone.
		balances = aggregator.StaticBalances{Base: 1e9, Quote: 1e9}
	} else {
		balances = aggregator.NewBalanceReader(client)
	}

	deps := bot.Deps{
		Price:    aggregator.NewMidSource(client, cfg.Execution.ProbeAmountBase, cfg.Execution.QuoteBothDirections),
		Balances: balances,
		Adapter:  adapter,
		Logger:   fileLogger,
		Store:    store,
		Ledger:   fills,
	}

	if cfg.Metrics.Enabled {
		health := monitoring.NewHealthChecker()
		deps.Health = health
		srv := monitoring.Serve(cfg.Metrics.ListenAddr, health)
		defer srv.Close()
		fmt.Printf("📈 Metrics on %s/metrics\n", cfg.Metrics.ListenAddr)
	}

	session, err := bot.NewSession(cfg, deps)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("✅ Session running, Ctrl+C to stop")
	if err := session.Run(ctx); err != nil {
		fmt.Printf("❌ Session ended with error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("👋 Session stopped cleanly")
}
