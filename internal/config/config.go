package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/haidang-fin/dex-band-bot/internal/decision"
	"github.com/haidang-fin/dex-band-bot/internal/risk"
	"github.com/haidang-fin/dex-band-bot/internal/sizing"
	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

// BotConfig is the complete configuration for one bot instance. Any
// validation failure here is fatal at startup; nothing later in the
// process is allowed to die on configuration.
type BotConfig struct {
	// Identifies this parameter set in the fill log and sweep outputs.
	ConfigID string `json:"config_id"`

	Network   string          `json:"network"`
	Pair      PairConfig      `json:"pair"`
	Strategy  StrategyConfig  `json:"strategy"`
	Sizing    SizingConfig    `json:"sizing"`
	Risk      RiskConfig      `json:"risk"`
	Execution ExecutionConfig `json:"execution"`
	Paths     PathsConfig     `json:"paths"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// PairConfig identifies the traded pair on-chain.
type PairConfig struct {
	BaseSymbol    string `json:"base_symbol"`
	QuoteSymbol   string `json:"quote_symbol"`
	BaseMint      string `json:"base_mint"`
	QuoteMint     string `json:"quote_mint"`
	BaseDecimals  int    `json:"base_decimals"`
	QuoteDecimals int    `json:"quote_decimals"`
}

// StrategyConfig holds the band strategy parameters.
type StrategyConfig struct {
	EmaAlpha       float64 `json:"ema_alpha"`        // EMA smoothing factor, (0, 1]
	BandBps        float64 `json:"band_bps"`         // band half-width in bps of center
	EdgeBps        float64 `json:"edge_bps"`         // extra margin beyond the band
	PollIntervalMs int64   `json:"poll_interval_ms"` // mid price poll cadence
	CooldownMs     int64   `json:"cooldown_ms"`      // minimum gap after any fill
	DecisionEvery  int64   `json:"decision_every_ms"` // decision bucket size, 0 = every tick

	ProfitFilterEnabled bool    `json:"profit_filter_enabled"`
	MinCyclePnlBps      float64 `json:"min_cycle_pnl_bps"`
	RoundTripFeeBps     float64 `json:"round_trip_fee_bps"`

	TrailStopBps float64 `json:"trail_stop_bps"` // 0 disables
	HardStopBps  float64 `json:"hard_stop_bps"`  // 0 disables
}

// SizingConfig holds trade sizing limits per side plus the gas reserve.
type SizingConfig struct {
	Base  SideSizing `json:"base"`
	Quote SideSizing `json:"quote"`

	GasSide      string  `json:"gas_side"` // "base" or "quote"
	ReserveFloor float64 `json:"reserve_floor"`
	FeeBuffer    float64 `json:"fee_buffer"`
}

// SideSizing caps one trade direction.
type SideSizing struct {
	MaxPctOfBalance float64 `json:"max_pct_of_balance"`
	MinTradeFloor   float64 `json:"min_trade_floor"`
	FixedCapCeiling float64 `json:"fixed_cap_ceiling"`
}

// RiskConfig holds per-swap guard ceilings.
type RiskConfig struct {
	MaxFeePct      float64 `json:"max_fee_pct"`
	MinNotionalOut float64 `json:"min_notional_out"`
	MaxSlippageBps float64 `json:"max_slippage_bps"`
}

// ExecutionConfig wires the aggregator connection.
type ExecutionConfig struct {
	AggregatorURL       string  `json:"aggregator_url"`
	APIKey              string  `json:"api_key,omitempty"`
	WalletAddress       string  `json:"wallet_address,omitempty"`
	DryRun              bool    `json:"dry_run"`
	OnlyVerifiedPools   bool    `json:"only_verified_pools"`
	QuoteBothDirections bool    `json:"quote_both_directions"`
	ProbeAmountBase     float64 `json:"probe_amount_base"` // mid probe size in base units
}

// PathsConfig roots the persisted files.
type PathsConfig struct {
	DataDir string `json:"data_dir"` // band center, position, cooldown
	FillLog string `json:"fill_log"` // CSV ledger
	LogFile string `json:"log_file"` // rotating bot log
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `json:"enabled"`
	ListenAddr string `json:"listen_addr"`
}

// Load reads a JSON config file, overlays secrets from the environment
// and validates the result. Bare names resolve under configs/ and get a
// .json suffix, so `-config sol-usdc` finds configs/sol-usdc.json.
func Load(configFile string) (*BotConfig, error) {
	if !strings.ContainsAny(configFile, "/\\") {
		configFile = filepath.Join("configs", configFile)
	}
	if !strings.HasSuffix(configFile, ".json") {
		configFile += ".json"
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg BotConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// applyEnv overlays secrets that do not belong in a checked-in JSON
// file. The caller loads .env via godotenv before this runs.
func (c *BotConfig) applyEnv() {
	if v := os.Getenv("AGGREGATOR_API_KEY"); v != "" {
		c.Execution.APIKey = v
	}
	if v := os.Getenv("WALLET_ADDRESS"); v != "" {
		c.Execution.WalletAddress = v
	}
	if v := os.Getenv("AGGREGATOR_URL"); v != "" {
		c.Execution.AggregatorURL = v
	}
}

func (c *BotConfig) setDefaults() {
	if c.ConfigID == "" {
		c.ConfigID = fmt.Sprintf("band%.0f-edge%.0f", c.Strategy.BandBps, c.Strategy.EdgeBps)
	}
	if c.Network == "" {
		c.Network = "mainnet"
	}
	if c.Strategy.PollIntervalMs == 0 {
		c.Strategy.PollIntervalMs = 5000
	}
	if c.Execution.ProbeAmountBase == 0 {
		c.Execution.ProbeAmountBase = 0.1
	}
	if c.Sizing.GasSide == "" {
		c.Sizing.GasSide = "base"
	}
	if c.Paths.DataDir == "" {
		c.Paths.DataDir = "data"
	}
	if c.Paths.FillLog == "" {
		c.Paths.FillLog = filepath.Join(c.Paths.DataDir, "fills.csv")
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
}

// Validate enforces the configuration error class: everything here stops
// the process before it trades.
func (c *BotConfig) Validate() error {
	if c.Strategy.EmaAlpha <= 0 || c.Strategy.EmaAlpha > 1 {
		return fmt.Errorf("ema_alpha must be in (0, 1], got %v", c.Strategy.EmaAlpha)
	}
	if c.Pair.BaseMint == "" || c.Pair.QuoteMint == "" {
		return fmt.Errorf("base_mint and quote_mint are required")
	}
	if c.Pair.BaseMint == c.Pair.QuoteMint {
		return fmt.Errorf("base and quote mints must differ")
	}
	if c.Pair.BaseSymbol == "" || c.Pair.QuoteSymbol == "" {
		return fmt.Errorf("base_symbol and quote_symbol are required")
	}
	if c.Pair.BaseDecimals < 0 || c.Pair.QuoteDecimals < 0 {
		return fmt.Errorf("token decimals must be >= 0")
	}
	if c.Strategy.PollIntervalMs <= 0 {
		return fmt.Errorf("poll_interval_ms must be > 0")
	}
	if err := c.DecisionConfig().Validate(); err != nil {
		return err
	}
	if err := c.SizingConfig().Validate(); err != nil {
		return err
	}
	if c.Risk.MaxFeePct < 0 || c.Risk.MinNotionalOut < 0 || c.Risk.MaxSlippageBps < 0 {
		return fmt.Errorf("risk ceilings must be >= 0")
	}
	if c.Execution.AggregatorURL == "" {
		return fmt.Errorf("aggregator_url is required")
	}
	if !c.Execution.DryRun && c.Execution.WalletAddress == "" {
		return fmt.Errorf("wallet_address is required outside dry-run mode")
	}
	return nil
}

// TradingPair converts the pair section to the shared pair type.
func (c *BotConfig) TradingPair() types.Pair {
	return types.Pair{
		BaseSymbol:    c.Pair.BaseSymbol,
		QuoteSymbol:   c.Pair.QuoteSymbol,
		BaseMint:      c.Pair.BaseMint,
		QuoteMint:     c.Pair.QuoteMint,
		BaseDecimals:  c.Pair.BaseDecimals,
		QuoteDecimals: c.Pair.QuoteDecimals,
	}
}

// DecisionConfig converts the strategy section for the decision engine.
func (c *BotConfig) DecisionConfig() decision.Config {
	return decision.Config{
		BandBps:             c.Strategy.BandBps,
		EdgeBps:             c.Strategy.EdgeBps,
		Cooldown:            time.Duration(c.Strategy.CooldownMs) * time.Millisecond,
		DecisionEvery:       time.Duration(c.Strategy.DecisionEvery) * time.Millisecond,
		ProfitFilterEnabled: c.Strategy.ProfitFilterEnabled,
		MinCyclePnlBps:      c.Strategy.MinCyclePnlBps,
		RoundTripFeeBps:     c.Strategy.RoundTripFeeBps,
		TrailStopBps:        c.Strategy.TrailStopBps,
		HardStopBps:         c.Strategy.HardStopBps,
	}
}

// SizingConfig converts the sizing section for the sizing engine.
func (c *BotConfig) SizingConfig() sizing.Config {
	return sizing.Config{
		Base: sizing.SideConfig{
			MaxPctOfBalance: c.Sizing.Base.MaxPctOfBalance,
			MinTradeFloor:   c.Sizing.Base.MinTradeFloor,
			FixedCapCeiling: c.Sizing.Base.FixedCapCeiling,
		},
		Quote: sizing.SideConfig{
			MaxPctOfBalance: c.Sizing.Quote.MaxPctOfBalance,
			MinTradeFloor:   c.Sizing.Quote.MinTradeFloor,
			FixedCapCeiling: c.Sizing.Quote.FixedCapCeiling,
		},
		GasSide:      sizing.Side(c.Sizing.GasSide),
		ReserveFloor: c.Sizing.ReserveFloor,
		FeeBuffer:    c.Sizing.FeeBuffer,
	}
}

// RiskConfig converts the risk section for the guard.
func (c *BotConfig) RiskConfig() risk.Config {
	return risk.Config{
		MaxFeePct:      c.Risk.MaxFeePct,
		MinNotionalOut: c.Risk.MinNotionalOut,
		MaxSlippageBps: c.Risk.MaxSlippageBps,
	}
}

// PollInterval returns the tick cadence as a duration.
func (c *BotConfig) PollInterval() time.Duration {
	return time.Duration(c.Strategy.PollIntervalMs) * time.Millisecond
}
