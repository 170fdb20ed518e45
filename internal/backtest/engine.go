package backtest

import (
	"fmt"
	"time"

	"github.com/haidang-fin/dex-band-bot/internal/band"
	"github.com/haidang-fin/dex-band-bot/internal/decision"
	"github.com/haidang-fin/dex-band-bot/internal/ledger"
	"github.com/haidang-fin/dex-band-bot/internal/position"
	"github.com/haidang-fin/dex-band-bot/internal/sizing"
	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

// Config parameterizes one backtest run.
type Config struct {
	ConfigID string

	EmaAlpha float64
	Decision decision.Config
	Sizing   sizing.Config

	InitialBase  float64
	InitialQuote float64

	// Per-fill commission in bps of the traded notional, applied to the
	// received asset. This is distinct from Decision.RoundTripFeeBps,
	// which only raises the profit filter's bar.
	CommissionBps float64
}

// CycleTrade is one completed round trip in the replay.
type CycleTrade struct {
	Mode       string
	OpenTime   time.Time
	CloseTime  time.Time
	EntryPrice float64
	ExitPrice  float64
	PnLBase    float64 // valued at the closing mid
	Forced     bool
	StopReason string
}

// EquityPoint samples the portfolio value after one candle.
type EquityPoint struct {
	Time   time.Time
	Equity float64 // base units at the candle close
}

// Results aggregates one replay.
type Results struct {
	ConfigID string

	StartTime time.Time
	EndTime   time.Time

	InitialEquity float64
	FinalEquity   float64

	Trades      []CycleTrade
	FillCount   int
	ForcedCount int
	SkippedNoSize int

	EquityCurve []EquityPoint
}

// Engine replays a candle series through the decision core, simulating
// fills at the decision-time mid with a flat commission. It shares the
// exact engine the live bot runs; only execution is simulated.
type Engine struct {
	cfg Config
}

// NewEngine validates the run parameters.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.EmaAlpha <= 0 || cfg.EmaAlpha > 1 {
		return nil, fmt.Errorf("ema alpha must be in (0, 1], got %v", cfg.EmaAlpha)
	}
	if cfg.CommissionBps < 0 {
		return nil, fmt.Errorf("commission bps must be >= 0")
	}
	if cfg.InitialBase < 0 || cfg.InitialQuote < 0 {
		return nil, fmt.Errorf("initial balances must be >= 0")
	}
	if err := cfg.Decision.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Sizing.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Run replays the series. Candles must be validated and ascending; the
// candle close is the tick mid.
func (e *Engine) Run(candles []types.Candle) (*Results, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles to replay")
	}

	tracker, err := band.NewTracker(e.cfg.EmaAlpha)
	if err != nil {
		return nil, err
	}
	core, err := decision.NewEngine(e.cfg.Decision, tracker, position.NewState())
	if err != nil {
		return nil, err
	}
	sizer, err := sizing.NewEngine(e.cfg.Sizing)
	if err != nil {
		return nil, err
	}

	base := e.cfg.InitialBase
	quote := e.cfg.InitialQuote
	commission := e.cfg.CommissionBps / 10000

	res := &Results{
		ConfigID:      e.cfg.ConfigID,
		StartTime:     candles[0].Timestamp,
		EndTime:       candles[len(candles)-1].Timestamp,
		InitialEquity: ledger.Equity(base, quote, candles[0].Close),
		EquityCurve:   make([]EquityPoint, 0, len(candles)),
	}

	// Net asset flow over the open cycle, for PnL at close.
	var cycleBaseDelta, cycleQuoteDelta float64
	var openTrade CycleTrade

	for _, c := range candles {
		mid := c.Close
		now := c.Timestamp

		out := core.Tick(now, mid)
		if out.Action != decision.ActionHold {
			amount, ok := sizer.Size(out.Action, types.Balances{Base: base, Quote: quote})
			if !ok {
				res.SkippedNoSize++
			} else {
				wasOpen := core.Position().Mode() != position.ModeNone

				var baseDelta, quoteDelta float64
				if out.Action == decision.ActionSellBase {
					baseDelta = -amount
					quoteDelta = amount * mid * (1 - commission)
				} else {
					quoteDelta = -amount
					baseDelta = amount / mid * (1 - commission)
				}
				base += baseDelta
				quote += quoteDelta
				res.FillCount++

				if err := core.RecordFill(out.Action, mid, now); err != nil {
					return nil, err
				}

				if !wasOpen {
					// Opening fill: start accumulating the cycle.
					cycleBaseDelta = baseDelta
					cycleQuoteDelta = quoteDelta
					openTrade = CycleTrade{
						Mode:       core.Position().Mode().String(),
						OpenTime:   now,
						EntryPrice: mid,
					}
				} else {
					cycleBaseDelta += baseDelta
					cycleQuoteDelta += quoteDelta
					openTrade.CloseTime = now
					openTrade.ExitPrice = mid
					openTrade.PnLBase = ledger.CyclePnlBase(cycleBaseDelta, cycleQuoteDelta, mid)
					openTrade.Forced = out.Forced
					openTrade.StopReason = out.StopReason
					if out.Forced {
						res.ForcedCount++
					}
					res.Trades = append(res.Trades, openTrade)
					cycleBaseDelta, cycleQuoteDelta = 0, 0
				}
			}
		}

		res.EquityCurve = append(res.EquityCurve, EquityPoint{
			Time:   now,
			Equity: ledger.Equity(base, quote, mid),
		})
	}

	res.FinalEquity = res.EquityCurve[len(res.EquityCurve)-1].Equity
	return res, nil
}
