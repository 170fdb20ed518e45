package risk

import (
	boterrors "github.com/haidang-fin/dex-band-bot/internal/errors"
	"github.com/haidang-fin/dex-band-bot/internal/exchange"
)

// Config bounds what a single swap may cost.
type Config struct {
	MaxFeePct      float64 // quoted route fee ceiling, percent; 0 disables
	MinNotionalOut float64 // minimum acceptable AmountOut; 0 disables
	MaxSlippageBps float64 // quoted price impact ceiling; 0 disables
}

// Guard vetoes trades whose quoted terms are unacceptable. A veto is an
// ordinary per-tick outcome: the caller logs it and holds, it is never
// fatal.
type Guard struct {
	cfg Config
}

func NewGuard(cfg Config) *Guard {
	return &Guard{cfg: cfg}
}

// Check validates a quote against the configured ceilings. The returned
// error carries the GUARD category so the caller can tell a veto from a
// transport failure.
func (g *Guard) Check(q *exchange.Quote) error {
	if q == nil {
		return boterrors.New(boterrors.ErrorCategoryInvariant, "risk", "nil quote")
	}
	if g.cfg.MaxFeePct > 0 && q.FeePct > g.cfg.MaxFeePct {
		return boterrors.New(boterrors.ErrorCategoryGuard, "risk",
			"quoted fee %.4f%% exceeds cap %.4f%%", q.FeePct, g.cfg.MaxFeePct)
	}
	if g.cfg.MinNotionalOut > 0 {
		// The dust check runs against the worst-case output, not the
		// expected one; a quote without a min-out figure falls back to
		// the expected output.
		minOut := q.MinAmountOut
		if minOut <= 0 {
			minOut = q.AmountOut
		}
		if minOut < g.cfg.MinNotionalOut {
			return boterrors.New(boterrors.ErrorCategoryGuard, "risk",
				"quoted minimum out %.6f below minimum notional %.6f", minOut, g.cfg.MinNotionalOut)
		}
	}
	if g.cfg.MaxSlippageBps > 0 && q.PriceImpactBps > g.cfg.MaxSlippageBps {
		return boterrors.New(boterrors.ErrorCategoryGuard, "risk",
			"price impact %.1f bps exceeds ceiling %.1f bps", q.PriceImpactBps, g.cfg.MaxSlippageBps)
	}
	return nil
}

// MaxSlippageBps exposes the ceiling for the execution call, which passes
// it to the aggregator as the swap's slippage tolerance.
func (g *Guard) MaxSlippageBps() float64 {
	return g.cfg.MaxSlippageBps
}
