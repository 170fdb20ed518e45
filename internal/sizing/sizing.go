package sizing

import (
	"fmt"

	"github.com/haidang-fin/dex-band-bot/internal/decision"
	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

// Side selects which asset carries the chain's gas reserve. Sizing for
// that side subtracts the reserve floor and a fee buffer before the
// percentage cap is applied.
type Side string

const (
	SideBase  Side = "base"
	SideQuote Side = "quote"
)

// SideConfig caps one direction of trading.
type SideConfig struct {
	MaxPctOfBalance float64 // percentage of spendable balance, 0-100
	MinTradeFloor   float64 // below this the trade is not viable
	FixedCapCeiling float64 // absolute ceiling per trade, 0 = uncapped
}

// Config holds both side caps plus the reserve guard for the gas asset.
//
// Sizing is a pure function of balances and this config; it never looks
// at price. "Should we trade" belongs to the decision engine, "how much"
// lives here, and both are recomputed every tick because the wallet can
// change underneath the bot.
type Config struct {
	Base  SideConfig
	Quote SideConfig

	GasSide      Side    // which asset pays gas
	ReserveFloor float64 // always left untouched in the gas asset
	FeeBuffer    float64 // headroom for the next few transaction fees
}

// Validate enforces startup configuration errors.
func (c Config) Validate() error {
	for name, sc := range map[string]SideConfig{"base": c.Base, "quote": c.Quote} {
		if sc.MaxPctOfBalance < 0 || sc.MaxPctOfBalance > 100 {
			return fmt.Errorf("%s max pct of balance must be in [0, 100], got %v", name, sc.MaxPctOfBalance)
		}
		if sc.MinTradeFloor < 0 {
			return fmt.Errorf("%s min trade floor must be >= 0", name)
		}
		if sc.FixedCapCeiling < 0 {
			return fmt.Errorf("%s fixed cap ceiling must be >= 0", name)
		}
	}
	if c.GasSide != SideBase && c.GasSide != SideQuote {
		return fmt.Errorf("gas side must be %q or %q, got %q", SideBase, SideQuote, c.GasSide)
	}
	if c.ReserveFloor < 0 || c.FeeBuffer < 0 {
		return fmt.Errorf("reserve floor and fee buffer must be >= 0")
	}
	return nil
}

// Engine converts a qualitative decision into a concrete trade amount,
// denominated in the asset being sold.
type Engine struct {
	cfg Config
}

// NewEngine validates the config and returns a sizing engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Spendable returns the balance available to sizing for a side after the
// reserve guard. The reserve floor plus fee buffer is carved out of the
// gas asset only; the other asset spends its raw balance.
func (e *Engine) Spendable(side Side, balances types.Balances) float64 {
	raw := balances.Base
	if side == SideQuote {
		raw = balances.Quote
	}
	if side == e.cfg.GasSide {
		raw -= e.cfg.ReserveFloor + e.cfg.FeeBuffer
	}
	if raw < 0 {
		return 0
	}
	return raw
}

// Size computes the trade amount for an action against fresh balances.
// Returns (amount, true) when viable; (0, false) means the caller treats
// the tick as HOLD.
func (e *Engine) Size(action decision.Action, balances types.Balances) (float64, bool) {
	var side Side
	var sc SideConfig
	switch action {
	case decision.ActionSellBase:
		side, sc = SideBase, e.cfg.Base
	case decision.ActionSellQuote:
		side, sc = SideQuote, e.cfg.Quote
	default:
		return 0, false
	}

	spendable := e.Spendable(side, balances)
	if spendable <= 0 {
		return 0, false
	}

	amount := sc.MaxPctOfBalance / 100 * spendable
	if amount < sc.MinTradeFloor {
		amount = sc.MinTradeFloor
	}
	if sc.FixedCapCeiling > 0 && amount > sc.FixedCapCeiling {
		amount = sc.FixedCapCeiling
	}

	// Never propose more than is actually owned, reserve included.
	if amount > spendable {
		amount = spendable
	}

	if amount <= 0 || amount < sc.MinTradeFloor {
		return 0, false
	}
	return amount, true
}
