package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haidang-fin/dex-band-bot/internal/decision"
	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

func defaultConfig() Config {
	return Config{
		Base:  SideConfig{MaxPctOfBalance: 25, MinTradeFloor: 0.1, FixedCapCeiling: 5},
		Quote: SideConfig{MaxPctOfBalance: 25, MinTradeFloor: 10, FixedCapCeiling: 500},
		GasSide:      SideBase,
		ReserveFloor: 0.05,
		FeeBuffer:    0.01,
	}
}

// TestConfig_Validate tests rejection of out-of-range sizing parameters
func TestConfig_Validate(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Base.MaxPctOfBalance = 120
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Quote.MinTradeFloor = -1
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.GasSide = "gas"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.ReserveFloor = -0.1
	assert.Error(t, bad.Validate())
}

// TestEngine_PercentOfSpendable tests the basic percentage sizing path
func TestEngine_PercentOfSpendable(t *testing.T) {
	cfg := defaultConfig()
	cfg.Base.FixedCapCeiling = 0 // uncapped
	e := newTestEngine(t, cfg)

	// spendable = 10 - 0.05 - 0.01 = 9.94, 25% of that.
	amount, ok := e.Size(decision.ActionSellBase, types.Balances{Base: 10, Quote: 0})
	require.True(t, ok)
	assert.InDelta(t, 2.485, amount, 1e-9)
}

// TestEngine_ReserveGuardOnGasSideOnly tests that only the gas asset is carved
func TestEngine_ReserveGuardOnGasSideOnly(t *testing.T) {
	e := newTestEngine(t, defaultConfig())

	assert.InDelta(t, 9.94, e.Spendable(SideBase, types.Balances{Base: 10, Quote: 2000}), 1e-9)
	assert.InDelta(t, 2000.0, e.Spendable(SideQuote, types.Balances{Base: 10, Quote: 2000}), 1e-9)
}

// TestEngine_ReserveExhaustsBalance tests the zero-spendable guarantee
func TestEngine_ReserveExhaustsBalance(t *testing.T) {
	cfg := defaultConfig()
	cfg.ReserveFloor = 1.0
	cfg.FeeBuffer = 0.5
	e := newTestEngine(t, cfg)

	// Reserve + buffer meets or exceeds the balance: spendable is exactly 0.
	assert.Equal(t, 0.0, e.Spendable(SideBase, types.Balances{Base: 1.5}))
	assert.Equal(t, 0.0, e.Spendable(SideBase, types.Balances{Base: 1.2}))

	_, ok := e.Size(decision.ActionSellBase, types.Balances{Base: 1.5})
	assert.False(t, ok)
}

// TestEngine_MinFloorRaisesSmallSizes tests the floor bump on tiny percentages
func TestEngine_MinFloorRaisesSmallSizes(t *testing.T) {
	cfg := defaultConfig()
	cfg.Quote.MaxPctOfBalance = 1
	cfg.Quote.MinTradeFloor = 50
	e := newTestEngine(t, cfg)

	// 1% of 2000 = 20, bumped up to the 50 floor.
	amount, ok := e.Size(decision.ActionSellQuote, types.Balances{Quote: 2000})
	require.True(t, ok)
	assert.Equal(t, 50.0, amount)
}

// TestEngine_FixedCapCeiling tests the absolute per-trade cap
func TestEngine_FixedCapCeiling(t *testing.T) {
	cfg := defaultConfig()
	cfg.Quote.FixedCapCeiling = 100
	e := newTestEngine(t, cfg)

	// 25% of 10000 = 2500, capped at 100.
	amount, ok := e.Size(decision.ActionSellQuote, types.Balances{Quote: 10000})
	require.True(t, ok)
	assert.Equal(t, 100.0, amount)
}

// TestEngine_FloorAboveBalanceNotViable tests that the floor never overdraws
func TestEngine_FloorAboveBalanceNotViable(t *testing.T) {
	cfg := defaultConfig()
	cfg.Quote.MinTradeFloor = 500
	e := newTestEngine(t, cfg)

	// Floor bump would ask for 500 but only 300 exists; recapping to the
	// balance drops below the floor, so the trade is not viable.
	_, ok := e.Size(decision.ActionSellQuote, types.Balances{Quote: 300})
	assert.False(t, ok)
}

// TestEngine_HoldActionNotSized tests that HOLD never produces an amount
func TestEngine_HoldActionNotSized(t *testing.T) {
	e := newTestEngine(t, defaultConfig())
	_, ok := e.Size(decision.ActionHold, types.Balances{Base: 100, Quote: 100})
	assert.False(t, ok)
}

// TestEngine_SizingBounds tests the bound property across a balance sweep
func TestEngine_SizingBounds(t *testing.T) {
	cfg := defaultConfig()
	e := newTestEngine(t, cfg)

	for _, bal := range []float64{0, 0.01, 0.07, 0.5, 1, 7.3, 50, 1234.5} {
		amount, ok := e.Size(decision.ActionSellBase, types.Balances{Base: bal})
		if !ok {
			assert.Equal(t, 0.0, amount)
			continue
		}
		assert.GreaterOrEqual(t, amount, cfg.Base.MinTradeFloor, "balance %v", bal)
		assert.LessOrEqual(t, amount, cfg.Base.FixedCapCeiling, "balance %v", bal)
		assert.LessOrEqual(t, amount, bal, "balance %v", bal)
	}
}
