package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haidang-fin/dex-band-bot/internal/band"
	"github.com/haidang-fin/dex-band-bot/internal/position"
)

// newTestEngine builds an engine with alpha=1 so the center always equals
// the previous seed, keeping band positions easy to reason about.
func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	tracker, err := band.NewTracker(1.0)
	require.NoError(t, err)
	engine, err := NewEngine(cfg, tracker, position.NewState())
	require.NoError(t, err)
	return engine
}

// seededEngine returns an engine whose center is pinned at the given
// level (alpha near zero keeps the center effectively frozen).
func seededEngine(t *testing.T, cfg Config, center float64) *Engine {
	t.Helper()
	tracker, err := band.NewTracker(0.000001)
	require.NoError(t, err)
	tracker.Seed(center, time.Now())
	engine, err := NewEngine(cfg, tracker, position.NewState())
	require.NoError(t, err)
	return engine
}

// TestNewEngine_ConfigValidation tests fatal configuration errors
func TestNewEngine_ConfigValidation(t *testing.T) {
	tracker, err := band.NewTracker(0.5)
	require.NoError(t, err)

	bad := []Config{
		{BandBps: -1},
		{EdgeBps: -5},
		{Cooldown: -time.Second},
		{DecisionEvery: -time.Minute},
		{TrailStopBps: -10},
		{HardStopBps: -10},
	}
	for _, cfg := range bad {
		_, err := NewEngine(cfg, tracker, position.NewState())
		assert.Error(t, err, "%+v should be rejected", cfg)
	}

	_, err = NewEngine(Config{BandBps: 50, EdgeBps: 5}, nil, position.NewState())
	assert.Error(t, err)
}

// TestEngine_RawSignals tests the basic band breach triggers
func TestEngine_RawSignals(t *testing.T) {
	cfg := Config{BandBps: 100, EdgeBps: 0} // 1% band
	now := time.Now()

	engine := seededEngine(t, cfg, 100.0)
	out := engine.Tick(now, 102.0) // above upper (101)
	assert.Equal(t, ActionSellBase, out.Action)
	assert.Greater(t, out.ExcessBps, 0.0)

	engine = seededEngine(t, cfg, 100.0)
	out = engine.Tick(now, 98.0) // below lower (99)
	assert.Equal(t, ActionSellQuote, out.Action)

	engine = seededEngine(t, cfg, 100.0)
	out = engine.Tick(now, 100.5) // inside band
	assert.Equal(t, ActionHold, out.Action)
}

// TestEngine_EdgeThreshold tests that the edge margin suppresses marginal breaches
func TestEngine_EdgeThreshold(t *testing.T) {
	now := time.Now()

	// Upper bound at 101; edge of 30 bps needs mid >= ~101.303.
	cfg := Config{BandBps: 100, EdgeBps: 30}

	engine := seededEngine(t, cfg, 100.0)
	out := engine.Tick(now, 101.2)
	assert.Equal(t, ActionHold, out.Action, "breach below edge must hold")

	engine = seededEngine(t, cfg, 100.0)
	out = engine.Tick(now, 101.5)
	assert.Equal(t, ActionSellBase, out.Action, "breach beyond edge must fire")
}

// TestEngine_EdgeMonotonicity tests that lowering edgeBps never turns a
// trigger into a hold and raising it never turns a hold into a trigger
func TestEngine_EdgeMonotonicity(t *testing.T) {
	now := time.Now()
	mids := []float64{100.9, 101.05, 101.2, 101.5, 102.0, 99.1, 98.9, 98.4}
	edges := []float64{0, 10, 25, 50, 100}

	for _, mid := range mids {
		fired := make([]bool, len(edges))
		for i, edge := range edges {
			engine := seededEngine(t, Config{BandBps: 100, EdgeBps: edge}, 100.0)
			fired[i] = engine.Tick(now, mid).Action != ActionHold
		}
		// edges are ascending, so fired must be monotonically non-increasing
		for i := 1; i < len(fired); i++ {
			if fired[i] {
				assert.True(t, fired[i-1],
					"mid=%v: edge %v fired but smaller edge %v did not", mid, edges[i], edges[i-1])
			}
		}
	}
}

// TestEngine_SinglePositionPolicy tests that same-side signals downgrade to HOLD
func TestEngine_SinglePositionPolicy(t *testing.T) {
	cfg := Config{BandBps: 100}
	now := time.Now()

	engine := seededEngine(t, cfg, 100.0)
	out := engine.Tick(now, 102.0)
	require.Equal(t, ActionSellBase, out.Action)
	require.NoError(t, engine.RecordFill(ActionSellBase, 102.0, now))
	assert.Equal(t, position.ModeLongQuote, engine.Position().Mode())

	// Price still rich: the raw signal repeats but must not add on.
	out = engine.Tick(now.Add(time.Hour), 103.0)
	assert.Equal(t, ActionHold, out.Action)
	assert.Contains(t, out.Reason, "not adding")
}

// TestEngine_Cooldown tests that fills start a lockout window
func TestEngine_Cooldown(t *testing.T) {
	cfg := Config{BandBps: 100, Cooldown: 10 * time.Minute}
	now := time.Now()

	engine := seededEngine(t, cfg, 100.0)
	out := engine.Tick(now, 102.0)
	require.Equal(t, ActionSellBase, out.Action)
	require.NoError(t, engine.RecordFill(ActionSellBase, 102.0, now))

	// Opposing signal inside the cooldown window holds.
	out = engine.Tick(now.Add(5*time.Minute), 97.0)
	assert.Equal(t, ActionHold, out.Action)
	assert.Contains(t, out.Reason, "cooldown")

	// After the window it closes the cycle.
	out = engine.Tick(now.Add(11*time.Minute), 97.0)
	assert.Equal(t, ActionSellQuote, out.Action)
	assert.True(t, out.ClosesCycle)
}

// TestEngine_RestoreLastFill tests that the cooldown clock survives a restart
func TestEngine_RestoreLastFill(t *testing.T) {
	cfg := Config{BandBps: 100, Cooldown: 10 * time.Minute}
	now := time.Now()

	engine := seededEngine(t, cfg, 100.0)
	engine.RestoreLastFill(now.Add(-time.Minute))

	out := engine.Tick(now, 102.0)
	assert.Equal(t, ActionHold, out.Action)
	assert.Contains(t, out.Reason, "cooldown")
}

// TestEngine_ForcedClosePrecedesCooldown tests that a hard stop fires
// through an active cooldown window
func TestEngine_ForcedClosePrecedesCooldown(t *testing.T) {
	cfg := Config{
		BandBps:     100,
		Cooldown:    time.Hour,
		HardStopBps: 200, // 2% adverse from entry
	}
	now := time.Now()

	engine := seededEngine(t, cfg, 100.0)
	require.Equal(t, ActionSellQuote, engine.Tick(now, 98.0).Action)
	require.NoError(t, engine.RecordFill(ActionSellQuote, 98.0, now))
	require.Equal(t, position.ModeLongBase, engine.Position().Mode())

	// LONG_BASE is hurt by a rising mid. +3% from entry breaches the
	// 2% hard stop well inside the hour-long cooldown.
	out := engine.Tick(now.Add(time.Minute), 100.94)
	assert.Equal(t, ActionSellBase, out.Action)
	assert.True(t, out.Forced)
	assert.True(t, out.ClosesCycle)
	assert.Equal(t, StopReasonHard, out.StopReason)
}

// TestEngine_ForcedClosePrecedesProfitFilter tests that the profit filter
// never suppresses a stop-loss
func TestEngine_ForcedClosePrecedesProfitFilter(t *testing.T) {
	cfg := Config{
		BandBps:             100,
		ProfitFilterEnabled: true,
		MinCyclePnlBps:      500, // unreachable in this scenario
		RoundTripFeeBps:     60,
		HardStopBps:         150,
	}
	now := time.Now()

	engine := seededEngine(t, cfg, 100.0)
	require.NoError(t, engine.RecordFill(ActionSellBase, 102.0, now))

	// LONG_QUOTE under water by 2%: hard stop must close at a loss even
	// though the profit filter could never pass.
	out := engine.Tick(now.Add(time.Minute), 99.9)
	assert.Equal(t, ActionSellQuote, out.Action)
	assert.True(t, out.Forced)
	assert.Equal(t, StopReasonHard, out.StopReason)
}

// TestEngine_TrailingStop tests the retracement-from-peak stop
func TestEngine_TrailingStop(t *testing.T) {
	cfg := Config{BandBps: 100, TrailStopBps: 300}
	now := time.Now()

	engine := seededEngine(t, cfg, 100.0)
	require.NoError(t, engine.RecordFill(ActionSellBase, 102.0, now))

	// Mid runs to 110, then gives back more than 3% from the peak.
	out := engine.Tick(now.Add(time.Minute), 110.0)
	assert.Equal(t, ActionHold, out.Action)

	out = engine.Tick(now.Add(2*time.Minute), 106.5)
	assert.Equal(t, ActionSellQuote, out.Action)
	assert.True(t, out.Forced)
	assert.Equal(t, StopReasonTrailing, out.StopReason)
}

// TestEngine_ProfitFilterBlocksThinCloses tests the ordinary close filter
func TestEngine_ProfitFilterBlocksThinCloses(t *testing.T) {
	cfg := Config{
		BandBps:             100,
		ProfitFilterEnabled: true,
		MinCyclePnlBps:      100,
		RoundTripFeeBps:     50,
	}
	now := time.Now()

	engine := seededEngine(t, cfg, 100.0)
	require.NoError(t, engine.RecordFill(ActionSellBase, 98.5, now))

	// LONG_QUOTE from 98.5; mid at 98.9 is a closing signal (below the
	// 99.0 lower bound) with only ~40 bps favorable move: filter holds.
	out := engine.Tick(now.Add(time.Minute), 98.9)
	require.Equal(t, position.ModeLongQuote, engine.Position().Mode())
	assert.Equal(t, ActionHold, out.Action)
	assert.Contains(t, out.Reason, "below filter")
}

// TestEngine_ProfitFilterPassesFatCloses tests that a sufficient move clears the filter
func TestEngine_ProfitFilterPassesFatCloses(t *testing.T) {
	cfg := Config{
		BandBps:             100,
		ProfitFilterEnabled: true,
		MinCyclePnlBps:      100,
		RoundTripFeeBps:     50,
	}
	now := time.Now()

	// LONG_QUOTE from 97.0 closing at 98.6 (below the 99.0 lower bound)
	// has ~165 bps favorable move, clearing the 150 bps requirement.
	engine := seededEngine(t, cfg, 100.0)
	require.NoError(t, engine.RecordFill(ActionSellBase, 97.0, now))

	out := engine.Tick(now.Add(time.Minute), 98.6)
	assert.Equal(t, ActionSellQuote, out.Action)
	assert.True(t, out.ClosesCycle)
	assert.False(t, out.Forced)
}

// TestEngine_CadenceBucketing tests fixed-bucket decision cadence
func TestEngine_CadenceBucketing(t *testing.T) {
	cfg := Config{BandBps: 100, DecisionEvery: time.Hour}

	// Align to a bucket boundary so in-bucket offsets are unambiguous.
	start := time.UnixMilli(time.Now().UnixMilli() / 3600000 * 3600000)

	engine := seededEngine(t, cfg, 100.0)

	// First tick of the hour evaluates.
	out := engine.Tick(start.Add(time.Minute), 102.0)
	assert.Equal(t, ActionSellBase, out.Action)

	// Two ticks ten minutes apart inside the same hour are skipped.
	out = engine.Tick(start.Add(11*time.Minute), 102.0)
	assert.Equal(t, ActionHold, out.Action)
	assert.Contains(t, out.Reason, "cadence")

	out = engine.Tick(start.Add(21*time.Minute), 102.0)
	assert.Equal(t, ActionHold, out.Action)

	// First tick of the next hour evaluates again.
	out = engine.Tick(start.Add(61*time.Minute), 102.0)
	assert.Equal(t, ActionSellBase, out.Action)
}

// TestEngine_CadenceSkipStillTracksExtremes tests that skipped ticks feed
// the trailing extremes
func TestEngine_CadenceSkipStillTracksExtremes(t *testing.T) {
	cfg := Config{BandBps: 100, DecisionEvery: time.Hour, TrailStopBps: 300}
	start := time.UnixMilli(time.Now().UnixMilli() / 3600000 * 3600000)

	engine := seededEngine(t, cfg, 100.0)
	require.NoError(t, engine.RecordFill(ActionSellBase, 100.0, start))

	// Peak printed on a cadence-skipped tick must still count.
	engine.Tick(start.Add(1*time.Minute), 102.0)  // evaluated, HOLD
	engine.Tick(start.Add(10*time.Minute), 112.0) // skipped, updates peak

	// Next hour: 108 is >3% off the 112 peak.
	out := engine.Tick(start.Add(61*time.Minute), 108.0)
	assert.Equal(t, ActionSellQuote, out.Action)
	assert.Equal(t, StopReasonTrailing, out.StopReason)
}

// TestEngine_RecordFill_Transitions tests the cycle state transitions
func TestEngine_RecordFill_Transitions(t *testing.T) {
	engine := newTestEngine(t, Config{BandBps: 100})
	now := time.Now()

	// Open LONG_QUOTE, close it, open LONG_BASE, close it.
	require.NoError(t, engine.RecordFill(ActionSellBase, 100.0, now))
	assert.Equal(t, position.ModeLongQuote, engine.Position().Mode())

	require.NoError(t, engine.RecordFill(ActionSellQuote, 101.0, now))
	assert.Equal(t, position.ModeNone, engine.Position().Mode())

	require.NoError(t, engine.RecordFill(ActionSellQuote, 99.0, now))
	assert.Equal(t, position.ModeLongBase, engine.Position().Mode())

	require.NoError(t, engine.RecordFill(ActionSellBase, 98.0, now))
	assert.Equal(t, position.ModeNone, engine.Position().Mode())

	// HOLD is not a recordable fill.
	assert.Error(t, engine.RecordFill(ActionHold, 100.0, now))
}

// TestEngine_ModeNeverRepeatsWithoutNone tests the single-position
// invariant over a long random-ish tick sequence
func TestEngine_ModeNeverRepeatsWithoutNone(t *testing.T) {
	cfg := Config{BandBps: 50, EdgeBps: 5}
	tracker, err := band.NewTracker(0.2)
	require.NoError(t, err)
	engine, err := NewEngine(cfg, tracker, position.NewState())
	require.NoError(t, err)

	mids := []float64{
		100, 100.4, 101.2, 102.5, 101.8, 100.2, 99.1, 97.8, 98.5,
		100.9, 103.0, 104.2, 102.0, 99.5, 97.0, 96.2, 98.8, 101.5,
	}

	now := time.Now()
	prevMode := engine.Position().Mode()
	for i, mid := range mids {
		tick := now.Add(time.Duration(i) * time.Minute)
		out := engine.Tick(tick, mid)
		if out.Action != ActionHold {
			require.NoError(t, engine.RecordFill(out.Action, mid, tick))
		}
		mode := engine.Position().Mode()
		if mode != position.ModeNone && prevMode != position.ModeNone {
			assert.Equal(t, prevMode, mode,
				"mode flipped %s -> %s without passing NONE at tick %d", prevMode, mode, i)
		}
		prevMode = mode
	}
}
