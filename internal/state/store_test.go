package state

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haidang-fin/dex-band-bot/internal/position"
	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

func testPair() types.Pair {
	return types.Pair{BaseSymbol: "SOL", QuoteSymbol: "USDC"}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), testPair())
	require.NoError(t, err)
	return s
}

// TestStore_CenterRoundTrip tests save and reload of the band center
func TestStore_CenterRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.LoadCenter()
	assert.False(t, ok, "fresh store has no center")

	at := time.Now().Truncate(time.Second)
	require.NoError(t, s.SaveCenter(185.42, at, false))

	rec, ok := s.LoadCenter()
	require.True(t, ok)
	assert.Equal(t, 185.42, rec.Center)
	assert.WithinDuration(t, at, rec.UpdatedAt, time.Second)
}

// TestStore_CenterEpsilonGate tests that tiny center moves skip the write
func TestStore_CenterEpsilonGate(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveCenter(100.0, time.Now(), false))

	// 0.005% move is under the 0.01% gate: no rewrite.
	require.NoError(t, s.SaveCenter(100.005, time.Now(), false))
	rec, ok := s.LoadCenter()
	require.True(t, ok)
	assert.Equal(t, 100.0, rec.Center)

	// 0.02% move crosses the gate.
	require.NoError(t, s.SaveCenter(100.02, time.Now(), false))
	rec, _ = s.LoadCenter()
	assert.Equal(t, 100.02, rec.Center)
}

// TestStore_CenterForceBypassesGate tests the shutdown flush path
func TestStore_CenterForceBypassesGate(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveCenter(100.0, time.Now(), false))
	require.NoError(t, s.SaveCenter(100.001, time.Now(), true))

	rec, ok := s.LoadCenter()
	require.True(t, ok)
	assert.Equal(t, 100.001, rec.Center)
}

// TestStore_CorruptCenterTreatedAsAbsent tests re-seeding after corruption
func TestStore_CorruptCenterTreatedAsAbsent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.centerPath(), []byte("{not json"), 0o644))
	_, ok := s.LoadCenter()
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(s.centerPath(), []byte(`{"center":-5}`), 0o644))
	_, ok = s.LoadCenter()
	assert.False(t, ok)
}

// TestStore_NoTempFileLeftBehind tests the atomic write cleanup
func TestStore_NoTempFileLeftBehind(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveCenter(100.0, time.Now(), false))
	_, err := os.Stat(s.centerPath() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

// TestStore_PositionRoundTrip tests open-cycle persistence across restarts
func TestStore_PositionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	pos := position.NewState()
	require.NoError(t, pos.Open(position.ModeLongQuote, 100.0, now.Add(-time.Hour)))
	pos.Update(108.0)

	require.NoError(t, s.SavePosition(pos.Snapshot(), CycleFlows{BaseDelta: -5, QuoteDelta: 500}, now))

	snap, flows, ok := s.LoadPosition(now)
	require.True(t, ok)

	restored := position.NewState()
	restored.Restore(snap)
	assert.Equal(t, position.ModeLongQuote, restored.Mode())
	assert.Equal(t, 100.0, restored.Entry())
	assert.InDelta(t, pos.TrailingDrawdownBps(105.0), restored.TrailingDrawdownBps(105.0), 1e-9)

	// The opening fill's flows come back with the snapshot.
	assert.Equal(t, -5.0, flows.BaseDelta)
	assert.Equal(t, 500.0, flows.QuoteDelta)
}

// TestStore_ClosedPositionClearsFile tests that NONE removes the snapshot
func TestStore_ClosedPositionClearsFile(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	pos := position.NewState()
	require.NoError(t, pos.Open(position.ModeLongBase, 50.0, now))
	require.NoError(t, s.SavePosition(pos.Snapshot(), CycleFlows{}, now))

	pos.Close()
	require.NoError(t, s.SavePosition(pos.Snapshot(), CycleFlows{}, now))

	_, _, ok := s.LoadPosition(now)
	assert.False(t, ok)

	// Clearing twice must not error.
	require.NoError(t, s.SavePosition(pos.Snapshot(), CycleFlows{}, now))
}

// TestStore_StalePositionDiscarded tests the snapshot age window
func TestStore_StalePositionDiscarded(t *testing.T) {
	s := newTestStore(t)
	savedAt := time.Now().Add(-8 * 24 * time.Hour)

	pos := position.NewState()
	require.NoError(t, pos.Open(position.ModeLongQuote, 100.0, savedAt))
	require.NoError(t, s.SavePosition(pos.Snapshot(), CycleFlows{}, savedAt))

	_, _, ok := s.LoadPosition(time.Now())
	assert.False(t, ok, "week-old snapshot must not resume")
}

// TestStore_CooldownRoundTrip tests cooldown clock persistence
func TestStore_CooldownRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.LoadLastFill()
	assert.False(t, ok)

	at := time.Now().Truncate(time.Second)
	require.NoError(t, s.SaveLastFill(at))

	got, ok := s.LoadLastFill()
	require.True(t, ok)
	assert.WithinDuration(t, at, got, time.Second)
}

// TestStore_PerPairNamespacing tests that two pairs never share files
func TestStore_PerPairNamespacing(t *testing.T) {
	dir := t.TempDir()
	s1, err := NewStore(dir, types.Pair{BaseSymbol: "SOL", QuoteSymbol: "USDC"})
	require.NoError(t, err)
	s2, err := NewStore(dir, types.Pair{BaseSymbol: "JUP", QuoteSymbol: "USDC"})
	require.NoError(t, err)

	require.NoError(t, s1.SaveCenter(185.0, time.Now(), false))
	_, ok := s2.LoadCenter()
	assert.False(t, ok)
	assert.NotEqual(t, s1.centerPath(), s2.centerPath())
}

// TestStore_CenterFileShape tests the on-disk JSON field names
func TestStore_CenterFileShape(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveCenter(185.0, time.Now(), false))

	data, err := os.ReadFile(s.centerPath())
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "center")
	assert.Contains(t, raw, "updated_at")
}
