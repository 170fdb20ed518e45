package ledger

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFill(ts time.Time) FillRecord {
	return FillRecord{
		Timestamp: ts,
		Side:      "SELL_BASE",
		Price:     185.42,
		AmountIn:  1.5,
		AmountOut: 278.13,
		Center:    184.0,
		BandLower: 182.16,
		BandUpper: 185.84,
		ConfigID:  "band50-edge10",
	}
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

// TestLedger_HeaderAndAppend tests header creation and row layout
func TestLedger_HeaderAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fills.csv")
	l, err := Open(path)
	require.NoError(t, err)

	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	require.NoError(t, l.Append(sampleFill(ts)))
	require.NoError(t, l.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, "2026-03-14T09:30:00Z", rows[1][0])
	assert.Equal(t, "SELL_BASE", rows[1][1])
	assert.Equal(t, "185.42", rows[1][2])
	assert.Equal(t, "", rows[1][9], "ordinary close has no stop reason")
	assert.Equal(t, "band50-edge10", rows[1][10])
}

// TestLedger_AppendPreservesExistingRows tests reopen-and-append behavior
func TestLedger_AppendPreservesExistingRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fills.csv")

	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Append(sampleFill(time.Now())))
	require.NoError(t, l.Close())

	// Reopening must not rewrite the header or drop the first fill.
	l, err = Open(path)
	require.NoError(t, err)
	rec := sampleFill(time.Now())
	rec.Side = "SELL_QUOTE"
	rec.RealizedPnl = 0.0123
	rec.StopReason = "trailing_stop"
	require.NoError(t, l.Append(rec))
	require.NoError(t, l.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "SELL_QUOTE", rows[2][1])
	assert.Equal(t, "0.0123", rows[2][8])
	assert.Equal(t, "trailing_stop", rows[2][9])
}

// TestLedger_CreatesParentDirectory tests data-dir creation on first run
func TestLedger_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "sol-usdc", "fills.csv")
	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

// TestCyclePnlBase tests round-trip valuation at the closing mid
func TestCyclePnlBase(t *testing.T) {
	// Sold 1 base at 100, bought back 1.01 base for the same 100 quote:
	// net +0.01 base, quote flat.
	assert.InDelta(t, 0.01, CyclePnlBase(0.01, 0, 99.0), 1e-9)

	// Sold 1 base for 100 quote, bought 0.98 base for 100 quote: down
	// 0.02 base, quote flat.
	assert.InDelta(t, -0.02, CyclePnlBase(-0.02, 0, 102.0), 1e-9)

	// Mixed residue: +5 quote left over values at the closing mid.
	assert.InDelta(t, 0.05, CyclePnlBase(0, 5, 100.0), 1e-9)

	assert.Equal(t, 0.0, CyclePnlBase(1, 1, 0))
}

// TestEquity tests base-denominated portfolio valuation
func TestEquity(t *testing.T) {
	assert.InDelta(t, 3.0, Equity(1, 200, 100), 1e-9)
	assert.Equal(t, 1.0, Equity(1, 200, 0))
}

// TestEquity_RoundTripNeutral tests that an ideal fee-free round trip
// leaves equity unchanged at a constant mid
func TestEquity_RoundTripNeutral(t *testing.T) {
	mid := 100.0
	base, quote := 10.0, 1000.0
	before := Equity(base, quote, mid)

	// Sell 2 base at mid, then buy it back at the same mid.
	base -= 2
	quote += 2 * mid
	base += 2
	quote -= 2 * mid

	assert.InDelta(t, before, Equity(base, quote, mid), 1e-9)
}
