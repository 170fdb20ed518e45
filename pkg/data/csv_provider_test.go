package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestCSVProvider_LoadCandles tests the default-format happy path
func TestCSVProvider_LoadCandles(t *testing.T) {
	path := writeCSV(t, `timestamp,open,high,low,close,volume
1700000000000,100,105,99,104,1200
1700003600000,104,106,103,105,900
`)

	candles, err := NewCSVProvider().LoadCandles(path)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), candles[0].Timestamp)
	assert.Equal(t, 100.0, candles[0].Open)
	assert.Equal(t, 105.0, candles[1].Close)
}

// TestCSVProvider_RFC3339Timestamps tests the alternate timestamp format
func TestCSVProvider_RFC3339Timestamps(t *testing.T) {
	path := writeCSV(t, `timestamp,open,high,low,close,volume
2026-01-02T15:00:00Z,100,105,99,104,1200
`)

	candles, err := NewCSVProvider().LoadCandles(path)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 2026, candles[0].Timestamp.Year())
}

// TestCSVProvider_SkipsMalformedRows tests row-level resilience
func TestCSVProvider_SkipsMalformedRows(t *testing.T) {
	path := writeCSV(t, `timestamp,open,high,low,close,volume
1700000000000,100,105,99,104,1200
1700003600000,not-a-number,106,103,105,900
1700007200000,-5,106,103,105,900
1700010800000,104,90,103,105,900
1700014400000,105,107,104,106,800
`)

	candles, err := NewCSVProvider().LoadCandles(path)
	require.NoError(t, err)
	require.Len(t, candles, 2, "three bad rows skipped")
	assert.Equal(t, 106.0, candles[1].Close)
}

// TestCSVProvider_MissingFile tests the open error path
func TestCSVProvider_MissingFile(t *testing.T) {
	_, err := NewCSVProvider().LoadCandles(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

// TestCSVProvider_EmptySeriesRejected tests that an all-bad file fails
func TestCSVProvider_EmptySeriesRejected(t *testing.T) {
	path := writeCSV(t, `timestamp,open,high,low,close,volume
garbage,100,105,99,104,1200
`)
	_, err := NewCSVProvider().LoadCandles(path)
	assert.Error(t, err)
}

// TestValidateCandles_OutOfOrder tests the chronology check
func TestValidateCandles_OutOfOrder(t *testing.T) {
	now := time.Now()
	candles := []types.Candle{
		{Timestamp: now, Open: 1, High: 1, Low: 1, Close: 1},
		{Timestamp: now.Add(-time.Hour), Open: 1, High: 1, Low: 1, Close: 1},
	}
	assert.Error(t, ValidateCandles(candles))
}

// TestInvert tests reciprocal-pair conversion with high/low swap
func TestInvert(t *testing.T) {
	candles := []types.Candle{
		{Timestamp: time.Now(), Open: 100, High: 110, Low: 90, Close: 105, Volume: 7},
	}

	inv := Invert(candles)
	require.Len(t, inv, 1)
	assert.InDelta(t, 1.0/100, inv[0].Open, 1e-12)
	assert.InDelta(t, 1.0/105, inv[0].Close, 1e-12)
	// The inverted high comes from the original low, and vice versa.
	assert.InDelta(t, 1.0/90, inv[0].High, 1e-12)
	assert.InDelta(t, 1.0/110, inv[0].Low, 1e-12)
	assert.True(t, inv[0].High >= inv[0].Low)
	assert.Equal(t, 7.0, inv[0].Volume)
}
