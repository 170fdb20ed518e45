package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

// CSVColumnMapping describes where each candle field lives in a CSV row.
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
}

// DefaultCSVFormat matches the files cmd/fetch-candles writes:
// timestamp,open,high,low,close,volume with millisecond epoch stamps.
var DefaultCSVFormat = CSVColumnMapping{
	TimestampCol: 0,
	OpenCol:      1,
	HighCol:      2,
	LowCol:       3,
	CloseCol:     4,
	VolumeCol:    5,
	MinColumns:   6,
}

// CSVProvider loads historical candles from CSV files.
type CSVProvider struct {
	format CSVColumnMapping
}

// NewCSVProvider creates a provider with the default column layout.
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{format: DefaultCSVFormat}
}

// NewCSVProviderWithFormat creates a provider with a custom column layout.
func NewCSVProviderWithFormat(format CSVColumnMapping) *CSVProvider {
	return &CSVProvider{format: format}
}

// LoadCandles loads and validates a candle series from filename.
// Malformed rows are skipped with a warning rather than failing the
// whole file; exchanges ship the occasional bad row.
func (p *CSVProvider) LoadCandles(filename string) ([]types.Candle, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open candle file %s: %w", filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header.
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var candles []types.Candle
	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}
		lineNum++

		if len(record) < p.format.MinColumns {
			log.Printf("⚠️ Insufficient columns at line %d (expected %d, got %d), skipping", lineNum, p.format.MinColumns, len(record))
			continue
		}

		ts, err := parseTimestamp(record[p.format.TimestampCol])
		if err != nil {
			log.Printf("⚠️ Invalid timestamp '%s' at line %d, skipping: %v", record[p.format.TimestampCol], lineNum, err)
			continue
		}

		open, err1 := strconv.ParseFloat(record[p.format.OpenCol], 64)
		high, err2 := strconv.ParseFloat(record[p.format.HighCol], 64)
		low, err3 := strconv.ParseFloat(record[p.format.LowCol], 64)
		closePrice, err4 := strconv.ParseFloat(record[p.format.CloseCol], 64)
		volume, err5 := strconv.ParseFloat(record[p.format.VolumeCol], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			log.Printf("⚠️ Invalid numeric field at line %d, skipping", lineNum)
			continue
		}

		if open <= 0 || high <= 0 || low <= 0 || closePrice <= 0 {
			log.Printf("⚠️ Non-positive price at line %d, skipping", lineNum)
			continue
		}
		if high < low || high < open || high < closePrice || low > open || low > closePrice {
			log.Printf("⚠️ Inconsistent OHLC at line %d, skipping", lineNum)
			continue
		}

		candles = append(candles, types.Candle{
			Timestamp: ts,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
		})
	}

	if err := ValidateCandles(candles); err != nil {
		return nil, err
	}
	return candles, nil
}

// parseTimestamp accepts millisecond epoch or RFC3339 stamps.
func parseTimestamp(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Parse(time.RFC3339, s)
}

// ValidateCandles enforces a non-empty, chronologically ascending series.
func ValidateCandles(candles []types.Candle) error {
	if len(candles) == 0 {
		return fmt.Errorf("no usable candles in series")
	}
	for i := 1; i < len(candles); i++ {
		if candles[i].Timestamp.Before(candles[i-1].Timestamp) {
			return fmt.Errorf("candle series out of order at index %d", i)
		}
	}
	return nil
}

// Invert flips a candle series to the reciprocal pair: every price
// becomes 1/price, and high/low swap roles.
func Invert(candles []types.Candle) []types.Candle {
	out := make([]types.Candle, len(candles))
	for i, c := range candles {
		out[i] = types.Candle{
			Timestamp: c.Timestamp,
			Open:      1 / c.Open,
			High:      1 / c.Low,
			Low:       1 / c.High,
			Close:     1 / c.Close,
			Volume:    c.Volume,
		}
	}
	return out
}
