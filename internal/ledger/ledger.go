package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// FillRecord is one executed trade as it is appended to the fill log.
// RealizedPnl is only set on cycle-closing fills, in base units valued
// at the decision-time mid.
type FillRecord struct {
	Timestamp   time.Time
	Side        string // SELL_BASE or SELL_QUOTE
	Price       float64
	AmountIn    float64
	AmountOut   float64
	Center      float64
	BandLower   float64
	BandUpper   float64
	RealizedPnl float64
	StopReason  string // empty unless the close was forced
	ConfigID    string
}

var header = []string{
	"timestamp", "side", "price", "amount_in", "amount_out",
	"center", "band_lower", "band_upper", "realized_pnl", "stop_reason", "config_id",
}

// Ledger appends fill records to a CSV file, one row per executed trade.
// The file is opened in append mode and each record is flushed as it is
// written, so a crash loses at most the in-flight row.
type Ledger struct {
	file   *os.File
	writer *csv.Writer
}

// Open creates or appends to the fill log at path. The header row is
// written only when the file is new or empty.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open fill log %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat fill log: %w", err)
	}

	l := &Ledger{file: f, writer: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := l.writer.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write fill log header: %w", err)
		}
		l.writer.Flush()
		if err := l.writer.Error(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return l, nil
}

// Append writes one fill and flushes it to disk.
func (l *Ledger) Append(rec FillRecord) error {
	row := []string{
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.Side,
		formatFloat(rec.Price),
		formatFloat(rec.AmountIn),
		formatFloat(rec.AmountOut),
		formatFloat(rec.Center),
		formatFloat(rec.BandLower),
		formatFloat(rec.BandUpper),
		formatFloat(rec.RealizedPnl),
		rec.StopReason,
		rec.ConfigID,
	}
	if err := l.writer.Write(row); err != nil {
		return fmt.Errorf("failed to append fill: %w", err)
	}
	l.writer.Flush()
	return l.writer.Error()
}

// Close flushes and closes the underlying file.
func (l *Ledger) Close() error {
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CyclePnlBase values a completed round trip in base units at the
// closing mid. baseDelta and quoteDelta are the net changes over the
// cycle (out minus in for each asset across the two fills).
func CyclePnlBase(baseDelta, quoteDelta, mid float64) float64 {
	if mid <= 0 {
		return 0
	}
	return baseDelta + quoteDelta/mid
}

// Equity is the portfolio value in base units at a mid price.
func Equity(base, quote, mid float64) float64 {
	if mid <= 0 {
		return base
	}
	return base + quote/mid
}
