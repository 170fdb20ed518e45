package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/haidang-fin/dex-band-bot/internal/exchange/bybit"
	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

// Downloads historical klines from Bybit and writes them as the candle
// CSV the backtester reads.
func main() {
	var (
		symbol   = flag.String("symbol", "SOLUSDT", "Bybit symbol (e.g., SOLUSDT)")
		interval = flag.String("interval", "60", "Kline interval (1, 5, 15, 60, 240, D)")
		category = flag.String("category", "spot", "Bybit market category (spot, linear)")
		startStr = flag.String("start", "", "Start date YYYY-MM-DD (default: one year ago)")
		endStr   = flag.String("end", "", "End date YYYY-MM-DD (default: today)")
		output   = flag.String("output", "", "Output CSV path (default: data/<symbol>_<interval>.csv)")
	)
	flag.Parse()

	end := time.Now().UTC()
	if *endStr != "" {
		var err error
		end, err = time.Parse("2006-01-02", *endStr)
		if err != nil {
			log.Fatalf("Invalid -end date: %v", err)
		}
	}
	start := end.AddDate(-1, 0, 0)
	if *startStr != "" {
		var err error
		start, err = time.Parse("2006-01-02", *startStr)
		if err != nil {
			log.Fatalf("Invalid -start date: %v", err)
		}
	}
	if !start.Before(end) {
		log.Fatal("Start date must be before end date")
	}

	outPath := *output
	if outPath == "" {
		outPath = fmt.Sprintf("data/%s_%s.csv", *symbol, *interval)
	}

	fmt.Printf("📥 Fetching %s %s klines (%s) from %s to %s\n",
		*symbol, *interval, *category,
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	client := bybit.NewClient()
	candles, err := client.FetchRange(context.Background(), *category, *symbol, *interval, start, end)
	if err != nil {
		log.Fatalf("Failed to fetch klines: %v", err)
	}
	if len(candles) == 0 {
		log.Fatal("No candles returned for the requested window")
	}

	if err := writeCandleCSV(outPath, candles); err != nil {
		log.Fatalf("Failed to write CSV: %v", err)
	}

	fmt.Printf("✅ Saved %d candles to %s (%s → %s)\n",
		len(candles), outPath,
		candles[0].Timestamp.Format("2006-01-02 15:04"),
		candles[len(candles)-1].Timestamp.Format("2006-01-02 15:04"))
}

func writeCandleCSV(path string, candles []types.Candle) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, c := range candles {
		record := []string{
			strconv.FormatInt(c.Timestamp.UnixMilli(), 10),
			fc(c.Open), fc(c.High), fc(c.Low), fc(c.Close), fc(c.Volume),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func fc(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
