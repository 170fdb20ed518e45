package types

import "time"

// Candle is one historical price sample. Live ticks only carry a close
// price; backtests replay the Close column of a downloaded series.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Pair identifies the traded base/quote tokens on the aggregator.
type Pair struct {
	BaseSymbol    string
	QuoteSymbol   string
	BaseMint      string
	QuoteMint     string
	BaseDecimals  int
	QuoteDecimals int
}

// String returns the conventional BASE/QUOTE notation.
func (p Pair) String() string {
	return p.BaseSymbol + "/" + p.QuoteSymbol
}

// Balances holds wallet balances in human-decimal units. Read fresh
// before every sizing decision; never cached beyond one tick.
type Balances struct {
	Base  float64
	Quote float64
}
