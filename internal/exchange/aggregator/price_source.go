package aggregator

import (
	"context"

	boterrors "github.com/haidang-fin/dex-band-bot/internal/errors"
	"github.com/haidang-fin/dex-band-bot/internal/exchange"
	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

// MidSource derives a mid price from aggregator quotes on a small probe
// amount. One convention holds for a whole run: either the sell-base
// reference quote alone, or the average of both directions. Mixing
// conventions between runs shifts the band, so it is a config choice,
// not a per-tick one.
type MidSource struct {
	adapter        exchange.ExecutionAdapter
	probeBase      float64 // probe size in base units
	bothDirections bool
}

// NewMidSource wires the mid derivation. probeBase must be small enough
// to avoid meaningful price impact but large enough to survive the
// aggregator's dust limits.
func NewMidSource(adapter exchange.ExecutionAdapter, probeBase float64, bothDirections bool) *MidSource {
	return &MidSource{adapter: adapter, probeBase: probeBase, bothDirections: bothDirections}
}

// Mid returns the current mid in quote per base.
func (m *MidSource) Mid(ctx context.Context, pair types.Pair) (float64, error) {
	ref, err := m.adapter.GetQuote(ctx, pair, exchange.DirSellBase, m.probeBase)
	if err != nil {
		return 0, err
	}
	if ref.Mid <= 0 {
		return 0, boterrors.New(boterrors.ErrorCategoryInvariant, "price", "non-positive mid from reference quote")
	}
	if !m.bothDirections {
		return ref.Mid, nil
	}

	// Probe the reverse direction with the quote value of the same size.
	reverse, err := m.adapter.GetQuote(ctx, pair, exchange.DirSellQuote, m.probeBase*ref.Mid)
	if err != nil {
		return 0, err
	}
	if reverse.Mid <= 0 {
		return 0, boterrors.New(boterrors.ErrorCategoryInvariant, "price", "non-positive mid from reverse quote")
	}
	return (ref.Mid + reverse.Mid) / 2, nil
}
