package aggregator

import (
	"context"

	"github.com/haidang-fin/dex-band-bot/internal/exchange"
	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

// DryRunAdapter quotes through the real aggregator but never submits a
// swap: ExecuteSwap fills at the quoted terms with an empty txid. The
// live loop behaves identically in both modes up to the submit call.
type DryRunAdapter struct {
	quoter exchange.ExecutionAdapter
}

func NewDryRunAdapter(quoter exchange.ExecutionAdapter) *DryRunAdapter {
	return &DryRunAdapter{quoter: quoter}
}

func (d *DryRunAdapter) GetQuote(ctx context.Context, pair types.Pair, dir exchange.Direction, amountIn float64) (*exchange.Quote, error) {
	return d.quoter.GetQuote(ctx, pair, dir, amountIn)
}

// ExecuteSwap simulates a fill at exactly the quoted terms.
func (d *DryRunAdapter) ExecuteSwap(ctx context.Context, pair types.Pair, q *exchange.Quote, maxSlippageBps float64) (*exchange.SwapResult, error) {
	fill := q.Mid
	return &exchange.SwapResult{
		Direction: q.Direction,
		AmountIn:  q.AmountIn,
		AmountOut: q.AmountOut,
		FillPrice: fill,
		TxID:      "",
	}, nil
}
