package exchange

import (
	"context"

	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

// Direction of a swap in pair terms.
type Direction int

const (
	DirSellBase  Direction = iota // base -> quote
	DirSellQuote                  // quote -> base
)

func (d Direction) String() string {
	if d == DirSellBase {
		return "SELL_BASE"
	}
	return "SELL_QUOTE"
}

// Quote is one aggregator price response for a concrete input amount.
// Mid is expressed as quote per base regardless of direction.
type Quote struct {
	Direction      Direction
	AmountIn       float64
	AmountOut      float64
	MinAmountOut   float64 // worst-case output at the quoted slippage tolerance
	Mid            float64
	FeePct         float64 // quoted route fee as a percent of input
	PriceImpactBps float64
	Route          string
}

// SwapResult reports an executed (or simulated) swap.
type SwapResult struct {
	Direction Direction
	AmountIn  float64
	AmountOut float64
	FillPrice float64 // quote per base actually achieved
	TxID      string
}

// PriceSource produces the mid price the decision engine consumes.
type PriceSource interface {
	// Mid returns the current mid price in quote per base.
	Mid(ctx context.Context, pair types.Pair) (float64, error)
}

// BalanceService reads wallet balances for the pair's two assets.
type BalanceService interface {
	Balances(ctx context.Context, pair types.Pair) (types.Balances, error)
}

// ExecutionAdapter quotes and executes swaps. The live implementation
// talks to the aggregator; the dry-run one fills at the quoted price
// without touching the chain.
type ExecutionAdapter interface {
	GetQuote(ctx context.Context, pair types.Pair, dir Direction, amountIn float64) (*Quote, error)
	ExecuteSwap(ctx context.Context, pair types.Pair, q *Quote, maxSlippageBps float64) (*SwapResult, error)
}
