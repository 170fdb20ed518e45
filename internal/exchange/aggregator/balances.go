package aggregator

import (
	"context"
	"net/url"

	boterrors "github.com/haidang-fin/dex-band-bot/internal/errors"
	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

type balanceResponse struct {
	Balances map[string]string `json:"balances"` // mint -> atomic amount
}

// BalanceReader reads wallet balances through the aggregator's balance
// endpoint. It implements exchange.BalanceService.
type BalanceReader struct {
	client *Client
}

func NewBalanceReader(client *Client) *BalanceReader {
	return &BalanceReader{client: client}
}

// Balances fetches fresh balances for the pair's two mints.
func (b *BalanceReader) Balances(ctx context.Context, pair types.Pair) (types.Balances, error) {
	params := url.Values{}
	params.Set("wallet", b.client.wallet)

	var resp balanceResponse
	if err := b.client.get(ctx, "/balances", params, &resp); err != nil {
		return types.Balances{}, err
	}
	if resp.Balances == nil {
		return types.Balances{}, boterrors.New(boterrors.ErrorCategoryNetwork, "balances", "empty balance response")
	}
	return types.Balances{
		Base:  fromAtomic(resp.Balances[pair.BaseMint], pair.BaseDecimals),
		Quote: fromAtomic(resp.Balances[pair.QuoteMint], pair.QuoteDecimals),
	}, nil
}

// StaticBalances serves fixed balances for dry runs and for live runs
// started without a wallet address. Sizing still applies its caps, so
// "effectively unlimited" just means sizing is never balance-bound.
type StaticBalances struct {
	Base  float64
	Quote float64
}

func (s StaticBalances) Balances(ctx context.Context, pair types.Pair) (types.Balances, error) {
	return types.Balances{Base: s.Base, Quote: s.Quote}, nil
}
