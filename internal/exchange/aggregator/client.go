package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	boterrors "github.com/haidang-fin/dex-band-bot/internal/errors"
	"github.com/haidang-fin/dex-band-bot/internal/exchange"
	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

const (
	defaultRequestTimeout = 10 * time.Second
	confirmPollInterval   = 2 * time.Second
	confirmPollAttempts   = 15
)

// Client talks to a DEX aggregator's REST API: a quote endpoint, a swap
// endpoint and a transaction status endpoint. It implements
// exchange.ExecutionAdapter for the live bot.
type Client struct {
	baseURL      string
	apiKey       string
	wallet       string
	onlyVerified bool
	httpClient   *http.Client
}

// NewClient builds a live aggregator client. wallet is the signing
// address the swap endpoint executes for; onlyVerified restricts routing
// to vetted pool listings.
func NewClient(baseURL, apiKey, wallet string, onlyVerified bool) *Client {
	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		wallet:       wallet,
		onlyVerified: onlyVerified,
		httpClient:   &http.Client{Timeout: defaultRequestTimeout},
	}
}

type quoteResponse struct {
	InAmount       string  `json:"inAmount"`
	OutAmount      string  `json:"outAmount"`
	MinOutAmount   string  `json:"minOutAmount"`
	PriceImpactPct float64 `json:"priceImpactPct,string"`
	FeePct         float64 `json:"feePct,string"`
	RoutePlan      string  `json:"routePlan"`
}

type swapResponse struct {
	TxID      string `json:"txid"`
	OutAmount string `json:"outAmount"`
}

type statusResponse struct {
	Status string `json:"status"` // pending | confirmed | failed
}

// GetQuote asks the aggregator to price amountIn of the selling asset.
func (c *Client) GetQuote(ctx context.Context, pair types.Pair, dir exchange.Direction, amountIn float64) (*exchange.Quote, error) {
	inMint, outMint := pair.BaseMint, pair.QuoteMint
	inDec, outDec := pair.BaseDecimals, pair.QuoteDecimals
	if dir == exchange.DirSellQuote {
		inMint, outMint = pair.QuoteMint, pair.BaseMint
		inDec, outDec = pair.QuoteDecimals, pair.BaseDecimals
	}

	params := url.Values{}
	params.Set("inputMint", inMint)
	params.Set("outputMint", outMint)
	params.Set("amount", toAtomic(amountIn, inDec))
	if c.onlyVerified {
		params.Set("onlyVerified", "true")
	}

	var resp quoteResponse
	if err := c.get(ctx, "/quote", params, &resp); err != nil {
		return nil, err
	}

	in := fromAtomic(resp.InAmount, inDec)
	out := fromAtomic(resp.OutAmount, outDec)
	if in <= 0 || out <= 0 {
		return nil, boterrors.New(boterrors.ErrorCategoryInvariant, "aggregator",
			"quote returned non-positive amounts (in=%q out=%q)", resp.InAmount, resp.OutAmount)
	}

	mid := out / in
	if dir == exchange.DirSellQuote {
		mid = in / out
	}

	// Some aggregators omit the worst-case figure; the expected output
	// then stands in for it.
	minOut := fromAtomic(resp.MinOutAmount, outDec)
	if minOut <= 0 {
		minOut = out
	}

	return &exchange.Quote{
		Direction:      dir,
		AmountIn:       in,
		AmountOut:      out,
		MinAmountOut:   minOut,
		Mid:            mid,
		FeePct:         resp.FeePct,
		PriceImpactBps: resp.PriceImpactPct * 100,
		Route:          resp.RoutePlan,
	}, nil
}

// ExecuteSwap submits the quoted swap and polls for confirmation. The
// returned result carries the achieved fill price in quote per base.
func (c *Client) ExecuteSwap(ctx context.Context, pair types.Pair, q *exchange.Quote, maxSlippageBps float64) (*exchange.SwapResult, error) {
	inMint := pair.BaseMint
	inDec, outDec := pair.BaseDecimals, pair.QuoteDecimals
	if q.Direction == exchange.DirSellQuote {
		inMint = pair.QuoteMint
		inDec, outDec = pair.QuoteDecimals, pair.BaseDecimals
	}

	body := map[string]interface{}{
		"wallet":      c.wallet,
		"inputMint":   inMint,
		"amount":      toAtomic(q.AmountIn, inDec),
		"slippageBps": int(maxSlippageBps),
	}

	var resp swapResponse
	if err := c.post(ctx, "/swap", body, &resp); err != nil {
		return nil, err
	}
	if resp.TxID == "" {
		return nil, boterrors.New(boterrors.ErrorCategoryExecution, "aggregator", "swap accepted without a txid")
	}

	if err := c.awaitConfirmation(ctx, resp.TxID); err != nil {
		return nil, err
	}

	out := fromAtomic(resp.OutAmount, outDec)
	if out <= 0 {
		return nil, boterrors.New(boterrors.ErrorCategoryExecution, "aggregator",
			"transaction %s confirmed without a usable output amount (%q)", resp.TxID, resp.OutAmount)
	}
	fill := 0.0
	if q.Direction == exchange.DirSellBase && q.AmountIn > 0 {
		fill = out / q.AmountIn
	} else if out > 0 {
		fill = q.AmountIn / out
	}

	return &exchange.SwapResult{
		Direction: q.Direction,
		AmountIn:  q.AmountIn,
		AmountOut: out,
		FillPrice: fill,
		TxID:      resp.TxID,
	}, nil
}

// awaitConfirmation polls the status endpoint until the transaction
// confirms, fails, or the poll budget runs out.
func (c *Client) awaitConfirmation(ctx context.Context, txid string) error {
	params := url.Values{}
	params.Set("txid", txid)

	for attempt := 0; attempt < confirmPollAttempts; attempt++ {
		var resp statusResponse
		if err := c.get(ctx, "/tx", params, &resp); err != nil {
			return err
		}
		switch resp.Status {
		case "confirmed":
			return nil
		case "failed":
			return boterrors.New(boterrors.ErrorCategoryExecution, "aggregator", "transaction %s failed on-chain", txid)
		}

		select {
		case <-ctx.Done():
			return boterrors.Wrap(ctx.Err(), boterrors.ErrorCategoryTimeout, "aggregator", "confirmation wait cancelled")
		case <-time.After(confirmPollInterval):
		}
	}
	return boterrors.New(boterrors.ErrorCategoryTimeout, "aggregator",
		"transaction %s not confirmed after %d polls", txid, confirmPollAttempts)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return boterrors.Wrap(err, boterrors.ErrorCategoryInvariant, "aggregator", "failed to build request")
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return boterrors.Wrap(err, boterrors.ErrorCategoryInvariant, "aggregator", "failed to encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return boterrors.Wrap(err, boterrors.ErrorCategoryInvariant, "aggregator", "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return boterrors.Wrap(err, boterrors.ErrorCategoryNetwork, "aggregator", "request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return boterrors.Wrap(err, boterrors.ErrorCategoryNetwork, "aggregator", "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		cat := boterrors.ErrorCategoryNetwork
		if resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout {
			cat = boterrors.ErrorCategoryTimeout
		}
		return boterrors.New(cat, "aggregator", "%s %s returned %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, truncate(string(data), 200))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return boterrors.Wrap(err, boterrors.ErrorCategoryNetwork, "aggregator", "failed to decode response")
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// toAtomic converts a human amount into the integer string the API
// expects for a token with the given decimals.
func toAtomic(amount float64, decimals int) string {
	atomic := math.Round(amount * math.Pow10(decimals))
	return strconv.FormatFloat(atomic, 'f', 0, 64)
}

// fromAtomic parses an atomic amount string back into a human amount.
// Malformed values come back as 0 and are caught by the callers'
// non-positive checks.
func fromAtomic(s string, decimals int) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v / math.Pow10(decimals)
}
