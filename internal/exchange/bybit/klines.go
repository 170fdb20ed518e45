package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

// Client wraps the Bybit API for public kline data. Backtest candles
// come from a centralized venue because DEX aggregators do not serve
// history; the band strategy only needs a mid series.
type Client struct {
	httpClient *bybit_api.Client
}

// NewClient creates a public-data client. Kline endpoints need no keys.
func NewClient() *Client {
	return &Client{
		httpClient: bybit_api.NewBybitHttpClient("", "", bybit_api.WithBaseURL(bybit_api.MAINNET)),
	}
}

// GetKlines fetches up to limit candles for one request window.
func (c *Client) GetKlines(ctx context.Context, category, symbol, interval string, start, end time.Time, limit int) ([]types.Candle, error) {
	if category == "" {
		category = "spot"
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"interval": interval,
		"start":    start.UnixMilli(),
		"end":      end.UnixMilli(),
		"limit":    limit,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines: %w", err)
	}
	return parseKlineResponse(result)
}

// FetchRange pages backwards through the kline endpoint until the whole
// [start, end] window is covered, returning candles ascending.
func (c *Client) FetchRange(ctx context.Context, category, symbol, interval string, start, end time.Time) ([]types.Candle, error) {
	var all []types.Candle
	cursor := end

	for cursor.After(start) {
		batch, err := c.GetKlines(ctx, category, symbol, interval, start, cursor, 1000)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)

		oldest := batch[0].Timestamp
		for _, k := range batch {
			if k.Timestamp.Before(oldest) {
				oldest = k.Timestamp
			}
		}
		if !oldest.Before(cursor) {
			break
		}
		cursor = oldest.Add(-time.Millisecond)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})

	// The paging overlap can duplicate boundary candles.
	deduped := all[:0]
	var last time.Time
	for _, k := range all {
		if len(deduped) > 0 && k.Timestamp.Equal(last) {
			continue
		}
		deduped = append(deduped, k)
		last = k.Timestamp
	}
	return deduped, nil
}

// parseKlineResponse converts the SDK response into candles.
func parseKlineResponse(response interface{}) ([]types.Candle, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return nil, fmt.Errorf("API error: %s (code: %d)", serverResp.RetMsg, serverResp.RetCode)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var klineResult struct {
		Symbol string     `json:"symbol"`
		List   [][]string `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kline result: %w", err)
	}

	var candles []types.Candle
	for _, item := range klineResult.List {
		if len(item) < 6 {
			continue
		}
		// Bybit kline format: [startTime, open, high, low, close, volume, turnover]
		candles = append(candles, types.Candle{
			Timestamp: time.UnixMilli(parseInt64(item[0])).UTC(),
			Open:      parseFloat64(item[1]),
			High:      parseFloat64(item[2]),
			Low:       parseFloat64(item[3]),
			Close:     parseFloat64(item[4]),
			Volume:    parseFloat64(item[5]),
		})
	}
	return candles, nil
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func parseFloat64(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
