package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"btc-paper-trader-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	apiPath        = "/api/v3"
	testnetBaseURL = "https://testnet.binance.vision"
)

// RestClientInterface defines the market data calls the trader makes against
// the Binance REST API.
type RestClientInterface interface {
	GetServerTime(ctx context.Context) (int64, error)
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)
	GetKlineCloses(ctx context.Context, symbol, interval string, limit int) ([]float64, error)
}

// RestClient is a client for the public Binance REST API.
// It implements the RestClientInterface.
type RestClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	backoff time.Duration // first retry delay, doubled per attempt
}

// ensure RestClient implements the interface
var _ RestClientInterface = (*RestClient)(nil)

// NewRestClient creates a new Binance REST API client.
func NewRestClient(cfg *config.Binance, logger *zap.Logger) *RestClient {
	url := strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Testnet {
		url = testnetBaseURL
		logger.Warn("Using Binance Testnet")
	} else {
		logger.Info("Using Binance market data API", zap.String("url", url))
	}

	client := resty.New().
		SetBaseURL(url+apiPath).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json")

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &RestClient{
		client:  client,
		logger:  logger.Named("binance"),
		limiter: limiter,
		backoff: time.Second,
	}
}

// GetServerTime fetches the current server time from Binance.
// This is a good endpoint to test connectivity.
func (c *RestClient) GetServerTime(ctx context.Context) (int64, error) {
	type ServerTimeResponse struct {
		ServerTime int64 `json:"serverTime"`
	}

	req := c.client.R().
		SetContext(ctx).
		SetResult(&ServerTimeResponse{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/time", req)
	if err != nil {
		c.logger.Error("Failed to get server time", zap.Error(err))
		return 0, fmt.Errorf("failed to get server time: %w", err)
	}

	result := resp.Result().(*ServerTimeResponse)
	return result.ServerTime, nil
}

// TickerPrice represents the response for a single ticker price.
type TickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// GetTickerPrice fetches the latest traded price of symbol.
func (c *RestClient) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	req := c.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&TickerPrice{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/ticker/price", req)
	if err != nil {
		return 0, fmt.Errorf("failed to get ticker price for %s: %w", symbol, err)
	}

	ticker := resp.Result().(*TickerPrice)
	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price %q for %s: %w", ticker.Price, symbol, err)
	}
	return price, nil
}

// GetKlineCloses fetches the close prices of the last limit candles, oldest first.
// It seeds the price history before the stream delivers its first candle.
func (c *RestClient) GetKlineCloses(ctx context.Context, symbol, interval string, limit int) ([]float64, error) {
	var rows [][]json.RawMessage

	req := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"interval": interval,
			"limit":    strconv.Itoa(limit),
		}).
		SetResult(&rows)

	if _, err := c.doRequest(ctx, http.MethodGet, "/klines", req); err != nil {
		return nil, fmt.Errorf("failed to get klines for %s: %w", symbol, err)
	}

	closes := make([]float64, 0, len(rows))
	for i, row := range rows {
		// [openTime, open, high, low, close, volume, ...]
		if len(row) < 5 {
			return nil, fmt.Errorf("kline %d for %s has %d fields", i, symbol, len(row))
		}
		var raw string
		if err := json.Unmarshal(row[4], &raw); err != nil {
			return nil, fmt.Errorf("failed to decode close of kline %d: %w", i, err)
		}
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse close %q of kline %d: %w", raw, i, err)
		}
		closes = append(closes, price)
	}
	return closes, nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == http.StatusTeapot {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
			err = fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		} else {
			// Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, err
		}

		if retryAfter == 0 {
			// Exponential backoff: 1x, 2x, 4x
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.backoff
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
