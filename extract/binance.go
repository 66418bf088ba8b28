// Package extract holds the raw-record sources: the Binance kline
// extractor and the country/holiday reference extractors. All of them are
// fail-soft on network errors per the pipeline's source contract.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/viktsys/cryptostar/models"
	"github.com/viktsys/cryptostar/staging"
)

const (
	DefaultBinanceURL = "https://api3.binance.com"
	klinesEndpoint    = "/api/v3/klines"
	DefaultKlineLimit = 500
)

// KlineClient fetches klines from the Binance REST API, paginating until
// the window is exhausted. On transient failure it logs and returns what
// was collected so far; it never fails a run for a network error.
type KlineClient struct {
	BaseURL    string
	Interval   string
	Limit      int
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Log        logrus.FieldLogger
}

// NewKlineClient returns a client with production defaults: 500-row pages
// and a request every 250ms to stay inside the public API weight limits.
func NewKlineClient(interval string, log logrus.FieldLogger) *KlineClient {
	return &KlineClient{
		BaseURL:    DefaultBinanceURL,
		Interval:   interval,
		Limit:      DefaultKlineLimit,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Limiter:    rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
		Log:        log,
	}
}

func (c *KlineClient) logger() logrus.FieldLogger {
	if c.Log != nil {
		return c.Log
	}
	return logrus.StandardLogger()
}

// Candles fetches the symbol's klines over the window. A nil window start
// means "from the earliest available"; a nil end defaults to now.
func (c *KlineClient) Candles(ctx context.Context, symbol string, window staging.Window) ([]models.Candle, error) {
	limit := c.Limit
	if limit <= 0 {
		limit = DefaultKlineLimit
	}

	endpoint, err := url.JoinPath(c.BaseURL, klinesEndpoint)
	if err != nil {
		return nil, fmt.Errorf("build klines url: %w", err)
	}

	var startMs *int64
	if window.Start != nil {
		ms := window.Start.UnixMilli()
		startMs = &ms
	}
	endMs := time.Now().UnixMilli()
	if window.End != nil {
		endMs = window.End.UnixMilli()
	}

	log := c.logger().WithField("symbol", symbol)
	log.WithField("interval", c.Interval).Info("fetching klines")

	var candles []models.Candle
	for {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return candles, err
			}
		}

		page, err := c.fetchPage(ctx, endpoint, symbol, startMs, endMs, limit)
		if err != nil {
			log.WithError(err).Error("kline request failed, returning collected rows")
			return candles, nil
		}
		if len(page) == 0 {
			break
		}

		var lastOpenMs int64
		for _, kline := range page {
			candle, openMs, err := parseKline(kline)
			if err != nil {
				log.WithError(err).Warn("skipping malformed kline")
				continue
			}
			candles = append(candles, candle)
			lastOpenMs = openMs
		}

		log.WithFields(logrus.Fields{"fetched": len(page), "total": len(candles)}).Info("fetched kline page")

		if len(page) < limit {
			break
		}
		next := lastOpenMs + 1
		startMs = &next
	}

	return candles, nil
}

func (c *KlineClient) fetchPage(ctx context.Context, endpoint, symbol string, startMs *int64, endMs int64, limit int) ([][]any, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("interval", c.Interval)
	query.Set("limit", strconv.Itoa(limit))
	if startMs != nil {
		query.Set("startTime", strconv.FormatInt(*startMs, 10))
	}
	query.Set("endTime", strconv.FormatInt(endMs, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var page [][]any
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	return page, nil
}

// parseKline converts one raw kline array into a Candle. Binance returns
// [openTime, open, high, low, close, volume, closeTime, quoteVolume,
// trades, takerBuyBase, takerBuyQuote, ignored].
func parseKline(kline []any) (models.Candle, int64, error) {
	if len(kline) < 11 {
		return models.Candle{}, 0, fmt.Errorf("kline has %d fields, want at least 11", len(kline))
	}

	openMs, err := asInt64(kline[0])
	if err != nil {
		return models.Candle{}, 0, fmt.Errorf("open time: %w", err)
	}
	closeMs, err := asInt64(kline[6])
	if err != nil {
		return models.Candle{}, 0, fmt.Errorf("close time: %w", err)
	}
	trades, err := asInt64(kline[8])
	if err != nil {
		return models.Candle{}, 0, fmt.Errorf("trade count: %w", err)
	}

	values := make([]decimal.Decimal, 0, 7)
	for _, idx := range []int{1, 2, 3, 4, 5, 7, 9} {
		v, err := asDecimal(kline[idx])
		if err != nil {
			return models.Candle{}, 0, fmt.Errorf("field %d: %w", idx, err)
		}
		values = append(values, v)
	}
	takerQuote, err := asDecimal(kline[10])
	if err != nil {
		return models.Candle{}, 0, fmt.Errorf("field 10: %w", err)
	}

	return models.Candle{
		OpenTime:                 time.UnixMilli(openMs).UTC(),
		Open:                     values[0],
		High:                     values[1],
		Low:                      values[2],
		Close:                    values[3],
		Volume:                   values[4],
		CloseTime:                time.UnixMilli(closeMs).UTC(),
		QuoteAssetVolume:         values[5],
		NumberOfTrades:           trades,
		TakerBuyBaseAssetVolume:  values[6],
		TakerBuyQuoteAssetVolume: takerQuote,
	}, openMs, nil
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("unexpected type %T", v)
}

func asDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case string:
		return decimal.NewFromString(n)
	case float64:
		return decimal.NewFromFloat(n), nil
	case json.Number:
		return decimal.NewFromString(n.String())
	}
	return decimal.Decimal{}, fmt.Errorf("unexpected type %T", v)
}
