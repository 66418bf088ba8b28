// Package staging reshapes raw extracted records into the star-schema
// tables: one bridge table of trade contexts, the fact tables that
// reference it, and the date, country and holiday dimensions.
package staging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/viktsys/cryptostar/models"
)

// Window bounds a candle fetch. A nil Start means "from the earliest
// available", a nil End means "up to now".
type Window struct {
	Start *time.Time
	End   *time.Time
}

// CandleSource supplies raw candles for one symbol. Implementations are
// fail-soft: they log transient failures and return whatever was collected,
// reserving errors for programming mistakes.
type CandleSource interface {
	Candles(ctx context.Context, symbol string, window Window) ([]models.Candle, error)
}

// CountryRecord is one scraped country-reference row before key assignment.
type CountryRecord struct {
	Name        string
	Alpha2Code  string
	Alpha3Code  string
	NumericCode string
}

// CountrySource supplies the scraped country reference table, deduplicated
// on alpha-2 code.
type CountrySource interface {
	Countries(ctx context.Context) ([]CountryRecord, error)
}

// HolidayRecord is one public holiday before dimension resolution.
// Date is an ISO calendar date ("2006-01-02").
type HolidayRecord struct {
	CountryCode string
	Date        string
	Name        string
}

// YearRange is an inclusive span of calendar years.
type YearRange struct {
	From int
	To   int
}

// HolidaySource supplies public holidays for one country over a year range.
type HolidaySource interface {
	Holidays(ctx context.Context, countryCode string, years YearRange) ([]HolidayRecord, error)
}

// InvalidRangeError reports a date range whose start is after its end, or a
// bound that does not parse as a calendar date.
type InvalidRangeError struct {
	Start  string
	End    string
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range %q..%q: %s", e.Start, e.End, e.Reason)
}

// naturalKey identifies a trade context across tables.
type naturalKey struct {
	dateKey      int64
	symbolKey    int
	exchangeKey  int
	timeframeKey int
}

// Bridge is the deduplicated trade-context table plus its natural-key
// index. Fact builders hold it read-only.
type Bridge struct {
	Rows  []models.BridgeRow
	index map[naturalKey]int64
}

func (b *Bridge) lookup(key naturalKey) (int64, bool) {
	id, ok := b.index[key]
	return id, ok
}

// Len returns the number of trade contexts.
func (b *Bridge) Len() int { return len(b.Rows) }

type cacheKey struct {
	symbol string
	window string
}

type cachedSource struct {
	src CandleSource

	mu    sync.Mutex
	cache map[cacheKey][]models.Candle
}

// NewCachedSource memoizes per-symbol fetches so the bridge and the three
// fact builders share one extraction per symbol within a run.
func NewCachedSource(src CandleSource) CandleSource {
	return &cachedSource{src: src, cache: make(map[cacheKey][]models.Candle)}
}

func (c *cachedSource) Candles(ctx context.Context, symbol string, window Window) ([]models.Candle, error) {
	key := cacheKey{symbol: symbol, window: windowString(window)}

	c.mu.Lock()
	candles, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return candles, nil
	}

	candles, err := c.src.Candles(ctx, symbol, window)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = candles
	c.mu.Unlock()
	return candles, nil
}

func windowString(w Window) string {
	s, e := "-", "-"
	if w.Start != nil {
		s = w.Start.UTC().Format(time.RFC3339)
	}
	if w.End != nil {
		e = w.End.UTC().Format(time.RFC3339)
	}
	return s + ".." + e
}

func fallbackLogger(log logrus.FieldLogger) logrus.FieldLogger {
	if log != nil {
		return log
	}
	return logrus.StandardLogger()
}
