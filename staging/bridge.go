package staging

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/viktsys/cryptostar/models"
	"github.com/viktsys/cryptostar/registry"
)

// Builder produces the bridge table and the fact tables that reference it.
// Registry and Source are required; Exchange and Timeframe name the single
// exchange/timeframe the run covers. Symbols defaults to the registry's
// declaration order when empty.
type Builder struct {
	Registry  registry.Registry
	Source    CandleSource
	Exchange  string
	Timeframe string
	Symbols   []string
	Log       logrus.FieldLogger

	warnings int
}

// Warnings reports how many symbols were skipped (failed or empty source)
// since the builder was created.
func (b *Builder) Warnings() int { return b.warnings }

type symbolContext struct {
	symbol string
	key    int
}

// resolveSymbols maps every tracked symbol to its surrogate key up front,
// so an unregistered symbol aborts the build before anything is fetched
// or written.
func (b *Builder) resolveSymbols() ([]symbolContext, error) {
	symbols := b.Symbols
	if len(symbols) == 0 {
		symbols = b.Registry.Symbols()
	}

	contexts := make([]symbolContext, 0, len(symbols))
	for _, symbol := range symbols {
		key, err := b.Registry.SymbolKey(symbol)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, symbolContext{symbol: symbol, key: key})
	}
	return contexts, nil
}

func (b *Builder) resolveRun() (exchangeKey, timeframeKey int, err error) {
	exchangeKey, err = b.Registry.ExchangeKey(b.Exchange)
	if err != nil {
		return 0, 0, err
	}
	timeframeKey, err = b.Registry.TimeframeKey(b.Timeframe)
	if err != nil {
		return 0, 0, err
	}
	return exchangeKey, timeframeKey, nil
}

// fetch returns the symbol's candles, or nil when the source failed or came
// back empty. Both cases are recorded as warnings and skipped; the run
// continues with the remaining symbols.
func (b *Builder) fetch(ctx context.Context, symbol string, win Window) []models.Candle {
	log := fallbackLogger(b.Log)

	candles, err := b.Source.Candles(ctx, symbol, win)
	if err != nil {
		log.WithField("symbol", symbol).WithError(err).Warn("candle source failed, skipping symbol")
		b.warnings++
		return nil
	}
	if len(candles) == 0 {
		log.WithField("symbol", symbol).Warn("no candles returned for symbol")
		b.warnings++
		return nil
	}
	return candles
}

// Bridge builds the trade-context table: derive the natural key for every
// candle of every symbol, concatenate in symbol order, deduplicate keeping
// the first occurrence, then assign dense 1-based bridge ids in that order.
// An all-empty source yields an empty, well-formed table, not an error.
func (b *Builder) Bridge(ctx context.Context, win Window) (*Bridge, error) {
	contexts, err := b.resolveSymbols()
	if err != nil {
		return nil, err
	}
	exchangeKey, timeframeKey, err := b.resolveRun()
	if err != nil {
		return nil, err
	}

	bridge := &Bridge{index: make(map[naturalKey]int64)}
	for _, sc := range contexts {
		for _, candle := range b.fetch(ctx, sc.symbol, win) {
			key := naturalKey{
				dateKey:      candle.DateKey(),
				symbolKey:    sc.key,
				exchangeKey:  exchangeKey,
				timeframeKey: timeframeKey,
			}
			if _, seen := bridge.index[key]; seen {
				continue
			}
			id := int64(len(bridge.Rows) + 1)
			bridge.index[key] = id
			bridge.Rows = append(bridge.Rows, models.BridgeRow{
				BridgeID:     id,
				DateKey:      key.dateKey,
				SymbolKey:    key.symbolKey,
				ExchangeKey:  key.exchangeKey,
				TimeframeKey: key.timeframeKey,
			})
		}
	}

	if len(bridge.Rows) == 0 {
		fallbackLogger(b.Log).Warn("no symbol yielded any data, bridge table is empty")
	}
	return bridge, nil
}
