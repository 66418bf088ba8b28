package staging

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/viktsys/cryptostar/models"
)

// priceValue reads the candle field behind a registered price type.
func priceValue(c models.Candle, priceType string) (decimal.Decimal, error) {
	switch priceType {
	case "open":
		return c.Open, nil
	case "high":
		return c.High, nil
	case "low":
		return c.Low, nil
	case "close":
		return c.Close, nil
	}
	return decimal.Decimal{}, fmt.Errorf("price type %q has no candle field", priceType)
}

// volumeValue reads the candle field behind a registered volume type.
func volumeValue(c models.Candle, volumeType string) (decimal.Decimal, error) {
	switch volumeType {
	case "base_volume":
		return c.Volume, nil
	case "quote_volume":
		return c.QuoteAssetVolume, nil
	case "taker_buy_base_volume":
		return c.TakerBuyBaseAssetVolume, nil
	case "taker_buy_quote_volume":
		return c.TakerBuyQuoteAssetVolume, nil
	}
	return decimal.Decimal{}, fmt.Errorf("volume type %q has no candle field", volumeType)
}

// PriceFacts melts each symbol's candles into one row per price type
// (open, high, low, close) and joins them to the bridge on the natural key.
// Rows whose context is missing from the bridge are dropped, not errored;
// the drop count is returned for diagnostics. An unresolved price type is a
// configuration error and aborts the build.
func (b *Builder) PriceFacts(ctx context.Context, win Window, bridge *Bridge) ([]models.PriceFact, int, error) {
	contexts, err := b.resolveSymbols()
	if err != nil {
		return nil, 0, err
	}
	exchangeKey, timeframeKey, err := b.resolveRun()
	if err != nil {
		return nil, 0, err
	}

	priceTypes := b.Registry.PriceTypes()
	typeKeys := make([]int, len(priceTypes))
	for i, pt := range priceTypes {
		if typeKeys[i], err = b.Registry.PriceTypeKey(pt); err != nil {
			return nil, 0, err
		}
	}

	rows := []models.PriceFact{}
	dropped := 0
	for _, sc := range contexts {
		candles := b.fetch(ctx, sc.symbol, win)
		for i, pt := range priceTypes {
			for _, candle := range candles {
				key := naturalKey{
					dateKey:      candle.DateKey(),
					symbolKey:    sc.key,
					exchangeKey:  exchangeKey,
					timeframeKey: timeframeKey,
				}
				bridgeKey, ok := bridge.lookup(key)
				if !ok {
					dropped++
					continue
				}
				value, err := priceValue(candle, pt)
				if err != nil {
					return nil, 0, err
				}
				rows = append(rows, models.PriceFact{
					BridgeKey:    bridgeKey,
					PriceTypeKey: typeKeys[i],
					Price:        value,
				})
			}
		}
	}
	return rows, dropped, nil
}

// VolumeFacts melts each symbol's candles into one row per volume type
// (base, quote, taker-buy base, taker-buy quote), joined to the bridge the
// same way as PriceFacts.
func (b *Builder) VolumeFacts(ctx context.Context, win Window, bridge *Bridge) ([]models.VolumeFact, int, error) {
	contexts, err := b.resolveSymbols()
	if err != nil {
		return nil, 0, err
	}
	exchangeKey, timeframeKey, err := b.resolveRun()
	if err != nil {
		return nil, 0, err
	}

	volumeTypes := b.Registry.VolumeTypes()
	typeKeys := make([]int, len(volumeTypes))
	for i, vt := range volumeTypes {
		if typeKeys[i], err = b.Registry.VolumeTypeKey(vt); err != nil {
			return nil, 0, err
		}
	}

	rows := []models.VolumeFact{}
	dropped := 0
	for _, sc := range contexts {
		candles := b.fetch(ctx, sc.symbol, win)
		for i, vt := range volumeTypes {
			for _, candle := range candles {
				key := naturalKey{
					dateKey:      candle.DateKey(),
					symbolKey:    sc.key,
					exchangeKey:  exchangeKey,
					timeframeKey: timeframeKey,
				}
				bridgeKey, ok := bridge.lookup(key)
				if !ok {
					dropped++
					continue
				}
				value, err := volumeValue(candle, vt)
				if err != nil {
					return nil, 0, err
				}
				rows = append(rows, models.VolumeFact{
					BridgeKey:     bridgeKey,
					VolumeTypeKey: typeKeys[i],
					Volume:        value,
				})
			}
		}
	}
	return rows, dropped, nil
}

// TradeCountFacts emits one row per matched candle with its trade count.
func (b *Builder) TradeCountFacts(ctx context.Context, win Window, bridge *Bridge) ([]models.TradeCountFact, int, error) {
	contexts, err := b.resolveSymbols()
	if err != nil {
		return nil, 0, err
	}
	exchangeKey, timeframeKey, err := b.resolveRun()
	if err != nil {
		return nil, 0, err
	}

	rows := []models.TradeCountFact{}
	dropped := 0
	for _, sc := range contexts {
		for _, candle := range b.fetch(ctx, sc.symbol, win) {
			key := naturalKey{
				dateKey:      candle.DateKey(),
				symbolKey:    sc.key,
				exchangeKey:  exchangeKey,
				timeframeKey: timeframeKey,
			}
			bridgeKey, ok := bridge.lookup(key)
			if !ok {
				dropped++
				continue
			}
			rows = append(rows, models.TradeCountFact{
				BridgeKey:      bridgeKey,
				NumberOfTrades: candle.NumberOfTrades,
			})
		}
	}
	return rows, dropped, nil
}
