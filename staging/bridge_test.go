package staging

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/viktsys/cryptostar/models"
	"github.com/viktsys/cryptostar/registry"
)

func testRegistry() registry.Registry {
	return registry.New(
		[]string{"BTCUSDT", "ETHUSDT"},
		[]string{"Binance"},
		[]string{"1d"},
		[]string{"open", "high", "low", "close"},
		[]string{"base_volume", "quote_volume", "taker_buy_base_volume", "taker_buy_quote_volume"},
	)
}

type fakeSource struct {
	candles map[string][]models.Candle
	errs    map[string]error
	calls   int
}

func (f *fakeSource) Candles(_ context.Context, symbol string, _ Window) ([]models.Candle, error) {
	f.calls++
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return f.candles[symbol], nil
}

func testCandle(day string, trades int64) models.Candle {
	open, _ := time.ParseInLocation(models.DateLayout, day, time.UTC)
	return models.Candle{
		OpenTime:                 open,
		Open:                     decimal.NewFromInt(1),
		High:                     decimal.NewFromInt(2),
		Low:                      decimal.NewFromInt(3),
		Close:                    decimal.NewFromInt(4),
		Volume:                   decimal.NewFromInt(10),
		CloseTime:                open.Add(24*time.Hour - time.Millisecond),
		QuoteAssetVolume:         decimal.NewFromInt(20),
		NumberOfTrades:           trades,
		TakerBuyBaseAssetVolume:  decimal.NewFromInt(30),
		TakerBuyQuoteAssetVolume: decimal.NewFromInt(40),
	}
}

func testBuilder(src CandleSource) *Builder {
	return &Builder{
		Registry:  testRegistry(),
		Source:    src,
		Exchange:  "Binance",
		Timeframe: "1d",
	}
}

func TestBridgeAssignsDenseIDs(t *testing.T) {
	src := &fakeSource{candles: map[string][]models.Candle{
		"BTCUSDT": {testCandle("2020-01-01", 5), testCandle("2020-01-02", 6)},
		"ETHUSDT": {testCandle("2020-01-01", 7)},
	}}

	bridge, err := testBuilder(src).Bridge(context.Background(), Window{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if bridge.Len() != 3 {
		t.Fatalf("expected 3 bridge rows, got %d", bridge.Len())
	}
	for i, row := range bridge.Rows {
		if row.BridgeID != int64(i+1) {
			t.Errorf("row %d: expected bridge_id %d, got %d", i, i+1, row.BridgeID)
		}
		if row.ExchangeKey != 1 || row.TimeframeKey != 1 {
			t.Errorf("row %d: unexpected run keys %+v", i, row)
		}
	}

	// BTCUSDT rows come first (registry declaration order), then ETHUSDT.
	if bridge.Rows[0].SymbolKey != 1 || bridge.Rows[1].SymbolKey != 1 || bridge.Rows[2].SymbolKey != 2 {
		t.Errorf("unexpected symbol ordering: %+v", bridge.Rows)
	}
}

func TestBridgeDeduplicatesKeepingFirst(t *testing.T) {
	src := &fakeSource{candles: map[string][]models.Candle{
		"BTCUSDT": {testCandle("2020-01-01", 5), testCandle("2020-01-01", 99)},
	}}

	bridge, err := testBuilder(src).Bridge(context.Background(), Window{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bridge.Len() != 1 {
		t.Fatalf("expected duplicate natural key to collapse to 1 row, got %d", bridge.Len())
	}
	if bridge.Rows[0].BridgeID != 1 {
		t.Errorf("expected bridge_id 1, got %d", bridge.Rows[0].BridgeID)
	}
}

func TestBridgeIsDeterministic(t *testing.T) {
	candles := map[string][]models.Candle{
		"BTCUSDT": {testCandle("2020-01-01", 5), testCandle("2020-01-02", 6)},
		"ETHUSDT": {testCandle("2020-01-02", 7)},
	}

	first, err := testBuilder(&fakeSource{candles: candles}).Bridge(context.Background(), Window{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := testBuilder(&fakeSource{candles: candles}).Bridge(context.Background(), Window{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first.Rows, second.Rows) {
		t.Errorf("expected identical output across runs:\n%+v\n%+v", first.Rows, second.Rows)
	}
}

func TestBridgeSkipsFailedSymbol(t *testing.T) {
	src := &fakeSource{
		candles: map[string][]models.Candle{
			"ETHUSDT": {testCandle("2020-01-01", 7)},
		},
		errs: map[string]error{"BTCUSDT": fmt.Errorf("connection reset")},
	}

	builder := testBuilder(src)
	bridge, err := builder.Bridge(context.Background(), Window{})
	if err != nil {
		t.Fatalf("expected failed symbol to be skipped, got error: %v", err)
	}
	if bridge.Len() != 1 {
		t.Fatalf("expected 1 row from the surviving symbol, got %d", bridge.Len())
	}
	if bridge.Rows[0].SymbolKey != 2 {
		t.Errorf("expected ETHUSDT row, got %+v", bridge.Rows[0])
	}
	if builder.Warnings() != 1 {
		t.Errorf("expected 1 warning, got %d", builder.Warnings())
	}
}

func TestBridgeEmptySourcesYieldEmptyTable(t *testing.T) {
	bridge, err := testBuilder(&fakeSource{}).Bridge(context.Background(), Window{})
	if err != nil {
		t.Fatalf("expected empty bridge, got error: %v", err)
	}
	if bridge.Len() != 0 {
		t.Errorf("expected 0 rows, got %d", bridge.Len())
	}
}

func TestBridgeUnknownSymbolFailsBeforeFetch(t *testing.T) {
	src := &fakeSource{}
	builder := testBuilder(src)
	builder.Symbols = []string{"DOGEUSDT"}

	_, err := builder.Bridge(context.Background(), Window{})
	var missing *registry.MissingKeyError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingKeyError, got %v", err)
	}
	if src.calls != 0 {
		t.Errorf("expected no fetches before key resolution failed, got %d", src.calls)
	}
}
