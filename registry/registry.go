package registry

import "fmt"

// Domain names a finite key domain tracked by the registry.
type Domain string

const (
	DomainSymbol     Domain = "symbol"
	DomainExchange   Domain = "exchange"
	DomainTimeframe  Domain = "timeframe"
	DomainPriceType  Domain = "price_type"
	DomainVolumeType Domain = "volume_type"
)

// MissingKeyError reports a domain value that has no surrogate key assigned.
// Builders must treat it as fatal for the table being built; defaulting the
// key to zero would corrupt every downstream join.
type MissingKeyError struct {
	Domain Domain
	Value  string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("no %s key registered for %q", e.Domain, e.Value)
}

// Registry maps domain values (symbols, exchanges, timeframes, price types,
// volume types) to small integer surrogate keys. Keys are assigned once at
// construction and never renumbered. The zero value is unusable; build one
// with New or Default.
type Registry struct {
	symbols     []string
	symbolKeys  map[string]int
	exchanges   map[string]int
	timeframes  map[string]int
	priceTypes  []string
	priceKeys   map[string]int
	volumeTypes []string
	volumeKeys  map[string]int
}

// New builds a registry from ordered value lists. Keys are 1-based positions
// within each list, so declaration order fixes the surrogate keys.
func New(symbols, exchanges, timeframes, priceTypes, volumeTypes []string) Registry {
	return Registry{
		symbols:     append([]string(nil), symbols...),
		symbolKeys:  keysByPosition(symbols),
		exchanges:   keysByPosition(exchanges),
		timeframes:  keysByPosition(timeframes),
		priceTypes:  append([]string(nil), priceTypes...),
		priceKeys:   keysByPosition(priceTypes),
		volumeTypes: append([]string(nil), volumeTypes...),
		volumeKeys:  keysByPosition(volumeTypes),
	}
}

func keysByPosition(values []string) map[string]int {
	m := make(map[string]int, len(values))
	for i, v := range values {
		if _, dup := m[v]; dup {
			continue
		}
		m[v] = i + 1
	}
	return m
}

// Default returns the registry used by the production pipeline.
func Default() Registry {
	return New(
		[]string{"BTCUSDT", "ETHUSDT", "XRPUSDT", "BNBUSDT", "SOLUSDT"},
		[]string{"Binance", "Coinbase", "Kucoin", "Bitstamp", "Kraken", "Bitfinex", "Huobi", "OKX", "Bybit", "Gemini"},
		[]string{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h", "12h", "1d", "3d", "1w", "1mo"},
		[]string{"open", "high", "low", "close"},
		[]string{"base_volume", "quote_volume", "taker_buy_base_volume", "taker_buy_quote_volume"},
	)
}

// Symbols returns the tracked symbols in declaration order. This order fixes
// symbol processing order across the whole pipeline.
func (r Registry) Symbols() []string {
	return append([]string(nil), r.symbols...)
}

// PriceTypes returns the price melt fields in declaration order.
func (r Registry) PriceTypes() []string {
	return append([]string(nil), r.priceTypes...)
}

// VolumeTypes returns the volume melt fields in declaration order.
func (r Registry) VolumeTypes() []string {
	return append([]string(nil), r.volumeTypes...)
}

func lookup(domain Domain, m map[string]int, value string) (int, error) {
	key, ok := m[value]
	if !ok {
		return 0, &MissingKeyError{Domain: domain, Value: value}
	}
	return key, nil
}

func (r Registry) SymbolKey(symbol string) (int, error) {
	return lookup(DomainSymbol, r.symbolKeys, symbol)
}

func (r Registry) ExchangeKey(exchange string) (int, error) {
	return lookup(DomainExchange, r.exchanges, exchange)
}

func (r Registry) TimeframeKey(timeframe string) (int, error) {
	return lookup(DomainTimeframe, r.timeframes, timeframe)
}

func (r Registry) PriceTypeKey(priceType string) (int, error) {
	return lookup(DomainPriceType, r.priceKeys, priceType)
}

func (r Registry) VolumeTypeKey(volumeType string) (int, error) {
	return lookup(DomainVolumeType, r.volumeKeys, volumeType)
}
