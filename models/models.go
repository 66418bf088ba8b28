package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// TimestampLayout renders candle open/close times on raw exports.
	TimestampLayout = "2006-01-02 15:04:05"
	// DateLayout renders calendar dates in the date dimension.
	DateLayout = "2006-01-02"
)

// Candle is one raw kline as returned by the exchange: one row per
// (symbol, time bucket). Immutable once fetched.
type Candle struct {
	OpenTime                 time.Time
	Open                     decimal.Decimal
	High                     decimal.Decimal
	Low                      decimal.Decimal
	Close                    decimal.Decimal
	Volume                   decimal.Decimal
	CloseTime                time.Time
	QuoteAssetVolume         decimal.Decimal
	NumberOfTrades           int64
	TakerBuyBaseAssetVolume  decimal.Decimal
	TakerBuyQuoteAssetVolume decimal.Decimal
}

// DateKey is the candle's open time truncated to its UTC day, as
// Unix-epoch seconds. It is the day-level component of the natural key.
func (c Candle) DateKey() int64 {
	t := c.OpenTime.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix()
}

// CandleHeader lists raw export columns in write order.
var CandleHeader = []string{
	"date", "open", "high", "low", "close", "volume", "close_time",
	"quote_asset_volume", "number_of_trades",
	"taker_buy_base_asset_volume", "taker_buy_quote_asset_volume",
}

func (c Candle) CSVRecord() []string {
	return []string{
		c.OpenTime.UTC().Format(TimestampLayout),
		c.Open.String(), c.High.String(), c.Low.String(), c.Close.String(),
		c.Volume.String(),
		c.CloseTime.UTC().Format(TimestampLayout),
		c.QuoteAssetVolume.String(),
		strconv.FormatInt(c.NumberOfTrades, 10),
		c.TakerBuyBaseAssetVolume.String(),
		c.TakerBuyQuoteAssetVolume.String(),
	}
}

// BridgeRow is one trade context: a unique (date, symbol, exchange,
// timeframe) combination referenced by every fact table.
type BridgeRow struct {
	BridgeID     int64 `gorm:"primaryKey;autoIncrement:false" json:"bridge_id"`
	DateKey      int64 `gorm:"uniqueIndex:uidx_trade_context" json:"date_key"`
	SymbolKey    int   `gorm:"uniqueIndex:uidx_trade_context" json:"symbol_key"`
	ExchangeKey  int   `gorm:"uniqueIndex:uidx_trade_context" json:"exchange_key"`
	TimeframeKey int   `gorm:"uniqueIndex:uidx_trade_context" json:"timeframe_key"`
}

func (BridgeRow) TableName() string { return "bridge_trade_context" }

var BridgeHeader = []string{"bridge_id", "date_key", "symbol_key", "exchange_key", "timeframe_key"}

func (r BridgeRow) CSVRecord() []string {
	return []string{
		strconv.FormatInt(r.BridgeID, 10),
		strconv.FormatInt(r.DateKey, 10),
		strconv.Itoa(r.SymbolKey),
		strconv.Itoa(r.ExchangeKey),
		strconv.Itoa(r.TimeframeKey),
	}
}

// PriceFact holds one melted price observation.
type PriceFact struct {
	BridgeKey    int64           `gorm:"index" json:"bridge_key"`
	PriceTypeKey int             `json:"price_type_key"`
	Price        decimal.Decimal `gorm:"type:numeric" json:"price"`
}

func (PriceFact) TableName() string { return "fact_price" }

var PriceFactHeader = []string{"bridge_key", "price_type_key", "price"}

func (r PriceFact) CSVRecord() []string {
	return []string{strconv.FormatInt(r.BridgeKey, 10), strconv.Itoa(r.PriceTypeKey), r.Price.String()}
}

// VolumeFact holds one melted volume observation.
type VolumeFact struct {
	BridgeKey     int64           `gorm:"index" json:"bridge_key"`
	VolumeTypeKey int             `json:"volume_type_key"`
	Volume        decimal.Decimal `gorm:"type:numeric" json:"volume"`
}

func (VolumeFact) TableName() string { return "fact_volume" }

var VolumeFactHeader = []string{"bridge_key", "volume_type_key", "volume"}

func (r VolumeFact) CSVRecord() []string {
	return []string{strconv.FormatInt(r.BridgeKey, 10), strconv.Itoa(r.VolumeTypeKey), r.Volume.String()}
}

// TradeCountFact holds the trade count for one trade context.
type TradeCountFact struct {
	BridgeKey      int64 `gorm:"index" json:"bridge_key"`
	NumberOfTrades int64 `json:"number_of_trades"`
}

func (TradeCountFact) TableName() string { return "fact_num_trades" }

var TradeCountFactHeader = []string{"bridge_key", "number_of_trades"}

func (r TradeCountFact) CSVRecord() []string {
	return []string{strconv.FormatInt(r.BridgeKey, 10), strconv.FormatInt(r.NumberOfTrades, 10)}
}

// DateRow is one calendar day. DateID is the Unix timestamp of UTC midnight.
type DateRow struct {
	DateID   int64  `gorm:"primaryKey;autoIncrement:false" json:"date_id"`
	FullDate string `gorm:"size:10" json:"full_date"`
}

func (DateRow) TableName() string { return "dim_date" }

var DateHeader = []string{"date_id", "full_date"}

func (r DateRow) CSVRecord() []string {
	return []string{strconv.FormatInt(r.DateID, 10), r.FullDate}
}

// CountryRow is one scraped ISO 3166 country. CountryID follows source row
// order.
type CountryRow struct {
	CountryID   int    `gorm:"primaryKey;autoIncrement:false" json:"country_id"`
	Name        string `gorm:"size:120" json:"name"`
	Alpha2Code  string `gorm:"size:2;uniqueIndex" json:"alpha2_code"`
	Alpha3Code  string `gorm:"size:3" json:"alpha3_code"`
	NumericCode string `gorm:"size:3" json:"numeric_code"`
}

func (CountryRow) TableName() string { return "dim_country" }

var CountryHeader = []string{"country_id", "name", "alpha2_code", "alpha3_code", "numeric_code"}

func (r CountryRow) CSVRecord() []string {
	return []string{strconv.Itoa(r.CountryID), r.Name, r.Alpha2Code, r.Alpha3Code, r.NumericCode}
}

// HolidayRow is one public holiday resolved against the date and country
// dimensions.
type HolidayRow struct {
	HolidayID int64  `gorm:"primaryKey;autoIncrement:false" json:"holiday_id"`
	DateID    int64  `gorm:"index" json:"date_id"`
	CountryID int    `gorm:"index" json:"country_id"`
	Name      string `gorm:"size:200" json:"name"`
}

func (HolidayRow) TableName() string { return "dim_holiday" }

var HolidayHeader = []string{"holiday_id", "date_id", "country_id", "name"}

func (r HolidayRow) CSVRecord() []string {
	return []string{
		strconv.FormatInt(r.HolidayID, 10),
		strconv.FormatInt(r.DateID, 10),
		strconv.Itoa(r.CountryID),
		r.Name,
	}
}
