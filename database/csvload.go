package database

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/viktsys/cryptostar/models"
	"github.com/viktsys/cryptostar/sink"
)

// LoadCSV reads a table file written by the pipeline and bulk-inserts it.
// The target table is taken from the file name (e.g. fact_price.csv).
func (l *Loader) LoadCSV(ctx context.Context, path string, mode Mode) error {
	table := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	_, records, err := sink.ReadTable(path)
	if err != nil {
		return err
	}

	switch table {
	case models.BridgeRow{}.TableName():
		rows, err := parseBridgeRows(records)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return l.Load(ctx, &models.BridgeRow{}, rows, mode)
	case models.PriceFact{}.TableName():
		rows, err := parsePriceFacts(records)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return l.Load(ctx, &models.PriceFact{}, rows, mode)
	case models.VolumeFact{}.TableName():
		rows, err := parseVolumeFacts(records)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return l.Load(ctx, &models.VolumeFact{}, rows, mode)
	case models.TradeCountFact{}.TableName():
		rows, err := parseTradeCountFacts(records)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return l.Load(ctx, &models.TradeCountFact{}, rows, mode)
	case models.DateRow{}.TableName():
		rows, err := parseDateRows(records)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return l.Load(ctx, &models.DateRow{}, rows, mode)
	case models.CountryRow{}.TableName():
		rows, err := parseCountryRows(records)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return l.Load(ctx, &models.CountryRow{}, rows, mode)
	case models.HolidayRow{}.TableName():
		rows, err := parseHolidayRows(records)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return l.Load(ctx, &models.HolidayRow{}, rows, mode)
	}
	return fmt.Errorf("%s does not name a known table", path)
}

func checkColumns(record []string, want int) error {
	if len(record) != want {
		return fmt.Errorf("expected %d columns, got %d", want, len(record))
	}
	return nil
}

func parseBridgeRows(records [][]string) ([]models.BridgeRow, error) {
	rows := make([]models.BridgeRow, 0, len(records))
	for i, record := range records {
		if err := checkColumns(record, 5); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		bridgeID, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid bridge_id: %w", i+1, err)
		}
		dateKey, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date_key: %w", i+1, err)
		}
		keys := make([]int, 3)
		for j, name := range []string{"symbol_key", "exchange_key", "timeframe_key"} {
			if keys[j], err = strconv.Atoi(record[j+2]); err != nil {
				return nil, fmt.Errorf("row %d: invalid %s: %w", i+1, name, err)
			}
		}
		rows = append(rows, models.BridgeRow{
			BridgeID:     bridgeID,
			DateKey:      dateKey,
			SymbolKey:    keys[0],
			ExchangeKey:  keys[1],
			TimeframeKey: keys[2],
		})
	}
	return rows, nil
}

func parsePriceFacts(records [][]string) ([]models.PriceFact, error) {
	rows := make([]models.PriceFact, 0, len(records))
	for i, record := range records {
		if err := checkColumns(record, 3); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		bridgeKey, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid bridge_key: %w", i+1, err)
		}
		typeKey, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid price_type_key: %w", i+1, err)
		}
		price, err := decimal.NewFromString(record[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid price: %w", i+1, err)
		}
		rows = append(rows, models.PriceFact{BridgeKey: bridgeKey, PriceTypeKey: typeKey, Price: price})
	}
	return rows, nil
}

func parseVolumeFacts(records [][]string) ([]models.VolumeFact, error) {
	rows := make([]models.VolumeFact, 0, len(records))
	for i, record := range records {
		if err := checkColumns(record, 3); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		bridgeKey, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid bridge_key: %w", i+1, err)
		}
		typeKey, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid volume_type_key: %w", i+1, err)
		}
		volume, err := decimal.NewFromString(record[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid volume: %w", i+1, err)
		}
		rows = append(rows, models.VolumeFact{BridgeKey: bridgeKey, VolumeTypeKey: typeKey, Volume: volume})
	}
	return rows, nil
}

func parseTradeCountFacts(records [][]string) ([]models.TradeCountFact, error) {
	rows := make([]models.TradeCountFact, 0, len(records))
	for i, record := range records {
		if err := checkColumns(record, 2); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		bridgeKey, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid bridge_key: %w", i+1, err)
		}
		trades, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid number_of_trades: %w", i+1, err)
		}
		rows = append(rows, models.TradeCountFact{BridgeKey: bridgeKey, NumberOfTrades: trades})
	}
	return rows, nil
}

func parseDateRows(records [][]string) ([]models.DateRow, error) {
	rows := make([]models.DateRow, 0, len(records))
	for i, record := range records {
		if err := checkColumns(record, 2); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		dateID, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date_id: %w", i+1, err)
		}
		rows = append(rows, models.DateRow{DateID: dateID, FullDate: record[1]})
	}
	return rows, nil
}

func parseCountryRows(records [][]string) ([]models.CountryRow, error) {
	rows := make([]models.CountryRow, 0, len(records))
	for i, record := range records {
		if err := checkColumns(record, 5); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		countryID, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid country_id: %w", i+1, err)
		}
		rows = append(rows, models.CountryRow{
			CountryID:   countryID,
			Name:        record[1],
			Alpha2Code:  record[2],
			Alpha3Code:  record[3],
			NumericCode: record[4],
		})
	}
	return rows, nil
}

func parseHolidayRows(records [][]string) ([]models.HolidayRow, error) {
	rows := make([]models.HolidayRow, 0, len(records))
	for i, record := range records {
		if err := checkColumns(record, 4); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		holidayID, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid holiday_id: %w", i+1, err)
		}
		dateID, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date_id: %w", i+1, err)
		}
		countryID, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid country_id: %w", i+1, err)
		}
		rows = append(rows, models.HolidayRow{
			HolidayID: holidayID,
			DateID:    dateID,
			CountryID: countryID,
			Name:      record[3],
		})
	}
	return rows, nil
}
