package staging

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/viktsys/cryptostar/models"
)

// DimBuilder produces the date, country and holiday dimension tables.
// Countries and Holidays are only needed for the builders that use them.
type DimBuilder struct {
	Countries CountrySource
	Holidays  HolidaySource
	Years     YearRange
	Log       logrus.FieldLogger
}

// DateDim generates one row per calendar day in [start, end] inclusive.
// Both bounds are required "2006-01-02" strings; a malformed bound or a
// start after end yields an InvalidRangeError and no rows.
func (d *DimBuilder) DateDim(start, end string) ([]models.DateRow, error) {
	from, err := time.ParseInLocation(models.DateLayout, start, time.UTC)
	if err != nil {
		return nil, &InvalidRangeError{Start: start, End: end, Reason: "start is not a calendar date"}
	}
	to, err := time.ParseInLocation(models.DateLayout, end, time.UTC)
	if err != nil {
		return nil, &InvalidRangeError{Start: start, End: end, Reason: "end is not a calendar date"}
	}
	if from.After(to) {
		return nil, &InvalidRangeError{Start: start, End: end, Reason: "start is after end"}
	}

	rows := []models.DateRow{}
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		rows = append(rows, models.DateRow{
			DateID:   day.Unix(),
			FullDate: day.Format(models.DateLayout),
		})
	}
	return rows, nil
}

// CountryDim passes the scraped country table through, assigning country_id
// by source row order. A failed scrape is treated as an empty source: the
// table comes back empty and the failure is logged.
func (d *DimBuilder) CountryDim(ctx context.Context) ([]models.CountryRow, error) {
	records, err := d.Countries.Countries(ctx)
	if err != nil {
		fallbackLogger(d.Log).WithError(err).Warn("country source failed, country dimension is empty")
		return []models.CountryRow{}, nil
	}

	rows := make([]models.CountryRow, 0, len(records))
	for i, rec := range records {
		rows = append(rows, models.CountryRow{
			CountryID:   i + 1,
			Name:        rec.Name,
			Alpha2Code:  rec.Alpha2Code,
			Alpha3Code:  rec.Alpha3Code,
			NumericCode: rec.NumericCode,
		})
	}
	return rows, nil
}

// HolidayDim fetches holidays for every country in the country dimension,
// in alpha-2 order, and resolves each record against both the date dimension
// (exact ISO-date match) and the country dimension (alpha-2 match). Records
// failing either resolution are dropped; the drop count is returned.
// Per-country fetch failures are logged and skipped.
func (d *DimBuilder) HolidayDim(ctx context.Context, dates []models.DateRow, countries []models.CountryRow) ([]models.HolidayRow, int, error) {
	log := fallbackLogger(d.Log)

	dateIDs := make(map[string]int64, len(dates))
	for _, row := range dates {
		dateIDs[row.FullDate] = row.DateID
	}
	countryIDs := make(map[string]int, len(countries))
	for _, row := range countries {
		countryIDs[row.Alpha2Code] = row.CountryID
	}

	codes := make([]string, 0, len(countries))
	for _, row := range countries {
		codes = append(codes, row.Alpha2Code)
	}
	sort.Strings(codes)

	rows := []models.HolidayRow{}
	dropped := 0
	for _, code := range codes {
		records, err := d.Holidays.Holidays(ctx, code, d.Years)
		if err != nil {
			log.WithField("country", code).WithError(err).Warn("holiday source failed, skipping country")
			continue
		}
		for _, rec := range records {
			dateID, dateOK := dateIDs[rec.Date]
			countryID, countryOK := countryIDs[rec.CountryCode]
			if !dateOK || !countryOK {
				dropped++
				continue
			}
			rows = append(rows, models.HolidayRow{
				HolidayID: int64(len(rows) + 1),
				DateID:    dateID,
				CountryID: countryID,
				Name:      rec.Name,
			})
		}
	}

	if dropped > 0 {
		log.WithField("dropped", dropped).Info("holiday rows dropped during dimension resolution")
	}
	return rows, dropped, nil
}
