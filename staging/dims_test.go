package staging

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/viktsys/cryptostar/models"
)

type fakeCountrySource struct {
	records []CountryRecord
	err     error
}

func (f *fakeCountrySource) Countries(context.Context) ([]CountryRecord, error) {
	return f.records, f.err
}

type fakeHolidaySource struct {
	byCountry map[string][]HolidayRecord
	errs      map[string]error
}

func (f *fakeHolidaySource) Holidays(_ context.Context, code string, _ YearRange) ([]HolidayRecord, error) {
	if err := f.errs[code]; err != nil {
		return nil, err
	}
	return f.byCountry[code], nil
}

func TestDateDim(t *testing.T) {
	d := &DimBuilder{}

	rows, err := d.DateDim("2020-01-01", "2020-01-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	wantDates := []string{"2020-01-01", "2020-01-02", "2020-01-03"}
	for i, row := range rows {
		if row.FullDate != wantDates[i] {
			t.Errorf("row %d: expected full_date %s, got %s", i, wantDates[i], row.FullDate)
		}
		if i > 0 && row.DateID-rows[i-1].DateID != 86400 {
			t.Errorf("row %d: expected date_id step of 86400, got %d", i, row.DateID-rows[i-1].DateID)
		}
	}
}

func TestDateDimSingleDay(t *testing.T) {
	d := &DimBuilder{}

	rows, err := d.DateDim("2020-06-15", "2020-06-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].FullDate != "2020-06-15" {
		t.Errorf("expected single row for 2020-06-15, got %+v", rows)
	}
}

func TestDateDimInvalidRange(t *testing.T) {
	d := &DimBuilder{}

	cases := []struct{ start, end string }{
		{"2020-01-03", "2020-01-01"},
		{"not-a-date", "2020-01-01"},
		{"2020-01-01", "2020-13-01"},
	}
	for _, tc := range cases {
		_, err := d.DateDim(tc.start, tc.end)
		var invalid *InvalidRangeError
		if !errors.As(err, &invalid) {
			t.Errorf("DateDim(%q, %q): expected InvalidRangeError, got %v", tc.start, tc.end, err)
		}
	}
}

func TestCountryDimAssignsRowOrderIDs(t *testing.T) {
	d := &DimBuilder{Countries: &fakeCountrySource{records: []CountryRecord{
		{Name: "Albania", Alpha2Code: "AL", Alpha3Code: "ALB", NumericCode: "008"},
		{Name: "Andorra", Alpha2Code: "AD", Alpha3Code: "AND", NumericCode: "020"},
	}}}

	rows, err := d.CountryDim(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].CountryID != 1 || rows[1].CountryID != 2 {
		t.Errorf("expected row-order ids 1,2, got %d,%d", rows[0].CountryID, rows[1].CountryID)
	}
	if rows[0].Alpha2Code != "AL" || rows[1].Alpha3Code != "AND" {
		t.Errorf("unexpected passthrough values: %+v", rows)
	}
}

func TestCountryDimFailedSourceYieldsEmptyTable(t *testing.T) {
	d := &DimBuilder{Countries: &fakeCountrySource{err: fmt.Errorf("503 from upstream")}}

	rows, err := d.CountryDim(context.Background())
	if err != nil {
		t.Fatalf("expected failed scrape to yield empty table, got error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected 0 rows, got %d", len(rows))
	}
}

func TestHolidayDimResolvesAndDrops(t *testing.T) {
	d := &DimBuilder{
		Holidays: &fakeHolidaySource{byCountry: map[string][]HolidayRecord{
			"AL": {
				{CountryCode: "AL", Date: "2020-01-01", Name: "New Year's Day"},
				{CountryCode: "AL", Date: "2021-05-01", Name: "May Day"}, // outside date dim
			},
			"US": {
				{CountryCode: "US", Date: "2020-01-01", Name: "New Year's Day"},
			},
		}},
		Years: YearRange{From: 2020, To: 2021},
	}

	dates, err := d.DateDim("2020-01-01", "2020-01-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	countries := []models.CountryRow{
		{CountryID: 1, Name: "United States", Alpha2Code: "US"},
		{CountryID: 2, Name: "Albania", Alpha2Code: "AL"},
	}

	rows, dropped, err := d.HolidayDim(context.Background(), dates, countries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped != 1 {
		t.Errorf("expected 1 dropped row, got %d", dropped)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 surviving rows, got %d", len(rows))
	}

	// Countries are processed in alpha-2 order: AL before US.
	if rows[0].CountryID != 2 || rows[1].CountryID != 1 {
		t.Errorf("expected country order AL,US, got %+v", rows)
	}
	for i, row := range rows {
		if row.HolidayID != int64(i+1) {
			t.Errorf("row %d: expected dense holiday_id %d, got %d", i, i+1, row.HolidayID)
		}
		if row.DateID != dates[0].DateID {
			t.Errorf("row %d: expected date_id %d, got %d", i, dates[0].DateID, row.DateID)
		}
	}
}

func TestHolidayDimSkipsFailedCountry(t *testing.T) {
	d := &DimBuilder{
		Holidays: &fakeHolidaySource{
			byCountry: map[string][]HolidayRecord{
				"US": {{CountryCode: "US", Date: "2020-01-01", Name: "New Year's Day"}},
			},
			errs: map[string]error{"AL": fmt.Errorf("timeout")},
		},
	}

	dates, err := d.DateDim("2020-01-01", "2020-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	countries := []models.CountryRow{
		{CountryID: 1, Alpha2Code: "AL"},
		{CountryID: 2, Alpha2Code: "US"},
	}

	rows, dropped, err := d.HolidayDim(context.Background(), dates, countries)
	if err != nil {
		t.Fatalf("expected failed country to be skipped, got error: %v", err)
	}
	if len(rows) != 1 || rows[0].CountryID != 2 {
		t.Errorf("expected only the US row, got %+v", rows)
	}
	if dropped != 0 {
		t.Errorf("expected 0 dropped rows, got %d", dropped)
	}
}
