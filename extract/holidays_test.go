package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/viktsys/cryptostar/staging"
)

func TestHolidaysFetchesYearRange(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v3/PublicHolidays/2020/US":
			fmt.Fprint(w, `[{"date":"2020-01-01","localName":"New Year's Day","name":"New Year's Day","countryCode":"US"}]`)
		case "/api/v3/PublicHolidays/2021/US":
			fmt.Fprint(w, `[{"date":"2021-07-04","localName":"Independence Day","name":"Independence Day","countryCode":"US"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewHolidayClient(nil)
	client.BaseURL = server.URL
	client.Limiter = nil

	records, err := client.Holidays(context.Background(), "US", staging.YearRange{From: 2020, To: 2021})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(paths) != 2 {
		t.Fatalf("expected one request per year, got %d", len(paths))
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Date != "2020-01-01" || records[0].CountryCode != "US" {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[1].Name != "Independence Day" {
		t.Errorf("unexpected second record: %+v", records[1])
	}
}

func TestHolidaysSkipsFailedYear(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v3/PublicHolidays/2020/US" {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"date":"2021-07-04","localName":"Independence Day","name":"Independence Day","countryCode":"US"}]`)
	}))
	defer server.Close()

	client := NewHolidayClient(nil)
	client.BaseURL = server.URL
	client.Limiter = nil

	records, err := client.Holidays(context.Background(), "US", staging.YearRange{From: 2020, To: 2021})
	if err != nil {
		t.Fatalf("expected failed year to be skipped, got error: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record from the surviving year, got %d", len(records))
	}
}

func TestHolidaysErrorsWhenNothingCollected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown country", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewHolidayClient(nil)
	client.BaseURL = server.URL
	client.Limiter = nil

	if _, err := client.Holidays(context.Background(), "ZZ", staging.YearRange{From: 2020, To: 2020}); err == nil {
		t.Fatal("expected error when every year fails, got nil")
	}
}
