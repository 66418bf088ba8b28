package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const countryPage = `<html><body>
<h1>Country Codes</h1>
<table>
  <thead>
    <tr><th>Country</th><th>Alpha-2 code</th><th>Alpha-3 code</th><th>Numeric</th></tr>
  </thead>
  <tbody>
    <tr><td>Albania</td><td>AL</td><td>ALB</td><td>008</td></tr>
    <tr><td>Andorra</td><td>AD</td><td>AND</td><td>020</td></tr>
    <tr><td>Albania (duplicate)</td><td>AL</td><td>ALB</td><td>008</td></tr>
    <tr><td>Broken row</td><td>XX</td></tr>
  </tbody>
</table>
</body></html>`

func TestCountriesScrapesFirstTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(countryPage))
	}))
	defer server.Close()

	scraper := NewCountryScraper(nil)
	scraper.URL = server.URL

	records, err := scraper.Countries(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records after dedup and malformed-row skip, got %d", len(records))
	}
	if records[0].Name != "Albania" || records[0].Alpha2Code != "AL" || records[0].Alpha3Code != "ALB" || records[0].NumericCode != "008" {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[1].Alpha2Code != "AD" {
		t.Errorf("expected second record AD, got %+v", records[1])
	}
}

func TestCountriesErrorsOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	scraper := NewCountryScraper(nil)
	scraper.URL = server.URL

	if _, err := scraper.Countries(context.Background()); err == nil {
		t.Fatal("expected error for non-200 response, got nil")
	}
}

func TestCountriesErrorsWithoutTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>no table here</p></body></html>"))
	}))
	defer server.Close()

	scraper := NewCountryScraper(nil)
	scraper.URL = server.URL

	if _, err := scraper.Countries(context.Background()); err == nil {
		t.Fatal("expected error when page has no table, got nil")
	}
}
