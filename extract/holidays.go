package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/viktsys/cryptostar/staging"
)

// DefaultHolidayURL is the Nager.Date public-holiday API.
const DefaultHolidayURL = "https://date.nager.at"

// HolidayClient fetches public holidays per country and year from the
// Nager.Date API. Per-year failures are logged and skipped; the client only
// errors when a country yields nothing at all.
type HolidayClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Log        logrus.FieldLogger
}

func NewHolidayClient(log logrus.FieldLogger) *HolidayClient {
	return &HolidayClient{
		BaseURL:    DefaultHolidayURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Limiter:    rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		Log:        log,
	}
}

func (c *HolidayClient) logger() logrus.FieldLogger {
	if c.Log != nil {
		return c.Log
	}
	return logrus.StandardLogger()
}

type holidayResponse struct {
	Date        string `json:"date"`
	LocalName   string `json:"localName"`
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
}

func (c *HolidayClient) Holidays(ctx context.Context, countryCode string, years staging.YearRange) ([]staging.HolidayRecord, error) {
	log := c.logger().WithField("country", countryCode)

	records := []staging.HolidayRecord{}
	var lastErr error
	for year := years.From; year <= years.To; year++ {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return records, err
			}
		}

		holidays, err := c.fetchYear(ctx, countryCode, year)
		if err != nil {
			log.WithField("year", year).WithError(err).Warn("holiday fetch failed for year")
			lastErr = err
			continue
		}
		for _, h := range holidays {
			records = append(records, staging.HolidayRecord{
				CountryCode: countryCode,
				Date:        h.Date,
				Name:        h.Name,
			})
		}
	}

	if len(records) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return records, nil
}

func (c *HolidayClient) fetchYear(ctx context.Context, countryCode string, year int) ([]holidayResponse, error) {
	url := fmt.Sprintf("%s/api/v3/PublicHolidays/%d/%s", c.BaseURL, year, countryCode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var holidays []holidayResponse
	if err := json.NewDecoder(resp.Body).Decode(&holidays); err != nil {
		return nil, fmt.Errorf("decode holidays: %w", err)
	}
	return holidays, nil
}
