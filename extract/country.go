package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/viktsys/cryptostar/staging"
)

// DefaultCountryURL is the ISO 3166 reference table the pipeline scrapes.
const DefaultCountryURL = "https://www.iban.com/country-codes"

// CountryScraper extracts the country reference table from an HTML page.
// It reads the first table on the page, matching columns by header text,
// and deduplicates rows on alpha-2 code.
type CountryScraper struct {
	URL        string
	HTTPClient *http.Client
	Log        logrus.FieldLogger
}

func NewCountryScraper(log logrus.FieldLogger) *CountryScraper {
	return &CountryScraper{
		URL:        DefaultCountryURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Log:        log,
	}
}

func (s *CountryScraper) logger() logrus.FieldLogger {
	if s.Log != nil {
		return s.Log
	}
	return logrus.StandardLogger()
}

func (s *CountryScraper) Countries(ctx context.Context) ([]staging.CountryRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch country table: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching country table", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse country page: %w", err)
	}

	table := findElement(doc, "table")
	if table == nil {
		return nil, fmt.Errorf("no table found in country page")
	}

	headers, rows := tableCells(table)
	if len(headers) == 0 {
		return nil, fmt.Errorf("country table has no header row")
	}

	columns := map[string]int{}
	for i, h := range headers {
		switch {
		case strings.Contains(h, "Country"):
			columns["name"] = i
		case strings.Contains(h, "Alpha-2"):
			columns["alpha2"] = i
		case strings.Contains(h, "Alpha-3"):
			columns["alpha3"] = i
		case strings.Contains(h, "Numeric"):
			columns["numeric"] = i
		}
	}
	for _, required := range []string{"name", "alpha2", "alpha3", "numeric"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("country table is missing a %s column", required)
		}
	}

	log := s.logger()
	seen := map[string]bool{}
	records := []staging.CountryRecord{}
	for _, cells := range rows {
		if len(cells) != len(headers) {
			log.WithField("cells", len(cells)).Warn("skipping malformed country row")
			continue
		}
		alpha2 := cells[columns["alpha2"]]
		if alpha2 == "" || seen[alpha2] {
			continue
		}
		seen[alpha2] = true
		records = append(records, staging.CountryRecord{
			Name:        cells[columns["name"]],
			Alpha2Code:  alpha2,
			Alpha3Code:  cells[columns["alpha3"]],
			NumericCode: cells[columns["numeric"]],
		})
	}

	log.WithField("countries", len(records)).Info("scraped country table")
	return records, nil
}

// findElement returns the first element with the given tag in document
// order.
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// tableCells splits a table into its header texts and body rows. The header
// is the first row containing th cells; rows containing th cells are not
// data rows.
func tableCells(table *html.Node) (headers []string, rows [][]string) {
	var trs []*html.Node
	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			trs = append(trs, n)
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(table)

	for _, tr := range trs {
		var ths, tds []string
		for cell := tr.FirstChild; cell != nil; cell = cell.NextSibling {
			if cell.Type != html.ElementNode {
				continue
			}
			switch cell.Data {
			case "th":
				ths = append(ths, nodeText(cell))
			case "td":
				tds = append(tds, nodeText(cell))
			}
		}
		if len(ths) > 0 {
			if headers == nil {
				headers = ths
			}
			continue
		}
		if len(tds) > 0 {
			rows = append(rows, tds)
		}
	}
	return headers, rows
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
