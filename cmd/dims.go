package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/viktsys/cryptostar/database"
	"github.com/viktsys/cryptostar/extract"
	"github.com/viktsys/cryptostar/models"
	"github.com/viktsys/cryptostar/sink"
	"github.com/viktsys/cryptostar/staging"
)

var (
	dimsStart    string
	dimsEnd      string
	dimsFromYear int
	dimsToYear   int
	dimsOut      string
	dimsToDB     bool
	dimsReplace  bool
	dimsForce    bool
)

var dimsCMD = &cobra.Command{
	Use:   "dims",
	Short: "Build the date, country and holiday dimension tables",
	Long: `Generate dim_date over the given inclusive range, scrape the country
reference table into dim_country, and resolve public holidays against both
dimensions into dim_holiday.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := runLogger()

		start := dimsStart
		if start == "" {
			start = cfg.Pipeline.DimStart
		}
		end := dimsEnd
		if end == "" {
			end = cfg.Pipeline.DimEnd
		}
		years := staging.YearRange{From: cfg.Holidays.FromYear, To: cfg.Holidays.ToYear}
		if dimsFromYear != 0 {
			years.From = dimsFromYear
		}
		if dimsToYear != 0 {
			years.To = dimsToYear
		}

		countrySrc := extract.NewCountryScraper(logger)
		holidaySrc := extract.NewHolidayClient(logger)
		holidaySrc.BaseURL = cfg.Holidays.BaseURL

		builder := &staging.DimBuilder{
			Countries: countrySrc,
			Holidays:  holidaySrc,
			Years:     years,
			Log:       logger,
		}

		dates, err := builder.DateDim(start, end)
		if err != nil {
			return err
		}

		ctx := context.Background()
		countries, err := builder.CountryDim(ctx)
		if err != nil {
			return err
		}
		holidays, dropped, err := builder.HolidayDim(ctx, dates, countries)
		if err != nil {
			return err
		}

		logger.WithFields(logrus.Fields{
			"date_rows":       len(dates),
			"country_rows":    len(countries),
			"holiday_rows":    len(holidays),
			"dropped_rows":    dropped,
			"holiday_years":   years,
			"dim_date_window": start + ".." + end,
		}).Info("dimension tables built")

		if dimsToDB {
			db, err := database.Open(cfg.Database)
			if err != nil {
				return err
			}
			loader := database.NewLoader(db)
			mode := database.Append
			if dimsReplace {
				mode = database.Replace
			}
			if err := loader.Load(ctx, &models.DateRow{}, dates, mode); err != nil {
				return err
			}
			if err := loader.Load(ctx, &models.CountryRow{}, countries, mode); err != nil {
				return err
			}
			return loader.Load(ctx, &models.HolidayRow{}, holidays, mode)
		}

		out := dimsOut
		if out == "" {
			out = cfg.Output.Dir
		}
		if err := os.MkdirAll(out, 0o755); err != nil {
			return err
		}
		if err := sink.WriteTable(filepath.Join(out, "dim_date.csv"), models.DateHeader, dates, dimsForce); err != nil {
			return err
		}
		if err := sink.WriteTable(filepath.Join(out, "dim_country.csv"), models.CountryHeader, countries, dimsForce); err != nil {
			return err
		}
		return sink.WriteTable(filepath.Join(out, "dim_holiday.csv"), models.HolidayHeader, holidays, dimsForce)
	},
}

func init() {
	dimsCMD.Flags().StringVar(&dimsStart, "start", "", "first day of the date dimension (2006-01-02)")
	dimsCMD.Flags().StringVar(&dimsEnd, "end", "", "last day of the date dimension (2006-01-02)")
	dimsCMD.Flags().IntVar(&dimsFromYear, "from-year", 0, "first holiday year")
	dimsCMD.Flags().IntVar(&dimsToYear, "to-year", 0, "last holiday year")
	dimsCMD.Flags().StringVar(&dimsOut, "out", "", "output directory for CSV files")
	dimsCMD.Flags().BoolVar(&dimsToDB, "db", false, "load into Postgres instead of writing CSV")
	dimsCMD.Flags().BoolVar(&dimsReplace, "replace", false, "replace existing database rows instead of appending")
	dimsCMD.Flags().BoolVar(&dimsForce, "force", false, "overwrite existing output files")
	rootCMD.AddCommand(dimsCMD)
}
