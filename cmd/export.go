package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/viktsys/cryptostar/extract"
	"github.com/viktsys/cryptostar/models"
	"github.com/viktsys/cryptostar/registry"
	"github.com/viktsys/cryptostar/sink"
	"github.com/viktsys/cryptostar/staging"
)

var (
	exportStart string
	exportEnd   string
	exportOut   string
	exportForce bool
)

var exportCMD = &cobra.Command{
	Use:   "export",
	Short: "Export raw klines per symbol as CSV files",
	Long: `Fetch klines for every tracked symbol over the given window and write one
raw CSV file per symbol, named {SYMBOL}_{first}_to_{last}_{timeframe}.csv.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := runLogger()

		start, err := parseTimeArg(exportStart)
		if err != nil {
			return err
		}
		end, err := parseTimeArg(exportEnd)
		if err != nil {
			return err
		}
		window := staging.Window{Start: start, End: end}

		client := extract.NewKlineClient(cfg.Pipeline.Timeframe, logger)
		client.BaseURL = cfg.Binance.BaseURL
		client.Limit = cfg.Binance.Limit

		out := exportOut
		if out == "" {
			out = cfg.Output.Dir
		}
		if err := os.MkdirAll(out, 0o755); err != nil {
			return err
		}

		ctx := context.Background()
		for _, symbol := range registry.Default().Symbols() {
			candles, err := client.Candles(ctx, symbol, window)
			if err != nil {
				return err
			}
			if len(candles) == 0 {
				logger.WithField("symbol", symbol).Warn("no data to export")
				continue
			}

			first := candles[0].OpenTime.UTC().Format(models.DateLayout)
			last := candles[len(candles)-1].OpenTime.UTC().Format(models.DateLayout)
			name := fmt.Sprintf("%s_%s_to_%s_%s.csv", symbol, first, last, cfg.Pipeline.Timeframe)

			path := filepath.Join(out, name)
			if err := sink.WriteTable(path, models.CandleHeader, candles, exportForce); err != nil {
				return err
			}
			logger.WithField("path", path).Info("exported raw klines")
		}
		return nil
	},
}

func init() {
	exportCMD.Flags().StringVar(&exportStart, "start", "", "window start (date, RFC 3339, or epoch ms; empty = earliest)")
	exportCMD.Flags().StringVar(&exportEnd, "end", "", "window end (empty = now)")
	exportCMD.Flags().StringVar(&exportOut, "out", "", "output directory")
	exportCMD.Flags().BoolVar(&exportForce, "force", false, "overwrite existing output files")
	rootCMD.AddCommand(exportCMD)
}
