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
	"github.com/viktsys/cryptostar/registry"
	"github.com/viktsys/cryptostar/sink"
	"github.com/viktsys/cryptostar/staging"
)

var (
	factsStart   string
	factsEnd     string
	factsOut     string
	factsToDB    bool
	factsReplace bool
	factsForce   bool
)

var factsCMD = &cobra.Command{
	Use:   "facts",
	Short: "Build the bridge and fact tables from exchange klines",
	Long: `Fetch klines for every tracked symbol over the given window, build the
bridge_trade_context table and the fact_price, fact_volume and
fact_num_trades tables that reference it, and write them to CSV files or
load them into Postgres.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := runLogger()

		start, err := parseTimeArg(factsStart)
		if err != nil {
			return err
		}
		end, err := parseTimeArg(factsEnd)
		if err != nil {
			return err
		}
		window := staging.Window{Start: start, End: end}

		client := extract.NewKlineClient(cfg.Pipeline.Timeframe, logger)
		client.BaseURL = cfg.Binance.BaseURL
		client.Limit = cfg.Binance.Limit

		builder := &staging.Builder{
			Registry:  registry.Default(),
			Source:    staging.NewCachedSource(client),
			Exchange:  cfg.Pipeline.Exchange,
			Timeframe: cfg.Pipeline.Timeframe,
			Log:       logger,
		}

		ctx := context.Background()
		bridge, err := builder.Bridge(ctx, window)
		if err != nil {
			return err
		}
		prices, droppedPrices, err := builder.PriceFacts(ctx, window, bridge)
		if err != nil {
			return err
		}
		volumes, droppedVolumes, err := builder.VolumeFacts(ctx, window, bridge)
		if err != nil {
			return err
		}
		counts, droppedCounts, err := builder.TradeCountFacts(ctx, window, bridge)
		if err != nil {
			return err
		}

		logger.WithFields(logrus.Fields{
			"bridge_rows":     bridge.Len(),
			"price_rows":      len(prices),
			"volume_rows":     len(volumes),
			"trade_rows":      len(counts),
			"dropped_prices":  droppedPrices,
			"dropped_volumes": droppedVolumes,
			"dropped_trades":  droppedCounts,
			"warnings":        builder.Warnings(),
		}).Info("trade tables built")

		if factsToDB {
			db, err := database.Open(cfg.Database)
			if err != nil {
				return err
			}
			loader := database.NewLoader(db)
			mode := database.Append
			if factsReplace {
				mode = database.Replace
			}
			if err := loader.Load(ctx, &models.BridgeRow{}, bridge.Rows, mode); err != nil {
				return err
			}
			if err := loader.Load(ctx, &models.PriceFact{}, prices, mode); err != nil {
				return err
			}
			if err := loader.Load(ctx, &models.VolumeFact{}, volumes, mode); err != nil {
				return err
			}
			return loader.Load(ctx, &models.TradeCountFact{}, counts, mode)
		}

		out := factsOut
		if out == "" {
			out = cfg.Output.Dir
		}
		if err := os.MkdirAll(out, 0o755); err != nil {
			return err
		}
		if err := sink.WriteTable(filepath.Join(out, "bridge_trade_context.csv"), models.BridgeHeader, bridge.Rows, factsForce); err != nil {
			return err
		}
		if err := sink.WriteTable(filepath.Join(out, "fact_price.csv"), models.PriceFactHeader, prices, factsForce); err != nil {
			return err
		}
		if err := sink.WriteTable(filepath.Join(out, "fact_volume.csv"), models.VolumeFactHeader, volumes, factsForce); err != nil {
			return err
		}
		return sink.WriteTable(filepath.Join(out, "fact_num_trades.csv"), models.TradeCountFactHeader, counts, factsForce)
	},
}

func init() {
	factsCMD.Flags().StringVar(&factsStart, "start", "", "window start (date, RFC 3339, or epoch ms; empty = earliest)")
	factsCMD.Flags().StringVar(&factsEnd, "end", "", "window end (empty = now)")
	factsCMD.Flags().StringVar(&factsOut, "out", "", "output directory for CSV files")
	factsCMD.Flags().BoolVar(&factsToDB, "db", false, "load into Postgres instead of writing CSV")
	factsCMD.Flags().BoolVar(&factsReplace, "replace", false, "replace existing database rows instead of appending")
	factsCMD.Flags().BoolVar(&factsForce, "force", false, "overwrite existing output files")
	rootCMD.AddCommand(factsCMD)
}
