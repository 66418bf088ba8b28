package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/viktsys/cryptostar/config"
)

var (
	cfgFile string
	envFile string

	cfg   *config.Config
	log   *logrus.Logger
	runID string
)

var rootCMD = &cobra.Command{
	Use:   "cryptostar",
	Short: "Crypto Market Star-Schema Pipeline",
	Long: `A CLI application that extracts market and reference data and reshapes
it into star-schema tables (bridge_trade_context, fact_price, fact_volume,
fact_num_trades, dim_date, dim_country, dim_holiday), written as CSV files
or loaded into Postgres.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
		} else {
			// A missing default .env is fine.
			_ = godotenv.Load()
		}

		log = logrus.New()
		log.SetLevel(logrus.InfoLevel)
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		runID = uuid.NewString()

		if cfgFile != "" {
			loaded, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = loaded
		} else {
			cfg = config.Default()
		}
		return nil
	},
}

// runLogger tags every entry of this invocation with its run id.
func runLogger() logrus.FieldLogger {
	return log.WithField("run_id", runID)
}

func Execute() {
	err := rootCMD.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCMD.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	rootCMD.PersistentFlags().StringVar(&envFile, "env", "", "path to a .env file")
}

// parseTimeArg accepts a calendar date, an RFC 3339 timestamp, or
// milliseconds since epoch. An empty value means "unbounded".
func parseTimeArg(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", value, time.UTC); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		t := time.UnixMilli(ms).UTC()
		return &t, nil
	}
	return nil, fmt.Errorf("cannot parse %q as a date, RFC 3339 timestamp, or epoch milliseconds", value)
}
