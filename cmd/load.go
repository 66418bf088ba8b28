package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/viktsys/cryptostar/database"
)

var loadReplace bool

var loadCMD = &cobra.Command{
	Use:   "load [csv-file-or-directory...]",
	Short: "Load previously written table CSVs into Postgres",
	Long: `Bulk-insert star-schema CSV files into Postgres. Each file's table is
taken from its name (e.g. fact_price.csv). A directory argument loads every
CSV file in it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := runLogger()

		var files []string
		for _, arg := range args {
			matches, err := filepath.Glob(filepath.Join(arg, "*.csv"))
			if err == nil && len(matches) > 0 {
				files = append(files, matches...)
				continue
			}
			files = append(files, arg)
		}
		if len(files) == 0 {
			return fmt.Errorf("no CSV files to load")
		}

		db, err := database.Open(cfg.Database)
		if err != nil {
			return err
		}
		loader := database.NewLoader(db)
		mode := database.Append
		if loadReplace {
			mode = database.Replace
		}

		ctx := context.Background()
		for _, file := range files {
			if err := loader.LoadCSV(ctx, file, mode); err != nil {
				return err
			}
			logger.WithField("file", file).Info("loaded table")
		}
		return nil
	},
}

func init() {
	loadCMD.Flags().BoolVar(&loadReplace, "replace", false, "replace existing rows instead of appending")
	rootCMD.AddCommand(loadCMD)
}
