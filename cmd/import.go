package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/LovationAdmin/expensewise-api/migration"
	"github.com/LovationAdmin/expensewise-api/services"

	"github.com/spf13/cobra"
)

var (
	importCreateMissing bool
	copyMongoURI        string
	copyMongoDatabase   string
	copyOverwrite       bool
	copyDryRun          bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load ledger data into the configured backend",
}

var importCSVCmd = &cobra.Command{
	Use:   "csv <file>",
	Short: "Import expenses from a CSV export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		expenses, err := services.ReadExpensesCSV(f)
		if err != nil {
			return err
		}

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ledger, err := newLedger(cfg, st, nil)
		if err != nil {
			return err
		}
		if err := ledger.Bootstrap(ctx); err != nil {
			return fmt.Errorf("bootstrap ledger: %w", err)
		}

		n, err := ledger.ImportExpenses(ctx, expenses, importCreateMissing)
		if err != nil {
			return err
		}
		log.WithField("expenses", n).Info("CSV import finished")
		return nil
	},
}

var importMongoCmd = &cobra.Command{
	Use:   "from-mongo",
	Short: "Copy a MongoDB ledger into the configured backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		uri := copyMongoURI
		if uri == "" {
			uri = cfg.MongoURI
		}
		if uri == "" {
			return errors.New("--mongo-uri or MONGODB_URI is required")
		}

		src, err := openMongo(ctx, uri, copyMongoDatabase)
		if err != nil {
			return err
		}
		defer src.Close()

		dst, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer dst.Close()

		if src.Backend() == dst.Backend() {
			return errors.New("destination backend must differ from mongo")
		}

		_, err = migration.CopyLedger(ctx, src, dst, migration.CopyOptions{
			Overwrite: copyOverwrite,
			DryRun:    copyDryRun,
		}, log)
		return err
	},
}

func init() {
	importCSVCmd.Flags().BoolVar(&importCreateMissing, "create-categories", false, "create categories missing from the ledger with the default icon")

	importMongoCmd.Flags().StringVar(&copyMongoURI, "mongo-uri", "", "source MongoDB URI (defaults to MONGODB_URI)")
	importMongoCmd.Flags().StringVar(&copyMongoDatabase, "mongo-database", "expensewise", "source database name")
	importMongoCmd.Flags().BoolVar(&copyOverwrite, "overwrite", false, "replace destination expenses and global state")
	importMongoCmd.Flags().BoolVar(&copyDryRun, "dry-run", false, "run the copy and roll it back")

	importCmd.AddCommand(importCSVCmd, importMongoCmd)
}
