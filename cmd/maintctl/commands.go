package main

import (
	"encoding/json"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/localnerve/maintdb/internal/config"
	"github.com/localnerve/maintdb/internal/database"
	"github.com/localnerve/maintdb/internal/logging"
	"github.com/localnerve/maintdb/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// cli holds the state shared by the subcommands.
type cli struct {
	verbose bool
	logger  *zap.Logger
	db      *gorm.DB
}

func newRootCmd() *cobra.Command {
	a := &cli{}

	root := &cobra.Command{
		Use:   "maintctl",
		Short: "maintdb database administration",
		Long: `maintctl manages the maintdb database configured by the same environment
variables as the server (DB_TYPE, DB_DATABASE, ...), optionally loaded from ENV_FILE.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "info"
			if a.verbose {
				level = "debug"
			}
			var err error
			a.logger, err = logging.New(level)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.db != nil {
				_ = database.Close(a.db)
			}
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(a.migrateCmd(), a.seedCmd(), a.checklistCmd(), a.schemaCmd())
	return root
}

// open connects to the configured database once.
func (a *cli) open() (*gorm.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a.db, err = database.Connect(cfg, a.logger)
	return a.db, err
}

func (a *cli) migrateCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			if err := database.AutoMigrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrated")
			if !seed {
				return nil
			}
			return a.seed(cmd, db)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", true, "seed the default request status types into an empty table")
	return cmd
}

func (a *cli) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default request status types when none exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			return a.seed(cmd, db)
		},
	}
}

func (a *cli) seed(cmd *cobra.Command, db *gorm.DB) error {
	n, err := database.SeedStatusTypes(cmd.Context(), db)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d status types\n", n)
	return nil
}

func (a *cli) checklistCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "checklist <maintenance-id>",
		Short: "Print the completed and pending tasks of a maintenance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			report, err := services.BuildChecklistReport(cmd.Context(), db, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal checklist: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			return report.WriteText(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// schemaCmd migrates a scratch in-memory SQLite database and prints the DDL
// GORM generated for it.
func (a *cli) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the table DDL generated from the models",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
				Logger: logger.Default.LogMode(logger.Silent),
			})
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.AutoMigrate(cmd.Context(), db); err != nil {
				return err
			}

			var tables []struct {
				Name string
				SQL  string
			}
			if err := db.Raw("SELECT name, sql FROM sqlite_master WHERE type = 'table' ORDER BY name").
				Scan(&tables).Error; err != nil {
				return err
			}
			for _, table := range tables {
				fmt.Fprintf(cmd.OutOrStdout(), "\n=== Table: %s ===\n%s\n", table.Name, table.SQL)
			}
			return nil
		},
	}
}
