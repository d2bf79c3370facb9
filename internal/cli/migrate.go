package cli

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
	"github.com/wingmentor/wingmentor-api/config"
	"github.com/wingmentor/wingmentor-api/pkg/db"
)

// MigrateResult reports the schema version after a migrate run
type MigrateResult struct {
	Direction string `json:"direction"`
	Version   uint   `json:"version"`
	Dirty     bool   `json:"dirty"`
}

// NewMigrateCommand creates the migrate command
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL schema migrations",
		Long: `Apply all pending migrations to DATABASE_URL, or roll back the
most recent one with --down. Only the postgres data source has a schema.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.env.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.DataSource != config.DataSourcePostgres {
				return fmt.Errorf("migrate needs DATA_SOURCE=postgres, got %q", cfg.DataSource)
			}

			m, err := db.NewMigrator(cfg.DatabaseURL, cfg.DatabaseCACert, cfg.MigrationsPath)
			if err != nil {
				return err
			}
			defer m.Close()

			result := MigrateResult{Direction: "up"}
			if down {
				result.Direction = "down"
				err = m.Steps(-1)
			} else {
				err = m.Up()
			}
			if err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("migrate %s: %w", result.Direction, err)
			}

			result.Version, result.Dirty, err = m.Version()
			if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
				return err
			}
			return rootOpts.report(cmd.OutOrStdout(), result,
				fmt.Sprintf("migrated %s, schema version %d (dirty=%t)", result.Direction, result.Version, result.Dirty))
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "roll back the most recent migration")
	return cmd
}
