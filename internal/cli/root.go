// Package cli implements wingctl, the operator tool for the WingMentor store
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/wingmentor/wingmentor-api/config"
	"github.com/wingmentor/wingmentor-api/internal/database"
	"github.com/wingmentor/wingmentor-api/pkg/logger"
)

// Env supplies configuration and the store to commands
type Env struct {
	LoadConfig func() (*config.StoreConfig, error)
	OpenStore  func(ctx context.Context, cfg config.StoreConfig) (*database.Handle, error)
}

// DefaultEnv reads the environment and opens the configured backend
func DefaultEnv() Env {
	return Env{
		LoadConfig: config.LoadStore,
		OpenStore: func(ctx context.Context, cfg config.StoreConfig) (*database.Handle, error) {
			return database.Open(ctx, cfg, "wingctl")
		},
	}
}

// RootOptions holds global flags for all commands
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	env Env
}

// NewRootCommand creates the wingctl root command
func NewRootCommand(env Env) *cobra.Command {
	opts := &RootOptions{env: env}

	cmd := &cobra.Command{
		Use:           "wingctl",
		Short:         "Operate the WingMentor document store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return fmt.Errorf("invalid format %q: must be text or json", opts.Format)
			}
			level := "warn"
			if opts.Verbose {
				level = "debug"
			}
			return logger.Initialize(logger.Config{Level: level, Environment: "development", ServiceName: "wingctl"})
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewResetEnrollmentCommand(opts))
	cmd.AddCommand(NewSeedUsersCommand(opts))

	return cmd
}

// withStore loads the store configuration, opens the store and closes it
// once fn returns
func (o *RootOptions) withStore(ctx context.Context, fn func(cfg *config.StoreConfig, h *database.Handle) error) error {
	cfg, err := o.env.LoadConfig()
	if err != nil {
		return err
	}
	h, err := o.env.OpenStore(ctx, *cfg)
	if err != nil {
		return err
	}
	defer h.Close(context.WithoutCancel(ctx))
	return fn(cfg, h)
}

// report prints a result either as indented JSON or as the text line
func (o *RootOptions) report(w io.Writer, result any, text string) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
