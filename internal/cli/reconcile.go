package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/wingmentor/wingmentor-api/config"
	"github.com/wingmentor/wingmentor-api/internal/database"
	"github.com/wingmentor/wingmentor-api/internal/services"
)

// ReconcileResult reports a manual reconciliation
type ReconcileResult struct {
	Strategy string `json:"strategy"`
	Groups   int    `json:"groups"`
	Promoted int    `json:"promoted"`
}

// NewReconcileCommand creates the reconcile command
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reconcile [<mentorId> <menteeId> <hours>]",
		Short: "Re-check pending logs and verify matching pairs",
		Long: `Re-run reconciliation for one (mentor, mentee, hours) triple, or for
every group of pending logs with --all. Verified logs are never touched, so
running it twice is harmless.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var hours float64
			if !all {
				var err error
				hours, err = strconv.ParseFloat(args[2], 64)
				if err != nil || hours <= 0 {
					return fmt.Errorf("hours must be a positive number, got %q", args[2])
				}
			}

			return rootOpts.withStore(cmd.Context(), func(cfg *config.StoreConfig, h *database.Handle) error {
				svc := services.NewLogService(h.Store, cfg.ReconcileStrategy, nil)
				result := ReconcileResult{Strategy: svc.Strategy()}

				if all {
					groups, promoted, err := svc.ReconcileAllPending(cmd.Context())
					if err != nil {
						return err
					}
					result.Groups, result.Promoted = groups, promoted
				} else {
					promoted, err := svc.Reconcile(cmd.Context(), args[0], args[1], hours)
					if err != nil {
						return err
					}
					result.Groups, result.Promoted = 1, promoted
				}

				return rootOpts.report(cmd.OutOrStdout(), result,
					fmt.Sprintf("verified %d log(s) across %d group(s) [%s]", result.Promoted, result.Groups, result.Strategy))
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "reconcile every group of pending logs")
	return cmd
}
