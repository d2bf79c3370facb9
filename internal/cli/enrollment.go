package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wingmentor/wingmentor-api/config"
	"github.com/wingmentor/wingmentor-api/internal/database"
	"github.com/wingmentor/wingmentor-api/internal/repository"
	"github.com/wingmentor/wingmentor-api/internal/services"
)

// NewResetEnrollmentCommand creates the reset-enrollment command
func NewResetEnrollmentCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-enrollment <uid>",
		Short: "Clear a user's programs, onboarding answers and agreement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid := args[0]
			return rootOpts.withStore(cmd.Context(), func(_ *config.StoreConfig, h *database.Handle) error {
				svc := services.NewEnrollmentService(repository.NewUserRepository(h.Store))
				if err := svc.ResetEnrollment(cmd.Context(), uid); err != nil {
					return err
				}
				return rootOpts.report(cmd.OutOrStdout(), map[string]string{"uid": uid, "status": "reset"},
					fmt.Sprintf("enrollment reset for %s", uid))
			})
		},
	}
}
