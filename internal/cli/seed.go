package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wingmentor/wingmentor-api/config"
	"github.com/wingmentor/wingmentor-api/internal/database"
	"github.com/wingmentor/wingmentor-api/internal/models"
	"github.com/wingmentor/wingmentor-api/internal/repository"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout read by seed-users
type SeedFile struct {
	Users []SeedUser `yaml:"users"`
}

// SeedUser is one directory entry. Zero values are not written.
type SeedUser struct {
	ID               string   `yaml:"id"`
	FirstName        string   `yaml:"firstName"`
	FullName         string   `yaml:"fullName"`
	DisplayName      string   `yaml:"displayName"`
	TotalHours       float64  `yaml:"totalHours"`
	Region           string   `yaml:"region"`
	FlightSchool     string   `yaml:"flightSchool"`
	EnrolledPrograms []string `yaml:"enrolledPrograms"`
}

func (u SeedUser) fields() map[string]any {
	fields := map[string]any{models.UserFieldTotalHours: u.TotalHours}
	for field, value := range map[string]string{
		models.UserFieldFirstName:    u.FirstName,
		models.UserFieldFullName:     u.FullName,
		models.UserFieldDisplayName:  u.DisplayName,
		models.UserFieldRegion:       u.Region,
		models.UserFieldFlightSchool: u.FlightSchool,
	} {
		if value != "" {
			fields[field] = value
		}
	}
	if len(u.EnrolledPrograms) > 0 {
		fields[models.UserFieldEnrolledPrograms] = u.EnrolledPrograms
	}
	return fields
}

// LoadSeedFile parses and checks a seed file
func LoadSeedFile(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	seen := make(map[string]bool, len(seed.Users))
	for i, u := range seed.Users {
		id := strings.TrimSpace(u.ID)
		if id == "" {
			return nil, fmt.Errorf("users[%d]: id is required", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("users[%d]: duplicate id %q", i, id)
		}
		if u.TotalHours < 0 {
			return nil, fmt.Errorf("users[%d]: totalHours must not be negative", i)
		}
		seen[id] = true
		seed.Users[i].ID = id
	}
	return &seed, nil
}

// NewSeedUsersCommand creates the seed-users command
func NewSeedUsersCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-users <file.yaml>",
		Short: "Upsert directory profiles from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := LoadSeedFile(args[0])
			if err != nil {
				return err
			}

			return rootOpts.withStore(cmd.Context(), func(_ *config.StoreConfig, h *database.Handle) error {
				users := repository.NewUserRepository(h.Store)
				for _, u := range seed.Users {
					if err := users.Upsert(cmd.Context(), u.ID, u.fields()); err != nil {
						return fmt.Errorf("seed %s: %w", u.ID, err)
					}
				}
				return rootOpts.report(cmd.OutOrStdout(), map[string]int{"seeded": len(seed.Users)},
					fmt.Sprintf("seeded %d user(s)", len(seed.Users)))
			})
		},
	}
}
