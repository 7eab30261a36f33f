package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"streak-keeper/internal/config"
)

// RootOptions holds global flags for all commands. Empty values fall back to
// the environment configuration.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Driver   string
	Database string
	Snapshot string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the streakkeeper CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "streakkeeper",
		Short: "Daily streaks per category",
		Long: `Track one achievement per calendar day per category.

Consecutive days grow a streak, a missed day resets it at midnight and
milestones are announced at 7, 30, 100 and 365 days.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			switch opts.Driver {
			case "", config.DriverSQLite, config.DriverJSON:
			default:
				return fmt.Errorf("invalid driver %q: must be %s or %s", opts.Driver, config.DriverSQLite, config.DriverJSON)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging to stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "storage driver (sqlite|json), overrides STORAGE_DRIVER")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "SQLite database path, overrides DATABASE_URL")
	cmd.PersistentFlags().StringVar(&opts.Snapshot, "snapshot", "", "JSON store path, overrides SNAPSHOT_PATH")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewDoneCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewRenameCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewMilestonesCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
