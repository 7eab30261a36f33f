package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"streak-keeper/internal/model"
	"streak-keeper/internal/streak"
)

func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid category id %q", raw)
	}
	return uint(id), nil
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List categories with their streaks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, cmd.ErrOrStderr(), func(a *app) error {
				categories := a.tracker.Categories()
				return formatter(rootOpts, cmd).Emit(categories, categoryLines(categories, a.tracker.Now()))
			})
		},
	}
}

// NewDoneCommand creates the done command.
func NewDoneCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Record today's achievement for a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), rootOpts, cmd.ErrOrStderr(), func(a *app) error {
				category, events, err := a.tracker.Complete(cmd.Context(), id)
				if err != nil {
					return err
				}
				text := categoryLine(category, a.tracker.Now())
				if extra := eventsText(events); extra != "" {
					text += "\n" + extra
				}
				return formatter(rootOpts, cmd).Emit(map[string]interface{}{
					"category": category,
					"events":   eventViews(events),
				}, text)
			})
		},
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, cmd.ErrOrStderr(), func(a *app) error {
				category, err := a.tracker.Create(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				return formatter(rootOpts, cmd).Emit(category, fmt.Sprintf("added #%d %s", category.ID, category.Name))
			})
		},
	}
}

// NewRenameCommand creates the rename command.
func NewRenameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a category, keeping its streak",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), rootOpts, cmd.ErrOrStderr(), func(a *app) error {
				category, err := a.tracker.Rename(cmd.Context(), id, strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				return formatter(rootOpts, cmd).Emit(category, fmt.Sprintf("renamed #%d to %s", category.ID, category.Name))
			})
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a category together with its streak",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), rootOpts, cmd.ErrOrStderr(), func(a *app) error {
				removed, err := a.tracker.Delete(cmd.Context(), id)
				if err != nil {
					return err
				}
				return formatter(rootOpts, cmd).Emit(removed, fmt.Sprintf("deleted #%d %s", removed.ID, removed.Name))
			})
		},
	}
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, cmd.ErrOrStderr(), func(a *app) error {
				stats := a.tracker.Stats()
				return formatter(rootOpts, cmd).Emit(stats, statsText(stats))
			})
		},
	}
}

// NewMilestonesCommand creates the milestones command.
func NewMilestonesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "milestones [id]",
		Short: "Show progress towards 7/30/100/365 days",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, cmd.ErrOrStderr(), func(a *app) error {
				categories := a.tracker.Categories()
				if len(args) == 1 {
					id, err := parseID(args[0])
					if err != nil {
						return err
					}
					c, err := a.tracker.Get(id)
					if err != nil {
						return err
					}
					categories = []model.Category{c}
				}

				result := make(map[uint][]streak.Progress, len(categories))
				var text strings.Builder
				for _, c := range categories {
					progress := streak.MilestoneProgress(c.Streak)
					result[c.ID] = progress
					text.WriteString(milestonesText(c, progress))
				}
				return formatter(rootOpts, cmd).Emit(result, text.String())
			})
		},
	}
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Reset streaks whose grace window has passed",
		Long: `Run the inactivity check once. A completion on day D keeps the streak
alive through D+1; at the midnight starting D+2 it resets to zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLoadedApp(cmd.Context(), rootOpts, cmd.ErrOrStderr(), func(a *app) error {
				events, err := a.tracker.CheckResets(cmd.Context())
				if err != nil {
					return err
				}
				text := eventsText(events)
				if text == "" {
					text = "nothing to reset"
				}
				return formatter(rootOpts, cmd).Emit(eventViews(events), text)
			})
		},
	}
}
