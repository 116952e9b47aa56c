package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/workledger/internal/cli/formatter"
	"github.com/alexanderramin/workledger/internal/config"
	"github.com/alexanderramin/workledger/internal/domain"
)

func newJiraCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jira",
		Short: "Jira epic mappings, contributors and positions",
	}

	cmd.AddCommand(
		newJiraMapCmd(app),
		newJiraItemsCmd(app),
		newJiraPrefetchCmd(app),
		newJiraContributorsCmd(app),
		newJiraPositionsCmd(app),
	)

	return cmd
}

func newJiraMapCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Manage customer-to-epic mappings",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add CUSTOMER EPIC",
			Short: "Map a customer to an epic",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := app.Jira.MapEpic(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Mapped %s to %s\n", args[0], args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove CUSTOMER",
			Short: "Remove a customer's mapping",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := app.Jira.UnmapEpic(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed mapping for %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List mappings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				mappings, err := app.Jira.Epics(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), formatter.FormatMappings(mappings))
				return nil
			},
		},
		&cobra.Command{
			Use:   "import FILE",
			Short: "Import mappings from a YAML file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				mappings, err := config.LoadEpicMappings(args[0])
				if err != nil {
					return err
				}
				n, err := app.Jira.ImportMappings(cmd.Context(), mappings)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d mappings\n", n)
				return nil
			},
		},
	)

	return cmd
}

func newJiraItemsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "items EPIC",
		Short: "List an epic's work items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := app.Jira.LoadWorkItems(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			var rows [][]string
			var walk func(items []domain.WorkItem, indent string)
			walk = func(items []domain.WorkItem, indent string) {
				for _, it := range items {
					assignee := it.AssigneeName
					if assignee == "" {
						assignee = formatter.Dim("unassigned")
					}
					rows = append(rows, []string{indent + it.Key, it.StatusName, assignee, formatter.FormatSeconds(it.TimeSpent), formatter.Truncate(it.Summary, 50)})
					walk(it.Subtasks, indent+"  ")
				}
			}
			walk(entry.Items, "")

			tasks, subtasks := domain.CountItems(entry.Items)
			fmt.Fprint(out, formatter.RenderTable([]string{"KEY", "STATUS", "ASSIGNEE", "SPENT", "SUMMARY"}, rows))
			fmt.Fprintf(out, "%d tasks, %d subtasks\n", tasks, subtasks)
			if entry.Partial {
				fmt.Fprintln(out, formatter.StyleYellow.Render("Jira returned a partial result."))
			}
			return nil
		},
	}
}

func newJiraPrefetchCmd(app *App) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "prefetch",
		Short: "Load full detail for every mapped epic",
		Long: `Load full detail for every mapped epic and wait for the loads to settle.
Loads stop when this command exits; use "serve" and POST /api/prefetch to
prefetch in the background.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := app.Jira.PrefetchAll(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scheduled %s\n", formatCount(n, "epic"))

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if app.Interactive {
				err = runPrefetchView(ctx, app, out)
			} else {
				err = app.Jira.WaitPrefetch(ctx)
				if err != nil {
					err = fmt.Errorf("waiting for prefetch: %w", err)
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, formatter.PrefetchSummary(app.Jira.PrefetchProgress()))
			fmt.Fprint(out, formatter.FormatPrefetchEntries(app.Jira.PrefetchEntries(), app.now()))
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Maximum time to wait")
	return cmd
}

func newJiraContributorsCmd(app *App) *cobra.Command {
	var full, refresh bool

	cmd := &cobra.Command{
		Use:   "contributors EPIC",
		Short: "Show time per person on an epic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if refresh {
				if _, err := app.Jira.RefreshEpic(cmd.Context(), args[0]); err != nil {
					return err
				}
			}
			report, err := app.Jira.Contributors(cmd.Context(), args[0], full)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatContributors(report.EpicKey, report.Contributors, report.FromWorklogs, report.Partial))
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Load worklogs when they are not cached")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Re-fetch worklogs even when cached")
	return cmd
}

func newJiraPositionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "positions EPIC",
		Short: "Show this month's position per person on an epic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := app.Jira.Position(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPosition(snap))
			return nil
		},
	}
}

func formatCount(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
