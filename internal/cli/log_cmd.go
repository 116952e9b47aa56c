package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/workledger/internal/cli/formatter"
	"github.com/alexanderramin/workledger/internal/domain"
	"github.com/alexanderramin/workledger/internal/service"
)

func newLogCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "View and edit ledger entries",
	}

	cmd.AddCommand(
		newLogListCmd(app),
		newLogMonthCmd(app),
		newLogAddCmd(app),
		newLogEditCmd(app),
		newLogDeleteCmd(app),
	)

	return cmd
}

func newLogListCmd(app *App) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a day's entries with their time ranges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				date = app.now().Format(domain.DateLayout)
			}
			view, err := app.Log.ListDay(cmd.Context(), date)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatDay(view.Date, view.Entries, view.Ranges))
			return nil
		},
	}

	dateFlag(cmd.Flags(), &date, "date", "Day to list (default today)")
	return cmd
}

func newLogMonthCmd(app *App) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "month",
		Short: "Show per-day totals for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if month == "" {
				month = domain.MonthKey(app.now())
			}
			report, err := app.Log.LoadMonth(cmd.Context(), month)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatMonth(month, report))
			return nil
		},
	}

	monthFlag(cmd.Flags(), &month, "month", "Month as YYYY-MM (default current)")
	return cmd
}

// entryFlags are the flags shared by add and edit.
type entryFlags struct {
	date          string
	task          int
	hours         string
	from          string
	to            string
	comment       string
	reportingFrom string
}

func (f *entryFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	dateFlag(fs, &f.date, "date", "Day of the entry (default today)")
	fs.IntVar(&f.task, "task", 0, "Ledger task ID")
	durationFlag(fs, &f.hours, "hours", "Duration as HH:MM")
	clockFlag(fs, &f.from, "from", "Start time as HH:MM")
	clockFlag(fs, &f.to, "to", "End time as HH:MM")
	fs.StringVar(&f.comment, "comment", "", "Comment")
	fs.StringVar(&f.reportingFrom, "reporting-from", "", "office, home or client")
}

// apply overlays the flags the user set onto base.
func (f *entryFlags) apply(cmd *cobra.Command, base domain.AbstractLogEntry) service.EntryInput {
	changed := cmd.Flags().Changed
	if changed("task") {
		base.TaskID = f.task
	}
	if changed("hours") {
		base.HoursHHMM = f.hours
	}
	if changed("comment") {
		base.Comment = f.comment
	}
	if changed("reporting-from") {
		base.ReportingFrom = f.reportingFrom
	}
	return service.EntryInput{Entry: base, From: f.from, To: f.to}
}

func newLogAddCmd(app *App) *cobra.Command {
	var f entryFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an entry; without --from/--to it goes in the earliest free slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.date == "" {
				f.date = app.now().Format(domain.DateLayout)
			}
			payload, err := app.Log.AddEntry(cmd.Context(), f.date, f.apply(cmd, domain.AbstractLogEntry{}))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPayload(payload))
			return nil
		},
	}

	f.register(cmd)
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func newLogEditCmd(app *App) *cobra.Command {
	var f entryFlags

	cmd := &cobra.Command{
		Use:   "edit INDEX",
		Short: "Edit an entry; unset flags keep their current values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			if f.date == "" {
				f.date = app.now().Format(domain.DateLayout)
			}

			view, err := app.Log.ListDay(cmd.Context(), f.date)
			if err != nil {
				return err
			}
			if index >= len(view.Entries) {
				return fmt.Errorf("%w: %s has %d entries", service.ErrEntryNotFound, f.date, len(view.Entries))
			}

			payload, err := app.Log.EditEntry(cmd.Context(), f.date, index, f.apply(cmd, view.Entries[index]))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPayload(payload))
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

func newLogDeleteCmd(app *App) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "delete INDEX",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			if date == "" {
				date = app.now().Format(domain.DateLayout)
			}
			payload, err := app.Log.DeleteEntry(cmd.Context(), date, index)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPayload(payload))
			return nil
		},
	}

	dateFlag(cmd.Flags(), &date, "date", "Day of the entry (default today)")
	return cmd
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid entry index %q", s)
	}
	return n, nil
}
