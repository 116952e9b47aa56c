package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/workledger/internal/service"
)

// App holds the services CLI commands run against.
type App struct {
	Log     service.LogService
	Jira    service.JiraService
	Notices *service.NoticeBoard

	// Serve runs the local status server on addr until ctx is done. Nil
	// disables the serve command.
	Serve func(ctx context.Context, addr string) error
	Addr  string

	// Interactive is set when stdout is a terminal; long waits then render
	// live progress.
	Interactive bool

	Now func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// NewRootCmd creates the top-level "workledger" command and registers all
// subcommands against app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "workledger",
		Short:         "Time ledger client with Jira epic reporting",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLogCmd(app),
		newJiraCmd(app),
		newNoticesCmd(app),
		newServeCmd(app),
	)

	return root
}
