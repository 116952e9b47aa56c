package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/workledger/internal/cli/formatter"
)

func newNoticesCmd(app *App) *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "notices",
		Short: "Show errors raised by earlier operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if clearAll {
				n, err := app.Notices.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %s\n", formatCount(n, "notice"))
				return nil
			}
			list, err := app.Notices.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(out, formatter.FormatNotices(list, app.now()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearAll, "clear", false, "Dismiss every notice")
	cmd.AddCommand(&cobra.Command{
		Use:   "dismiss ID",
		Short: "Dismiss one notice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := app.Notices.Dismiss(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no notice %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Dismissed")
			return nil
		},
	})
	return cmd
}
