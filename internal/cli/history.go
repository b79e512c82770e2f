package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/forensiq/internal/client"
)

func (a *app) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent investigations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, err := a.jsonOutput()
			if err != nil {
				return err
			}
			list, err := a.client().Latest(cmd.Context(), a.v.GetInt("limit"))
			if err != nil {
				return err
			}
			if asJSON {
				return a.writeJSON(list)
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tSTATUS\tFILES\tEVENTS")
			for _, inv := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d\n",
					inv.ID,
					inv.CreatedAt.Local().Format(time.DateTime),
					inv.Status,
					inv.FilesProcessed, inv.FilesReceived,
					inv.EventCount,
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "number of investigations")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored investigation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.viewOptions()
			if err != nil {
				return err
			}
			c := a.client()
			inv, err := c.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			errs, err := c.Errors(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return a.writeJSON(map[string]any{"investigation": inv, "errors": errs})
			}

			res := &client.Result{
				ID:         string(inv.ID),
				Status:     string(inv.Status),
				Report:     inv.Report,
				Timeline:   inv.Timeline,
				ArchiveURL: inv.ArchiveURL,
			}
			if err := a.renderResult(res, inv.CreatedAt.Local(), opts); err != nil {
				return err
			}
			if len(errs) > 0 {
				fmt.Fprintf(a.out, "\nSkipped files (%d):\n", len(errs))
				for _, e := range errs {
					fmt.Fprintf(a.out, "  %s [%s] %s\n", e.FileName, e.Phase, e.Message)
				}
			}
			return nil
		},
	}
	addViewFlags(cmd)
	return cmd
}
