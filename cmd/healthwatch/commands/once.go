package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"healthwatch/internal/app"
	"healthwatch/internal/runner"
	"healthwatch/internal/transport/console"
)

func newOnceCmd(g *globals) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single scrape-and-notify pass and exit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts []app.Option
			if dryRun {
				opts = append(opts, app.WithDryRun(), app.WithSender(console.New(g.cliLogger(), 0)))
			}
			a, err := app.New(cmd.Context(), g.manager(), opts...)
			if err != nil {
				return err
			}
			defer a.Stop(context.Background(), app.StopOnceDone)

			sum, err := a.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			printSummary(cmd, sum)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log messages instead of sending them and leave stored news and state untouched")
	return cmd
}

func printSummary(cmd *cobra.Command, sum runner.Summary) {
	t := newTable(cmd)
	t.SetTitle(fmt.Sprintf("run %s (%s)", sum.RunID, sum.Duration.Round(time.Millisecond)))
	t.AppendHeader(table.Row{"Source", "Changes", "Suppressed", "Sent", "Failed", "Dropped", "Error"})
	for _, r := range sum.Sources {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		t.AppendRow(table.Row{r.Source, r.Changes, r.Suppressed, r.Sent, r.Failed, r.Dropped, errText})
	}
	t.AppendFooter(table.Row{"Total", sum.Changes(), "", sum.Sent(), "", "", ""})
	t.Render()
}
