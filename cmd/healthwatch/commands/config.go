package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"healthwatch/internal/config"
)

func newConfigCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration.",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Validate the config file and print the effective sources.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				rt, err := g.manager().Load()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "config ok: transport=%s storage=%s state=%s schedule=%q\n",
					rt.Raw.Transport.Driver, rt.Raw.Storage.Driver, rt.Raw.State.Driver, rt.Raw.Scheduler.Schedule)
				t := newTable(cmd)
				t.AppendHeader(table.Row{"Source", "Adapter", "Regions", "Match", "Timeout", "URL"})
				for _, s := range rt.Sources {
					t.AppendRow(table.Row{s.Name, s.Adapter, strings.Join(s.Regions, ","), s.RegionMatch, s.Timeout, s.URL})
				}
				t.Render()
				return nil
			},
		},
		&cobra.Command{
			Use:   "example",
			Short: "Print an example config (json, also valid yaml).",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				b, err := json.MarshalIndent(config.Example(), "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			},
		},
	)
	return cmd
}
