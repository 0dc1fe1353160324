package commands

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"healthwatch/internal/app"
)

func newStatusCmd(g *globals) *cobra.Command {
	var region string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the latest statistics per region.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withStores(cmd.Context(), func(s *app.Stores) error {
				rows, err := s.LatestSnapshots(cmd.Context())
				if err != nil {
					return err
				}
				t := newTable(cmd)
				t.AppendHeader(table.Row{"Source", "Region", "Cases", "Deaths", "Notes"})
				for _, r := range rows {
					if region != "" && !strings.Contains(strings.ToLower(r.Region), strings.ToLower(region)) {
						continue
					}
					t.AppendRow(table.Row{r.Source, r.Region, r.Cases, r.Deaths, r.Notes})
				}
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "only show regions whose name contains this text")
	return cmd
}
