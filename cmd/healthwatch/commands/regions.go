package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"healthwatch/internal/app"
)

func newRegionsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the regions known so far.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withStores(cmd.Context(), func(s *app.Stores) error {
				regions, err := s.Storage.Regions(cmd.Context())
				if err != nil {
					return err
				}
				t := newTable(cmd)
				t.AppendHeader(table.Row{"ID", "Region"})
				for _, r := range regions {
					t.AppendRow(table.Row{r.ID, r.Name})
				}
				t.Render()
				return nil
			})
		},
	}
}
