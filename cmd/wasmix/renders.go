package main

import (
	"fmt"

	humanize "github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yukihamada/wasmix-sub003/internal/cliconfig"
	"github.com/yukihamada/wasmix-sub003/pkg/wasmix"
)

func newRendersCommand(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "renders",
		Short: "List stored renders",
		Long: `List every key in the store in lexicographic order. Size and save time
come from the session journal; keys saved outside a journaled session show
a dash there.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, _, err := buildInstance(cmd, cfg, *cfgPath, false)
			if err != nil {
				return err
			}

			keys, err := w.Renders()
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no renders stored")
				return nil
			}

			journaled := map[string]wasmix.Render{}
			if st, err := w.SessionState(); err == nil {
				for _, r := range st.Renders {
					journaled[r.Path] = r
				}
			}

			rows := make([]table.Row, 0, len(keys))
			for _, k := range keys {
				size, saved := "-", "-"
				if r, ok := journaled[k]; ok {
					size = humanize.Bytes(r.Bytes)
					saved = humanize.Time(r.SavedAt)
				}
				rows = append(rows, table.Row{k, size, saved})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(table.Row{"KEY", "SIZE", "SAVED"}, rows, 2))
			return nil
		},
	}
}
