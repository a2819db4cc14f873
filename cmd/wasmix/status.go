package main

import (
	"fmt"
	"path/filepath"

	humanize "github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yukihamada/wasmix-sub003/internal/cliconfig"
	"github.com/yukihamada/wasmix-sub003/pkg/wasmix"
)

func newStatusCommand(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store and journal status",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, _, err := buildInstance(cmd, cfg, *cfgPath, false)
			if err != nil {
				return err
			}

			keys, err := w.Renders()
			if err != nil {
				return err
			}
			st, err := w.SessionState()
			if err != nil {
				return err
			}

			lastSave := "-"
			if n := len(st.Renders); n > 0 {
				lastSave = humanize.Time(st.Renders[n-1].SavedAt)
			}

			rows := []table.Row{
				{"Store", cfg.StoreRoot},
				{"Document", cfg.DocKey},
				{"Session lock", lockState(cfg.StoreRoot)},
				{"Stored keys", len(keys)},
				{"Journal seq", st.LastSeq},
				{"Journaled renders", len(st.Renders)},
				{"Last save", lastSave},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(table.Row{"FIELD", "VALUE"}, rows))
			return nil
		},
	}
}

// lockState probes the store's advisory lock without holding it.
func lockState(storeRoot string) string {
	flk := flock.New(filepath.Join(storeRoot, wasmix.LockFileName))
	locked, err := flk.TryLock()
	if err != nil {
		return "unknown"
	}
	if !locked {
		return "held by another process"
	}
	_ = flk.Unlock()
	return "free"
}
