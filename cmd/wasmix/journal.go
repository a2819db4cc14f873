package main

import (
	"encoding/json"
	"fmt"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yukihamada/wasmix-sub003/internal/cliconfig"
	"github.com/yukihamada/wasmix-sub003/internal/domain"
	"github.com/yukihamada/wasmix-sub003/pkg/wasmix"
)

func newJournalCommand(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "journal",
		Short: "Show the session journal",
		Long: `Show the session document's journal entries in append order. The journal
is the append-only history the application replays after a crash; entries a
newer build wrote with unrecognized kinds still list here.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, _, err := buildInstance(cmd, cfg, *cfgPath, false)
			if err != nil {
				return err
			}

			entries, err := w.History()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "journal is empty")
				return nil
			}

			rows := make([]table.Row, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, table.Row{
					e.Seq,
					e.Time.Format(time.RFC3339),
					e.Kind,
					describeEntry(e),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(table.Row{"SEQ", "TIME", "KIND", "DETAILS"}, rows, 1))
			return nil
		},
	}
}

func newSnapshotCommand(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Fold the session journal into a snapshot entry",
		Long: `Append a snapshot entry carrying the fully folded session state. Replay
then starts from the snapshot instead of the full history, bounding recovery
work. Earlier entries are not deleted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, log, err := buildInstance(cmd, cfg, *cfgPath, false)
			if err != nil {
				return err
			}

			if err := w.Start(cmd.Context()); err != nil {
				return fmt.Errorf("open session: %w", err)
			}
			defer func() {
				if err := w.Stop(); err != nil {
					log.Warn().Err(err).Msg("session close")
				}
			}()

			entry, err := w.SnapshotJournal()
			if err != nil {
				return fmt.Errorf("snapshot journal: %w", err)
			}
			log.Info().Uint64("seq", entry.Seq).Msg("journal snapshot appended")
			return nil
		},
	}
}

// describeEntry summarizes an entry's payload for the journal table.
func describeEntry(e wasmix.HistoryEntry) string {
	switch e.Kind {
	case domain.KindSaveRender:
		var p domain.SaveRenderPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return "(undecodable payload)"
		}
		return fmt.Sprintf("%s (%s)", p.Path, humanize.Bytes(p.Bytes))
	case domain.KindSnapshot:
		var st domain.JournalState
		if err := json.Unmarshal(e.Payload, &st); err != nil {
			return "(undecodable payload)"
		}
		return fmt.Sprintf("%d renders folded through seq %d", len(st.Renders), st.LastSeq)
	default:
		return string(e.Payload)
	}
}
