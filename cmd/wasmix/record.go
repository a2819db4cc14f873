package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yukihamada/wasmix-sub003/internal/cliconfig"
	"github.com/yukihamada/wasmix-sub003/internal/domain"
)

func newRecordCommand(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	var (
		out      string
		duration time.Duration
		monitor  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Capture audio and commit the take as a WAV render",
		Long: `Open the default input device, capture audio, and commit the take to the
store as a 16-bit mono WAV render. Recording runs until the duration elapses
or the process is interrupted; the render is saved either way. The committed
save is appended to the session journal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, log, err := buildInstance(cmd, cfg, *cfgPath, true)
			if err != nil {
				return err
			}

			ctx, stopSignals := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stopSignals()

			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("open session: %w", err)
			}
			defer func() {
				if err := w.Stop(); err != nil {
					log.Warn().Err(err).Msg("session close")
				}
			}()

			if err := w.Monitor(); err != nil {
				return fmt.Errorf("open device: %w", err)
			}

			if monitor > 0 {
				log.Info().Dur("for", monitor).Msg("monitoring input")
				select {
				case <-ctx.Done():
					// Interrupted before recording began: nothing to save.
					return w.StopCapture()
				case <-time.After(monitor):
				}
			}

			if err := w.Record(); err != nil {
				return err
			}
			st := w.CaptureStatus()
			if duration > 0 {
				log.Info().Int("sample_rate", st.SampleRate).Dur("for", duration).Msg("recording")
			} else {
				log.Info().Int("sample_rate", st.SampleRate).Msg("recording, interrupt to finish")
			}

			if duration > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(duration):
				}
			} else {
				<-ctx.Done()
			}

			if err := w.StopCapture(); err != nil {
				return err
			}
			if n := w.Overruns(); n > 0 {
				log.Warn().Uint64("blocks", n).Msg("capture ring overran, oldest blocks were dropped")
			}

			ren, err := w.SaveRender(out)
			if err != nil {
				return fmt.Errorf("save render: %w", err)
			}
			log.Info().
				Str("key", ren.Path).
				Str("size", humanize.Bytes(ren.Bytes)).
				Msg("render saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "renders/"+domain.DefaultRenderName, "store key to save the render under")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop recording after this long (0 records until interrupted)")
	cmd.Flags().DurationVar(&monitor, "monitor", 0, "monitor the input for this long before recording starts")

	return cmd
}
