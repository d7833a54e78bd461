package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/michael-freling/selective-read-mode/internal/settings"
	"github.com/michael-freling/selective-read-mode/internal/trigger"
)

func newWatchCmd() *cobra.Command {
	var settleDelay time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Decide read mode for active-file events",
		Long: `Reads active-file-changed events as JSON lines from stdin and writes
set-view-mode commands as JSON lines to stdout for notes matching a rule.
Rule changes made to the settings file are picked up while running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			watcher, err := settings.NewWatcher(resolveSettingsPath(), slog.Default())
			if err != nil {
				return err
			}
			defer watcher.Close()

			go watcher.Run(ctx, func() {
				if err := store.Reload(ctx); err != nil {
					slog.Warn("failed to reload settings", slog.Any("error", err))
					return
				}
				slog.Info("reloaded settings", slog.Int("rules", len(store.Rules())))
			})

			trig := trigger.New(store, trigger.NewStreamHost(cmd.OutOrStdout()),
				trigger.WithSettleDelay(settleDelay),
				trigger.WithLogger(slog.Default()),
			)
			defer trig.Close()

			return runEventLoop(ctx, cmd.InOrStdin(), trig)
		},
	}

	cmd.Flags().DurationVar(&settleDelay, "settle-delay", trigger.DefaultSettleDelay, "time to let the host settle before deciding")

	return cmd
}

// runEventLoop feeds events from r to trig until r ends or ctx is done.
// Decisions still pending when r ends are allowed to complete.
func runEventLoop(ctx context.Context, r io.Reader, trig *trigger.Trigger) error {
	decoder := trigger.NewEventDecoder(r)
	events := make(chan *trigger.Event)
	errs := make(chan error, 1)

	go func() {
		for {
			event, err := decoder.Next()
			if errors.Is(err, trigger.ErrUnknownEvent) {
				slog.Warn("skipping event", slog.Any("error", err))
				continue
			}
			if err != nil {
				errs <- err
				return
			}

			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-events:
			trig.Handle(ctx, event)

		case err := <-errs:
			if errors.Is(err, io.EOF) {
				trig.Wait()
				return nil
			}
			return fmt.Errorf("failed to read events: %w", err)
		}
	}
}
