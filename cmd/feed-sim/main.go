// Command feed-sim replays a scripted sequence of last_action values
// into a match record, standing in for the upstream scoring feed during
// rehearsals and local development.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/NimnaKs/CG-COMPOSER/internal/adapters/repository"
	"github.com/NimnaKs/CG-COMPOSER/internal/domain/model"
	"github.com/NimnaKs/CG-COMPOSER/pkg/logger"
)

// defaultScript mixes allow-listed actions with ones the composer is
// expected to discard, so the alert filter can be observed end to end.
var defaultScript = []string{
	"4", "WICKET", "6", "NOBALL", "SCORE_TABLE",
	"4", "TOSS", "WIDE", "WINNER",
}

type options struct {
	storePath string
	matchID   string
	interval  time.Duration
	script    []string
	loop      bool
}

func main() {
	opts := &options{}

	root := &cobra.Command{
		Use:   "feed-sim",
		Short: "Replay scripted match actions into the document store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
		SilenceUsage: true,
	}
	root.Flags().StringVar(&opts.storePath, "store", "", "document store base path (required)")
	root.Flags().StringVar(&opts.matchID, "match", "demo-match", "match record id to drive")
	root.Flags().DurationVar(&opts.interval, "interval", 30*time.Second, "delay between actions")
	root.Flags().StringSliceVar(&opts.script, "actions", defaultScript, "action values to replay")
	root.Flags().BoolVar(&opts.loop, "loop", false, "restart the script when it ends")
	_ = root.MarkFlagRequired("store")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options) error {
	if err := logger.Init(); err != nil {
		return err
	}
	log := logger.Get().Named("feed-sim")

	store, err := repository.NewDiskStore(opts.storePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	if err := ensureMatch(ctx, store, opts.matchID); err != nil {
		return err
	}

	log.Info(ctx, "replaying actions",
		logger.String("match", opts.matchID),
		logger.Int("count", len(opts.script)),
		logger.Duration("interval", opts.interval),
	)

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		if i >= len(opts.script) {
			if !opts.loop {
				log.Info(ctx, "script finished")
				return nil
			}
			i = 0
		}
		action := opts.script[i]
		if err := store.Update(ctx, "demo-matches", opts.matchID, repository.Document{
			"last_action": action,
			"lastUpdated": model.Timestamp(time.Now().UTC()),
		}); err != nil {
			return fmt.Errorf("write action %q: %w", action, err)
		}
		log.Info(ctx, "action emitted", logger.String("action", action))

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ensureMatch seeds a minimal match record so the composer can select it.
func ensureMatch(ctx context.Context, store repository.Store, matchID string) error {
	if _, err := store.Get(ctx, "demo-matches", matchID); err == nil {
		return nil
	}
	return store.Upsert(ctx, "demo-matches", matchID, repository.Document{
		"matchTitle":      "Feed Simulator Match",
		"location":        "Local",
		"matchTime":       model.Timestamp(time.Now().UTC()),
		"team1":           map[string]any{"id": "TEAM-A"},
		"team2":           map[string]any{"id": "TEAM-B"},
		"tournamentTitle": map[string]any{"id": "SIMULATED"},
		"ticker_preview":  "",
		"ticker_live":     "",
		"lastUpdated":     model.Timestamp(time.Now().UTC()),
	})
}
