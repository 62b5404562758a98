package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"storyshare/internal/domain"
	"storyshare/internal/watcher"
)

var watchNotifications bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll for new stories until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// Keep connectivity state fresh for the duration of the watch.
		// The probe deliberately bypasses the caching transport: a
		// cached response says nothing about the network.
		probeClient := &http.Client{Timeout: cfg.API.Timeout}
		go observer.Run(ctx, probeClient, apiOrigin(cfg.API.BaseURL), cfg.Watch.Interval)

		// Surface connectivity transitions while the watch runs.
		changes := observer.Subscribe()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case online := <-changes:
					if online {
						fmt.Fprintln(os.Stderr, "back online")
					} else {
						fmt.Fprintln(os.Stderr, "connection lost; polls will fail until it returns")
					}
				}
			}
		}()

		w := watcher.New(
			apiClient,
			staticPermission(watchNotifications),
			terminalNotifier{},
			watcher.Config{
				Interval:      cfg.Watch.Interval,
				PreviewLength: cfg.Watch.PreviewLength,
			},
			logger,
		)
		w.Start(ctx)
		defer w.Stop()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		return nil
	},
}

// staticPermission stands in for a platform notification permission.
type staticPermission bool

func (p staticPermission) Granted() bool { return bool(p) }

// terminalNotifier renders change events to stdout; a desktop build
// would hand them to the platform notification service instead.
type terminalNotifier struct{}

func (terminalNotifier) Notify(_ context.Context, event domain.ChangeEvent) {
	fmt.Printf("New story added! %s: %s (%s)\n", event.Name, event.Preview, event.URL)
}

func init() {
	watchCmd.Flags().BoolVar(&watchNotifications, "notifications", true, "treat the notification permission as granted")
	rootCmd.AddCommand(watchCmd)
}
