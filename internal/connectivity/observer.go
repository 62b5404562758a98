package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Observer is the single source of truth for connectivity state. All
// components that previously kept their own offline flag subscribe
// here instead.
type Observer struct {
	mu     sync.Mutex
	online bool
	subs   []chan bool
	logger *slog.Logger
}

func NewObserver(logger *slog.Logger) *Observer {
	return &Observer{
		online: true,
		logger: logger.With("component", "connectivity"),
	}
}

// Online reports the last known connectivity state.
func (o *Observer) Online() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.online
}

// Set records a state change and notifies subscribers. Setting the
// same state twice is a no-op.
func (o *Observer) Set(online bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.online == online {
		return
	}
	o.online = online
	o.logger.Info("connectivity changed", "online", online)

	for _, ch := range o.subs {
		select {
		case ch <- online:
		default:
			// Slow subscriber keeps its stale value; the next change
			// will find the buffer drained or overwrite is skipped.
		}
	}
}

// Subscribe returns a channel receiving each state change.
func (o *Observer) Subscribe() <-chan bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan bool, 1)
	o.subs = append(o.subs, ch)
	return ch
}

// Run probes the given URL on an interval and feeds the result into
// the observer until ctx is done.
func (o *Observer) Run(ctx context.Context, client *http.Client, probeURL string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Set(o.probe(ctx, client, probeURL))
		}
	}
}

func (o *Observer) probe(ctx context.Context, client *http.Client, probeURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
