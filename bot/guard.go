package bot

import (
	"context"
	"sync"
	"time"
)

const guardSweepInterval = 30 * time.Second

// callbackGuard remembers recently processed callback-query IDs so a
// duplicate tap or transport retransmission does not repeat the forward side
// effect. The set is cleared wholesale on every sweep; the window only needs
// to outlive the transport's retry horizon.
type callbackGuard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newCallbackGuard() *callbackGuard {
	return &callbackGuard{seen: make(map[string]struct{})}
}

// firstTime atomically checks and records an activation identifier.
func (g *callbackGuard) firstTime(id string) bool {
	if id == "" {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[id]; ok {
		return false
	}
	g.seen[id] = struct{}{}
	return true
}

func (g *callbackGuard) run(ctx context.Context) {
	ticker := time.NewTicker(guardSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.mu.Lock()
			g.seen = make(map[string]struct{})
			g.mu.Unlock()
		}
	}
}
