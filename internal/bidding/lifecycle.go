package bidding

import (
	"sync"

	"github.com/lcaohoanq/koibid/internal/auction/domain"
	"go.uber.org/zap"
)

// LifecycleTracker watches auction status snapshots and fires a hook on the
// ongoing-to-ended transition, so the owner can close its session instead of
// leaving a live subscription dangling against a finished auction.
type LifecycleTracker struct {
	mu      sync.Mutex
	primed  bool
	ongoing bool
	onEnded func()
}

// NewLifecycleTracker creates a tracker invoking onEnded when a previously
// ongoing auction stops being ongoing.
func NewLifecycleTracker(onEnded func()) *LifecycleTracker {
	return &LifecycleTracker{onEnded: onEnded}
}

// Observe feeds the tracker a fresh auction snapshot, obtained by re-fetching
// or from a status push. Only the ongoing-to-ended edge triggers the hook.
func (t *LifecycleTracker) Observe(auction domain.Auction) {
	t.mu.Lock()
	wasOngoing := t.primed && t.ongoing
	t.ongoing = auction.IsOngoing()
	t.primed = true
	fire := wasOngoing && auction.IsEnded()
	cb := t.onEnded
	t.mu.Unlock()

	if fire {
		log.Info("Auction ended, triggering session teardown",
			zap.Int64("auctionID", auction.ID),
			zap.String("status", string(auction.Status)),
		)
		if cb != nil {
			cb()
		}
	}
}

// Ongoing reports the last observed bidding permission.
func (t *LifecycleTracker) Ongoing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.primed && t.ongoing
}
