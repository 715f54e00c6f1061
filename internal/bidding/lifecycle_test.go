package bidding

import (
	"testing"

	"github.com/lcaohoanq/koibid/internal/auction/domain"
	"github.com/stretchr/testify/require"
)

func TestLifecycleTracker_FiresOnEndedTransition(t *testing.T) {
	fired := 0
	tracker := NewLifecycleTracker(func() { fired++ })

	tracker.Observe(domain.Auction{ID: 1, Status: domain.StatusActive})
	require.True(t, tracker.Ongoing())
	require.Zero(t, fired)

	tracker.Observe(domain.Auction{ID: 1, Status: domain.StatusEnded})
	require.False(t, tracker.Ongoing())
	require.Equal(t, 1, fired)

	// Repeated ended observations must not re-fire.
	tracker.Observe(domain.Auction{ID: 1, Status: domain.StatusEnded})
	require.Equal(t, 1, fired)
}

func TestLifecycleTracker_NoFireWithoutOngoing(t *testing.T) {
	fired := 0
	tracker := NewLifecycleTracker(func() { fired++ })

	// First observation is already ended: nothing to tear down.
	tracker.Observe(domain.Auction{ID: 1, Status: domain.StatusEnded})
	require.Zero(t, fired)

	tracker.Observe(domain.Auction{ID: 1, Status: domain.StatusScheduled})
	require.Zero(t, fired)
}

func TestLifecycleTracker_RefiresAfterReactivation(t *testing.T) {
	fired := 0
	tracker := NewLifecycleTracker(func() { fired++ })

	tracker.Observe(domain.Auction{ID: 1, Status: domain.StatusActive})
	tracker.Observe(domain.Auction{ID: 1, Status: domain.StatusEnded})
	tracker.Observe(domain.Auction{ID: 1, Status: domain.StatusActive})
	tracker.Observe(domain.Auction{ID: 1, Status: domain.StatusEnded})
	require.Equal(t, 2, fired)
}

func TestLifecycleTracker_UnknownStatusCountsAsEnded(t *testing.T) {
	fired := 0
	tracker := NewLifecycleTracker(func() { fired++ })

	tracker.Observe(domain.Auction{ID: 1, Status: domain.StatusActive})
	tracker.Observe(domain.Auction{ID: 1, Status: "CANCELLED"})
	require.Equal(t, 1, fired)
}
