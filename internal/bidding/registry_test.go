package bidding

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_FanOut(t *testing.T) {
	r := NewRegistry()
	topic := TopicForKoi(100)

	var first, second []float64
	unsubFirst := r.Subscribe(topic, func(u BidUpdatePayload) {
		first = append(first, u.BidAmount)
	})
	defer unsubFirst()
	unsubSecond := r.Subscribe(topic, func(u BidUpdatePayload) {
		second = append(second, u.BidAmount)
	})

	r.Dispatch(topic, BidUpdatePayload{AuctionKoiID: 100, BidAmount: 110})
	require.Equal(t, []float64{110}, first)
	require.Equal(t, []float64{110}, second)

	unsubSecond()
	r.Dispatch(topic, BidUpdatePayload{AuctionKoiID: 100, BidAmount: 120})
	require.Equal(t, []float64{110, 120}, first)
	require.Equal(t, []float64{110}, second, "unsubscribed handler must not receive updates")
}

func TestRegistry_UnsubscribeIdempotent(t *testing.T) {
	r := NewRegistry()
	topic := TopicForKoi(7)

	var kept, removed int
	unsub := r.Subscribe(topic, func(BidUpdatePayload) { removed++ })
	defer r.Subscribe(topic, func(BidUpdatePayload) { kept++ })()

	unsub()
	require.NotPanics(t, unsub)
	unsub()

	r.Dispatch(topic, BidUpdatePayload{AuctionKoiID: 7, BidAmount: 50})
	require.Zero(t, removed)
	require.Equal(t, 1, kept, "double unsubscribe must not remove other subscribers")
}

func TestRegistry_UnknownTopicDropped(t *testing.T) {
	r := NewRegistry()
	require.NotPanics(t, func() {
		r.Dispatch(TopicForKoi(999), BidUpdatePayload{AuctionKoiID: 999, BidAmount: 10})
	})
}

func TestRoute(t *testing.T) {
	r := NewRegistry()
	route := Route(r)

	var got []BidUpdatePayload
	defer r.Subscribe(TopicForKoi(100), func(u BidUpdatePayload) {
		got = append(got, u)
	})()

	update, err := json.Marshal(NewBidUpdateMessage(BidUpdatePayload{
		AuctionKoiID: 100,
		BidAmount:    120,
		BidderName:   "carp_fan",
	}))
	require.NoError(t, err)

	route(update)
	require.Len(t, got, 1)
	require.Equal(t, 120.0, got[0].BidAmount)
	require.Equal(t, "carp_fan", got[0].BidderName)

	// Unknown types and garbage are dropped without touching subscribers.
	route([]byte(`{"type":"server_info","payload":{"message":"hi"}}`))
	route([]byte(`not json`))
	route([]byte(`{"type":"server_error","payload":{"error":"boom"}}`))
	require.Len(t, got, 1)
}
