package simulator

import (
	"testing"

	"github.com/lcaohoanq/koibid/internal/auction/domain"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T, status domain.AuctionStatus) *Store {
	t.Helper()
	store := NewStore()
	store.AddAuction(domain.Auction{ID: 1, Title: "Test Auction", Status: status})
	store.AddAuctionKoi(domain.AuctionKoi{
		ID: 100, AuctionID: 1, KoiID: 10,
		BasePrice: 100, BidStep: 10,
		BidMethod: domain.MethodAscendingBid,
	})
	return store
}

func TestStore_PlaceBid(t *testing.T) {
	store := seedStore(t, domain.StatusActive)

	bid, err := store.PlaceBid(100, 110, "carp_fan")
	require.NoError(t, err)
	require.Equal(t, 110.0, bid.Amount)

	koi, err := store.GetAuctionKoi(1, 100)
	require.NoError(t, err)
	require.Equal(t, 110.0, koi.CurrentBid)

	history, err := store.GetBids(100)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "carp_fan", history[0].BidderName)
}

func TestStore_PlaceBidValidation(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(*Store)
		amount   float64
		wantKind domain.ValidationKind
	}{
		{
			name:     "below_base_price",
			amount:   90,
			wantKind: domain.KindBelowBasePrice,
		},
		{
			name: "below_minimum_increment",
			prepare: func(s *Store) {
				_, err := s.PlaceBid(100, 110, "a")
				require.NoError(t, err)
			},
			amount:   115,
			wantKind: domain.KindBelowMinimumIncrement,
		},
		{
			name: "sold_koi_reports_closed",
			prepare: func(s *Store) {
				_, err := s.MarkSold(100)
				require.NoError(t, err)
			},
			amount:   1000,
			wantKind: domain.KindAuctionClosed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := seedStore(t, domain.StatusActive)
			if tc.prepare != nil {
				tc.prepare(store)
			}
			_, err := store.PlaceBid(100, tc.amount, "carp_fan")
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tc.wantKind, verr.Kind)
		})
	}
}

func TestStore_PlaceBidNotActiveAuction(t *testing.T) {
	store := seedStore(t, domain.StatusScheduled)
	_, err := store.PlaceBid(100, 110, "carp_fan")
	require.ErrorIs(t, err, domain.ErrAuctionNotActive)
}

func TestStore_EndAuctionStopsBidding(t *testing.T) {
	store := seedStore(t, domain.StatusActive)
	_, err := store.PlaceBid(100, 110, "carp_fan")
	require.NoError(t, err)

	require.NoError(t, store.EndAuction(1))
	_, err = store.PlaceBid(100, 200, "carp_fan")
	require.ErrorIs(t, err, domain.ErrAuctionNotActive)

	auction, err := store.GetAuction(1)
	require.NoError(t, err)
	require.True(t, auction.IsEnded())
}

func TestStore_MarkSoldFreezesPrice(t *testing.T) {
	store := seedStore(t, domain.StatusActive)
	_, err := store.PlaceBid(100, 500, "carp_fan")
	require.NoError(t, err)

	sold, err := store.MarkSold(100)
	require.NoError(t, err)
	require.True(t, sold.IsSold)
	require.Equal(t, 500.0, sold.CurrentBid)

	_, err = store.PlaceBid(100, 1000, "late_bidder")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, domain.KindAuctionClosed, verr.Kind)

	koi, err := store.GetAuctionKoi(1, 100)
	require.NoError(t, err)
	require.Equal(t, 500.0, koi.CurrentBid, "sold price must stay frozen")
}

func TestStore_NotFound(t *testing.T) {
	store := seedStore(t, domain.StatusActive)

	_, err := store.GetAuction(999)
	require.ErrorIs(t, err, domain.ErrAuctionNotFound)

	_, err = store.GetAuctionKoi(1, 999)
	require.ErrorIs(t, err, domain.ErrAuctionKoiNotFound)

	_, err = store.GetAuctionKoi(2, 100)
	require.ErrorIs(t, err, domain.ErrAuctionKoiNotFound, "koi must belong to the requested auction")

	_, err = store.PlaceBid(999, 100, "x")
	require.ErrorIs(t, err, domain.ErrAuctionKoiNotFound)
}
