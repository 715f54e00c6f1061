package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextSuggestedBid(t *testing.T) {
	tests := []struct {
		name string
		koi  AuctionKoi
		want float64
	}{
		{
			name: "no_bid_yet_uses_base_price",
			koi:  AuctionKoi{BasePrice: 100, BidStep: 10, CurrentBid: 0},
			want: 110,
		},
		{
			name: "existing_bid_uses_current_bid",
			koi:  AuctionKoi{BasePrice: 100, BidStep: 10, CurrentBid: 150},
			want: 160,
		},
		{
			name: "current_bid_below_base_still_steps_from_current",
			koi:  AuctionKoi{BasePrice: 500, BidStep: 25, CurrentBid: 50},
			want: 75,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, NextSuggestedBid(tc.koi))
		})
	}
}

func TestValidateBid(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		koi      AuctionKoi
		wantKind ValidationKind
	}{
		{
			name:   "first_bid_at_suggested_amount",
			amount: 110,
			koi:    AuctionKoi{BasePrice: 100, BidStep: 10, CurrentBid: 0},
		},
		{
			name:     "below_base_price",
			amount:   90,
			koi:      AuctionKoi{BasePrice: 100, BidStep: 10, CurrentBid: 0},
			wantKind: KindBelowBasePrice,
		},
		{
			name:     "below_minimum_increment",
			amount:   115,
			koi:      AuctionKoi{BasePrice: 100, BidStep: 10, CurrentBid: 110},
			wantKind: KindBelowMinimumIncrement,
		},
		{
			name:   "exactly_minimum_increment",
			amount: 120,
			koi:    AuctionKoi{BasePrice: 100, BidStep: 10, CurrentBid: 110},
		},
		{
			name:     "sold_rejects_any_amount",
			amount:   1000,
			koi:      AuctionKoi{BasePrice: 100, BidStep: 10, CurrentBid: 500, IsSold: true},
			wantKind: KindAuctionClosed,
		},
		{
			name:     "sold_wins_over_numeric_checks",
			amount:   1,
			koi:      AuctionKoi{BasePrice: 100, BidStep: 10, CurrentBid: 500, IsSold: true},
			wantKind: KindAuctionClosed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateBid(tc.amount, tc.koi)
			if tc.wantKind == "" {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tc.wantKind, verr.Kind)
		})
	}
}
