package domain

import "fmt"

// ValidationKind classifies why a candidate bid was rejected locally.
type ValidationKind string

const (
	KindAuctionClosed         ValidationKind = "auction_closed"
	KindBelowBasePrice        ValidationKind = "below_base_price"
	KindBelowMinimumIncrement ValidationKind = "below_minimum_increment"
)

// ValidationError is returned by ValidateBid. It never reaches the server;
// the caller corrects the amount or learns the koi is closed.
type ValidationError struct {
	Kind   ValidationKind
	Amount float64
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindAuctionClosed:
		return "bid rejected: koi is already sold"
	case KindBelowBasePrice:
		return fmt.Sprintf("bid rejected: %.2f is below the base price", e.Amount)
	case KindBelowMinimumIncrement:
		return fmt.Sprintf("bid rejected: %.2f is below the current bid plus bid step", e.Amount)
	}
	return "bid rejected"
}

// NextSuggestedBid computes the lowest amount that would pass validation.
// It is a suggestion only; the bidder may override it before submitting.
func NextSuggestedBid(k AuctionKoi) float64 {
	if k.CurrentBid == 0 {
		return k.BasePrice + k.BidStep
	}
	return k.CurrentBid + k.BidStep
}

// ValidateBid decides whether amount is an acceptable bid for k.
// Rules are checked in order and the first failure wins: a sold koi must
// report closed, never "too low".
func ValidateBid(amount float64, k AuctionKoi) error {
	if k.IsSold {
		return &ValidationError{Kind: KindAuctionClosed, Amount: amount}
	}
	if amount < k.BasePrice {
		return &ValidationError{Kind: KindBelowBasePrice, Amount: amount}
	}
	if amount < k.CurrentBid+k.BidStep {
		return &ValidationError{Kind: KindBelowMinimumIncrement, Amount: amount}
	}
	return nil
}
