package domain

import "time"

// AuctionStatus represents the lifecycle state of an auction event.
type AuctionStatus string

const (
	StatusScheduled AuctionStatus = "SCHEDULED"
	StatusActive    AuctionStatus = "ACTIVE"
	StatusEnded     AuctionStatus = "ENDED"
)

// Auction is the container event a koi is auctioned in. Only its status
// matters to the bidding core; the server may report status values beyond
// the known constants and anything other than ACTIVE is treated as ended.
type Auction struct {
	ID        int64         `json:"id"`
	Title     string        `json:"title"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Status    AuctionStatus `json:"status"`
}

// IsOngoing reports whether bidding and live subscriptions are permitted.
func (a Auction) IsOngoing() bool {
	return a.Status == StatusActive
}

// IsEnded is the complement of IsOngoing: a scheduled auction does not
// accept bids either, so for bidding purposes it counts as ended.
func (a Auction) IsEnded() bool {
	return !a.IsOngoing()
}
