package domain

import "time"

// BidMethod is display-only metadata; it does not affect bidding behavior.
type BidMethod string

const (
	MethodAscendingBid  BidMethod = "ASCENDING_BID"
	MethodDescendingBid BidMethod = "DESCENDING_BID"
	MethodSealedBid     BidMethod = "SEALED_BID"
	MethodFixedPrice    BidMethod = "FIXED_PRICE"
)

// AuctionKoi is one biddable koi within an auction. CurrentBid == 0 means
// no bid has been placed yet. Once IsSold is true, CurrentBid is frozen and
// no further bids are accepted.
type AuctionKoi struct {
	ID         int64     `json:"id"`
	AuctionID  int64     `json:"auction_id"`
	KoiID      int64     `json:"koi_id"`
	BasePrice  float64   `json:"base_price"`
	BidStep    float64   `json:"bid_step"`
	CurrentBid float64   `json:"current_bid"`
	IsSold     bool      `json:"is_sold"`
	BidMethod  BidMethod `json:"bid_method"`
}

// Koi holds display metadata about the fish itself. The bidding core
// forwards it verbatim to the presentation layer.
type Koi struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Sex        string `json:"sex"`
	Length     int    `json:"length"`
	Age        int    `json:"age"`
	CategoryID int64  `json:"category_id"`
	Thumbnail  string `json:"thumbnail"`
}

// Bid is one accepted bid in the server-ordered history of an auction koi.
type Bid struct {
	AuctionKoiID int64     `json:"auction_koi_id"`
	Amount       float64   `json:"bid_amount"`
	BidderName   string    `json:"bidder_name"`
	Timestamp    time.Time `json:"bid_time"`
}

// Credential identifies the bidder to the server. The core treats it as
// opaque and forwards the token verbatim; issuance belongs to the auth layer.
type Credential struct {
	Token       string
	DisplayName string
}
