package bidding

import (
	"fmt"
	"time"
)

// MessageType identifies a WebSocket message on the bidding channel.
type MessageType string

const (
	MessageTypeSubscribe   MessageType = "subscribe"    // client asks to follow a topic
	MessageTypeUnsubscribe MessageType = "unsubscribe"  // client stops following a topic
	MessageTypeSubmitBid   MessageType = "submit_bid"   // client places a bid
	MessageTypeBidUpdate   MessageType = "bid_update"   // server broadcasts the new highest bid
	MessageTypeServerError MessageType = "server_error" // server-side rejection or failure
)

// BaseMessage is the envelope shared by all messages; Type selects the payload shape.
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// TopicForKoi builds the topic key an auction koi's updates are published on.
func TopicForKoi(auctionKoiID int64) string {
	return fmt.Sprintf("auction_koi/%d", auctionKoiID)
}

// SubscribeMessage follows or leaves a topic, depending on Type.
type SubscribeMessage struct {
	BaseMessage
	Payload struct {
		Topic string `json:"topic"`
	} `json:"payload"`
}

func NewSubscribeMessage(topic string) SubscribeMessage {
	msg := SubscribeMessage{BaseMessage: BaseMessage{Type: MessageTypeSubscribe}}
	msg.Payload.Topic = topic
	return msg
}

func NewUnsubscribeMessage(topic string) SubscribeMessage {
	msg := SubscribeMessage{BaseMessage: BaseMessage{Type: MessageTypeUnsubscribe}}
	msg.Payload.Topic = topic
	return msg
}

// SubmitBidPayload carries a bid to the server. The bidder token is opaque
// to the core and forwarded verbatim.
type SubmitBidPayload struct {
	AuctionKoiID int64   `json:"auction_koi_id"`
	BidAmount    float64 `json:"bid_amount"`
	BidderToken  string  `json:"bidder_token"`
}

type SubmitBidMessage struct {
	BaseMessage
	Payload SubmitBidPayload `json:"payload"`
}

func NewSubmitBidMessage(p SubmitBidPayload) SubmitBidMessage {
	return SubmitBidMessage{
		BaseMessage: BaseMessage{Type: MessageTypeSubmitBid},
		Payload:     p,
	}
}

// BidUpdatePayload is the server broadcast applied by sessions. IsSold marks
// the terminal update for a koi.
type BidUpdatePayload struct {
	AuctionKoiID int64     `json:"auction_koi_id"`
	BidAmount    float64   `json:"bid_amount"`
	BidderName   string    `json:"bidder_name,omitempty"`
	IsSold       bool      `json:"is_sold"`
	Timestamp    time.Time `json:"timestamp"`
}

type BidUpdateMessage struct {
	BaseMessage
	Payload BidUpdatePayload `json:"payload"`
}

func NewBidUpdateMessage(p BidUpdatePayload) BidUpdateMessage {
	return BidUpdateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeBidUpdate},
		Payload:     p,
	}
}

type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Error string `json:"error"`
	} `json:"payload"`
}

func NewServerErrorMessage(errorMessage string) ServerErrorMessage {
	msg := ServerErrorMessage{BaseMessage: BaseMessage{Type: MessageTypeServerError}}
	msg.Payload.Error = errorMessage
	return msg
}
