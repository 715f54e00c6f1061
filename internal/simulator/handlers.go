package simulator

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/lcaohoanq/koibid/internal/auction/domain"
	"github.com/lcaohoanq/koibid/internal/bidding"
	"go.uber.org/zap"
)

// WSHandler consumes inbound WebSocket messages from the hub and applies
// them to the store: subscription control messages move clients between
// topic groups, submitted bids are validated against the authoritative state
// and, when accepted, broadcast to the koi's topic.
type WSHandler struct {
	store *Store
	hub   *Hub
}

func NewWSHandler(store *Store, hub *Hub) *WSHandler {
	return &WSHandler{store: store, hub: hub}
}

// ListenForMessages drains the hub's inbound channel until ctx is cancelled.
func (h *WSHandler) ListenForMessages(ctx context.Context) {
	log.Info("Simulator WS handler started")
	for {
		select {
		case <-ctx.Done():
			log.Info("Simulator WS handler stopped")
			return
		case msg := <-h.hub.InboundMessages:
			h.processMessage(msg.Client, msg.Data)
		}
	}
}

func (h *WSHandler) processMessage(client *Client, data []byte) {
	var base bidding.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		h.sendErrorToClient(client, "invalid message format")
		return
	}
	switch base.Type {
	case bidding.MessageTypeSubscribe:
		var msg bidding.SubscribeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendErrorToClient(client, "invalid subscribe message")
			return
		}
		h.hub.SubscribeClient(client, msg.Payload.Topic)
	case bidding.MessageTypeUnsubscribe:
		var msg bidding.SubscribeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendErrorToClient(client, "invalid unsubscribe message")
			return
		}
		h.hub.UnsubscribeClient(client, msg.Payload.Topic)
	case bidding.MessageTypeSubmitBid:
		h.handleSubmitBid(client, data)
	default:
		h.sendErrorToClient(client, "unknown message type")
	}
}

func (h *WSHandler) handleSubmitBid(client *Client, data []byte) {
	var msg bidding.SubmitBidMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendErrorToClient(client, "invalid bid message format")
		return
	}
	payload := msg.Payload
	if payload.BidderToken == "" {
		h.sendErrorToClient(client, "missing bidder token")
		return
	}

	bid, err := h.store.PlaceBid(payload.AuctionKoiID, payload.BidAmount, bidderNameFromToken(payload.BidderToken))
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			h.sendErrorToClient(client, verr.Error())
		case errors.Is(err, domain.ErrAuctionKoiNotFound):
			h.sendErrorToClient(client, "unknown auction koi")
		case errors.Is(err, domain.ErrAuctionNotActive):
			h.sendErrorToClient(client, "auction is not active")
		default:
			h.sendErrorToClient(client, "failed to place bid")
		}
		return
	}

	h.BroadcastBid(bid, false)
}

// BroadcastBid publishes an accepted bid to every subscriber of the koi's
// topic. isSold marks the terminal broadcast for the koi.
func (h *WSHandler) BroadcastBid(bid domain.Bid, isSold bool) {
	update := bidding.NewBidUpdateMessage(bidding.BidUpdatePayload{
		AuctionKoiID: bid.AuctionKoiID,
		BidAmount:    bid.Amount,
		BidderName:   bid.BidderName,
		IsSold:       isSold,
		Timestamp:    bid.Timestamp,
	})
	data, err := json.Marshal(update)
	if err != nil {
		log.Error("Failed to marshal bid update", zap.Error(err))
		return
	}
	h.hub.BroadcastToTopic(bidding.TopicForKoi(bid.AuctionKoiID), data)
}

func (h *WSHandler) sendErrorToClient(client *Client, errorMessage string) {
	data, err := json.Marshal(bidding.NewServerErrorMessage(errorMessage))
	if err != nil {
		log.Error("Failed to marshal server error message", zap.Error(err))
		return
	}
	select {
	case client.Send <- data:
	default:
		log.Warn("Client send channel full or closed, could not send error",
			zap.String("clientID", client.ID),
		)
	}
}

// bidderNameFromToken derives a display name from the opaque credential.
// The simulator has no auth layer, so the token doubles as identity.
func bidderNameFromToken(token string) string {
	const maxLen = 12
	if len(token) > maxLen {
		return token[:maxLen]
	}
	return token
}
