package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lcaohoanq/koibid/internal/auction/domain"
	"github.com/lcaohoanq/koibid/internal/shared/logger"
	"go.uber.org/zap"
	"resty.dev/v3"
)

var log = logger.GetLogger()

// Client retrieves auction metadata over the backend's REST API. It covers
// the retrieval collaborator the bidding core depends on: initial snapshots,
// koi display details and bid history.
type Client struct {
	http *resty.Client
}

// NewClient creates a client rooted at baseURL, e.g. http://localhost:4000/api/v1.
func NewClient(baseURL string) *Client {
	return &Client{
		http: resty.New().SetBaseURL(baseURL),
	}
}

// Close releases the underlying HTTP resources.
func (c *Client) Close() error {
	return c.http.Close()
}

// FetchAuction returns the auction snapshot, or ErrAuctionNotFound when the
// identifier does not resolve.
func (c *Client) FetchAuction(ctx context.Context, auctionID int64) (domain.Auction, error) {
	var auction domain.Auction
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&auction).
		Get(fmt.Sprintf("/auctions/%d", auctionID))
	if err != nil {
		return domain.Auction{}, fmt.Errorf("fetch auction %d: %w", auctionID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return domain.Auction{}, fmt.Errorf("fetch auction %d: %w", auctionID, domain.ErrAuctionNotFound)
	}
	if !resp.IsSuccess() {
		return domain.Auction{}, fmt.Errorf("fetch auction %d: unexpected status %d", auctionID, resp.StatusCode())
	}
	log.Debug("Fetched auction",
		zap.Int64("auctionID", auctionID),
		zap.String("status", string(auction.Status)),
	)
	return auction, nil
}

// FetchAuctionKoi returns the biddable koi snapshot, or ErrAuctionKoiNotFound
// when the identifiers do not resolve.
func (c *Client) FetchAuctionKoi(ctx context.Context, auctionID, auctionKoiID int64) (domain.AuctionKoi, error) {
	var koi domain.AuctionKoi
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&koi).
		Get(fmt.Sprintf("/auctions/%d/kois/%d", auctionID, auctionKoiID))
	if err != nil {
		return domain.AuctionKoi{}, fmt.Errorf("fetch auction koi %d: %w", auctionKoiID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return domain.AuctionKoi{}, fmt.Errorf("fetch auction koi %d: %w", auctionKoiID, domain.ErrAuctionKoiNotFound)
	}
	if !resp.IsSuccess() {
		return domain.AuctionKoi{}, fmt.Errorf("fetch auction koi %d: unexpected status %d", auctionKoiID, resp.StatusCode())
	}
	return koi, nil
}

// FetchKoi returns display metadata about the fish itself.
func (c *Client) FetchKoi(ctx context.Context, koiID int64) (domain.Koi, error) {
	var koi domain.Koi
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&koi).
		Get(fmt.Sprintf("/kois/%d", koiID))
	if err != nil {
		return domain.Koi{}, fmt.Errorf("fetch koi %d: %w", koiID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return domain.Koi{}, fmt.Errorf("fetch koi %d: %w", koiID, domain.ErrKoiNotFound)
	}
	if !resp.IsSuccess() {
		return domain.Koi{}, fmt.Errorf("fetch koi %d: unexpected status %d", koiID, resp.StatusCode())
	}
	return koi, nil
}

// FetchBidHistory returns the server-ordered bid history for a koi, oldest first.
func (c *Client) FetchBidHistory(ctx context.Context, auctionKoiID int64) ([]domain.Bid, error) {
	var bids []domain.Bid
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&bids).
		Get(fmt.Sprintf("/auction-kois/%d/bids", auctionKoiID))
	if err != nil {
		return nil, fmt.Errorf("fetch bid history for koi %d: %w", auctionKoiID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("fetch bid history for koi %d: %w", auctionKoiID, domain.ErrAuctionKoiNotFound)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetch bid history for koi %d: unexpected status %d", auctionKoiID, resp.StatusCode())
	}
	return bids, nil
}
