package simulator

import (
	"sync"
	"time"

	"github.com/lcaohoanq/koibid/internal/auction/domain"
	"github.com/lcaohoanq/koibid/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Store holds the simulator's in-memory auction state. It is the authority
// the SDK talks to during local development: highest valid bid wins, nothing
// is persisted.
type Store struct {
	mu          sync.Mutex
	auctions    map[int64]domain.Auction
	kois        map[int64]domain.Koi
	auctionKois map[int64]*domain.AuctionKoi
	bids        map[int64][]domain.Bid
}

func NewStore() *Store {
	return &Store{
		auctions:    make(map[int64]domain.Auction),
		kois:        make(map[int64]domain.Koi),
		auctionKois: make(map[int64]*domain.AuctionKoi),
		bids:        make(map[int64][]domain.Bid),
	}
}

// AddAuction seeds or replaces an auction.
func (s *Store) AddAuction(a domain.Auction) {
	s.mu.Lock()
	s.auctions[a.ID] = a
	s.mu.Unlock()
}

// AddKoi seeds or replaces a koi's display metadata.
func (s *Store) AddKoi(k domain.Koi) {
	s.mu.Lock()
	s.kois[k.ID] = k
	s.mu.Unlock()
}

// AddAuctionKoi seeds or replaces a biddable koi.
func (s *Store) AddAuctionKoi(ak domain.AuctionKoi) {
	s.mu.Lock()
	copied := ak
	s.auctionKois[ak.ID] = &copied
	s.mu.Unlock()
}

// GetAuction returns an auction snapshot.
func (s *Store) GetAuction(auctionID int64) (domain.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[auctionID]
	if !ok {
		return domain.Auction{}, domain.ErrAuctionNotFound
	}
	return a, nil
}

// GetAuctionKoi returns a koi snapshot, checking it belongs to the auction.
func (s *Store) GetAuctionKoi(auctionID, auctionKoiID int64) (domain.AuctionKoi, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ak, ok := s.auctionKois[auctionKoiID]
	if !ok || ak.AuctionID != auctionID {
		return domain.AuctionKoi{}, domain.ErrAuctionKoiNotFound
	}
	return *ak, nil
}

// GetKoi returns display metadata for a fish.
func (s *Store) GetKoi(koiID int64) (domain.Koi, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.kois[koiID]
	if !ok {
		return domain.Koi{}, domain.ErrKoiNotFound
	}
	return k, nil
}

// GetBids returns the bid history for a koi, oldest first.
func (s *Store) GetBids(auctionKoiID int64) ([]domain.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctionKois[auctionKoiID]; !ok {
		return nil, domain.ErrAuctionKoiNotFound
	}
	history := make([]domain.Bid, len(s.bids[auctionKoiID]))
	copy(history, s.bids[auctionKoiID])
	return history, nil
}

// PlaceBid applies a bid against the authoritative state: the owning auction
// must be active and the amount must pass the same validation the client
// runs. On success the current bid moves and the accepted bid is returned
// for broadcasting.
func (s *Store) PlaceBid(auctionKoiID int64, amount float64, bidderName string) (domain.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ak, ok := s.auctionKois[auctionKoiID]
	if !ok {
		return domain.Bid{}, domain.ErrAuctionKoiNotFound
	}
	auction, ok := s.auctions[ak.AuctionID]
	if !ok {
		return domain.Bid{}, domain.ErrAuctionNotFound
	}
	if !auction.IsOngoing() {
		log.Warn("Bid rejected: auction not active",
			zap.Int64("auctionKoiID", auctionKoiID),
			zap.String("status", string(auction.Status)),
		)
		return domain.Bid{}, domain.ErrAuctionNotActive
	}
	if err := domain.ValidateBid(amount, *ak); err != nil {
		log.Warn("Bid rejected by validation",
			zap.Int64("auctionKoiID", auctionKoiID),
			zap.Float64("amount", amount),
			zap.Error(err),
		)
		return domain.Bid{}, err
	}

	ak.CurrentBid = amount
	bid := domain.Bid{
		AuctionKoiID: auctionKoiID,
		Amount:       amount,
		BidderName:   bidderName,
		Timestamp:    time.Now(),
	}
	s.bids[auctionKoiID] = append(s.bids[auctionKoiID], bid)

	log.Info("Bid placed",
		zap.Int64("auctionKoiID", auctionKoiID),
		zap.String("bidder", bidderName),
		zap.Float64("amount", amount),
	)
	return bid, nil
}

// MarkSold freezes a koi at its current bid and returns the final snapshot.
func (s *Store) MarkSold(auctionKoiID int64) (domain.AuctionKoi, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ak, ok := s.auctionKois[auctionKoiID]
	if !ok {
		return domain.AuctionKoi{}, domain.ErrAuctionKoiNotFound
	}
	ak.IsSold = true
	log.Info("Auction koi sold",
		zap.Int64("auctionKoiID", auctionKoiID),
		zap.Float64("finalPrice", ak.CurrentBid),
	)
	return *ak, nil
}

// EndAuction moves an auction to ENDED.
func (s *Store) EndAuction(auctionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[auctionID]
	if !ok {
		return domain.ErrAuctionNotFound
	}
	a.Status = domain.StatusEnded
	s.auctions[auctionID] = a
	log.Info("Auction ended", zap.Int64("auctionID", auctionID))
	return nil
}
