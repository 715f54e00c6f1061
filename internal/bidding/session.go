package bidding

import (
	"context"
	"fmt"
	"sync"

	"github.com/lcaohoanq/koibid/internal/auction/domain"
	"go.uber.org/zap"
)

// Transport is the slice of the connection manager a session depends on.
// *ConnManager satisfies it; tests substitute an in-memory fake.
type Transport interface {
	Connect(ctx context.Context, onDone func(error)) error
	Send(v any) error
	Acquire()
	Release()
	State() ConnState
}

// SnapshotFetcher retrieves the auction and koi snapshot a session starts
// from. It is an external collaborator; the REST client implements it.
type SnapshotFetcher interface {
	FetchAuction(ctx context.Context, auctionID int64) (domain.Auction, error)
	FetchAuctionKoi(ctx context.Context, auctionID, auctionKoiID int64) (domain.AuctionKoi, error)
}

// SessionState is the lifecycle state of a bidding session.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionLoading
	SessionReady
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionLoading:
		return "loading"
	case SessionReady:
		return "ready"
	case SessionClosed:
		return "closed"
	}
	return "idle"
}

// Session is the per-koi bidding controller. It loads the initial snapshot,
// subscribes to the koi's topic while the auction is active, keeps a local
// copy of the current bid that is monotonic under out-of-order delivery, and
// validates bids before they go out. The local current bid is never mutated
// on submit; only the server broadcast applied via ApplyUpdate moves it, so
// the server stays the single writer of truth.
type Session struct {
	auctionID    int64
	auctionKoiID int64
	cred         domain.Credential
	conn         Transport
	registry     *Registry
	fetcher      SnapshotFetcher

	mu          sync.Mutex
	state       SessionState
	readOnly    bool
	acquired    bool
	gen         uint64
	auction     domain.Auction
	koi         domain.AuctionKoi
	suggested   float64
	unsubscribe func()
	onUpdate    func(domain.Bid)
}

// NewSession creates a session for one auction koi. The credential is opaque
// and forwarded verbatim on every submitted bid.
func NewSession(auctionID, auctionKoiID int64, cred domain.Credential, conn Transport, registry *Registry, fetcher SnapshotFetcher) *Session {
	return &Session{
		auctionID:    auctionID,
		auctionKoiID: auctionKoiID,
		cred:         cred,
		conn:         conn,
		registry:     registry,
		fetcher:      fetcher,
	}
}

// OnUpdate registers the consumer callback invoked whenever an inbound
// update is applied (price raised or koi marked sold). Set it before Open.
func (s *Session) OnUpdate(fn func(domain.Bid)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// Open loads the snapshot and, for an active auction, connects and
// subscribes. For a non-active auction the session becomes read-only Ready
// without touching the network: a koi that cannot legally receive bids gets
// no live connection. A failed fetch or dial leaves the session in Loading;
// calling Open again retries.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.state == SessionClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state == SessionReady {
		s.mu.Unlock()
		return nil
	}
	s.state = SessionLoading
	gen := s.gen
	s.mu.Unlock()

	auction, err := s.fetcher.FetchAuction(ctx, s.auctionID)
	if err != nil {
		return fmt.Errorf("load auction %d: %w", s.auctionID, err)
	}
	koi, err := s.fetcher.FetchAuctionKoi(ctx, s.auctionID, s.auctionKoiID)
	if err != nil {
		return fmt.Errorf("load auction koi %d: %w", s.auctionKoiID, err)
	}

	s.mu.Lock()
	if s.gen != gen || s.state == SessionClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.auction = auction
	s.koi = koi
	s.suggested = domain.NextSuggestedBid(koi)
	if !auction.IsOngoing() {
		s.readOnly = true
		s.state = SessionReady
		s.mu.Unlock()
		log.Info("Auction is not active, session opened read-only",
			zap.Int64("auctionID", s.auctionID),
			zap.Int64("auctionKoiID", s.auctionKoiID),
			zap.String("status", string(auction.Status)),
		)
		return nil
	}
	s.mu.Unlock()

	s.conn.Acquire()
	s.mu.Lock()
	if s.gen != gen || s.state == SessionClosed {
		s.mu.Unlock()
		s.conn.Release()
		return ErrSessionClosed
	}
	s.acquired = true
	s.mu.Unlock()

	if err := s.conn.Connect(ctx, func(err error) { s.finishOpen(gen, err) }); err != nil {
		s.mu.Lock()
		release := s.acquired
		s.acquired = false
		s.mu.Unlock()
		if release {
			s.conn.Release()
		}
		return err
	}
	return nil
}

// finishOpen runs once the transport reports the handshake outcome. The
// generation check keeps a connect that resolved after Close from
// resurrecting the session. A failed handshake, including one this session
// only piggybacked on, gives the reference back and leaves the session in
// Loading so Open can be retried.
func (s *Session) finishOpen(gen uint64, err error) {
	s.mu.Lock()
	if s.gen != gen || s.state == SessionClosed {
		s.mu.Unlock()
		return
	}
	if err != nil {
		release := s.acquired
		s.acquired = false
		s.mu.Unlock()
		if release {
			s.conn.Release()
		}
		log.Warn("Shared connect failed, session stays loading",
			zap.Int64("auctionKoiID", s.auctionKoiID),
			zap.Error(err),
		)
		return
	}
	topic := TopicForKoi(s.auctionKoiID)
	s.unsubscribe = s.registry.Subscribe(topic, s.ApplyUpdate)
	s.state = SessionReady
	s.mu.Unlock()

	if err := s.conn.Send(NewSubscribeMessage(topic)); err != nil {
		log.Warn("Failed to send subscribe message",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
	log.Info("Bidding session ready",
		zap.Int64("auctionID", s.auctionID),
		zap.Int64("auctionKoiID", s.auctionKoiID),
	)
}

// ApplyUpdate applies a server broadcast to the local snapshot. Only amounts
// strictly greater than the visible current bid are applied, which keeps the
// local price monotonic however the network reorders or duplicates pushes.
// An is_sold update freezes the koi at its final price; later pushes, stale
// or contradictory, no longer move it. The session stays subscribed read-only
// until closed.
func (s *Session) ApplyUpdate(update BidUpdatePayload) {
	s.mu.Lock()
	if s.state != SessionReady {
		s.mu.Unlock()
		return
	}
	applied := false
	if !s.koi.IsSold && update.BidAmount > s.koi.CurrentBid {
		s.koi.CurrentBid = update.BidAmount
		s.suggested = update.BidAmount + s.koi.BidStep
		applied = true
	}
	if update.IsSold && !s.koi.IsSold {
		s.koi.IsSold = true
		applied = true
	}
	cb := s.onUpdate
	s.mu.Unlock()

	if !applied {
		log.Debug("Ignoring stale bid update",
			zap.Int64("auctionKoiID", update.AuctionKoiID),
			zap.Float64("amount", update.BidAmount),
		)
		return
	}
	if cb != nil {
		cb(domain.Bid{
			AuctionKoiID: update.AuctionKoiID,
			Amount:       update.BidAmount,
			BidderName:   update.BidderName,
			Timestamp:    update.Timestamp,
		})
	}
}

// SubmitBid validates amount against the current snapshot and, if valid,
// sends it to the server. The local current bid is left untouched: it only
// moves when the corresponding broadcast comes back through ApplyUpdate.
// After a successful send the suggested next bid advances to amount plus
// the bid step as a convenience; any inbound update overwrites it.
func (s *Session) SubmitBid(amount float64) error {
	s.mu.Lock()
	if s.state == SessionClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != SessionReady {
		s.mu.Unlock()
		return ErrSessionNotReady
	}
	if s.readOnly {
		s.mu.Unlock()
		return domain.ErrAuctionNotActive
	}
	if s.conn.State() != StateConnected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	if err := domain.ValidateBid(amount, s.koi); err != nil {
		s.mu.Unlock()
		log.Warn("Bid rejected locally",
			zap.Int64("auctionKoiID", s.auctionKoiID),
			zap.Float64("amount", amount),
			zap.Error(err),
		)
		return err
	}
	payload := SubmitBidPayload{
		AuctionKoiID: s.auctionKoiID,
		BidAmount:    amount,
		BidderToken:  s.cred.Token,
	}
	step := s.koi.BidStep
	s.mu.Unlock()

	if err := s.conn.Send(NewSubmitBidMessage(payload)); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state == SessionReady && !s.koi.IsSold {
		s.suggested = amount + step
	}
	s.mu.Unlock()

	log.Info("Bid submitted",
		zap.Int64("auctionKoiID", s.auctionKoiID),
		zap.Float64("amount", amount),
	)
	return nil
}

// Close tears the session down: unsubscribes, sends the unsubscribe control
// message best-effort, and releases the shared connection. Idempotent and
// safe from any state, including while a connect is still in flight.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == SessionClosed {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.state = SessionClosed
	unsub := s.unsubscribe
	s.unsubscribe = nil
	release := s.acquired
	s.acquired = false
	s.mu.Unlock()

	if unsub != nil {
		unsub()
		_ = s.conn.Send(NewUnsubscribeMessage(TopicForKoi(s.auctionKoiID)))
	}
	if release {
		s.conn.Release()
	}
	log.Info("Bidding session closed",
		zap.Int64("auctionID", s.auctionID),
		zap.Int64("auctionKoiID", s.auctionKoiID),
	)
}

// State returns the session lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ReadOnly reports whether the session was opened without a subscription
// because the auction was not active.
func (s *Session) ReadOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readOnly
}

// Sold reports whether the koi has been marked sold.
func (s *Session) Sold() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.koi.IsSold
}

// Snapshot returns a copy of the local auction koi state.
func (s *Session) Snapshot() domain.AuctionKoi {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.koi
}

// Auction returns the auction snapshot loaded at open time.
func (s *Session) Auction() domain.Auction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auction
}

// SuggestedBid returns the advisory next bid amount.
func (s *Session) SuggestedBid() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suggested
}
