package simulator

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/lcaohoanq/koibid/internal/auction/domain"
	"go.uber.org/zap"
)

// Server exposes the simulator over HTTP: the REST snapshot endpoints the
// SDK's retrieval client consumes and the /ws bidding channel.
type Server struct {
	app     *fiber.App
	store   *Store
	hub     *Hub
	handler *WSHandler
}

func NewServer(store *Store) *Server {
	hub := NewHub()
	s := &Server{
		app:     fiber.New(),
		store:   store,
		hub:     hub,
		handler: NewWSHandler(store, hub),
	}
	s.setupRoutes()
	return s
}

// Handler returns the WS dispatcher, so callers can broadcast lifecycle
// events (e.g. a koi marked sold) themselves.
func (s *Server) Handler() *WSHandler {
	return s.handler
}

func (s *Server) setupRoutes() {
	s.app.Use(func(c *fiber.Ctx) error {
		log.Info("HTTP request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("remote_addr", c.IP()),
		)
		return c.Next()
	})

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	api := s.app.Group("/api/v1")
	api.Get("/auctions/:auctionID", s.getAuction)
	api.Get("/auctions/:auctionID/kois/:auctionKoiID", s.getAuctionKoi)
	api.Get("/auction-kois/:auctionKoiID/bids", s.getBidHistory)
	api.Get("/kois/:koiID", s.getKoi)

	// Lifecycle controls: the simulator has no auctioneer, so selling a koi
	// and ending an auction are driven over HTTP.
	api.Post("/auction-kois/:auctionKoiID/sold", s.markSold)
	api.Post("/auctions/:auctionID/end", s.endAuction)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.handleWS))
}

func (s *Server) getAuction(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("auctionID"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid auction id"})
	}
	auction, err := s.store.GetAuction(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "auction not found"})
	}
	return c.JSON(auction)
}

func (s *Server) getAuctionKoi(c *fiber.Ctx) error {
	auctionID, err := strconv.ParseInt(c.Params("auctionID"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid auction id"})
	}
	auctionKoiID, err := strconv.ParseInt(c.Params("auctionKoiID"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid auction koi id"})
	}
	koi, err := s.store.GetAuctionKoi(auctionID, auctionKoiID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "auction koi not found"})
	}
	return c.JSON(koi)
}

func (s *Server) getBidHistory(c *fiber.Ctx) error {
	auctionKoiID, err := strconv.ParseInt(c.Params("auctionKoiID"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid auction koi id"})
	}
	bids, err := s.store.GetBids(auctionKoiID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "auction koi not found"})
	}
	return c.JSON(bids)
}

func (s *Server) getKoi(c *fiber.Ctx) error {
	koiID, err := strconv.ParseInt(c.Params("koiID"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid koi id"})
	}
	koi, err := s.store.GetKoi(koiID)
	if err != nil {
		if errors.Is(err, domain.ErrKoiNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "koi not found"})
		}
		return err
	}
	return c.JSON(koi)
}

// markSold freezes a koi at its current bid and pushes the terminal
// bid_update to the topic's subscribers.
func (s *Server) markSold(c *fiber.Ctx) error {
	auctionKoiID, err := strconv.ParseInt(c.Params("auctionKoiID"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid auction koi id"})
	}
	koi, err := s.store.MarkSold(auctionKoiID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "auction koi not found"})
	}
	winner := ""
	if bids, err := s.store.GetBids(auctionKoiID); err == nil && len(bids) > 0 {
		winner = bids[len(bids)-1].BidderName
	}
	s.handler.BroadcastBid(domain.Bid{
		AuctionKoiID: auctionKoiID,
		Amount:       koi.CurrentBid,
		BidderName:   winner,
		Timestamp:    time.Now(),
	}, true)
	return c.JSON(koi)
}

func (s *Server) endAuction(c *fiber.Ctx) error {
	auctionID, err := strconv.ParseInt(c.Params("auctionID"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid auction id"})
	}
	if err := s.store.EndAuction(auctionID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "auction not found"})
	}
	auction, err := s.store.GetAuction(auctionID)
	if err != nil {
		return err
	}
	return c.JSON(auction)
}

func (s *Server) handleWS(conn *websocket.Conn) {
	client := &Client{
		Hub:  s.hub,
		Conn: conn,
		Send: make(chan []byte, 64),
		ID:   uuid.NewString(),
	}
	s.hub.RegisterClient(client)
	go client.WritePump(context.Background())
	// ReadPump blocks for the lifetime of the connection; the fiber
	// websocket handler must not return while the connection is in use.
	client.ReadPump(context.Background())
}

// Start runs the hub, the message handler and the HTTP listener. The server
// shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)
	go s.handler.ListenForMessages(ctx)

	go func() {
		<-ctx.Done()
		log.Info("Shutting down simulator server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.app.ShutdownWithContext(shutdownCtx)
	}()

	log.Info("Simulator server started", zap.String("addr", addr))
	return s.app.Listen(addr)
}
