package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/lcaohoanq/koibid/internal/auction/domain"
	"github.com/lcaohoanq/koibid/internal/auction/rest"
	"github.com/lcaohoanq/koibid/internal/bidding"
	"github.com/lcaohoanq/koibid/internal/shared/config"
	"github.com/lcaohoanq/koibid/internal/shared/logger"
	"go.uber.org/zap"
)

func main() {
	log := logger.GetLogger()
	defer log.Sync()

	auctionID := flag.Int64("auction", 1, "auction id to watch")
	auctionKoiID := flag.Int64("koi", 100, "auction koi id to watch")
	token := flag.String("token", "", "bidder token (watch-only when empty)")
	bid := flag.Float64("bid", 0, "place one bid of this amount after connecting (0 = watch only)")
	flag.Parse()

	cfg := config.Load()

	apiClient := rest.NewClient(cfg.APIBaseURL)
	defer apiClient.Close()

	registry := bidding.NewRegistry()
	conn := bidding.NewConnManager(cfg.WSURL, cfg.ConnectTimeout, cfg.WriteTimeout, bidding.Route(registry))
	conn.OnStateChange(func(state bidding.ConnState) {
		log.Info("Connection state changed", zap.String("state", state.String()))
	})

	cred := domain.Credential{Token: *token, DisplayName: *token}
	session := bidding.NewSession(*auctionID, *auctionKoiID, cred, conn, registry, apiClient)
	session.OnUpdate(func(b domain.Bid) {
		log.Info("New highest bid received",
			zap.Float64("amount", b.Amount),
			zap.String("bidder", b.BidderName),
			zap.Float64("suggestedNext", session.SuggestedBid()),
		)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := session.Open(ctx); err != nil {
		log.Fatal("Failed to open bidding session", zap.Error(err))
	}
	defer session.Close()

	koi := session.Snapshot()
	log.Info("Watching auction koi",
		zap.Int64("auctionKoiID", koi.ID),
		zap.Float64("basePrice", koi.BasePrice),
		zap.Float64("bidStep", koi.BidStep),
		zap.Float64("currentBid", koi.CurrentBid),
		zap.Bool("readOnly", session.ReadOnly()),
	)

	if history, err := apiClient.FetchBidHistory(ctx, *auctionKoiID); err == nil {
		for _, b := range history {
			log.Info("Past bid",
				zap.Float64("amount", b.Amount),
				zap.String("bidder", b.BidderName),
				zap.Time("time", b.Timestamp),
			)
		}
	}

	if *bid > 0 {
		if err := session.SubmitBid(*bid); err != nil {
			log.Warn("Bid not submitted", zap.Float64("amount", *bid), zap.Error(err))
		}
	}

	// Re-fetch the auction periodically; the tracker closes the session
	// when the auction stops being active.
	tracker := bidding.NewLifecycleTracker(func() {
		session.Close()
		stop()
	})
	tracker.Observe(session.Auction())

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Shutting down bidder")
			return
		case <-ticker.C:
			auction, err := apiClient.FetchAuction(ctx, *auctionID)
			if err != nil {
				log.Warn("Failed to refresh auction status", zap.Error(err))
				continue
			}
			tracker.Observe(auction)
		}
	}
}
