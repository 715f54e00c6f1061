package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/lcaohoanq/koibid/internal/auction/domain"
	"github.com/lcaohoanq/koibid/internal/shared/logger"
	"github.com/lcaohoanq/koibid/internal/simulator"
	"go.uber.org/zap"
)

func main() {
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting koi auction simulator...")

	store := simulator.NewStore()
	seed(store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	addr := os.Getenv("KOIBID_SIM_ADDR")
	if addr == "" {
		addr = ":4000"
	}

	server := simulator.NewServer(store)
	if err := server.Start(ctx, addr); err != nil {
		log.Fatal("Simulator server failed", zap.Error(err))
	}
}

// seed loads one active auction with a couple of biddable kois so the SDK
// has something to talk to out of the box.
func seed(store *simulator.Store) {
	now := time.Now()
	store.AddAuction(domain.Auction{
		ID:        1,
		Title:     "Autumn Koi Auction",
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(6 * time.Hour),
		Status:    domain.StatusActive,
	})
	store.AddKoi(domain.Koi{ID: 10, Name: "Kohaku", Sex: "FEMALE", Length: 45, Age: 2, CategoryID: 1})
	store.AddKoi(domain.Koi{ID: 11, Name: "Showa", Sex: "MALE", Length: 52, Age: 3, CategoryID: 2})
	store.AddAuctionKoi(domain.AuctionKoi{
		ID: 100, AuctionID: 1, KoiID: 10,
		BasePrice: 100, BidStep: 10,
		BidMethod: domain.MethodAscendingBid,
	})
	store.AddAuctionKoi(domain.AuctionKoi{
		ID: 101, AuctionID: 1, KoiID: 11,
		BasePrice: 250, BidStep: 25,
		BidMethod: domain.MethodAscendingBid,
	})
}
