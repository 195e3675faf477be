package platform

import (
	"context"

	"github.com/shopspring/decimal"

	"sealedauctiongo/internal/events"
	"sealedauctiongo/internal/sealed"
)

// PlaceBid records or tops up the caller's bid. Re-bidding replaces the
// sealed amount and accumulates escrow; the new escrow total must exceed the
// previous one by at least the configured increment. Nothing is refunded
// mid-auction.
func (svc *platformService) PlaceBid(ctx context.Context, auctionID uint64, bidder string,
	amount sealed.Handle, proof sealed.Proof, escrow decimal.Decimal) error {

	svc.mu.Lock()

	a, err := svc.auction(auctionID)
	if err != nil {
		svc.mu.Unlock()
		return err
	}
	if svc.paused {
		svc.mu.Unlock()
		return ErrPaused
	}
	now := svc.now().UTC()
	if !a.IsActive || !now.Before(a.EndTime) {
		svc.mu.Unlock()
		return ErrAuctionInactive
	}
	if bidder == a.Seller {
		svc.mu.Unlock()
		return ErrSelfBid
	}
	if bidder == "" || escrow.Sign() <= 0 {
		svc.mu.Unlock()
		return ErrInvalidInput
	}
	if err := sealed.VerifyProof(amount, proof); err != nil {
		svc.mu.Unlock()
		return ErrInvalidInput
	}

	room := svc.bids[auctionID]
	if room == nil {
		room = make(map[string]*Bid)
		svc.bids[auctionID] = room
	}

	prev := room[bidder]
	total := escrow
	if prev != nil {
		total = prev.Escrow.Add(escrow)
	}
	// The escrow total has to climb by at least the min increment so a
	// replaced bid can never lower a bidder's exposure.
	floor := decimal.Zero
	if prev != nil {
		floor = prev.Escrow
	}
	if svc.minIncrement.Sign() > 0 && total.Sub(floor).LessThan(svc.minIncrement) {
		svc.mu.Unlock()
		return ErrBidBelowIncrement
	}

	if prev == nil {
		room[bidder] = &Bid{
			AuctionID:    auctionID,
			Bidder:       bidder,
			SealedAmount: amount,
			AmountProof:  proof,
			Escrow:       escrow,
			PlacedAt:     now,
		}
		a.BidCount++
	} else {
		prev.SealedAmount = amount
		prev.AmountProof = proof
		prev.Escrow = total
		prev.PlacedAt = now
	}

	if total.GreaterThan(a.HighestBid) {
		a.HighestBid = total
		a.HighestBidder = bidder
	}
	svc.funds[bidder] = svc.balance(bidder).Add(escrow)

	svc.mu.Unlock()

	svc.publish(ctx, events.New(events.TypeBidPlaced, int64(auctionID), bidder, escrow.String()))
	return nil
}

func (svc *platformService) GetBidCount(_ context.Context, auctionID uint64) (uint32, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	a, err := svc.auction(auctionID)
	if err != nil {
		return 0, err
	}
	return a.BidCount, nil
}

func (svc *platformService) HasBid(_ context.Context, auctionID uint64, bidder string) (bool, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, err := svc.auction(auctionID); err != nil {
		return false, err
	}
	_, ok := svc.bids[auctionID][bidder]
	return ok, nil
}
