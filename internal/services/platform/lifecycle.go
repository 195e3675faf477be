package platform

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sealedauctiongo/internal/events"
	"sealedauctiongo/internal/sealed"
)

// EmergencyStopAuction force-deactivates an auction. Owner-only, legal at
// any point while the auction is still active (including past its natural
// end, as long as settlement has not run). Moves no funds; bidders retrieve
// escrow through WithdrawFunds afterwards.
func (svc *platformService) EmergencyStopAuction(ctx context.Context, caller string, auctionID uint64) error {
	svc.mu.Lock()

	if caller != svc.owner {
		svc.mu.Unlock()
		return ErrUnauthorized
	}
	a, err := svc.auction(auctionID)
	if err != nil {
		svc.mu.Unlock()
		return err
	}
	if !a.IsActive {
		svc.mu.Unlock()
		return ErrAuctionInactive
	}

	a.IsActive = false
	svc.mu.Unlock()

	svc.dropTimer(ctx, auctionID)
	svc.publish(ctx, events.New(events.TypeAuctionStopped, int64(auctionID), caller, ""))
	return nil
}

func (svc *platformService) CanSettleAuction(_ context.Context, auctionID uint64) (bool, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	a, err := svc.auction(auctionID)
	if err != nil {
		return false, err
	}
	return a.IsActive && !a.IsSettled && !svc.now().UTC().Before(a.EndTime), nil
}

// Settle finalises an auction exactly once. The winner is picked by the
// sealed comparator and must meet the sealed reserve; otherwise the auction
// settles with no sale and every bidder's escrow stays withdrawable.
func (svc *platformService) Settle(ctx context.Context, auctionID uint64) error {
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
	if a.IsSettled {
		svc.mu.Unlock()
		return ErrAlreadySettled
	}
	if !a.IsActive {
		svc.mu.Unlock()
		return ErrAuctionInactive
	}
	if svc.now().UTC().Before(a.EndTime) {
		svc.mu.Unlock()
		return ErrAuctionRunning
	}

	winner, price := svc.pickWinner(a)

	if winner != "" {
		// Release the winner's escrow and split it between seller and
		// platform. Proceeds stay in custody until withdrawn, so every
		// unit of value leaves through WithdrawFunds exactly once.
		fee := price.Mul(decimal.NewFromInt(int64(svc.feeBps))).Div(decimal.NewFromInt(10000)).Floor()
		svc.funds[winner] = svc.balance(winner).Sub(price)
		svc.funds[a.Seller] = svc.balance(a.Seller).Add(price.Sub(fee))
		svc.funds[svc.owner] = svc.balance(svc.owner).Add(fee)
	}

	a.IsSettled = true
	a.IsActive = false
	svc.mu.Unlock()

	svc.dropTimer(ctx, auctionID)
	if winner != "" {
		svc.publish(ctx, events.New(events.TypeAuctionSettled, int64(auctionID), winner, price.String()))
	} else {
		svc.publish(ctx, events.New(events.TypeAuctionSettled, int64(auctionID), "", ""))
	}
	return nil
}

// pickWinner runs the confidential comparison over all sealed bid amounts.
// Returns the winner's address and the escrow-visible price paid, or empty
// when there is no qualifying bid. Callers must hold svc.mu.
func (svc *platformService) pickWinner(a *Auction) (string, decimal.Decimal) {
	room := svc.bids[a.ID]
	if len(room) == 0 || svc.cmp == nil {
		return "", decimal.Zero
	}

	bidders := make([]string, 0, len(room))
	for bidder, b := range room {
		// A bidder who already withdrew (while trailing) no longer backs the
		// bid with custody funds, so the bid is disqualified.
		if svc.balance(bidder).LessThan(b.Escrow) {
			continue
		}
		bidders = append(bidders, bidder)
	}
	if len(bidders) == 0 {
		return "", decimal.Zero
	}
	// Deterministic tie-breaking regardless of map iteration order.
	sort.Strings(bidders)
	handles := make([]sealed.Handle, 0, len(room))
	for _, bidder := range bidders {
		handles = append(handles, room[bidder].SealedAmount)
	}

	idx, err := svc.cmp.Max(handles)
	if err != nil {
		zap.L().Error("platform.compare_bids", zap.Uint64("auction_id", a.ID), zap.Error(err))
		return "", decimal.Zero
	}

	meets, err := svc.cmp.AtLeast(handles[idx], a.SealedReserve)
	if err != nil || !meets {
		if err != nil {
			zap.L().Error("platform.compare_reserve", zap.Uint64("auction_id", a.ID), zap.Error(err))
		}
		return "", decimal.Zero
	}
	return bidders[idx], room[bidders[idx]].Escrow
}
