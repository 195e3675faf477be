package platform

import (
	"context"

	"github.com/shopspring/decimal"

	"sealedauctiongo/internal/events"
)

// balance reads an address's custody balance; callers must hold svc.mu.
func (svc *platformService) balance(addr string) decimal.Decimal {
	if v, ok := svc.funds[addr]; ok {
		return v
	}
	return decimal.Zero
}

func (svc *platformService) BidderFunds(_ context.Context, addr string) decimal.Decimal {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.balance(addr)
}

// WithdrawFunds pays the caller's entire custody balance out. The balance is
// zeroed before the treasury transfer runs, so a reentrant call during the
// transfer finds nothing to take; a failed transfer restores the balance and
// the whole call fails.
func (svc *platformService) WithdrawFunds(ctx context.Context, caller string) (decimal.Decimal, error) {
	svc.mu.Lock()

	if svc.paused {
		svc.mu.Unlock()
		return decimal.Zero, ErrPaused
	}
	bal := svc.balance(caller)
	if bal.Sign() <= 0 {
		svc.mu.Unlock()
		return decimal.Zero, ErrNoFunds
	}
	// Escrow backing a leading bid on a live auction cannot leave custody.
	for _, a := range svc.auctions {
		if a.IsActive && !a.IsSettled && a.HighestBidder == caller {
			svc.mu.Unlock()
			return decimal.Zero, ErrFundsLocked
		}
	}

	svc.funds[caller] = decimal.Zero
	svc.mu.Unlock()

	if err := svc.treasury.Transfer(ctx, caller, bal); err != nil {
		svc.mu.Lock()
		svc.funds[caller] = svc.balance(caller).Add(bal)
		svc.mu.Unlock()
		return decimal.Zero, err
	}

	svc.publish(ctx, events.New(events.TypeFundsWithdrawn, events.PlatformScope, caller, bal.String()))
	return bal, nil
}
