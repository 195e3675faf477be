package platform

import (
	"context"
	"strconv"

	"sealedauctiongo/internal/events"
)

const maxFeeBps = 1000 // 10%

func (svc *platformService) SetPlatformFee(ctx context.Context, caller string, feeBps uint32) error {
	svc.mu.Lock()

	if caller != svc.owner {
		svc.mu.Unlock()
		return ErrUnauthorized
	}
	if feeBps > maxFeeBps {
		svc.mu.Unlock()
		return ErrFeeTooHigh
	}
	svc.feeBps = feeBps
	svc.mu.Unlock()

	svc.publish(ctx, events.New(events.TypeFeeUpdated, events.PlatformScope, caller, strconv.FormatUint(uint64(feeBps), 10)))
	return nil
}

// Pause halts every state-changing operation. Redundant calls are accepted
// and leave the flag as-is.
func (svc *platformService) Pause(ctx context.Context, caller string) error {
	return svc.setPaused(ctx, caller, true)
}

func (svc *platformService) Unpause(ctx context.Context, caller string) error {
	return svc.setPaused(ctx, caller, false)
}

func (svc *platformService) setPaused(ctx context.Context, caller string, paused bool) error {
	svc.mu.Lock()

	if caller != svc.owner {
		svc.mu.Unlock()
		return ErrUnauthorized
	}
	changed := svc.paused != paused
	svc.paused = paused
	svc.mu.Unlock()

	if changed {
		evType := events.TypePaused
		if !paused {
			evType = events.TypeUnpaused
		}
		svc.publish(ctx, events.New(evType, events.PlatformScope, caller, ""))
	}
	return nil
}

func (svc *platformService) Platform(_ context.Context) PlatformDTO {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return PlatformDTO{
		Owner:                 svc.owner,
		PlatformFeePercentage: svc.feeBps,
		Paused:                svc.paused,
		AuctionCount:          uint64(len(svc.auctions)),
	}
}
