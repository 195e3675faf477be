package auctionwatcher

import (
	"context"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sealedauctiongo/internal/services/platform"
)

const timerKeyPrefix = "auction_t:"

// Run listens to key-expiry events and settles auctions whose duration has
// elapsed. Run must be started once at service boot. Settlement is
// idempotent, so racing a manual settle call is harmless.
func Run(ctx context.Context, rdb *redis.Client, svc platform.IPlatformService) {
	_ = rdb.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err()
	ps := rdb.PSubscribe(ctx, "__keyevent@*__:expired")
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-ps.Channel():
			if !strings.HasPrefix(m.Payload, timerKeyPrefix) {
				continue
			}
			id, err := strconv.ParseUint(strings.TrimPrefix(m.Payload, timerKeyPrefix), 10, 64)
			if err != nil {
				continue
			}
			if err := svc.Settle(ctx, id); err != nil &&
				err != platform.ErrAlreadySettled && err != platform.ErrAuctionInactive {
				zap.L().Warn("auctionwatcher.settle", zap.Uint64("auction_id", id), zap.Error(err))
			}
		}
	}
}
