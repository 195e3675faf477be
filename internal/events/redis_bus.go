package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const Stream = "auction_events"

// Channel returns the pub/sub channel an event is fanned out on.
func Channel(auctionID int64) string {
	if auctionID == PlatformScope {
		return "auction:platform:events"
	}
	return "auction:" + strconv.FormatInt(auctionID, 10) + ":events"
}

// RedisBus publishes every event twice: to a per-auction pub/sub channel for
// the WebSocket fan-out, and to the auction_events stream that the Postgres
// synchroniser tails.
type RedisBus struct {
	rdc *redis.Client
}

func NewRedisBus(rdc *redis.Client) *RedisBus { return &RedisBus{rdc: rdc} }

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := b.rdc.Publish(ctx, Channel(ev.AuctionID), payload).Err(); err != nil {
		zap.L().Warn("events.publish", zap.String("event", string(ev.Type)), zap.Error(err))
		return err
	}

	err = b.rdc.XAdd(ctx, &redis.XAddArgs{
		Stream: Stream,
		// Ordered slice form so the entry layout is stable.
		Values: []interface{}{
			"id", ev.ID,
			"event", string(ev.Type),
			"auction_id", strconv.FormatInt(ev.AuctionID, 10),
			"actor", ev.Actor,
			"value", ev.Value,
			"at", strconv.FormatInt(ev.At.Unix(), 10),
		},
	}).Err()
	if err != nil {
		zap.L().Warn("events.xadd", zap.String("event", string(ev.Type)), zap.Error(err))
		return err
	}
	return nil
}
