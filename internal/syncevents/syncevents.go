package syncevents

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sealedauctiongo/internal/events"
)

// Run tails the auction_events Redis stream and persists every event into
// Postgres; bid_placed events additionally land in the bids audit table.
func Run(ctx context.Context, rdc *redis.Client, db *sql.DB) {
	go func() {
		lastID := "0-0"
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			// block up to 2 s for new entries
			res, err := rdc.XRead(ctx, &redis.XReadArgs{
				Streams: []string{events.Stream, lastID},
				Count:   100,
				Block:   2000 * time.Millisecond,
			}).Result()
			if err != nil && err != redis.Nil {
				zap.L().Warn("syncevents.xread", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			if len(res) == 0 || len(res[0].Messages) == 0 {
				continue
			}
			entries := res[0].Messages
			if err := persist(ctx, db, entries); err != nil {
				zap.L().Warn("syncevents.persist", zap.Error(err))
			}
			lastID = entries[len(entries)-1].ID
		}
	}()
}

func persist(ctx context.Context, db *sql.DB, msgs []redis.XMessage) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	const insEvent = `INSERT INTO platform_events (id, event, auction_id, actor, value, at)
	             VALUES ($1, $2, $3, $4, $5, to_timestamp($6))
	             ON CONFLICT DO NOTHING`
	const insBid = `INSERT INTO bids (auction_id, bidder, escrow, placed_at)
	             VALUES ($1, $2, $3, to_timestamp($4))
	             ON CONFLICT DO NOTHING`
	for _, m := range msgs {
		id, _ := m.Values["id"].(string)
		event, _ := m.Values["event"].(string)
		aidRaw, _ := m.Values["auction_id"].(string)
		actor, _ := m.Values["actor"].(string)
		value, _ := m.Values["value"].(string)
		atRaw, _ := m.Values["at"].(string)

		aid, _ := strconv.ParseInt(aidRaw, 10, 64)
		at, _ := strconv.ParseInt(atRaw, 10, 64)

		if _, err := tx.ExecContext(ctx, insEvent, id, event, aid, actor, value, at); err != nil {
			_ = tx.Rollback()
			return err
		}
		if event == string(events.TypeBidPlaced) {
			if _, err := tx.ExecContext(ctx, insBid, aid, actor, value, at); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
	}
	return tx.Commit()
}
