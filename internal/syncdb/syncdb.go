package syncdb

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"sealedauctiongo/internal/services/platform"
)

const syncInterval = 10 * time.Second

// Run mirrors the in-process auction registry into Postgres every 10 s.
// The registry stays authoritative; the table is an audit/read replica.
func Run(ctx context.Context, svc platform.IPlatformService, db *sql.DB) {
	tk := time.NewTicker(syncInterval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				syncOnce(ctx, svc, db)
			}
		}
	}()
}

func syncOnce(ctx context.Context, svc platform.IPlatformService, db *sql.DB) {
	auctions := svc.Snapshot(ctx)
	if len(auctions) == 0 {
		return
	}

	const upsert = `
	INSERT INTO auctions (id, seller, item_name, item_description,
	                      starting_price, highest_bid, highest_bidder,
	                      bid_count, creation_time, end_time, status, is_settled)
	     VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	ON CONFLICT (id) DO UPDATE
	       SET highest_bid    = EXCLUDED.highest_bid,
	           highest_bidder = EXCLUDED.highest_bidder,
	           bid_count      = EXCLUDED.bid_count,
	           status         = EXCLUDED.status,
	           is_settled     = EXCLUDED.is_settled`

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		zap.L().Error("syncdb.tx_begin", zap.Error(err))
		return
	}
	defer tx.Rollback()

	for _, a := range auctions {
		if _, err := tx.ExecContext(ctx, upsert,
			a.ID, a.Seller, a.ItemName, a.ItemDescription,
			a.StartingPrice, a.HighestBid, a.HighestBidder,
			a.BidCount, a.CreationTime, a.EndTime, a.Status, a.IsSettled); err != nil {
			zap.L().Error("syncdb.upsert", zap.Uint64("id", a.ID), zap.Error(err))
		}
	}

	if err = tx.Commit(); err != nil {
		zap.L().Debug("syncdb_error", zap.Error(err))
	}
}
