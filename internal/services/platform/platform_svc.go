// Package platform holds the auction platform core: the auction registry,
// the per-auction lifecycle state machine, the fund custody ledger and the
// owner-gated admin policy. Every state-changing call runs as one atomic
// transaction behind a single mutex and re-validates its preconditions at
// execution time.
package platform

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sealedauctiongo/internal/events"
	"sealedauctiongo/internal/sealed"
)

const redisTimerKeyPrefix = "auction_t:"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidDuration   = errors.New("invalid duration")
	ErrNotFound          = errors.New("auction not found")
	ErrAuctionInactive   = errors.New("auction inactive")
	ErrAuctionRunning    = errors.New("auction still running")
	ErrSelfBid           = errors.New("seller cannot bid")
	ErrUnauthorized      = errors.New("caller is not the owner")
	ErrFeeTooHigh        = errors.New("fee too high")
	ErrPaused            = errors.New("platform paused")
	ErrNoFunds           = errors.New("no funds to withdraw")
	ErrFundsLocked       = errors.New("funds locked by a leading bid")
	ErrAlreadySettled    = errors.New("auction already settled")
	ErrBidBelowIncrement = errors.New("bid below min increment")
)

type IPlatformService interface {
	CreateAuction(ctx context.Context, in CreateAuctionInput) (uint64, error)
	PlaceBid(ctx context.Context, auctionID uint64, bidder string, amount sealed.Handle, proof sealed.Proof, escrow decimal.Decimal) error
	EmergencyStopAuction(ctx context.Context, caller string, auctionID uint64) error
	CanSettleAuction(ctx context.Context, auctionID uint64) (bool, error)
	Settle(ctx context.Context, auctionID uint64) error

	GetAuction(ctx context.Context, auctionID uint64) (*AuctionDTO, error)
	ListAuctions(ctx context.Context, status string, limit, offset int) ([]AuctionDTO, error)
	GetAuctionCount(ctx context.Context) uint64
	GetBidCount(ctx context.Context, auctionID uint64) (uint32, error)
	HasBid(ctx context.Context, auctionID uint64, bidder string) (bool, error)

	BidderFunds(ctx context.Context, addr string) decimal.Decimal
	WithdrawFunds(ctx context.Context, caller string) (decimal.Decimal, error)

	SetPlatformFee(ctx context.Context, caller string, feeBps uint32) error
	Pause(ctx context.Context, caller string) error
	Unpause(ctx context.Context, caller string) error
	Platform(ctx context.Context) PlatformDTO

	Snapshot(ctx context.Context) []AuctionDTO
}

// Treasury moves value out of custody to an externally-controlled recipient.
// Custody state is always finalised before a Treasury call is attempted.
type Treasury interface {
	Transfer(ctx context.Context, to string, amount decimal.Decimal) error
}

// NullTreasury acknowledges transfers without moving anything; the default
// when no external payment rail is wired in.
type NullTreasury struct{}

func (NullTreasury) Transfer(context.Context, string, decimal.Decimal) error { return nil }

// Config is the admin-policy snapshot the service is constructed with.
type Config struct {
	Owner           string
	FeeBps          uint32
	MaxDuration     int64 // seconds
	MinBidIncrement decimal.Decimal
}

type platformService struct {
	mu sync.Mutex

	owner  string
	feeBps uint32
	paused bool

	maxDuration  int64
	minIncrement decimal.Decimal

	auctions []*Auction
	bids     map[uint64]map[string]*Bid
	funds    map[string]decimal.Decimal

	cmp      sealed.Comparator
	bus      events.Bus
	treasury Treasury
	rdc      *redis.Client

	now func() time.Time
}

var _ IPlatformService = (*platformService)(nil)

func NewPlatformService(cfg Config, cmp sealed.Comparator, bus events.Bus, treasury Treasury, rdc *redis.Client) IPlatformService {
	if treasury == nil {
		treasury = NullTreasury{}
	}
	return &platformService{
		owner:        cfg.Owner,
		feeBps:       cfg.FeeBps,
		maxDuration:  cfg.MaxDuration,
		minIncrement: cfg.MinBidIncrement,
		bids:         make(map[uint64]map[string]*Bid),
		funds:        make(map[string]decimal.Decimal),
		cmp:          cmp,
		bus:          bus,
		treasury:     treasury,
		rdc:          rdc,
		now:          time.Now,
	}
}


func (svc *platformService) CreateAuction(ctx context.Context, in CreateAuctionInput) (uint64, error) {
	if strings.TrimSpace(in.ItemName) == "" {
		return 0, ErrInvalidInput
	}
	if in.Duration <= 0 || (svc.maxDuration > 0 && in.Duration > svc.maxDuration) {
		return 0, ErrInvalidDuration
	}
	if err := sealed.VerifyProof(in.SealedReserve, in.ReserveProof); err != nil {
		return 0, ErrInvalidInput
	}

	svc.mu.Lock()
	if svc.paused {
		svc.mu.Unlock()
		return 0, ErrPaused
	}

	now := svc.now().UTC()
	a := &Auction{
		ID:              uint64(len(svc.auctions)),
		Seller:          in.Seller,
		ItemName:        in.ItemName,
		ItemDescription: in.ItemDescription,
		SealedReserve:   in.SealedReserve,
		ReserveProof:    in.ReserveProof,
		StartingPrice:   in.StartingPrice,
		HighestBid:      decimal.Zero,
		CreationTime:    now,
		EndTime:         now.Add(time.Duration(in.Duration) * time.Second),
		IsActive:        true,
	}
	svc.auctions = append(svc.auctions, a)
	svc.mu.Unlock()

	svc.armTimer(ctx, a.ID, in.Duration)
	svc.publish(ctx, events.New(events.TypeAuctionCreated, int64(a.ID), in.Seller, ""))
	return a.ID, nil
}

func (svc *platformService) GetAuction(_ context.Context, auctionID uint64) (*AuctionDTO, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	a, err := svc.auction(auctionID)
	if err != nil {
		return nil, err
	}
	return a.dto(), nil
}

func (svc *platformService) GetAuctionCount(_ context.Context) uint64 {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return uint64(len(svc.auctions))
}

func (svc *platformService) ListAuctions(_ context.Context, status string, limit, offset int) ([]AuctionDTO, error) {
	if limit == 0 {
		limit = 10
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	list := make([]AuctionDTO, 0, limit)
	skipped := 0
	// Newest first, matching the listing order clients expect.
	for i := len(svc.auctions) - 1; i >= 0 && len(list) < limit; i-- {
		a := svc.auctions[i]
		if status != "" && a.Status() != status {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		list = append(list, *a.dto())
	}
	return list, nil
}

// Snapshot returns every auction; used by the Postgres mirror.
func (svc *platformService) Snapshot(_ context.Context) []AuctionDTO {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	out := make([]AuctionDTO, 0, len(svc.auctions))
	for _, a := range svc.auctions {
		out = append(out, *a.dto())
	}
	return out
}


// auction resolves an id; callers must hold svc.mu.
func (svc *platformService) auction(id uint64) (*Auction, error) {
	if id >= uint64(len(svc.auctions)) {
		return nil, ErrNotFound
	}
	return svc.auctions[id], nil
}

func (svc *platformService) publish(ctx context.Context, ev events.Event) {
	if svc.bus == nil {
		return
	}
	if err := svc.bus.Publish(ctx, ev); err != nil {
		zap.L().Warn("platform.publish", zap.String("event", string(ev.Type)), zap.Error(err))
	}
}

// armTimer sets a TTL key whose expiry the auction watcher turns into a
// settlement attempt. Best effort: expiry-driven settlement is a convenience,
// CanSettleAuction/Settle remain the source of truth.
func (svc *platformService) armTimer(ctx context.Context, id uint64, duration int64) {
	if svc.rdc == nil {
		return
	}
	key := redisTimerKeyPrefix + strconv.FormatUint(id, 10)
	if err := svc.rdc.Set(ctx, key, 1, time.Duration(duration)*time.Second).Err(); err != nil {
		zap.L().Warn("platform.arm_timer", zap.Uint64("auction_id", id), zap.Error(err))
	}
}

func (svc *platformService) dropTimer(ctx context.Context, id uint64) {
	if svc.rdc == nil {
		return
	}
	_ = svc.rdc.Del(ctx, redisTimerKeyPrefix+strconv.FormatUint(id, 10)).Err()
}
