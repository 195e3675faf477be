package platform

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealedauctiongo/internal/events"
	"sealedauctiongo/internal/sealed"
)

const (
	owner   = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
	seller  = "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"
	bidder1 = "0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc"
	bidder2 = "0x90f79bf6eb2c4f870365e785982e1f101e93b906"
)

var ctx = context.Background()

// eth converts whole ether to a wei-scale decimal.
func eth(n int64) decimal.Decimal { return decimal.New(n, 18) }

type recordingTreasury struct {
	mu   sync.Mutex
	paid map[string]decimal.Decimal
}

func newRecordingTreasury() *recordingTreasury {
	return &recordingTreasury{paid: make(map[string]decimal.Decimal)}
}

func (r *recordingTreasury) Transfer(_ context.Context, to string, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.paid[to]
	if !ok {
		prev = decimal.Zero
	}
	r.paid[to] = prev.Add(amount)
	return nil
}

type failingTreasury struct{}

func (failingTreasury) Transfer(context.Context, string, decimal.Decimal) error {
	return errors.New("transfer rejected")
}

type testEnv struct {
	svc      *platformService
	km       *sealed.KeyManager
	bus      *events.MemoryBus
	treasury *recordingTreasury
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	km, err := sealed.NewKeyManager("")
	require.NoError(t, err)

	bus := events.NewMemoryBus()
	treasury := newRecordingTreasury()
	svc := NewPlatformService(Config{
		Owner:       owner,
		FeeBps:      250,
		MaxDuration: 2592000,
	}, km, bus, treasury, nil).(*platformService)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	return &testEnv{svc: svc, km: km, bus: bus, treasury: treasury}
}

func (e *testEnv) advance(d time.Duration) {
	cur := e.svc.now()
	e.svc.now = func() time.Time { return cur.Add(d) }
}

func (e *testEnv) seal(t *testing.T, amount decimal.Decimal) (sealed.Handle, sealed.Proof) {
	t.Helper()
	h, p, err := e.km.Seal(amount)
	require.NoError(t, err)
	return h, p
}

func (e *testEnv) createAuction(t *testing.T, reserve decimal.Decimal, duration int64) uint64 {
	t.Helper()
	h, p := e.seal(t, reserve)
	id, err := e.svc.CreateAuction(ctx, CreateAuctionInput{
		Seller:          seller,
		ItemName:        "测试拍卖品",
		ItemDescription: "这是一个测试拍卖品",
		SealedReserve:   h,
		ReserveProof:    p,
		StartingPrice:   decimal.New(1, 17),
		Duration:        duration,
	})
	require.NoError(t, err)
	return id
}

func (e *testEnv) bid(t *testing.T, auctionID uint64, bidder string, amount, escrow decimal.Decimal) {
	t.Helper()
	h, p := e.seal(t, amount)
	require.NoError(t, e.svc.PlaceBid(ctx, auctionID, bidder, h, p, escrow))
}


func TestCreateAuction(t *testing.T) {
	e := newTestEnv(t)

	id := e.createAuction(t, eth(1), 86400)
	assert.Equal(t, uint64(0), id)
	assert.Equal(t, uint64(1), e.svc.GetAuctionCount(ctx))

	dto, err := e.svc.GetAuction(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "测试拍卖品", dto.ItemName)
	assert.Equal(t, seller, dto.Seller)
	assert.True(t, dto.IsActive)
	assert.False(t, dto.IsSettled)
	assert.Equal(t, uint32(0), dto.BidCount)
	assert.Equal(t, dto.CreationTime.Add(86400*time.Second), dto.EndTime)

	assert.Len(t, e.bus.OfType(events.TypeAuctionCreated), 1)
}

func TestCreateAuctionEmptyTitle(t *testing.T) {
	e := newTestEnv(t)
	h, p := e.seal(t, eth(1))

	_, err := e.svc.CreateAuction(ctx, CreateAuctionInput{
		Seller:        seller,
		ItemName:      "  ",
		SealedReserve: h,
		ReserveProof:  p,
		Duration:      86400,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, uint64(0), e.svc.GetAuctionCount(ctx))
}

func TestCreateAuctionDuration(t *testing.T) {
	e := newTestEnv(t)
	h, p := e.seal(t, eth(1))

	for _, d := range []int64{0, -5, 2592001} {
		_, err := e.svc.CreateAuction(ctx, CreateAuctionInput{
			Seller:        seller,
			ItemName:      "item",
			SealedReserve: h,
			ReserveProof:  p,
			Duration:      d,
		})
		assert.ErrorIs(t, err, ErrInvalidDuration, "duration %d", d)
	}
}

func TestCreateAuctionBadProof(t *testing.T) {
	e := newTestEnv(t)
	h, _ := e.seal(t, eth(1))
	_, p2 := e.seal(t, eth(2))

	_, err := e.svc.CreateAuction(ctx, CreateAuctionInput{
		Seller:        seller,
		ItemName:      "item",
		SealedReserve: h,
		ReserveProof:  p2,
		Duration:      3600,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetAuctionNotFound(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.svc.GetAuction(ctx, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.svc.GetBidCount(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.svc.CanSettleAuction(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAuctions(t *testing.T) {
	e := newTestEnv(t)
	for i := 0; i < 3; i++ {
		e.createAuction(t, eth(1), 3600)
	}
	require.NoError(t, e.svc.EmergencyStopAuction(ctx, owner, 1))

	all, err := e.svc.ListAuctions(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, uint64(2), all[0].ID) // newest first

	active, err := e.svc.ListAuctions(ctx, StatusActive, 10, 0)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	stopped, err := e.svc.ListAuctions(ctx, StatusStopped, 10, 0)
	require.NoError(t, err)
	assert.Len(t, stopped, 1)
	assert.Equal(t, uint64(1), stopped[0].ID)
}


func TestPlaceBid(t *testing.T) {
	e := newTestEnv(t)
	id := e.createAuction(t, eth(1), 86400)

	e.bid(t, id, bidder1, eth(2), eth(2))

	assert.True(t, e.svc.BidderFunds(ctx, bidder1).Equal(eth(2)))

	count, err := e.svc.GetBidCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), count)

	has, err := e.svc.HasBid(ctx, id, bidder1)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = e.svc.HasBid(ctx, id, bidder2)
	require.NoError(t, err)
	assert.False(t, has)

	placed := e.bus.OfType(events.TypeBidPlaced)
	require.Len(t, placed, 1)
	assert.Equal(t, bidder1, placed[0].Actor)
	assert.Equal(t, eth(2).String(), placed[0].Value)
}

func TestPlaceBidSelfBid(t *testing.T) {
	e := newTestEnv(t)
	id := e.createAuction(t, eth(1), 86400)

	h, p := e.seal(t, eth(2))
	err := e.svc.PlaceBid(ctx, id, seller, h, p, eth(2))
	assert.ErrorIs(t, err, ErrSelfBid)
}

func TestPlaceBidValidation(t *testing.T) {
	e := newTestEnv(t)
	id := e.createAuction(t, eth(1), 3600)
	h, p := e.seal(t, eth(2))

	err := e.svc.PlaceBid(ctx, 99, bidder1, h, p, eth(2))
	assert.ErrorIs(t, err, ErrNotFound)

	err = e.svc.PlaceBid(ctx, id, bidder1, h, p, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, wrongProof := e.seal(t, eth(3))
	err = e.svc.PlaceBid(ctx, id, bidder1, h, wrongProof, eth(2))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPlaceBidAfterExpiry(t *testing.T) {
	e := newTestEnv(t)
	id := e.createAuction(t, eth(1), 3600)

	e.advance(3600 * time.Second)
	h, p := e.seal(t, eth(2))
	err := e.svc.PlaceBid(ctx, id, bidder1, h, p, eth(2))
	assert.ErrorIs(t, err, ErrAuctionInactive)
}

func TestReBidTopsUpEscrow(t *testing.T) {
	e := newTestEnv(t)
	id := e.createAuction(t, eth(1), 86400)

	e.bid(t, id, bidder1, eth(2), eth(2))
	e.bid(t, id, bidder1, eth(3), eth(1)) // top-up: total escrow 3 ETH

	count, err := e.svc.GetBidCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), count, "re-bid must not grow bid count")

	assert.True(t, e.svc.BidderFunds(ctx, bidder1).Equal(eth(3)))

	dto, err := e.svc.GetAuction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, eth(3).String(), dto.HighestBid)
	assert.Equal(t, bidder1, dto.HighestBidder)
}

func TestMinBidIncrement(t *testing.T) {
	e := newTestEnv(t)
	e.svc.minIncrement = eth(1)
	id := e.createAuction(t, eth(1), 86400)

	h, p := e.seal(t, eth(2))
	err := e.svc.PlaceBid(ctx, id, bidder1, h, p, decimal.New(5, 17)) // 0.5 ETH
	assert.ErrorIs(t, err, ErrBidBelowIncrement)

	e.bid(t, id, bidder1, eth(2), eth(2))
}


func TestEmergencyStop(t *testing.T) {
	e := newTestEnv(t)
	id := e.createAuction(t, eth(1), 86400)

	assert.ErrorIs(t, e.svc.EmergencyStopAuction(ctx, bidder1, id), ErrUnauthorized)
	assert.ErrorIs(t, e.svc.EmergencyStopAuction(ctx, owner, 99), ErrNotFound)

	require.NoError(t, e.svc.EmergencyStopAuction(ctx, owner, id))

	dto, err := e.svc.GetAuction(ctx, id)
	require.NoError(t, err)
	assert.False(t, dto.IsActive)
	assert.False(t, dto.IsSettled)

	h, p := e.seal(t, eth(2))
	assert.ErrorIs(t, e.svc.PlaceBid(ctx, id, bidder1, h, p, eth(2)), ErrAuctionInactive)

	assert.ErrorIs(t, e.svc.EmergencyStopAuction(ctx, owner, id), ErrAuctionInactive)
	assert.Len(t, e.bus.OfType(events.TypeAuctionStopped), 1)
}


func TestWithdrawAfterEmergencyStop(t *testing.T) {
	e := newTestEnv(t)
	id := e.createAuction(t, eth(1), 86400)

	e.bid(t, id, bidder1, eth(2), eth(2))
	e.bid(t, id, bidder2, eth(3), eth(3))
	require.NoError(t, e.svc.EmergencyStopAuction(ctx, owner, id))

	got1, err := e.svc.WithdrawFunds(ctx, bidder1)
	require.NoError(t, err)
	got2, err := e.svc.WithdrawFunds(ctx, bidder2)
	require.NoError(t, err)

	assert.True(t, e.svc.BidderFunds(ctx, bidder1).IsZero())
	assert.True(t, e.svc.BidderFunds(ctx, bidder2).IsZero())
	assert.True(t, got1.Add(got2).Equal(eth(5)), "payouts must equal escrowed total")
	assert.True(t, e.treasury.paid[bidder1].Equal(eth(2)))
	assert.True(t, e.treasury.paid[bidder2].Equal(eth(3)))
}

func TestWithdrawNoFunds(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.svc.WithdrawFunds(ctx, bidder1)
	assert.ErrorIs(t, err, ErrNoFunds)
}

func TestWithdrawLockedWhileLeading(t *testing.T) {
	e := newTestEnv(t)
	id := e.createAuction(t, eth(1), 86400)

	e.bid(t, id, bidder1, eth(2), eth(2))
	e.bid(t, id, bidder2, eth(3), eth(3))

	// bidder2 leads on escrow and stays locked; bidder1 may leave.
	_, err := e.svc.WithdrawFunds(ctx, bidder2)
	assert.ErrorIs(t, err, ErrFundsLocked)

	got, err := e.svc.WithdrawFunds(ctx, bidder1)
	require.NoError(t, err)
	assert.True(t, got.Equal(eth(2)))
}

func TestWithdrawRestoredOnTransferFailure(t *testing.T) {
	e := newTestEnv(t)
	e.svc.treasury = failingTreasury{}
	id := e.createAuction(t, eth(1), 86400)

	e.bid(t, id, bidder1, eth(2), eth(2))
	require.NoError(t, e.svc.EmergencyStopAuction(ctx, owner, id))

	_, err := e.svc.WithdrawFunds(ctx, bidder1)
	require.Error(t, err)
	assert.True(t, e.svc.BidderFunds(ctx, bidder1).Equal(eth(2)), "failed transfer must leave balance untouched")
}


func TestSettle(t *testing.T) {
	e := newTestEnv(t)
	id := e.createAuction(t, eth(1), 3600)

	e.bid(t, id, bidder1, decimal.New(15, 17), decimal.New(15, 17)) // 1.5 ETH
	e.bid(t, id, bidder2, eth(2), eth(2))

	ok, err := e.svc.CanSettleAuction(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, e.svc.Settle(ctx, id), ErrAuctionRunning)

	e.advance(3601 * time.Second)
	ok, err = e.svc.CanSettleAuction(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, e.svc.Settle(ctx, id))

	dto, err := e.svc.GetAuction(ctx, id)
	require.NoError(t, err)
	assert.True(t, dto.IsSettled)
	assert.False(t, dto.IsActive, "isSettled implies not active")

	// 2.5% of 2 ETH = 0.05 ETH to the owner, the rest to the seller.
	fee := decimal.New(5, 16)
	assert.True(t, e.svc.BidderFunds(ctx, owner).Equal(fee))
	assert.True(t, e.svc.BidderFunds(ctx, seller).Equal(eth(2).Sub(fee)))
	assert.True(t, e.svc.BidderFunds(ctx, bidder2).IsZero())
	assert.True(t, e.svc.BidderFunds(ctx, bidder1).Equal(decimal.New(15, 17)), "losing escrow stays withdrawable")

	settled := e.bus.OfType(events.TypeAuctionSettled)
	require.Len(t, settled, 1)
	assert.Equal(t, bidder2, settled[0].Actor)

	assert.ErrorIs(t, e.svc.Settle(ctx, id), ErrAlreadySettled)
	assert.True(t, e.svc.BidderFunds(ctx, seller).Equal(eth(2).Sub(fee)), "repeat settle must not double-pay")

	ok, err = e.svc.CanSettleAuction(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettlePaysEachPartyExactlyOnce(t *testing.T) {
	e := newTestEnv(t)
	id := e.createAuction(t, eth(1), 3600)

	e.bid(t, id, bidder1, decimal.New(15, 17), decimal.New(15, 17)) // 1.5 ETH, loses
	e.bid(t, id, bidder2, eth(2), eth(2))

	e.advance(3601 * time.Second)
	require.NoError(t, e.svc.Settle(ctx, id))

	// Settlement only moves value inside custody; the treasury is untouched
	// until the parties withdraw.
	assert.Empty(t, e.treasury.paid)

	for _, addr := range []string{seller, owner, bidder1} {
		_, err := e.svc.WithdrawFunds(ctx, addr)
		require.NoError(t, err)
	}
	_, err := e.svc.WithdrawFunds(ctx, bidder2)
	assert.ErrorIs(t, err, ErrNoFunds, "winning escrow was spent on the sale")

	fee := decimal.New(5, 16) // 2.5% of 2 ETH
	assert.True(t, e.treasury.paid[seller].Equal(eth(2).Sub(fee)), "seller gets net proceeds once")
	assert.True(t, e.treasury.paid[owner].Equal(fee))
	assert.True(t, e.treasury.paid[bidder1].Equal(decimal.New(15, 17)))

	total := decimal.Zero
	for _, v := range e.treasury.paid {
		total = total.Add(v)
	}
	assert.True(t, total.Equal(decimal.New(35, 17)), "outflow equals the escrowed total")
}

func TestSettleWinnerBySealedAmountNotEscrow(t *testing.T) {
	e := newTestEnv(t)
	id := e.createAuction(t, eth(1), 3600)

	// bidder1 posts the larger escrow but the smaller sealed amount.
	e.bid(t, id, bidder1, decimal.New(12, 17), eth(3))
	e.bid(t, id, bidder2, eth(2), eth(2))

	e.advance(3601 * time.Second)
	require.NoError(t, e.svc.Settle(ctx, id))

	settled := e.bus.OfType(events.TypeAuctionSettled)
	require.Len(t, settled, 1)
	assert.Equal(t, bidder2, settled[0].Actor, "sealed comparison decides the winner")
	assert.True(t, e.svc.BidderFunds(ctx, bidder1).Equal(eth(3)))
}

func TestSettleReserveNotMet(t *testing.T) {
	e := newTestEnv(t)
	id := e.createAuction(t, eth(5), 3600)

	e.bid(t, id, bidder1, eth(2), eth(2))
	e.advance(3601 * time.Second)
	require.NoError(t, e.svc.Settle(ctx, id))

	dto, err := e.svc.GetAuction(ctx, id)
	require.NoError(t, err)
	assert.True(t, dto.IsSettled)
	assert.False(t, dto.IsActive)

	assert.True(t, e.svc.BidderFunds(ctx, bidder1).Equal(eth(2)), "no sale leaves escrow intact")
	assert.True(t, e.svc.BidderFunds(ctx, seller).IsZero())

	got, err := e.svc.WithdrawFunds(ctx, bidder1)
	require.NoError(t, err)
	assert.True(t, got.Equal(eth(2)))
}

func TestSettleNoBids(t *testing.T) {
	e := newTestEnv(t)
	id := e.createAuction(t, eth(1), 3600)

	e.advance(3601 * time.Second)
	require.NoError(t, e.svc.Settle(ctx, id))

	dto, err := e.svc.GetAuction(ctx, id)
	require.NoError(t, err)
	assert.True(t, dto.IsSettled)
}

func TestSettleStoppedAuction(t *testing.T) {
	e := newTestEnv(t)
	id := e.createAuction(t, eth(1), 3600)
	require.NoError(t, e.svc.EmergencyStopAuction(ctx, owner, id))

	e.advance(3601 * time.Second)
	assert.ErrorIs(t, e.svc.Settle(ctx, id), ErrAuctionInactive)

	ok, err := e.svc.CanSettleAuction(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}


func TestSetPlatformFee(t *testing.T) {
	e := newTestEnv(t)

	assert.Equal(t, uint32(250), e.svc.Platform(ctx).PlatformFeePercentage)

	require.NoError(t, e.svc.SetPlatformFee(ctx, owner, 500))
	assert.Equal(t, uint32(500), e.svc.Platform(ctx).PlatformFeePercentage)

	assert.ErrorIs(t, e.svc.SetPlatformFee(ctx, owner, 1001), ErrFeeTooHigh)
	require.NoError(t, e.svc.SetPlatformFee(ctx, owner, 1000))

	assert.ErrorIs(t, e.svc.SetPlatformFee(ctx, bidder1, 100), ErrUnauthorized)
}

func TestPauseBlocksStateChanges(t *testing.T) {
	e := newTestEnv(t)
	id := e.createAuction(t, eth(1), 86400)
	e.bid(t, id, bidder1, eth(2), eth(2))

	assert.ErrorIs(t, e.svc.Pause(ctx, bidder1), ErrUnauthorized)
	require.NoError(t, e.svc.Pause(ctx, owner))
	assert.True(t, e.svc.Platform(ctx).Paused)

	h, p := e.seal(t, eth(3))
	assert.ErrorIs(t, e.svc.PlaceBid(ctx, id, bidder2, h, p, eth(3)), ErrPaused)

	_, err := e.svc.CreateAuction(ctx, CreateAuctionInput{
		Seller: seller, ItemName: "x", SealedReserve: h, ReserveProof: p, Duration: 60,
	})
	assert.ErrorIs(t, err, ErrPaused)

	_, err = e.svc.WithdrawFunds(ctx, bidder1)
	assert.ErrorIs(t, err, ErrPaused)

	// Reads keep working while paused.
	_, err = e.svc.GetAuction(ctx, id)
	require.NoError(t, err)

	// Redundant pause is a no-op, not an error.
	require.NoError(t, e.svc.Pause(ctx, owner))
	assert.True(t, e.svc.Platform(ctx).Paused)

	require.NoError(t, e.svc.Unpause(ctx, owner))
	assert.False(t, e.svc.Platform(ctx).Paused)
	e.bid(t, id, bidder2, eth(3), eth(3))
}

func TestPlatformInfo(t *testing.T) {
	e := newTestEnv(t)
	e.createAuction(t, eth(1), 3600)

	info := e.svc.Platform(ctx)
	assert.Equal(t, owner, info.Owner)
	assert.False(t, info.Paused)
	assert.Equal(t, uint64(1), info.AuctionCount)
}
