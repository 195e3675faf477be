package platform

import (
	"time"

	"github.com/shopspring/decimal"

	"sealedauctiongo/internal/sealed"
)

// Auction is the registry record. HighestBid/HighestBidder track the
// escrow-visible leader only; the sealed amounts are never compared here.
type Auction struct {
	ID              uint64
	Seller          string
	ItemName        string
	ItemDescription string
	SealedReserve   sealed.Handle
	ReserveProof    sealed.Proof
	StartingPrice   decimal.Decimal
	HighestBid      decimal.Decimal
	HighestBidder   string
	BidCount        uint32
	CreationTime    time.Time
	EndTime         time.Time
	IsActive        bool
	IsSettled       bool
}

// Status derives the lifecycle label used by list filters and the DB mirror.
func (a *Auction) Status() string {
	switch {
	case a.IsSettled:
		return StatusSettled
	case a.IsActive:
		return StatusActive
	default:
		return StatusStopped
	}
}

const (
	StatusActive  = "ACTIVE"
	StatusSettled = "SETTLED"
	StatusStopped = "STOPPED"
)

// Bid is the single outstanding bid a bidder holds on one auction.
// Re-bidding replaces the sealed amount and tops the escrow up.
type Bid struct {
	AuctionID    uint64
	Bidder       string
	SealedAmount sealed.Handle
	AmountProof  sealed.Proof
	Escrow       decimal.Decimal
	PlacedAt     time.Time
}

type CreateAuctionInput struct {
	Seller          string
	ItemName        string
	ItemDescription string
	SealedReserve   sealed.Handle
	ReserveProof    sealed.Proof
	StartingPrice   decimal.Decimal
	Duration        int64 // seconds
}

type AuctionDTO struct {
	ID              uint64    `json:"id"`
	Seller          string    `json:"seller"`
	ItemName        string    `json:"item_name"`
	ItemDescription string    `json:"item_description"`
	StartingPrice   string    `json:"starting_price"`
	HighestBid      string    `json:"highest_bid"`
	HighestBidder   string    `json:"highest_bidder,omitempty"`
	BidCount        uint32    `json:"bid_count"`
	CreationTime    time.Time `json:"creation_time"`
	EndTime         time.Time `json:"end_time"`
	Status          string    `json:"status"`
	IsActive        bool      `json:"is_active"`
	IsSettled       bool      `json:"is_settled"`
}

type PlatformDTO struct {
	Owner                 string `json:"owner"`
	PlatformFeePercentage uint32 `json:"platform_fee_percentage"`
	Paused                bool   `json:"paused"`
	AuctionCount          uint64 `json:"auction_count"`
}

func (a *Auction) dto() *AuctionDTO {
	return &AuctionDTO{
		ID:              a.ID,
		Seller:          a.Seller,
		ItemName:        a.ItemName,
		ItemDescription: a.ItemDescription,
		StartingPrice:   a.StartingPrice.String(),
		HighestBid:      a.HighestBid.String(),
		HighestBidder:   a.HighestBidder,
		BidCount:        a.BidCount,
		CreationTime:    a.CreationTime,
		EndTime:         a.EndTime,
		Status:          a.Status(),
		IsActive:        a.IsActive,
		IsSettled:       a.IsSettled,
	}
}
