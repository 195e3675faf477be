// Package events carries the platform's event records from the core service
// to the access layer (WebSocket fan-out) and the Postgres audit trail.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeAuctionCreated Type = "auction_created"
	TypeBidPlaced      Type = "bid_placed"
	TypeAuctionStopped Type = "auction_stopped"
	TypeAuctionSettled Type = "auction_settled"
	TypeFundsWithdrawn Type = "funds_withdrawn"
	TypeFeeUpdated     Type = "fee_updated"
	TypePaused         Type = "paused"
	TypeUnpaused       Type = "unpaused"
)

// PlatformScope marks events that concern the platform as a whole rather
// than a single auction (pause, fee changes, withdrawals).
const PlatformScope int64 = -1

type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"event"`
	AuctionID int64     `json:"auction_id"`
	Actor     string    `json:"actor,omitempty"`
	Value     string    `json:"value,omitempty"`
	At        time.Time `json:"at"`
}

// New fills in the identity and timestamp fields.
func New(t Type, auctionID int64, actor, value string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		AuctionID: auctionID,
		Actor:     actor,
		Value:     value,
		At:        time.Now().UTC(),
	}
}

type Bus interface {
	Publish(ctx context.Context, ev Event) error
}

// MemoryBus collects events in-process. Used by tests and as the fallback
// when no Redis endpoint is configured.
type MemoryBus struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryBus() *MemoryBus { return &MemoryBus{} }

func (b *MemoryBus) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
	return nil
}

// Events returns a snapshot of everything published so far.
func (b *MemoryBus) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// OfType filters the snapshot by event type.
func (b *MemoryBus) OfType(t Type) []Event {
	var out []Event
	for _, ev := range b.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
