package ws

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sealedauctiongo/internal/events"
)

// subscriptionManager guarantees exactly one Redis subscription per event
// feed, no matter how many websocket clients watch the same auction.
type subscriptionManager struct {
	rdb  *redis.Client
	hub  *Hub
	mu   sync.Mutex
	subs map[string]*subEntry // feed -> subscription data
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

func newSubscriptionManager(rdb *redis.Client, hub *Hub) *subscriptionManager {
	return &subscriptionManager{
		rdb:  rdb,
		hub:  hub,
		subs: make(map[string]*subEntry),
	}
}

func channelFor(feed string) string {
	if feed == PlatformFeed {
		return events.Channel(events.PlatformScope)
	}
	id, err := strconv.ParseInt(feed, 10, 64)
	if err != nil {
		return ""
	}
	return events.Channel(id)
}

// Subscribe ensures the process listens on the feed's channel; subsequent
// calls for the same feed only bump the ref-counter.
func (sm *subscriptionManager) Subscribe(feed string) {
	channel := channelFor(feed)
	if channel == "" {
		return
	}

	sm.mu.Lock()
	if e, ok := sm.subs[feed]; ok {
		e.refCnt++
		sm.mu.Unlock()
		return
	}

	// First consumer: create the Redis SUB and the fan-out loop.
	ctx, cancel := context.WithCancel(context.Background())
	ps := sm.rdb.Subscribe(ctx, channel)

	sm.subs[feed] = &subEntry{refCnt: 1, cancel: cancel}
	sm.mu.Unlock()

	go func() {
		defer ps.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ps.Channel():
				if !ok { // Redis connection closed.
					return
				}
				wrapped, err := wrapEvent(m.Payload)
				if err != nil {
					zap.L().Warn("ws.wrap_event_failed", zap.Error(err))
					wrapped = []byte(m.Payload) // forward as-is
				}
				sm.hub.Broadcast(feed, wrapped)
			}
		}
	}()
}

// Unsubscribe drops the ref-counter and tears the Redis SUB down when the
// last websocket client leaves the feed.
func (sm *subscriptionManager) Unsubscribe(feed string) {
	sm.mu.Lock()
	e, ok := sm.subs[feed]
	if !ok {
		sm.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		sm.mu.Unlock()
		return
	}
	delete(sm.subs, feed)
	sm.mu.Unlock()

	e.cancel()
}

// wrapEvent turns the bus payload
//
//	{"id":"…","event":"bid_placed","auction_id":0,…}
//
// into the public WS envelope
//
//	{"event":"auctions/bid_placed","body":{…}}
func wrapEvent(payload string) ([]byte, error) {
	var ev events.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return nil, err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Event: "auctions/" + string(ev.Type),
		Body:  body,
	})
}
