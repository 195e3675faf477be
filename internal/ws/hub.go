package ws

import (
	"sync"
)

// PlatformFeed is the pseudo-room carrying platform-wide events
// (pause/unpause, fee changes, withdrawals).
const PlatformFeed = "platform"

// Hub keeps client sets per event feed: one room per auction id plus the
// platform feed.
type Hub struct {
	rooms sync.Map // feed -> *room
}

func NewHub() *Hub { return &Hub{} }

// Broadcast is called by the Redis subscription manager.
func (h *Hub) Broadcast(feed string, msg []byte) {
	if v, ok := h.rooms.Load(feed); ok {
		v.(*room).broadcast(msg)
	}
}

func (h *Hub) Join(feed string, c *clientConn) {
	r, _ := h.rooms.LoadOrStore(feed, newRoom())
	r.(*room).add(c)
}

// Leave drops the client and evicts the room once its last watcher is
// gone; settled auctions would otherwise pin empty rooms forever.
func (h *Hub) Leave(feed string, c *clientConn) {
	if v, ok := h.rooms.Load(feed); ok {
		if v.(*room).remove(c) == 0 {
			h.rooms.Delete(feed)
		}
	}
}
