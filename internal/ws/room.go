package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// room is the set of websocket clients watching one feed.
type room struct {
	mu    sync.RWMutex
	conns map[*clientConn]struct{}
}

func newRoom() *room { return &room{conns: map[*clientConn]struct{}{}} }

func (r *room) add(c *clientConn) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()
}

// remove closes the connection and reports how many clients stay behind,
// so the hub can evict rooms that emptied out.
func (r *room) remove(c *clientConn) int {
	r.mu.Lock()
	delete(r.conns, c)
	n := len(r.conns)
	r.mu.Unlock()
	c.rawConn.Close()
	return n
}

func (r *room) broadcast(msg []byte) {
	// Snapshot under the read lock, do the I/O outside it.
	r.mu.RLock()
	conns := make([]*clientConn, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(websocket.TextMessage, msg); err != nil {
			r.remove(c)
		}
	}
}
