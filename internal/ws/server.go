package ws

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sealedauctiongo/internal/services/platform"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 20 * time.Second // must be < pongWait
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
}

// WsServer serves the read-only event feed: clients watch one auction (or
// the platform feed) and receive every event published for it. Bids carry
// escrow value and sealed payloads, so they go through the REST API.
type WsServer struct {
	hub    *Hub
	subMgr *subscriptionManager
	svc    platform.IPlatformService
}

func NewWsServer(h *Hub, rdc *redis.Client, svc platform.IPlatformService) *WsServer {
	return &WsServer{
		hub:    h,
		subMgr: newSubscriptionManager(rdc, h),
		svc:    svc,
	}
}

// Handle is the Gin entry-point: /ws?auction_id=<id|platform>
func (s *WsServer) Handle(ginCtx *gin.Context) {
	feed := ginCtx.Query("auction_id")
	if feed == "" {
		ginCtx.JSON(http.StatusBadRequest, ErrorBody{Error: "auction_id is required"})
		return
	}

	if feed != PlatformFeed {
		id, err := strconv.ParseUint(feed, 10, 64)
		if err != nil {
			ginCtx.JSON(http.StatusBadRequest, ErrorBody{Error: "auction_id must be numeric or 'platform'"})
			return
		}
		// Reject unknown auctions before upgrading.
		if _, err := s.svc.GetAuction(ginCtx.Request.Context(), id); err != nil {
			ginCtx.JSON(http.StatusNotFound, ErrorBody{Error: err.Error()})
			return
		}
	}

	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}

	conn := &clientConn{rawConn: rawConn}
	s.hub.Join(feed, conn)
	s.subMgr.Subscribe(feed) // may be a no-op (already subscribed)

	if err := s.pushInitialSnapshot(ginCtx, feed, conn); err != nil {
		zap.L().Warn("ws.snapshot", zap.Error(err))
	}

	go s.reader(feed, conn)
	go s.pinger(conn)
}

func (s *WsServer) pushInitialSnapshot(ginCtx *gin.Context, feed string, conn *clientConn) error {
	var body any
	if feed == PlatformFeed {
		body = s.svc.Platform(ginCtx.Request.Context())
	} else {
		id, _ := strconv.ParseUint(feed, 10, 64)
		dto, err := s.svc.GetAuction(ginCtx.Request.Context(), id)
		if err != nil {
			return err
		}
		body = dto
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return conn.writeJSON(Envelope{Event: "auctions/snapshot", Body: raw})
}

// reader drains the connection until the peer goes away, then tears the
// room membership and subscription down.
func (s *WsServer) reader(feed string, conn *clientConn) {
	defer func() {
		s.hub.Leave(feed, conn)
		s.subMgr.Unsubscribe(feed)
	}()

	conn.rawConn.SetReadLimit(512)
	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.rawConn.ReadMessage(); err != nil {
			return // client closed or errored
		}
		// Inbound frames are ignored: the feed is one-way.
	}
}

func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.write(websocket.PingMessage, nil); err != nil {
			_ = conn.rawConn.Close()
			return
		}
	}
}
