package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sealedauctiongo/internal/config"
	"sealedauctiongo/internal/http/platformhandler"
	"sealedauctiongo/internal/services/platform"
	"sealedauctiongo/internal/ws"
)

type httpServer struct {
	cfg         *config.Config
	srv         http.Server
	ln          net.Listener
	platformSvc platform.IPlatformService
	wsSrv       *ws.WsServer
}

func NewHttpServer(cfg *config.Config, wsSrv *ws.WsServer, platformSvc platform.IPlatformService) *httpServer {
	return &httpServer{
		cfg:         cfg,
		wsSrv:       wsSrv,
		platformSvc: platformSvc,
	}
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.cfg.HttpServerPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	routerEngine := gin.New()
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// Service metadata endpoints.
	routerEngine.GET("/api/health", h.health)
	routerEngine.GET("/config.json", h.configJSON)
	routerEngine.GET("/api/deployments", h.deployments)

	// websocket event feed
	if h.wsSrv != nil {
		routerEngine.GET("/ws", h.wsSrv.Handle)
	}

	// REST API
	ph := platformhandler.New(h.platformSvc)
	ph.Register(routerEngine)

	h.srv = http.Server{
		Handler: routerEngine,
	}

	return h.srv.Serve(h.ln)
}

func (h *httpServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "Sealed-Bid Auction Platform",
		"version":   "1.0.0",
	})
}

func (h *httpServer) configJSON(c *gin.Context) {
	info := h.platformSvc.Platform(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"owner": info.Owner,
		"features": gin.H{
			"auction":     true,
			"bidding":     true,
			"privacy":     true,
			"marketplace": true,
		},
		"auctionConfig": gin.H{
			"defaultDuration": h.cfg.DefaultAuctionDuration,
			"maxDuration":     h.cfg.MaxAuctionDuration,
			"minBidIncrement": h.cfg.MinBidIncrement,
			"feePercentage":   info.PlatformFeePercentage,
		},
	})
}

// deployments serves the deployment-address bookkeeping file when present.
func (h *httpServer) deployments(c *gin.Context) {
	raw, err := os.ReadFile(h.cfg.DeploymentsFile)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"contracts": gin.H{}})
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in-flight requests to finish. The signal context
// is already cancelled when this runs, so the drain deadline stands alone.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err
	}

	if ctx.Err() == context.DeadlineExceeded {
		zap.L().Error("http_dispose", zap.Error(errors.New("shutdown timed out")))
	}

	return nil
}
