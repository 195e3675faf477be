package platformhandler

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"sealedauctiongo/internal/sealed"
	"sealedauctiongo/internal/services/platform"
)

type Handler struct {
	svc platform.IPlatformService
}

func New(svc platform.IPlatformService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/auctions", h.create)
	r.GET("/auctions", h.list)
	r.GET("/auctions/count", h.count)
	r.GET("/auctions/:id", h.info)
	r.POST("/auctions/:id/bid", h.bid)
	r.POST("/auctions/:id/stop", h.stop)
	r.POST("/auctions/:id/settle", h.settle)
	r.GET("/auctions/:id/settleable", h.settleable)
	r.GET("/auctions/:id/bids/count", h.bidCount)
	r.GET("/auctions/:id/bids/:address", h.hasBid)

	r.GET("/funds/:address", h.funds)
	r.POST("/funds/withdraw", h.withdraw)

	r.GET("/platform", h.platform)
	r.POST("/platform/fee", h.setFee)
	r.POST("/platform/pause", h.pause)
	r.POST("/platform/unpause", h.unpause)
}

// statusFor maps the core's sentinel errors onto HTTP statuses so the access
// layer can render a precise message.
func statusFor(err error) int {
	switch {
	case errors.Is(err, platform.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, platform.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, platform.ErrInvalidInput),
		errors.Is(err, platform.ErrInvalidDuration),
		errors.Is(err, platform.ErrBidBelowIncrement):
		return http.StatusBadRequest
	default:
		return http.StatusConflict
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
}

func auctionID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid auction id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) create(c *gin.Context) {
	var body CreateAuctionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	handle, err := base64.StdEncoding.DecodeString(body.SealedReserve)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "sealed_reserve must be base64"})
		return
	}
	starting := decimal.Zero
	if body.StartingPrice != "" {
		if starting, err = decimal.NewFromString(body.StartingPrice); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "starting_price must be numeric"})
			return
		}
	}

	id, err := h.svc.CreateAuction(c.Request.Context(), platform.CreateAuctionInput{
		Seller:          body.Seller,
		ItemName:        body.ItemName,
		ItemDescription: body.ItemDescription,
		SealedReserve:   sealed.Handle(handle),
		ReserveProof:    sealed.Proof(body.ReserveProof),
		StartingPrice:   starting,
		Duration:        body.Duration,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

func (h *Handler) info(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	dto, err := h.svc.GetAuction(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *Handler) list(c *gin.Context) {
	var q ListAuctionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	out, err := h.svc.ListAuctions(c.Request.Context(), q.Status, q.Limit, q.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) count(c *gin.Context) {
	c.JSON(http.StatusOK, CountResponse{Count: h.svc.GetAuctionCount(c.Request.Context())})
}

func (h *Handler) bid(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	var body PlaceBidBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	handle, err := base64.StdEncoding.DecodeString(body.SealedAmount)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "sealed_amount must be base64"})
		return
	}
	escrow, err := decimal.NewFromString(body.Escrow)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "escrow must be numeric"})
		return
	}

	if err := h.svc.PlaceBid(c.Request.Context(), id, body.Bidder,
		sealed.Handle(handle), sealed.Proof(body.AmountProof), escrow); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) stop(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	var body CallerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.svc.EmergencyStopAuction(c.Request.Context(), body.Caller, id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) settle(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	if err := h.svc.Settle(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) settleable(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	can, err := h.svc.CanSettleAuction(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, BoolResponse{Result: can})
}

func (h *Handler) bidCount(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	n, err := h.svc.GetBidCount(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: uint64(n)})
}

func (h *Handler) hasBid(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	has, err := h.svc.HasBid(c.Request.Context(), id, c.Param("address"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, BoolResponse{Result: has})
}

func (h *Handler) funds(c *gin.Context) {
	addr := c.Param("address")
	bal := h.svc.BidderFunds(c.Request.Context(), addr)
	c.JSON(http.StatusOK, BalanceResponse{Address: addr, Balance: bal.String()})
}

func (h *Handler) withdraw(c *gin.Context) {
	var body CallerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	amount, err := h.svc.WithdrawFunds(c.Request.Context(), body.Caller)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, WithdrawResponse{Address: body.Caller, Amount: amount.String()})
}

func (h *Handler) platform(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Platform(c.Request.Context()))
}

func (h *Handler) setFee(c *gin.Context) {
	var body SetFeeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.svc.SetPlatformFee(c.Request.Context(), body.Caller, body.FeeBps); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) pause(c *gin.Context) {
	h.togglePause(c, true)
}

func (h *Handler) unpause(c *gin.Context) {
	h.togglePause(c, false)
}

func (h *Handler) togglePause(c *gin.Context, pause bool) {
	var body CallerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	var err error
	if pause {
		err = h.svc.Pause(c.Request.Context(), body.Caller)
	} else {
		err = h.svc.Unpause(c.Request.Context(), body.Caller)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
