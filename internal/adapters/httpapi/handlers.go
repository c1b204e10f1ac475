package httpapi

import (
	"net/http"

	"livebid-service/internal/domain/shared"
	"livebid-service/internal/ports/inbound"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handlers exposes the REST endpoints over the application services
type Handlers struct {
	auctionService inbound.AuctionService
	bidService     inbound.BidService
	logger         zerolog.Logger
}

type HandlersParams struct {
	AuctionService inbound.AuctionService
	BidService     inbound.BidService
	Logger         zerolog.Logger
}

// NewHandlers creates the REST handlers
func NewHandlers(params HandlersParams) *Handlers {
	return &Handlers{
		auctionService: params.AuctionService,
		bidService:     params.BidService,
		logger:         params.Logger.With().Str("component", "http_handlers").Logger(),
	}
}

// ListAuctions handles GET /api/auctions
func (h *Handlers) ListAuctions(c *gin.Context) {
	auctions, err := h.auctionService.ListAuctions(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to list auctions")
		return
	}

	JSONResponse(c, http.StatusOK, auctions, "auctions retrieved")
}

// GetAuction handles GET /api/auctions/:id
func (h *Handlers) GetAuction(c *gin.Context) {
	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		JSONError(c, http.StatusBadRequest, shared.ErrInvalidRequest, "invalid auction id")
		return
	}

	detail, err := h.auctionService.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		h.fail(c, err, "failed to get auction")
		return
	}

	JSONResponse(c, http.StatusOK, detail, "auction retrieved")
}

type createAuctionRequest struct {
	ItemName      string  `json:"item_name" binding:"required"`
	Description   string  `json:"description"`
	ImageURL      *string `json:"image_url"`
	StartingPrice float64 `json:"starting_price" binding:"required"`
	StartTime     string  `json:"start_time" binding:"required"`
	EndTime       string  `json:"end_time" binding:"required"`
}

// CreateAuction handles POST /api/auctions (admin)
func (h *Handlers) CreateAuction(c *gin.Context) {
	identity, _ := IdentityFromContext(c)

	var req createAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, err, "invalid request body")
		return
	}

	created, err := h.auctionService.CreateAuction(c.Request.Context(), inbound.CreateAuctionRequest{
		Creator:       identity,
		ItemName:      req.ItemName,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		StartingPrice: req.StartingPrice,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
	})
	if err != nil {
		h.fail(c, err, "failed to create auction")
		return
	}

	JSONResponse(c, http.StatusCreated, created, "auction created")
}

// DeleteAuction handles DELETE /api/auctions/:id (admin)
func (h *Handlers) DeleteAuction(c *gin.Context) {
	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		JSONError(c, http.StatusBadRequest, shared.ErrInvalidRequest, "invalid auction id")
		return
	}

	if err := h.auctionService.DeleteAuction(c.Request.Context(), auctionID); err != nil {
		h.fail(c, err, "failed to delete auction")
		return
	}

	c.Status(http.StatusNoContent)
}

type placeBidRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// PlaceBid handles POST /api/auctions/:id/bids (authenticated)
func (h *Handlers) PlaceBid(c *gin.Context) {
	identity, _ := IdentityFromContext(c)

	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		JSONError(c, http.StatusBadRequest, shared.ErrInvalidRequest, "invalid auction id")
		return
	}

	var req placeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, err, "invalid request body")
		return
	}

	committed, err := h.bidService.PlaceBid(c.Request.Context(), inbound.PlaceBidRequest{
		AuctionID: auctionID,
		Bidder:    identity,
		Amount:    req.Amount,
	})
	if err != nil {
		h.fail(c, err, "bid rejected")
		return
	}

	JSONResponse(c, http.StatusCreated, committed, "bid placed")
}

// GetMyBids handles GET /api/bids/my-bids (authenticated)
func (h *Handlers) GetMyBids(c *gin.Context) {
	identity, _ := IdentityFromContext(c)

	bids, err := h.bidService.GetMyBids(c.Request.Context(), identity.UserID)
	if err != nil {
		h.fail(c, err, "failed to get bid history")
		return
	}

	JSONResponse(c, http.StatusOK, bids, "bid history retrieved")
}

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "livebid"})
}

func (h *Handlers) fail(c *gin.Context, err error, logMsg string) {
	status, message := MapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg(logMsg)
	} else {
		h.logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg(logMsg)
	}
	JSONError(c, status, err, message)
}
