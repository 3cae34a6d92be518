package handler

import (
	"fmt"
	"net/http"

	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/api/dto"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/api/middleware"
	"github.com/gin-gonic/gin"
)

// PaymentHandler handles the public, payer-facing endpoints
type PaymentHandler struct {
	linkUseCase       usecase.LinkUseCase
	redemptionUseCase usecase.RedemptionUseCase
	logger            coreport.Logger
}

// NewPaymentHandler creates a new payment handler instance
func NewPaymentHandler(
	linkUseCase usecase.LinkUseCase,
	redemptionUseCase usecase.RedemptionUseCase,
	logger coreport.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		linkUseCase:       linkUseCase,
		redemptionUseCase: redemptionUseCase,
		logger:            logger,
	}
}

// GetPaymentLink handles the GET /api/v1/pay/:token endpoint
func (h *PaymentHandler) GetPaymentLink(c *gin.Context) {
	view, err := h.linkUseCase.GetPublicLink(c.Request.Context(), c.Param("token"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPublicLinkResponse(view.Link, view.Status, view.RemainingUses))
}

// Redeem handles the POST /api/v1/pay/:token endpoint.
// Any attempt that reached the ledger is answered with 200 and its terminal transaction,
// whether it completed or failed.
func (h *PaymentHandler) Redeem(c *gin.Context) {
	var req dto.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid redemption request format", map[string]any{
			"link_token": c.Param("token"),
			"error":      err.Error(),
		})
		_ = c.Error(fmt.Errorf("%w: %s", errs.ErrInvalidRequest, err.Error()))
		return
	}

	out, err := h.redemptionUseCase.Redeem(c.Request.Context(), usecase.RedeemInput{
		LinkToken:      c.Param("token"),
		Payer:          req.ToPayer(),
		Card:           req.ToCard(),
		IdempotencyKey: c.GetHeader(middleware.IdempotencyKeyHeader),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	if out.Replayed {
		c.Header(middleware.IdempotencyReplayHeader, "true")
	}
	c.JSON(http.StatusOK, dto.RedeemResponse{
		TransactionResponse: dto.NewTransactionResponse(out.Transaction),
		Replayed:            out.Replayed,
	})
}
