package handler

import (
	"fmt"
	"net/http"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/api/dto"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/api/middleware"
	"github.com/gin-gonic/gin"
)

// LinkHandler handles owner-facing payment link requests
type LinkHandler struct {
	linkUseCase  usecase.LinkUseCase
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

// NewLinkHandler creates a new link handler instance
func NewLinkHandler(
	linkUseCase usecase.LinkUseCase,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *LinkHandler {
	return &LinkHandler{
		linkUseCase:  linkUseCase,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// CreateLink handles the POST /api/v1/links endpoint
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req dto.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid link request format", map[string]any{
			"error": err.Error(),
		})
		_ = c.Error(fmt.Errorf("%w: %s", errs.ErrInvalidRequest, err.Error()))
		return
	}

	out, err := h.linkUseCase.CreateLink(c.Request.Context(), usecase.CreateLinkInput{
		OwnerID:     middleware.OwnerIDFromContext(c),
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		ExpiresAt:   req.ExpiresAt,
		MaxUses:     req.MaxUses,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header("Location", "/api/v1/links/"+out.Link.Token)
	c.JSON(http.StatusCreated, dto.NewLinkResponse(out.Link, out.RedemptionURL, h.timeProvider.Now()))
}

// ListLinks handles the GET /api/v1/links endpoint
func (h *LinkHandler) ListLinks(c *gin.Context) {
	var query dto.PageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		_ = c.Error(fmt.Errorf("%w: %s", errs.ErrInvalidRequest, err.Error()))
		return
	}

	list, err := h.linkUseCase.ListLinks(c.Request.Context(), middleware.OwnerIDFromContext(c), persistence.Page{
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	now := h.timeProvider.Now()
	resp := dto.LinkListResponse{
		Links:  make([]dto.LinkResponse, 0, len(list.Links)),
		Total:  list.Total,
		Limit:  list.Page.Limit,
		Offset: list.Page.Offset,
	}
	for _, link := range list.Links {
		resp.Links = append(resp.Links, dto.NewLinkResponse(link, h.linkUseCase.RedemptionURL(link.Token), now))
	}
	c.JSON(http.StatusOK, resp)
}

// GetLink handles the GET /api/v1/links/:token endpoint
func (h *LinkHandler) GetLink(c *gin.Context) {
	link, err := h.linkUseCase.GetLink(c.Request.Context(), middleware.OwnerIDFromContext(c), c.Param("token"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewLinkResponse(link, h.linkUseCase.RedemptionURL(link.Token), h.timeProvider.Now()))
}

// UpdateLink handles the PATCH /api/v1/links/:token endpoint
func (h *LinkHandler) UpdateLink(c *gin.Context) {
	var req dto.UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid link request format", map[string]any{
			"error": err.Error(),
		})
		_ = c.Error(fmt.Errorf("%w: %s", errs.ErrInvalidRequest, err.Error()))
		return
	}

	link, err := h.linkUseCase.UpdateLink(c.Request.Context(), middleware.OwnerIDFromContext(c), c.Param("token"), entity.LinkMetadataUpdate{
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewLinkResponse(link, h.linkUseCase.RedemptionURL(link.Token), h.timeProvider.Now()))
}
