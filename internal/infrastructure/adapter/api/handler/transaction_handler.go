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

// TransactionHandler handles owner-scoped ledger requests
type TransactionHandler struct {
	transactionUseCase usecase.TransactionUseCase
	logger             coreport.Logger
}

// NewTransactionHandler creates a new transaction handler instance
func NewTransactionHandler(
	transactionUseCase usecase.TransactionUseCase,
	logger coreport.Logger,
) *TransactionHandler {
	return &TransactionHandler{
		transactionUseCase: transactionUseCase,
		logger:             logger,
	}
}

// GetTransaction handles the GET /api/v1/transactions/:id endpoint
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	txn, err := h.transactionUseCase.GetTransaction(c.Request.Context(), middleware.OwnerIDFromContext(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTransactionResponse(txn))
}

// ListLinkTransactions handles the GET /api/v1/links/:token/transactions endpoint
func (h *TransactionHandler) ListLinkTransactions(c *gin.Context) {
	var query dto.TransactionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		_ = c.Error(fmt.Errorf("%w: %s", errs.ErrInvalidRequest, err.Error()))
		return
	}

	var status entity.TransactionStatus
	if query.Status != "" {
		parsed, err := entity.ParseTransactionStatus(query.Status)
		if err != nil {
			_ = c.Error(err)
			return
		}
		status = parsed
	}

	list, err := h.transactionUseCase.ListLinkTransactions(
		c.Request.Context(),
		middleware.OwnerIDFromContext(c),
		c.Param("token"),
		status,
		persistence.Page{Limit: query.Limit, Offset: query.Offset},
	)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := dto.TransactionListResponse{
		Transactions: make([]dto.TransactionResponse, 0, len(list.Transactions)),
		Total:        list.Total,
		Limit:        list.Page.Limit,
		Offset:       list.Page.Offset,
	}
	for _, txn := range list.Transactions {
		resp.Transactions = append(resp.Transactions, dto.NewTransactionResponse(txn))
	}
	c.JSON(http.StatusOK, resp)
}
