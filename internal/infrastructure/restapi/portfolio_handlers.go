package restapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"brokerage_tracker/internal/app/port"
	"brokerage_tracker/internal/domain/entity"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RefreshFailedResponse is returned when no price could be fetched and none
// was known before.
type RefreshFailedResponse struct {
	Error     string                  `json:"error"`
	Providers []entity.ProviderStatus `json:"providers"`
}

type createAccountRequest struct {
	Name string `json:"name"`
}

type positionRequest struct {
	AccountID string  `json:"accountId"`
	Symbol    string  `json:"symbol"`
	Quantity  float64 `json:"quantity"`
	CostBasis float64 `json:"costBasis"`
	Notes     string  `json:"notes"`
}

func (r positionRequest) toPosition(id string) entity.Position {
	return entity.Position{
		ID:        id,
		AccountID: r.AccountID,
		Symbol:    r.Symbol,
		Quantity:  r.Quantity,
		CostBasis: r.CostBasis,
		Notes:     r.Notes,
	}
}

// PortfolioHandler serves accounts, positions, prices and the valuation view.
type PortfolioHandler struct {
	portfolioService port.PortfolioService
	logger           *zap.Logger
}

// NewPortfolioHandler creates a new instance of PortfolioHandler.
func NewPortfolioHandler(ps port.PortfolioService, logger *zap.Logger) *PortfolioHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortfolioHandler{
		portfolioService: ps,
		logger:           logger.Named("PortfolioHandler"),
	}
}

// ListAccounts handles GET /accounts.
func (h *PortfolioHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.portfolioService.ListAccounts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// CreateAccount handles POST /accounts.
func (h *PortfolioHandler) CreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	acc, err := h.portfolioService.CreateAccount(c.Request.Context(), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, acc)
}

// DeleteAccount handles DELETE /accounts/:id.
func (h *PortfolioHandler) DeleteAccount(c *gin.Context) {
	if err := h.portfolioService.DeleteAccount(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPositions handles GET /positions?account=.
func (h *PortfolioHandler) ListPositions(c *gin.Context) {
	positions, err := h.portfolioService.ListPositions(c.Request.Context(), c.Query("account"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

// CreatePosition handles POST /positions.
func (h *PortfolioHandler) CreatePosition(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	p, err := h.portfolioService.CreatePosition(c.Request.Context(), req.toPosition(""))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// UpdatePosition handles PUT /positions/:id.
func (h *PortfolioHandler) UpdatePosition(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	p, err := h.portfolioService.UpdatePosition(c.Request.Context(), req.toPosition(c.Param("id")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeletePosition handles DELETE /positions/:id.
func (h *PortfolioHandler) DeletePosition(c *gin.Context) {
	if err := h.portfolioService.DeletePosition(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetPrices handles GET /prices.
func (h *PortfolioHandler) GetPrices(c *gin.Context) {
	snap, err := h.portfolioService.LastPrices(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// RefreshPrices handles POST /prices/refresh.
func (h *PortfolioHandler) RefreshPrices(c *gin.Context) {
	result, err := h.portfolioService.RefreshPrices(c.Request.Context())
	if err != nil {
		if errors.Is(err, entity.ErrAllProvidersFailed) {
			c.JSON(http.StatusBadGateway, RefreshFailedResponse{Error: err.Error(), Providers: result.Providers})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetPortfolio handles GET /portfolio?account=&q=&sort=.
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	sortKey := entity.SortKey(strings.ToLower(strings.TrimSpace(c.Query("sort"))))
	switch sortKey {
	case "", entity.SortBySymbol, entity.SortByValue, entity.SortByGain:
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "sort must be one of symbol, value, gain"})
		return
	}

	view, err := h.portfolioService.View(c.Request.Context(), entity.ViewQuery{
		AccountID: c.Query("account"),
		Search:    c.Query("q"),
		Sort:      sortKey,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *PortfolioHandler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entity.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidPosition), errors.Is(err, entity.ErrInvalidAccount):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
