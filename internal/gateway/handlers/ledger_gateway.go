package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"warehouse-system/internal/database/models"
	"warehouse-system/internal/gateway/middleware"
	ledgerhandler "warehouse-system/internal/services/ledger/handler"
)

// LedgerHTTPHandler exposes the stock ledger. Each mutating endpoint calls
// exactly one ledger operation.
type LedgerHTTPHandler struct {
	ledger *ledgerhandler.LedgerHandler
}

func NewLedgerHTTPHandler(ledger *ledgerhandler.LedgerHandler) *LedgerHTTPHandler {
	return &LedgerHTTPHandler{
		ledger: ledger,
	}
}

// actorOr falls back to the signed-in user when the payload names nobody.
func actorOr(c *gin.Context, name string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return middleware.Actor(c)
}

type ListTransactionsQuery struct {
	Type  string `form:"type"`
	Month string `form:"month"`
}

func (h *LedgerHTTPHandler) ListTransactions(c *gin.Context) {
	var query ListTransactionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}
	materialID, ok := queryID(c, "material_id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	views, err := h.ledger.ListTransactions(ctx, ledgerhandler.TransactionFilter{
		MaterialID: materialID,
		Type:       strings.ToUpper(query.Type),
		Month:      query.Month,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(views))
}

func (h *LedgerHTTPHandler) ListBorrows(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	views, err := h.ledger.ListBorrows(ctx, models.BorrowStatus(strings.ToUpper(c.Query("status"))))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(views))
}

func (h *LedgerHTTPHandler) StockIn(c *gin.Context) {
	var req ledgerhandler.StockInRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Importer = actorOr(c, req.Importer)

	ctx, cancel := requestContext(c)
	defer cancel()

	view, err := h.ledger.StockIn(ctx, req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(view))
}

func (h *LedgerHTTPHandler) StockOut(c *gin.Context) {
	var req ledgerhandler.StockOutRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Exporter = actorOr(c, req.Exporter)

	ctx, cancel := requestContext(c)
	defer cancel()

	view, err := h.ledger.StockOut(ctx, req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(view))
}

func (h *LedgerHTTPHandler) Borrow(c *gin.Context) {
	var req ledgerhandler.BorrowRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Approver = actorOr(c, req.Approver)

	ctx, cancel := requestContext(c)
	defer cancel()

	view, err := h.ledger.Borrow(ctx, req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(view))
}

func (h *LedgerHTTPHandler) Return(c *gin.Context) {
	var req ledgerhandler.ReturnRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	view, err := h.ledger.Return(ctx, req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(view))
}

func (h *LedgerHTTPHandler) ListInventoryChecks(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	checks, err := h.ledger.ListInventoryChecks(ctx)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(checks))
}

func (h *LedgerHTTPHandler) CreateInventoryCheck(c *gin.Context) {
	var req ledgerhandler.InventoryCheckRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Creator = actorOr(c, req.Creator)

	ctx, cancel := requestContext(c)
	defer cancel()

	check, err := h.ledger.CreateInventoryCheck(ctx, req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(check))
}
