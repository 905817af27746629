package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	audithandler "warehouse-system/internal/services/audit/handler"
	reportshandler "warehouse-system/internal/services/reports/handler"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHTTPHandler struct {
	reports *reportshandler.ReportsHandler
	audit   *audithandler.AuditHandler
}

func NewReportHTTPHandler(reports *reportshandler.ReportsHandler, audit *audithandler.AuditHandler) *ReportHTTPHandler {
	return &ReportHTTPHandler{
		reports: reports,
		audit:   audit,
	}
}

func (h *ReportHTTPHandler) Dashboard(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := h.reports.Dashboard(ctx)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(d))
}

func (h *ReportHTTPHandler) MonthlyReport(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	f, filename, err := h.reports.MonthlyReport(ctx, c.Query("month"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if _, err := f.WriteTo(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

func (h *ReportHTTPHandler) ListLogs(c *gin.Context) {
	limit := audithandler.DefaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid limit"))
			return
		}
		limit = n
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	logs, err := h.audit.List(ctx, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(logs))
}
