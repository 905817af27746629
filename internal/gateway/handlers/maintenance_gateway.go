package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"warehouse-system/internal/gateway/middleware"
	maintenancehandler "warehouse-system/internal/services/maintenance/handler"
)

type MaintenanceHTTPHandler struct {
	maintenance *maintenancehandler.MaintenanceHandler
}

func NewMaintenanceHTTPHandler(maintenance *maintenancehandler.MaintenanceHandler) *MaintenanceHTTPHandler {
	return &MaintenanceHTTPHandler{
		maintenance: maintenance,
	}
}

func (h *MaintenanceHTTPHandler) ListSchedules(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	schedules, err := h.maintenance.ListSchedules(ctx)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(schedules))
}

func (h *MaintenanceHTTPHandler) CreateSchedule(c *gin.Context) {
	var req maintenancehandler.CreateScheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	schedule, err := h.maintenance.CreateSchedule(ctx, req, middleware.Actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(schedule))
}

func (h *MaintenanceHTTPHandler) DeleteSchedule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.maintenance.DeleteSchedule(ctx, id, middleware.Actor(c)); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse("Maintenance schedule deleted successfully"))
}

func (h *MaintenanceHTTPHandler) Complete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req maintenancehandler.CompleteRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Performer == "" {
		req.Performer = middleware.Actor(c)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	entry, err := h.maintenance.Complete(ctx, id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(entry))
}

func (h *MaintenanceHTTPHandler) ListLogs(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	logs, err := h.maintenance.ListLogs(ctx)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(logs))
}
