package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"warehouse-system/internal/database/models"
	"warehouse-system/internal/gateway/middleware"
	inventoryhandler "warehouse-system/internal/services/inventory/handler"
)

type InventoryHTTPHandler struct {
	inventory *inventoryhandler.InventoryHandler
}

func NewInventoryHTTPHandler(inventory *inventoryhandler.InventoryHandler) *InventoryHTTPHandler {
	return &InventoryHTTPHandler{
		inventory: inventory,
	}
}

// --- Warehouses ---

func (h *InventoryHTTPHandler) ListWarehouses(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	warehouses, err := h.inventory.ListWarehouses(ctx)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(warehouses))
}

func (h *InventoryHTTPHandler) GetWarehouse(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	wh, err := h.inventory.GetWarehouse(ctx, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(wh))
}

func (h *InventoryHTTPHandler) CreateWarehouse(c *gin.Context) {
	var req inventoryhandler.WarehouseRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	wh, err := h.inventory.CreateWarehouse(ctx, req, middleware.Actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(wh))
}

func (h *InventoryHTTPHandler) UpdateWarehouse(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req inventoryhandler.WarehouseRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	wh, err := h.inventory.UpdateWarehouse(ctx, id, req, middleware.Actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(wh))
}

func (h *InventoryHTTPHandler) DeleteWarehouse(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.inventory.DeleteWarehouse(ctx, id, middleware.Actor(c)); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse("Warehouse deleted successfully"))
}

// --- Suppliers ---

func (h *InventoryHTTPHandler) ListSuppliers(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	suppliers, err := h.inventory.ListSuppliers(ctx)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(suppliers))
}

func (h *InventoryHTTPHandler) GetSupplier(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	sup, err := h.inventory.GetSupplier(ctx, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(sup))
}

func (h *InventoryHTTPHandler) CreateSupplier(c *gin.Context) {
	var req inventoryhandler.SupplierRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	sup, err := h.inventory.CreateSupplier(ctx, req, middleware.Actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(sup))
}

func (h *InventoryHTTPHandler) UpdateSupplier(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req inventoryhandler.SupplierRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	sup, err := h.inventory.UpdateSupplier(ctx, id, req, middleware.Actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(sup))
}

func (h *InventoryHTTPHandler) DeleteSupplier(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.inventory.DeleteSupplier(ctx, id, middleware.Actor(c)); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse("Supplier deleted successfully"))
}

// --- Materials ---

type ListMaterialsQuery struct {
	Type     string `form:"type"`
	Search   string `form:"search"`
	LowStock bool   `form:"low_stock"`
}

func (h *InventoryHTTPHandler) ListMaterials(c *gin.Context) {
	var query ListMaterialsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}
	warehouseID, ok := queryID(c, "warehouse_id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	materials, err := h.inventory.ListMaterials(ctx, inventoryhandler.MaterialFilter{
		WarehouseID: warehouseID,
		Type:        models.MaterialType(query.Type),
		Search:      query.Search,
		LowStock:    query.LowStock,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(materials))
}

func (h *InventoryHTTPHandler) GetMaterial(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.inventory.GetMaterial(ctx, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(m))
}

func (h *InventoryHTTPHandler) CreateMaterial(c *gin.Context) {
	var req inventoryhandler.CreateMaterialRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.inventory.CreateMaterial(ctx, req, middleware.Actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(m))
}

func (h *InventoryHTTPHandler) UpdateMaterial(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req inventoryhandler.UpdateMaterialRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.inventory.UpdateMaterial(ctx, id, req, middleware.Actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(m))
}

func (h *InventoryHTTPHandler) DeleteMaterial(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.inventory.DeleteMaterial(ctx, id, middleware.Actor(c)); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse("Material deleted successfully"))
}
