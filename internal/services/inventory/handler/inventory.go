package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"warehouse-system/internal/cache"
	"warehouse-system/internal/database/models"
	"warehouse-system/internal/ledger"
	audithandler "warehouse-system/internal/services/audit/handler"
)

// --- Helpers ---

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ledger.Invalid(field, "is required")
	}
	return nil
}

func isMissing(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// --- Requests ---

type WarehouseRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

type SupplierRequest struct {
	Name          string  `json:"name"`
	ContactPerson string  `json:"contactPerson"`
	Phone         string  `json:"phone"`
	Address       *string `json:"address"`
}

type CreateMaterialRequest struct {
	Code         string              `json:"code"`
	Name         string              `json:"name"`
	Unit         string              `json:"unit"`
	Type         models.MaterialType `json:"type"`
	WarehouseID  int64               `json:"warehouseId"`
	SupplierID   *int64              `json:"supplierId"`
	BinLocation  string              `json:"binLocation"`
	MinStock     int                 `json:"minStock"`
	Note         string              `json:"note"`
	InitialStock int                 `json:"initialStock"`
}

// UpdateMaterialRequest only touches the fields that are set. Stock is not
// part of it; stock moves go through the ledger. ClearSupplier detaches the
// supplier and cannot be combined with SupplierID.
type UpdateMaterialRequest struct {
	Name          *string              `json:"name"`
	Unit          *string              `json:"unit"`
	Type          *models.MaterialType `json:"type"`
	WarehouseID   *int64               `json:"warehouseId"`
	SupplierID    *int64               `json:"supplierId"`
	ClearSupplier bool                 `json:"clearSupplier"`
	BinLocation   *string              `json:"binLocation"`
	MinStock      *int                 `json:"minStock"`
	Note          *string              `json:"note"`
}

type MaterialFilter struct {
	WarehouseID *int64
	Type        models.MaterialType
	Search      string
	LowStock    bool
}

func (f MaterialFilter) empty() bool {
	return f.WarehouseID == nil && f.Type == "" && strings.TrimSpace(f.Search) == "" && !f.LowStock
}

// MaterialView is a material with its warehouse and supplier names.
type MaterialView struct {
	models.Material
	WarehouseName string  `json:"warehouseName"`
	SupplierName  *string `json:"supplierName,omitempty"`
	LowStock      bool    `json:"lowStock"`
}

func materialToView(m models.Material) MaterialView {
	v := MaterialView{Material: m, LowStock: m.LowStock()}
	if m.Warehouse != nil {
		v.WarehouseName = m.Warehouse.Name
	}
	if m.Supplier != nil {
		v.SupplierName = strPtr(m.Supplier.Name)
	}
	return v
}

// --- Handler ---

type InventoryHandler struct {
	db    *gorm.DB
	audit *audithandler.AuditHandler
	cache *cache.Store
}

func NewInventoryHandler(db *gorm.DB, audit *audithandler.AuditHandler, store *cache.Store) *InventoryHandler {
	return &InventoryHandler{
		db:    db,
		audit: audit,
		cache: store,
	}
}

func (s *InventoryHandler) InvalidateInventoryCaches(ctx context.Context) {
	s.cache.Invalidate(ctx, cache.MaterialsKey, cache.WarehousesKey, cache.SuppliersKey, cache.DashboardKey)
}

// mutate runs fn in a transaction and drops the catalog caches once it
// committed.
func (s *InventoryHandler) mutate(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := s.db.WithContext(ctx).Transaction(fn); err != nil {
		return err
	}
	s.InvalidateInventoryCaches(ctx)
	return nil
}

// -- Warehouses --

func (s *InventoryHandler) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	var warehouses []models.Warehouse
	if s.cache.GetJSON(ctx, cache.WarehousesKey, &warehouses) {
		return warehouses, nil
	}
	if err := s.db.WithContext(ctx).Order("name").Find(&warehouses).Error; err != nil {
		return nil, fmt.Errorf("failed to list warehouses: %w", err)
	}
	s.cache.SetJSON(ctx, cache.WarehousesKey, warehouses, cache.TTLMedium)
	return warehouses, nil
}

func (s *InventoryHandler) GetWarehouse(ctx context.Context, id int64) (*models.Warehouse, error) {
	var wh models.Warehouse
	if err := s.db.WithContext(ctx).First(&wh, id).Error; err != nil {
		if isMissing(err) {
			return nil, ledger.NotFound("warehouse", id)
		}
		return nil, fmt.Errorf("failed to load warehouse: %w", err)
	}
	return &wh, nil
}

func warehouseNameTaken(tx *gorm.DB, name string, exceptID int64) error {
	var n int64
	if err := tx.Model(&models.Warehouse{}).Where("name = ? AND id <> ?", name, exceptID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ledger.Conflict("warehouse %q already exists", name)
	}
	return nil
}

func (s *InventoryHandler) CreateWarehouse(ctx context.Context, req WarehouseRequest, actor string) (*models.Warehouse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := required("name", req.Name); err != nil {
		return nil, err
	}

	wh := models.Warehouse{Name: req.Name, Location: strings.TrimSpace(req.Location)}
	err := s.mutate(ctx, func(tx *gorm.DB) error {
		if err := warehouseNameTaken(tx, wh.Name, 0); err != nil {
			return err
		}
		if err := tx.Create(&wh).Error; err != nil {
			return fmt.Errorf("error creating warehouse: %w", err)
		}
		return s.audit.Record(tx, models.ActionCreate, "Created warehouse: "+wh.Name, actor)
	})
	if err != nil {
		return nil, err
	}
	return &wh, nil
}

func (s *InventoryHandler) UpdateWarehouse(ctx context.Context, id int64, req WarehouseRequest, actor string) (*models.Warehouse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := required("name", req.Name); err != nil {
		return nil, err
	}

	var wh models.Warehouse
	err := s.mutate(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&wh, id).Error; err != nil {
			if isMissing(err) {
				return ledger.NotFound("warehouse", id)
			}
			return err
		}
		if err := warehouseNameTaken(tx, req.Name, id); err != nil {
			return err
		}
		wh.Name = req.Name
		wh.Location = strings.TrimSpace(req.Location)
		if err := tx.Save(&wh).Error; err != nil {
			return fmt.Errorf("error updating warehouse: %w", err)
		}
		return s.audit.Record(tx, models.ActionUpdate, "Updated warehouse: "+wh.Name, actor)
	})
	if err != nil {
		return nil, err
	}
	return &wh, nil
}

func (s *InventoryHandler) DeleteWarehouse(ctx context.Context, id int64, actor string) error {
	return s.mutate(ctx, func(tx *gorm.DB) error {
		var wh models.Warehouse
		if err := tx.First(&wh, id).Error; err != nil {
			if isMissing(err) {
				return ledger.NotFound("warehouse", id)
			}
			return err
		}
		var materials int64
		if err := tx.Model(&models.Material{}).Where("warehouse_id = ?", id).Count(&materials).Error; err != nil {
			return err
		}
		if materials > 0 {
			return ledger.Conflict("warehouse %q still holds %d materials", wh.Name, materials)
		}
		if err := tx.Delete(&wh).Error; err != nil {
			return fmt.Errorf("error deleting warehouse: %w", err)
		}
		return s.audit.Record(tx, models.ActionDelete, "Deleted warehouse: "+wh.Name, actor)
	})
}

// -- Suppliers --

func (s *InventoryHandler) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	if s.cache.GetJSON(ctx, cache.SuppliersKey, &suppliers) {
		return suppliers, nil
	}
	if err := s.db.WithContext(ctx).Order("name").Find(&suppliers).Error; err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	s.cache.SetJSON(ctx, cache.SuppliersKey, suppliers, cache.TTLMedium)
	return suppliers, nil
}

func (s *InventoryHandler) GetSupplier(ctx context.Context, id int64) (*models.Supplier, error) {
	var sup models.Supplier
	if err := s.db.WithContext(ctx).First(&sup, id).Error; err != nil {
		if isMissing(err) {
			return nil, ledger.NotFound("supplier", id)
		}
		return nil, fmt.Errorf("failed to load supplier: %w", err)
	}
	return &sup, nil
}

func (s *InventoryHandler) CreateSupplier(ctx context.Context, req SupplierRequest, actor string) (*models.Supplier, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := required("name", req.Name); err != nil {
		return nil, err
	}

	sup := models.Supplier{
		Name:          req.Name,
		ContactPerson: strings.TrimSpace(req.ContactPerson),
		Phone:         strings.TrimSpace(req.Phone),
		Address:       req.Address,
	}
	err := s.mutate(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&sup).Error; err != nil {
			return fmt.Errorf("error creating supplier: %w", err)
		}
		return s.audit.Record(tx, models.ActionCreate, "Created supplier: "+sup.Name, actor)
	})
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *InventoryHandler) UpdateSupplier(ctx context.Context, id int64, req SupplierRequest, actor string) (*models.Supplier, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := required("name", req.Name); err != nil {
		return nil, err
	}

	var sup models.Supplier
	err := s.mutate(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&sup, id).Error; err != nil {
			if isMissing(err) {
				return ledger.NotFound("supplier", id)
			}
			return err
		}
		sup.Name = req.Name
		sup.ContactPerson = strings.TrimSpace(req.ContactPerson)
		sup.Phone = strings.TrimSpace(req.Phone)
		sup.Address = req.Address
		if err := tx.Save(&sup).Error; err != nil {
			return fmt.Errorf("error updating supplier: %w", err)
		}
		return s.audit.Record(tx, models.ActionUpdate, "Updated supplier: "+sup.Name, actor)
	})
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *InventoryHandler) DeleteSupplier(ctx context.Context, id int64, actor string) error {
	return s.mutate(ctx, func(tx *gorm.DB) error {
		var sup models.Supplier
		if err := tx.First(&sup, id).Error; err != nil {
			if isMissing(err) {
				return ledger.NotFound("supplier", id)
			}
			return err
		}
		var refs int64
		if err := tx.Model(&models.Material{}).Where("supplier_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs == 0 {
			if err := tx.Model(&models.StockIn{}).Where("supplier_id = ?", id).Count(&refs).Error; err != nil {
				return err
			}
		}
		if refs > 0 {
			return ledger.Conflict("supplier %q is still referenced", sup.Name)
		}
		if err := tx.Delete(&sup).Error; err != nil {
			return fmt.Errorf("error deleting supplier: %w", err)
		}
		return s.audit.Record(tx, models.ActionDelete, "Deleted supplier: "+sup.Name, actor)
	})
}

// -- Materials --

// ListMaterials serves the unfiltered list from the cache. Filtered lists
// always hit the database.
func (s *InventoryHandler) ListMaterials(ctx context.Context, filter MaterialFilter) ([]MaterialView, error) {
	cacheable := filter.empty()
	var views []MaterialView
	if cacheable && s.cache.GetJSON(ctx, cache.MaterialsKey, &views) {
		return views, nil
	}

	query := s.db.WithContext(ctx).Model(&models.Material{}).Preload("Warehouse").Preload("Supplier")
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if filter.Type != "" {
		if !filter.Type.Valid() {
			return nil, ledger.Invalid("type", "unknown material type")
		}
		query = query.Where("type = ?", filter.Type)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	if filter.LowStock {
		query = query.Where("current_stock <= min_stock")
	}

	var materials []models.Material
	if err := query.Order("code").Find(&materials).Error; err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}

	views = make([]MaterialView, len(materials))
	for i, m := range materials {
		views[i] = materialToView(m)
	}
	if cacheable {
		s.cache.SetJSON(ctx, cache.MaterialsKey, views, cache.TTLShort)
	}
	return views, nil
}

func (s *InventoryHandler) GetMaterial(ctx context.Context, id int64) (*MaterialView, error) {
	var m models.Material
	if err := s.db.WithContext(ctx).Preload("Warehouse").Preload("Supplier").First(&m, id).Error; err != nil {
		if isMissing(err) {
			return nil, ledger.NotFound("material", id)
		}
		return nil, fmt.Errorf("failed to load material: %w", err)
	}
	v := materialToView(m)
	return &v, nil
}

func checkRefs(tx *gorm.DB, warehouseID int64, supplierID *int64) error {
	if warehouseID <= 0 {
		return ledger.Invalid("warehouseId", "is required")
	}
	var n int64
	if err := tx.Model(&models.Warehouse{}).Where("id = ?", warehouseID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ledger.NotFound("warehouse", warehouseID)
	}
	if supplierID == nil {
		return nil
	}
	if err := tx.Model(&models.Supplier{}).Where("id = ?", *supplierID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ledger.NotFound("supplier", *supplierID)
	}
	return nil
}

func (s *InventoryHandler) CreateMaterial(ctx context.Context, req CreateMaterialRequest, actor string) (*MaterialView, error) {
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	for _, f := range [][2]string{{"code", req.Code}, {"name", req.Name}, {"unit", req.Unit}} {
		if err := required(f[0], f[1]); err != nil {
			return nil, err
		}
	}
	if !req.Type.Valid() {
		return nil, ledger.Invalid("type", "unknown material type")
	}
	if req.MinStock < 0 {
		return nil, ledger.Invalid("minStock", "must not be negative")
	}
	if req.InitialStock < 0 {
		return nil, ledger.Invalid("initialStock", "must not be negative")
	}

	m := models.Material{
		Code:         req.Code,
		Name:         req.Name,
		Unit:         strings.TrimSpace(req.Unit),
		Type:         req.Type,
		WarehouseID:  req.WarehouseID,
		SupplierID:   req.SupplierID,
		BinLocation:  strings.TrimSpace(req.BinLocation),
		MinStock:     req.MinStock,
		Note:         req.Note,
		CurrentStock: req.InitialStock,
	}
	err := s.mutate(ctx, func(tx *gorm.DB) error {
		if err := checkRefs(tx, m.WarehouseID, m.SupplierID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.Material{}).Where("code = ?", m.Code).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ledger.Conflict("material code %q already exists", m.Code)
		}
		if err := tx.Create(&m).Error; err != nil {
			return fmt.Errorf("error creating material: %w", err)
		}
		return s.audit.Record(tx, models.ActionCreate, fmt.Sprintf("Created material: %s (%s)", m.Name, m.Code), actor)
	})
	if err != nil {
		return nil, err
	}
	return s.GetMaterial(ctx, m.ID)
}

func (s *InventoryHandler) UpdateMaterial(ctx context.Context, id int64, req UpdateMaterialRequest, actor string) (*MaterialView, error) {
	err := s.mutate(ctx, func(tx *gorm.DB) error {
		var m models.Material
		if err := tx.First(&m, id).Error; err != nil {
			if isMissing(err) {
				return ledger.NotFound("material", id)
			}
			return err
		}

		updates := map[string]interface{}{}
		if req.Name != nil {
			if err := required("name", *req.Name); err != nil {
				return err
			}
			updates["name"] = strings.TrimSpace(*req.Name)
		}
		if req.Unit != nil {
			if err := required("unit", *req.Unit); err != nil {
				return err
			}
			updates["unit"] = strings.TrimSpace(*req.Unit)
		}
		if req.Type != nil {
			if !req.Type.Valid() {
				return ledger.Invalid("type", "unknown material type")
			}
			updates["type"] = *req.Type
		}
		if req.MinStock != nil {
			if *req.MinStock < 0 {
				return ledger.Invalid("minStock", "must not be negative")
			}
			updates["min_stock"] = *req.MinStock
		}
		if req.BinLocation != nil {
			updates["bin_location"] = strings.TrimSpace(*req.BinLocation)
		}
		if req.Note != nil {
			updates["note"] = *req.Note
		}
		if req.ClearSupplier && req.SupplierID != nil {
			return ledger.Invalid("supplierId", "cannot be set together with clearSupplier")
		}
		if req.WarehouseID != nil || req.SupplierID != nil || req.ClearSupplier {
			warehouseID, supplierID := m.WarehouseID, m.SupplierID
			if req.WarehouseID != nil {
				warehouseID = *req.WarehouseID
			}
			if req.SupplierID != nil {
				supplierID = req.SupplierID
			}
			if req.ClearSupplier {
				supplierID = nil
			}
			if err := checkRefs(tx, warehouseID, supplierID); err != nil {
				return err
			}
			updates["warehouse_id"] = warehouseID
			updates["supplier_id"] = supplierID
		}
		if len(updates) == 0 {
			return ledger.Invalid("body", "nothing to update")
		}

		if err := tx.Model(&m).Updates(updates).Error; err != nil {
			return fmt.Errorf("error updating material: %w", err)
		}
		return s.audit.Record(tx, models.ActionUpdate, fmt.Sprintf("Updated material: %s (%s)", m.Name, m.Code), actor)
	})
	if err != nil {
		return nil, err
	}
	return s.GetMaterial(ctx, id)
}

// DeleteMaterial refuses to remove a material that has any recorded movement,
// count or maintenance schedule.
func (s *InventoryHandler) DeleteMaterial(ctx context.Context, id int64, actor string) error {
	return s.mutate(ctx, func(tx *gorm.DB) error {
		var m models.Material
		if err := tx.First(&m, id).Error; err != nil {
			if isMissing(err) {
				return ledger.NotFound("material", id)
			}
			return err
		}

		for _, ref := range []interface{}{
			&models.StockIn{}, &models.StockOut{}, &models.BorrowRecord{},
			&models.InventoryCheckItem{}, &models.MaintenanceSchedule{},
		} {
			var n int64
			if err := tx.Model(ref).Where("material_id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return ledger.Conflict("material %q has recorded history and cannot be deleted", m.Code)
			}
		}

		if err := tx.Delete(&m).Error; err != nil {
			return fmt.Errorf("error deleting material: %w", err)
		}
		return s.audit.Record(tx, models.ActionDelete, fmt.Sprintf("Deleted material: %s (%s)", m.Name, m.Code), actor)
	})
}
