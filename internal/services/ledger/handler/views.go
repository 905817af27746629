package handler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"warehouse-system/internal/database/models"
	"warehouse-system/internal/ledger"
)

const (
	TypeIn     = "IN"
	TypeOut    = "OUT"
	TypeBorrow = "BORROW"
)

// TransactionView is one stock movement with the material's display fields
// copied in. Fields that do not apply to the movement type are omitted.
type TransactionView struct {
	ID           int64  `json:"id"`
	Type         string `json:"type"`
	MaterialID   int64  `json:"materialId"`
	MaterialName string `json:"materialName"`
	MaterialCode string `json:"materialCode"`
	MaterialUnit string `json:"materialUnit"`
	Quantity     int    `json:"quantity"`
	Date         string `json:"date"`
	CurrentStock *int   `json:"currentStock,omitempty"`

	SupplierID   *int64           `json:"supplierId,omitempty"`
	SupplierName *string          `json:"supplierName,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Importer     string           `json:"importer,omitempty"`
	DocumentURL  *string          `json:"documentUrl,omitempty"`
	Note         *string          `json:"note,omitempty"`

	Receiver   string `json:"receiver,omitempty"`
	Department string `json:"department,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Exporter   string `json:"exporter,omitempty"`

	Borrower        string                  `json:"borrower,omitempty"`
	BorrowDate      string                  `json:"borrowDate,omitempty"`
	Condition       string                  `json:"condition,omitempty"`
	ExpectedReturn  *string                 `json:"expectedReturn,omitempty"`
	Approver        string                  `json:"approver,omitempty"`
	Status          models.BorrowStatus     `json:"status,omitempty"`
	ReturnDate      *string                 `json:"returnDate,omitempty"`
	ReturnCondition *models.ReturnCondition `json:"returnCondition,omitempty"`
}

type TransactionFilter struct {
	MaterialID *int64
	Type       string
	// Month restricts to dates starting with YYYY-MM.
	Month string
}

func withMaterial(v *TransactionView, m *models.Material) {
	if m == nil {
		return
	}
	v.MaterialName = m.Name
	v.MaterialCode = m.Code
	v.MaterialUnit = m.Unit
}

func stockInView(e models.StockIn, m *models.Material, s *models.Supplier) TransactionView {
	price := e.Price
	v := TransactionView{
		ID:          e.ID,
		Type:        TypeIn,
		MaterialID:  e.MaterialID,
		Quantity:    e.Quantity,
		Date:        e.Date,
		SupplierID:  e.SupplierID,
		Price:       &price,
		Importer:    e.Importer,
		DocumentURL: e.DocumentURL,
		Note:        e.Note,
	}
	withMaterial(&v, m)
	if s != nil {
		name := s.Name
		v.SupplierName = &name
	}
	return v
}

func stockOutView(e models.StockOut, m *models.Material) TransactionView {
	v := TransactionView{
		ID:         e.ID,
		Type:       TypeOut,
		MaterialID: e.MaterialID,
		Quantity:   e.Quantity,
		Date:       e.Date,
		Receiver:   e.Receiver,
		Department: e.Department,
		Reason:     e.Reason,
		Exporter:   e.Exporter,
	}
	withMaterial(&v, m)
	return v
}

func borrowView(r models.BorrowRecord, m *models.Material) TransactionView {
	v := TransactionView{
		ID:              r.ID,
		Type:            TypeBorrow,
		MaterialID:      r.MaterialID,
		Quantity:        r.Quantity,
		Date:            r.BorrowDate,
		Borrower:        r.Borrower,
		BorrowDate:      r.BorrowDate,
		Condition:       r.Condition,
		ExpectedReturn:  r.ExpectedReturn,
		Approver:        r.Approver,
		Status:          r.Status,
		ReturnDate:      r.ReturnDate,
		ReturnCondition: r.ReturnCondition,
	}
	withMaterial(&v, m)
	return v
}

func (f TransactionFilter) validate() error {
	switch strings.ToUpper(f.Type) {
	case "", TypeIn, TypeOut, TypeBorrow:
	default:
		return ledger.Invalid("type", "must be one of IN, OUT, BORROW")
	}
	if f.Month != "" {
		if _, err := time.Parse("2006-01", f.Month); err != nil {
			return ledger.Invalid("month", "must be formatted as YYYY-MM")
		}
	}
	return nil
}

func (f TransactionFilter) wants(kind string) bool {
	return f.Type == "" || strings.EqualFold(f.Type, kind)
}

func (f TransactionFilter) apply(query *gorm.DB, dateColumn string) *gorm.DB {
	if f.MaterialID != nil {
		query = query.Where("material_id = ?", *f.MaterialID)
	}
	if f.Month != "" {
		query = query.Where(dateColumn+" LIKE ?", f.Month+"%")
	}
	return query
}

// ListTransactions returns stock-ins, stock-outs and borrows in one list,
// newest date first.
func (h *LedgerHandler) ListTransactions(ctx context.Context, filter TransactionFilter) ([]TransactionView, error) {
	if err := filter.validate(); err != nil {
		return nil, err
	}
	db := h.db.WithContext(ctx)

	var (
		ins     []models.StockIn
		outs    []models.StockOut
		borrows []models.BorrowRecord
	)
	if filter.wants(TypeIn) {
		if err := filter.apply(db.Model(&models.StockIn{}), "date").Order("id DESC").Find(&ins).Error; err != nil {
			return nil, fmt.Errorf("failed to list stock-ins: %w", err)
		}
	}
	if filter.wants(TypeOut) {
		if err := filter.apply(db.Model(&models.StockOut{}), "date").Order("id DESC").Find(&outs).Error; err != nil {
			return nil, fmt.Errorf("failed to list stock-outs: %w", err)
		}
	}
	if filter.wants(TypeBorrow) {
		if err := filter.apply(db.Model(&models.BorrowRecord{}), "borrow_date").Order("id DESC").Find(&borrows).Error; err != nil {
			return nil, fmt.Errorf("failed to list borrow records: %w", err)
		}
	}

	materialIDs := make([]int64, 0, len(ins)+len(outs)+len(borrows))
	var supplierIDs []int64
	for _, e := range ins {
		materialIDs = append(materialIDs, e.MaterialID)
		if e.SupplierID != nil {
			supplierIDs = append(supplierIDs, *e.SupplierID)
		}
	}
	for _, e := range outs {
		materialIDs = append(materialIDs, e.MaterialID)
	}
	for _, r := range borrows {
		materialIDs = append(materialIDs, r.MaterialID)
	}

	materials, err := h.materialsByID(ctx, materialIDs)
	if err != nil {
		return nil, err
	}
	suppliers := map[int64]*models.Supplier{}
	if len(supplierIDs) > 0 {
		var rows []models.Supplier
		if err := db.Where("id IN ?", supplierIDs).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to load suppliers: %w", err)
		}
		for i := range rows {
			suppliers[rows[i].ID] = &rows[i]
		}
	}

	views := make([]TransactionView, 0, len(materialIDs))
	for _, e := range ins {
		var s *models.Supplier
		if e.SupplierID != nil {
			s = suppliers[*e.SupplierID]
		}
		views = append(views, stockInView(e, materials[e.MaterialID], s))
	}
	for _, e := range outs {
		views = append(views, stockOutView(e, materials[e.MaterialID]))
	}
	for _, r := range borrows {
		views = append(views, borrowView(r, materials[r.MaterialID]))
	}

	sort.SliceStable(views, func(i, j int) bool { return views[i].Date > views[j].Date })
	return views, nil
}

// ListBorrows returns borrow records, optionally only those with status.
func (h *LedgerHandler) ListBorrows(ctx context.Context, status models.BorrowStatus) ([]TransactionView, error) {
	query := h.db.WithContext(ctx).Model(&models.BorrowRecord{})
	switch status {
	case "":
	case models.BorrowStatusBorrowed, models.BorrowStatusReturned:
		query = query.Where("status = ?", status)
	default:
		return nil, ledger.Invalid("status", "must be BORROWED or RETURNED")
	}

	var records []models.BorrowRecord
	if err := query.Order("id DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list borrow records: %w", err)
	}

	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.MaterialID
	}
	materials, err := h.materialsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]TransactionView, len(records))
	for i, r := range records {
		views[i] = borrowView(r, materials[r.MaterialID])
	}
	return views, nil
}

func (h *LedgerHandler) ListInventoryChecks(ctx context.Context) ([]models.InventoryCheck, error) {
	var checks []models.InventoryCheck
	err := h.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("material_id") }).
		Order("id DESC").
		Find(&checks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory checks: %w", err)
	}
	return checks, nil
}

func (h *LedgerHandler) materialsByID(ctx context.Context, ids []int64) (map[int64]*models.Material, error) {
	out := make(map[int64]*models.Material, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Material
	if err := h.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load materials: %w", err)
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}
