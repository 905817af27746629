package handler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"warehouse-system/internal/cache"
	"warehouse-system/internal/database/models"
	"warehouse-system/internal/events"
	"warehouse-system/internal/ledger"
	"warehouse-system/internal/logger"
	"warehouse-system/internal/metrics"
	audithandler "warehouse-system/internal/services/audit/handler"
)

const (
	OpStockIn        = "stock_in"
	OpStockOut       = "stock_out"
	OpBorrow         = "borrow"
	OpReturn         = "return"
	OpInventoryCheck = "inventory_check"
)

var forUpdate = clause.Locking{Strength: "UPDATE"}

type StockInRequest struct {
	MaterialID  int64           `json:"materialId"`
	SupplierID  *int64          `json:"supplierId"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Date        string          `json:"date"`
	Importer    string          `json:"importer"`
	DocumentURL *string         `json:"documentUrl"`
	Note        *string         `json:"note"`
}

type StockOutRequest struct {
	MaterialID int64  `json:"materialId"`
	Quantity   int    `json:"quantity"`
	Date       string `json:"date"`
	Receiver   string `json:"receiver"`
	Department string `json:"department"`
	Reason     string `json:"reason"`
	Exporter   string `json:"exporter"`
}

type BorrowRequest struct {
	MaterialID     int64   `json:"materialId"`
	Borrower       string  `json:"borrower"`
	BorrowDate     string  `json:"borrowDate"`
	Quantity       int     `json:"quantity"`
	Condition      string  `json:"condition"`
	ExpectedReturn *string `json:"expectedReturn"`
	Approver       string  `json:"approver"`
}

type ReturnRequest struct {
	BorrowID   int64                  `json:"borrowId"`
	ReturnDate string                 `json:"returnDate"`
	Condition  models.ReturnCondition `json:"condition"`
}

type InventoryCheckItemRequest struct {
	MaterialID int64 `json:"materialId"`
	// SystemStock is the stock the counter saw on record. When set it must
	// still match the live value.
	SystemStock *int    `json:"systemStock"`
	ActualStock int     `json:"actualStock"`
	Reason      *string `json:"reason"`
}

type InventoryCheckRequest struct {
	Date    string                      `json:"date"`
	Creator string                      `json:"creator"`
	Note    *string                     `json:"note"`
	Items   []InventoryCheckItemRequest `json:"items"`
}

// LedgerHandler applies the ledger rules against the database. Each operation
// runs in one transaction that locks the affected material rows, writes the
// event row, the new stock and exactly one system log entry.
type LedgerHandler struct {
	db        *gorm.DB
	audit     *audithandler.AuditHandler
	cache     *cache.Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time
}

func NewLedgerHandler(db *gorm.DB, audit *audithandler.AuditHandler, store *cache.Store, publisher events.Publisher, m *metrics.Metrics) *LedgerHandler {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &LedgerHandler{
		db:        db,
		audit:     audit,
		cache:     store,
		publisher: publisher,
		metrics:   m,
		tracer:    otel.Tracer("warehouse-system/ledger"),
		now:       time.Now,
	}
}

// --- Helpers ---

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ledger.Invalid(field, "is required")
	}
	return nil
}

func actorOr(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return audithandler.SystemActor
}

func lockMaterial(tx *gorm.DB, id int64) (*models.Material, error) {
	if id <= 0 {
		return nil, ledger.Invalid("materialId", "is required")
	}
	var m models.Material
	if err := tx.Clauses(forUpdate).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.NotFound("material", id)
		}
		return nil, fmt.Errorf("failed to load material %d: %w", id, err)
	}
	return &m, nil
}

func saveStock(tx *gorm.DB, m *models.Material) error {
	if err := tx.Model(m).Update("current_stock", m.CurrentStock).Error; err != nil {
		return fmt.Errorf("failed to update stock of material %d: %w", m.ID, err)
	}
	return nil
}

// run executes fn in a transaction and records the outcome. fn returns the
// number of units it moved.
func (h *LedgerHandler) run(ctx context.Context, op string, fn func(tx *gorm.DB) (int, error)) error {
	ctx, span := h.tracer.Start(ctx, "ledger."+op)
	defer span.End()

	var units int
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		units, err = fn(tx)
		return err
	})

	h.metrics.ObserveLedger(op, units, err)
	span.SetAttributes(attribute.Int("ledger.units", units))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ledger.Kind(err))
		if ledger.Kind(err) == "error" {
			logger.Error(ctx).Err(err).Str("operation", op).Msg("ledger operation failed")
		} else {
			logger.Info(ctx).Err(err).Str("operation", op).Msg("ledger operation rejected")
		}
	}
	return err
}

// afterCommit drops stale cache entries and publishes the events. Both are
// best effort; the change is already durable.
func (h *LedgerHandler) afterCommit(ctx context.Context, evts ...events.Event) {
	h.cache.Invalidate(ctx, cache.StockKeys...)

	for _, e := range evts {
		e.ID = uuid.NewString()
		e.Timestamp = h.now()
		if err := h.publisher.Publish(ctx, e); err != nil {
			logger.Warn(ctx).Err(err).Str("event_type", e.Type).Msg("failed to publish ledger event")
		}
	}
}

// --- Operations ---

func (h *LedgerHandler) StockIn(ctx context.Context, req StockInRequest) (*TransactionView, error) {
	var (
		entry    models.StockIn
		material *models.Material
		supplier *models.Supplier
	)
	actor := actorOr(req.Importer)

	err := h.run(ctx, OpStockIn, func(tx *gorm.DB) (int, error) {
		if err := ledger.CheckDate("date", req.Date); err != nil {
			return 0, err
		}
		if req.Price.IsNegative() {
			return 0, ledger.Invalid("price", "must not be negative")
		}

		var err error
		if material, err = lockMaterial(tx, req.MaterialID); err != nil {
			return 0, err
		}
		if req.SupplierID != nil {
			supplier = &models.Supplier{}
			if err := tx.First(supplier, *req.SupplierID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return 0, ledger.NotFound("supplier", *req.SupplierID)
				}
				return 0, fmt.Errorf("failed to load supplier: %w", err)
			}
		}

		if err := ledger.ApplyStockIn(material, req.Quantity); err != nil {
			return 0, err
		}
		if err := saveStock(tx, material); err != nil {
			return 0, err
		}

		entry = models.StockIn{
			MaterialID:  material.ID,
			SupplierID:  req.SupplierID,
			Quantity:    req.Quantity,
			Price:       req.Price,
			Date:        req.Date,
			Importer:    actor,
			DocumentURL: req.DocumentURL,
			Note:        req.Note,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return 0, fmt.Errorf("failed to create stock-in record: %w", err)
		}

		description := fmt.Sprintf("Stock in: %s x %d", material.Name, req.Quantity)
		return req.Quantity, h.audit.Record(tx, models.ActionImport, description, actor)
	})
	if err != nil {
		return nil, err
	}

	h.afterCommit(ctx, events.Event{
		Type:        events.EventStockIn,
		MaterialID:  material.ID,
		Quantity:    entry.Quantity,
		StockAfter:  material.CurrentStock,
		ReferenceID: entry.ID,
		Actor:       actor,
	})

	view := stockInView(entry, material, supplier)
	view.CurrentStock = &material.CurrentStock
	return &view, nil
}

func (h *LedgerHandler) StockOut(ctx context.Context, req StockOutRequest) (*TransactionView, error) {
	var (
		entry    models.StockOut
		material *models.Material
	)
	actor := actorOr(req.Exporter)

	err := h.run(ctx, OpStockOut, func(tx *gorm.DB) (int, error) {
		if err := ledger.CheckDate("date", req.Date); err != nil {
			return 0, err
		}
		if err := required("receiver", req.Receiver); err != nil {
			return 0, err
		}

		var err error
		if material, err = lockMaterial(tx, req.MaterialID); err != nil {
			return 0, err
		}
		if err := ledger.ApplyStockOut(material, req.Quantity); err != nil {
			return 0, err
		}
		if err := saveStock(tx, material); err != nil {
			return 0, err
		}

		entry = models.StockOut{
			MaterialID: material.ID,
			Quantity:   req.Quantity,
			Date:       req.Date,
			Receiver:   req.Receiver,
			Department: req.Department,
			Reason:     req.Reason,
			Exporter:   actor,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return 0, fmt.Errorf("failed to create stock-out record: %w", err)
		}

		description := fmt.Sprintf("Stock out: %s x %d", material.Name, req.Quantity)
		return req.Quantity, h.audit.Record(tx, models.ActionExport, description, actor)
	})
	if err != nil {
		return nil, err
	}

	h.afterCommit(ctx, events.Event{
		Type:        events.EventStockOut,
		MaterialID:  material.ID,
		Quantity:    entry.Quantity,
		StockAfter:  material.CurrentStock,
		ReferenceID: entry.ID,
		Actor:       actor,
	})

	view := stockOutView(entry, material)
	view.CurrentStock = &material.CurrentStock
	return &view, nil
}

func (h *LedgerHandler) Borrow(ctx context.Context, req BorrowRequest) (*TransactionView, error) {
	var (
		record   models.BorrowRecord
		material *models.Material
	)
	actor := actorOr(req.Approver)

	err := h.run(ctx, OpBorrow, func(tx *gorm.DB) (int, error) {
		if err := ledger.CheckDate("borrowDate", req.BorrowDate); err != nil {
			return 0, err
		}
		if req.ExpectedReturn != nil && *req.ExpectedReturn != "" {
			if err := ledger.CheckDate("expectedReturn", *req.ExpectedReturn); err != nil {
				return 0, err
			}
		}

		var err error
		if material, err = lockMaterial(tx, req.MaterialID); err != nil {
			return 0, err
		}

		record = models.BorrowRecord{
			Borrower:       strings.TrimSpace(req.Borrower),
			BorrowDate:     req.BorrowDate,
			Quantity:       req.Quantity,
			Condition:      req.Condition,
			ExpectedReturn: req.ExpectedReturn,
			Approver:       actor,
		}
		if err := ledger.ApplyBorrow(material, &record); err != nil {
			return 0, err
		}
		if err := saveStock(tx, material); err != nil {
			return 0, err
		}
		if err := tx.Create(&record).Error; err != nil {
			return 0, fmt.Errorf("failed to create borrow record: %w", err)
		}

		description := fmt.Sprintf("Borrow: %s x %d - %s", material.Name, record.Quantity, record.Borrower)
		return record.Quantity, h.audit.Record(tx, models.ActionBorrow, description, actor)
	})
	if err != nil {
		return nil, err
	}

	h.afterCommit(ctx, events.Event{
		Type:        events.EventBorrowCreated,
		MaterialID:  material.ID,
		Quantity:    record.Quantity,
		StockAfter:  material.CurrentStock,
		ReferenceID: record.ID,
		Actor:       actor,
	})

	view := borrowView(record, material)
	view.CurrentStock = &material.CurrentStock
	return &view, nil
}

func (h *LedgerHandler) Return(ctx context.Context, req ReturnRequest) (*TransactionView, error) {
	var (
		record   models.BorrowRecord
		material *models.Material
	)

	err := h.run(ctx, OpReturn, func(tx *gorm.DB) (int, error) {
		if req.BorrowID <= 0 {
			return 0, ledger.Invalid("borrowId", "is required")
		}
		if err := tx.Clauses(forUpdate).First(&record, req.BorrowID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, ledger.NotFound("borrow record", req.BorrowID)
			}
			return 0, fmt.Errorf("failed to load borrow record: %w", err)
		}

		var err error
		if material, err = lockMaterial(tx, record.MaterialID); err != nil {
			return 0, err
		}
		if err := ledger.ApplyReturn(material, &record, req.Condition, req.ReturnDate); err != nil {
			return 0, err
		}
		if err := saveStock(tx, material); err != nil {
			return 0, err
		}
		if err := tx.Save(&record).Error; err != nil {
			return 0, fmt.Errorf("failed to update borrow record: %w", err)
		}

		restored := record.Quantity
		if req.Condition == models.ConditionLost {
			restored = 0
		}
		description := fmt.Sprintf("Return: %s x %d - condition: %s", material.Name, record.Quantity, req.Condition)
		return restored, h.audit.Record(tx, models.ActionReturn, description, record.Borrower)
	})
	if err != nil {
		return nil, err
	}

	h.afterCommit(ctx, events.Event{
		Type:        events.EventBorrowReturned,
		MaterialID:  material.ID,
		Quantity:    record.Quantity,
		StockAfter:  material.CurrentStock,
		ReferenceID: record.ID,
		Actor:       actorOr(record.Borrower),
	})

	view := borrowView(record, material)
	view.CurrentStock = &material.CurrentStock
	return &view, nil
}

// CreateInventoryCheck overwrites the stock of every listed material with the
// counted quantity. Materials are locked in ascending id order so two checks
// over overlapping materials cannot deadlock.
func (h *LedgerHandler) CreateInventoryCheck(ctx context.Context, req InventoryCheckRequest) (*models.InventoryCheck, error) {
	var (
		check    models.InventoryCheck
		adjusted []events.Event
	)
	actor := actorOr(req.Creator)

	err := h.run(ctx, OpInventoryCheck, func(tx *gorm.DB) (int, error) {
		if err := ledger.CheckDate("date", req.Date); err != nil {
			return 0, err
		}
		if len(req.Items) == 0 {
			return 0, ledger.Invalid("items", "at least one item is required")
		}

		items := make([]InventoryCheckItemRequest, len(req.Items))
		copy(items, req.Items)
		sort.Slice(items, func(i, j int) bool { return items[i].MaterialID < items[j].MaterialID })
		for i := 1; i < len(items); i++ {
			if items[i].MaterialID == items[i-1].MaterialID {
				return 0, ledger.Invalid("items", fmt.Sprintf("material %d is listed more than once", items[i].MaterialID))
			}
		}

		check = models.InventoryCheck{
			Date:    req.Date,
			Creator: actor,
			Note:    req.Note,
		}
		if err := tx.Create(&check).Error; err != nil {
			return 0, fmt.Errorf("failed to create inventory check: %w", err)
		}

		adjusted = adjusted[:0]
		for _, it := range items {
			material, err := lockMaterial(tx, it.MaterialID)
			if err != nil {
				return 0, err
			}

			item := models.InventoryCheckItem{
				CheckID:     check.ID,
				ActualStock: it.ActualStock,
				Reason:      it.Reason,
			}
			if err := ledger.ApplyCount(material, &item, it.SystemStock); err != nil {
				return 0, err
			}
			if err := saveStock(tx, material); err != nil {
				return 0, err
			}
			if err := tx.Create(&item).Error; err != nil {
				return 0, fmt.Errorf("failed to create inventory check item: %w", err)
			}

			check.Items = append(check.Items, item)
			adjusted = append(adjusted, events.Event{
				Type:        events.EventStockAdjusted,
				MaterialID:  material.ID,
				Quantity:    item.Diff,
				StockAfter:  material.CurrentStock,
				ReferenceID: check.ID,
				Actor:       actor,
			})
		}

		description := fmt.Sprintf("Inventory check on %s: %d item(s)", req.Date, len(items))
		return 0, h.audit.Record(tx, models.ActionAdjust, description, actor)
	})
	if err != nil {
		return nil, err
	}

	h.afterCommit(ctx, adjusted...)
	return &check, nil
}
