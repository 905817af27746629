package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"warehouse-system/internal/cache"
	"warehouse-system/internal/database/models"
	"warehouse-system/internal/ledger"
	audithandler "warehouse-system/internal/services/audit/handler"
)

type CreateScheduleRequest struct {
	MaterialID          int64                       `json:"materialId"`
	Type                models.MaintenanceType      `json:"type"`
	Frequency           models.MaintenanceFrequency `json:"frequency"`
	Description         string                      `json:"description"`
	NextMaintenanceDate string                      `json:"nextMaintenanceDate"`
	AssignedTo          *string                     `json:"assignedTo"`
}

type CompleteRequest struct {
	Date              string           `json:"date"`
	Performer         string           `json:"performer"`
	Result            string           `json:"result"`
	Cost              *decimal.Decimal `json:"cost"`
	NextScheduledDate *string          `json:"nextScheduledDate"`
}

type ScheduleView struct {
	models.MaintenanceSchedule
	MaterialName string `json:"materialName"`
	MaterialCode string `json:"materialCode"`
}

type LogView struct {
	models.MaintenanceLog
	MaterialID   int64  `json:"materialId"`
	MaterialName string `json:"materialName"`
}

type MaintenanceHandler struct {
	db    *gorm.DB
	audit *audithandler.AuditHandler
	cache *cache.Store
}

func NewMaintenanceHandler(db *gorm.DB, audit *audithandler.AuditHandler, store *cache.Store) *MaintenanceHandler {
	return &MaintenanceHandler{
		db:    db,
		audit: audit,
		cache: store,
	}
}

func (h *MaintenanceHandler) CreateSchedule(ctx context.Context, req CreateScheduleRequest, actor string) (*ScheduleView, error) {
	if !req.Type.Valid() {
		return nil, ledger.Invalid("type", "must be one of ROUTINE, INSPECTION, REPLACEMENT, REPAIR")
	}
	if !req.Frequency.Valid() {
		return nil, ledger.Invalid("frequency", "must be one of WEEKLY, MONTHLY, QUARTERLY, YEARLY, ONCE")
	}
	if err := ledger.CheckDate("nextMaintenanceDate", req.NextMaintenanceDate); err != nil {
		return nil, err
	}

	var view ScheduleView
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.Material
		if err := tx.First(&m, req.MaterialID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ledger.NotFound("material", req.MaterialID)
			}
			return err
		}

		schedule := models.MaintenanceSchedule{
			MaterialID:          m.ID,
			Type:                req.Type,
			Frequency:           req.Frequency,
			Description:         req.Description,
			NextMaintenanceDate: req.NextMaintenanceDate,
			AssignedTo:          req.AssignedTo,
		}
		if err := tx.Create(&schedule).Error; err != nil {
			return fmt.Errorf("error creating maintenance schedule: %w", err)
		}
		view = ScheduleView{MaintenanceSchedule: schedule, MaterialName: m.Name, MaterialCode: m.Code}

		desc := fmt.Sprintf("Scheduled %s maintenance for %s on %s", schedule.Type, m.Name, schedule.NextMaintenanceDate)
		return h.audit.Record(tx, models.ActionCreate, desc, actor)
	})
	if err != nil {
		return nil, err
	}
	h.cache.Invalidate(ctx, cache.DashboardKey)
	return &view, nil
}

// ListSchedules returns schedules ordered by their next due date.
func (h *MaintenanceHandler) ListSchedules(ctx context.Context) ([]ScheduleView, error) {
	var views []ScheduleView
	err := h.db.WithContext(ctx).
		Table("maintenance_schedules AS s").
		Select("s.*, m.name AS material_name, m.code AS material_code").
		Joins("LEFT JOIN materials m ON m.id = s.material_id").
		Order("s.next_maintenance_date, s.id").
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance schedules: %w", err)
	}
	return views, nil
}

func (h *MaintenanceHandler) DeleteSchedule(ctx context.Context, id int64, actor string) error {
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var schedule models.MaintenanceSchedule
		if err := tx.First(&schedule, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ledger.NotFound("maintenance schedule", id)
			}
			return err
		}
		if err := tx.Delete(&schedule).Error; err != nil {
			return fmt.Errorf("error deleting maintenance schedule: %w", err)
		}
		return h.audit.Record(tx, models.ActionDelete, fmt.Sprintf("Deleted maintenance schedule #%d", id), actor)
	})
	if err != nil {
		return err
	}
	h.cache.Invalidate(ctx, cache.DashboardKey)
	return nil
}

// nextDueDate prefers the date the performer gave, otherwise steps the
// completion date forward by the schedule frequency.
func nextDueDate(frequency models.MaintenanceFrequency, req CompleteRequest) string {
	if req.NextScheduledDate != nil {
		return *req.NextScheduledDate
	}
	done, _ := time.Parse(ledger.DateLayout, req.Date)
	next, ok := frequency.Next(done)
	if !ok {
		return ""
	}
	return next.Format(ledger.DateLayout)
}

// Complete records a performed maintenance against its schedule and moves the
// schedule forward.
func (h *MaintenanceHandler) Complete(ctx context.Context, scheduleID int64, req CompleteRequest) (*models.MaintenanceLog, error) {
	if err := ledger.CheckDate("date", req.Date); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Performer) == "" {
		return nil, ledger.Invalid("performer", "is required")
	}
	if req.NextScheduledDate != nil {
		if err := ledger.CheckDate("nextScheduledDate", *req.NextScheduledDate); err != nil {
			return nil, err
		}
	}
	if req.Cost != nil && req.Cost.IsNegative() {
		return nil, ledger.Invalid("cost", "must not be negative")
	}

	var entry models.MaintenanceLog
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var schedule models.MaintenanceSchedule
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&schedule, scheduleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ledger.NotFound("maintenance schedule", scheduleID)
			}
			return err
		}

		entry = models.MaintenanceLog{
			ScheduleID:        schedule.ID,
			Date:              req.Date,
			Performer:         strings.TrimSpace(req.Performer),
			Result:            req.Result,
			Cost:              req.Cost,
			NextScheduledDate: req.NextScheduledDate,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("error creating maintenance log: %w", err)
		}

		updates := map[string]interface{}{
			"last_maintenance_date": req.Date,
			"next_maintenance_date": nextDueDate(schedule.Frequency, req),
		}
		if err := tx.Model(&schedule).Updates(updates).Error; err != nil {
			return fmt.Errorf("error updating maintenance schedule: %w", err)
		}

		var m models.Material
		name := fmt.Sprintf("material %d", schedule.MaterialID)
		if err := tx.Select("name").First(&m, schedule.MaterialID).Error; err == nil {
			name = m.Name
		}
		desc := fmt.Sprintf("Maintenance of %s performed by %s", name, entry.Performer)
		return h.audit.Record(tx, models.ActionMaintenance, desc, entry.Performer)
	})
	if err != nil {
		return nil, err
	}
	h.cache.Invalidate(ctx, cache.DashboardKey)
	return &entry, nil
}

// ListLogs returns performed maintenance, newest first.
func (h *MaintenanceHandler) ListLogs(ctx context.Context) ([]LogView, error) {
	var views []LogView
	err := h.db.WithContext(ctx).
		Table("maintenance_logs AS l").
		Select("l.*, s.material_id AS material_id, m.name AS material_name").
		Joins("LEFT JOIN maintenance_schedules s ON s.id = l.schedule_id").
		Joins("LEFT JOIN materials m ON m.id = s.material_id").
		Order("l.date DESC, l.id DESC").
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance logs: %w", err)
	}
	return views, nil
}
