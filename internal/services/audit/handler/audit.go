package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"warehouse-system/internal/database/models"
	"warehouse-system/internal/ledger"
)

const (
	SystemActor     = "system"
	DefaultLogLimit = 200
)

type AuditHandler struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{
		db:  db,
		now: time.Now,
	}
}

// Record appends one entry using the caller's transaction handle, so the
// entry commits or rolls back together with the change it describes.
func (h *AuditHandler) Record(tx *gorm.DB, action models.LogAction, description, actor string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return ledger.Invalid("description", "is required")
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = SystemActor
	}

	entry := models.SystemLog{
		Action:      action,
		Description: description,
		User:        actor,
		Timestamp:   h.now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to write system log: %w", err)
	}
	return nil
}

// List returns the newest entries first. limit <= 0 or above 200 means 200.
func (h *AuditHandler) List(ctx context.Context, limit int) ([]models.SystemLog, error) {
	if limit <= 0 || limit > DefaultLogLimit {
		limit = DefaultLogLimit
	}

	var logs []models.SystemLog
	if err := h.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list system logs: %w", err)
	}
	return logs, nil
}
