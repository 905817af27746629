package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"warehouse-system/internal/database/models"
	"warehouse-system/internal/ledger"
	audithandler "warehouse-system/internal/services/audit/handler"
)

const codePrefix = "DX"

type ItemRequest struct {
	MaterialID     *int64              `json:"materialId"`
	Name           string              `json:"name"`
	Type           models.MaterialType `json:"type"`
	Unit           string              `json:"unit"`
	Quantity       int                 `json:"quantity"`
	EstimatedPrice *decimal.Decimal    `json:"estimatedPrice"`
	Reason         string              `json:"reason"`
}

// ProposalRequest creates a proposal. On update, an empty department, priority
// or reason keeps the stored value while note and items are replaced.
type ProposalRequest struct {
	Department string                  `json:"department"`
	Priority   models.ProposalPriority `json:"priority"`
	Reason     string                  `json:"reason"`
	Note       *string                 `json:"note"`
	Items      []ItemRequest           `json:"items"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

// transitions lists the statuses each status may move to.
var transitions = map[models.ProposalStatus][]models.ProposalStatus{
	models.ProposalPending:  {models.ProposalApproved, models.ProposalRejected},
	models.ProposalApproved: {models.ProposalPurchased},
}

func checkTransition(p *models.Proposal, to models.ProposalStatus) error {
	for _, next := range transitions[p.Status] {
		if next == to {
			return nil
		}
	}
	return ledger.Conflict("proposal %s is %s and cannot become %s", p.Code, p.Status, to)
}

type ProposalHandler struct {
	db    *gorm.DB
	audit *audithandler.AuditHandler
	now   func() time.Time
}

func NewProposalHandler(db *gorm.DB, audit *audithandler.AuditHandler) *ProposalHandler {
	return &ProposalHandler{
		db:    db,
		audit: audit,
		now:   time.Now,
	}
}

func buildItems(reqs []ItemRequest) ([]models.ProposalItem, error) {
	if len(reqs) == 0 {
		return nil, ledger.Invalid("items", "at least one item is required")
	}
	items := make([]models.ProposalItem, 0, len(reqs))
	for i, r := range reqs {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }

		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, ledger.Invalid(field("name"), "is required")
		}
		unit := strings.TrimSpace(r.Unit)
		if unit == "" {
			return nil, ledger.Invalid(field("unit"), "is required")
		}
		if r.Quantity <= 0 {
			return nil, ledger.Invalid(field("quantity"), "must be greater than zero")
		}
		typ := r.Type
		if typ == "" {
			typ = models.MaterialConsumable
		}
		if !typ.Valid() {
			return nil, ledger.Invalid(field("type"), "unknown material type")
		}
		if r.EstimatedPrice != nil && r.EstimatedPrice.IsNegative() {
			return nil, ledger.Invalid(field("estimatedPrice"), "must not be negative")
		}
		items = append(items, models.ProposalItem{
			MaterialID:     r.MaterialID,
			Name:           name,
			Type:           typ,
			Unit:           unit,
			Quantity:       r.Quantity,
			EstimatedPrice: r.EstimatedPrice,
			Reason:         strings.TrimSpace(r.Reason),
		})
	}
	return items, nil
}

// checkMaterials verifies that items pointing at a catalogue material point at
// one that exists.
func checkMaterials(tx *gorm.DB, items []models.ProposalItem) error {
	for _, item := range items {
		if item.MaterialID == nil {
			continue
		}
		var count int64
		if err := tx.Model(&models.Material{}).Where("id = ?", *item.MaterialID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ledger.NotFound("material", *item.MaterialID)
		}
	}
	return nil
}

// nextCode returns DX-<year>-NNNN, one past the highest code issued that year.
func nextCode(tx *gorm.DB, year int) (string, error) {
	prefix := fmt.Sprintf("%s-%d-", codePrefix, year)
	var codes []string
	err := tx.Model(&models.Proposal{}).
		Where("code LIKE ?", prefix+"%").
		Order("code DESC").
		Limit(1).
		Pluck("code", &codes).Error
	if err != nil {
		return "", fmt.Errorf("failed to read proposal codes: %w", err)
	}
	seq := 0
	if len(codes) > 0 {
		seq, _ = strconv.Atoi(strings.TrimPrefix(codes[0], prefix))
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}

func lockProposal(tx *gorm.DB, id int64) (*models.Proposal, error) {
	var p models.Proposal
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.NotFound("proposal", id)
		}
		return nil, err
	}
	return &p, nil
}

func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	})
}

func (h *ProposalHandler) CreateProposal(ctx context.Context, req ProposalRequest, requester string) (*models.Proposal, error) {
	department := strings.TrimSpace(req.Department)
	if department == "" {
		return nil, ledger.Invalid("department", "is required")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, ledger.Invalid("reason", "is required")
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	if !priority.Valid() {
		return nil, ledger.Invalid("priority", "must be one of LOW, NORMAL, HIGH, URGENT")
	}
	items, err := buildItems(req.Items)
	if err != nil {
		return nil, err
	}
	if requester == "" {
		requester = "system"
	}

	var proposal models.Proposal
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkMaterials(tx, items); err != nil {
			return err
		}
		code, err := nextCode(tx, h.now().Year())
		if err != nil {
			return err
		}

		proposal = models.Proposal{
			Code:       code,
			Requester:  requester,
			Department: department,
			Priority:   priority,
			Status:     models.ProposalPending,
			Reason:     reason,
			Note:       req.Note,
			Items:      items,
		}
		if err := tx.Create(&proposal).Error; err != nil {
			return fmt.Errorf("error creating proposal: %w", err)
		}

		desc := fmt.Sprintf("Created proposal %s with %d item(s)", proposal.Code, len(items))
		return h.audit.Record(tx, models.ActionProposal, desc, requester)
	})
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// ListProposals returns proposals newest first, optionally only those in one
// status.
func (h *ProposalHandler) ListProposals(ctx context.Context, status models.ProposalStatus) ([]models.Proposal, error) {
	q := withItems(h.db.WithContext(ctx))
	if status != "" {
		if !status.Valid() {
			return nil, ledger.Invalid("status", "must be one of PENDING, APPROVED, REJECTED, PURCHASED")
		}
		q = q.Where("status = ?", status)
	}

	var proposals []models.Proposal
	if err := q.Order("created_at DESC, id DESC").Find(&proposals).Error; err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	return proposals, nil
}

func (h *ProposalHandler) GetProposal(ctx context.Context, id int64) (*models.Proposal, error) {
	var p models.Proposal
	if err := withItems(h.db.WithContext(ctx)).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.NotFound("proposal", id)
		}
		return nil, err
	}
	return &p, nil
}

// UpdateProposal edits a proposal that is still waiting for a decision.
func (h *ProposalHandler) UpdateProposal(ctx context.Context, id int64, req ProposalRequest, actor string) (*models.Proposal, error) {
	if req.Priority != "" && !req.Priority.Valid() {
		return nil, ledger.Invalid("priority", "must be one of LOW, NORMAL, HIGH, URGENT")
	}
	items, err := buildItems(req.Items)
	if err != nil {
		return nil, err
	}

	var updated models.Proposal
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockProposal(tx, id)
		if err != nil {
			return err
		}
		if p.Status != models.ProposalPending {
			return ledger.Conflict("proposal %s is %s and can no longer be edited", p.Code, p.Status)
		}
		if err := checkMaterials(tx, items); err != nil {
			return err
		}

		updates := map[string]interface{}{"note": req.Note}
		if v := strings.TrimSpace(req.Department); v != "" {
			updates["department"] = v
		}
		if req.Priority != "" {
			updates["priority"] = req.Priority
		}
		if v := strings.TrimSpace(req.Reason); v != "" {
			updates["reason"] = v
		}
		if err := tx.Model(p).Updates(updates).Error; err != nil {
			return fmt.Errorf("error updating proposal: %w", err)
		}

		if err := tx.Where("proposal_id = ?", p.ID).Delete(&models.ProposalItem{}).Error; err != nil {
			return fmt.Errorf("error replacing proposal items: %w", err)
		}
		for i := range items {
			items[i].ProposalID = p.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("error replacing proposal items: %w", err)
		}

		if err := withItems(tx).First(&updated, p.ID).Error; err != nil {
			return err
		}
		return h.audit.Record(tx, models.ActionProposal, fmt.Sprintf("Updated proposal %s", p.Code), actor)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// decide moves a locked proposal to status and writes the audit row in the
// same transaction.
func (h *ProposalHandler) decide(ctx context.Context, id int64, to models.ProposalStatus, actor string,
	updates func(p *models.Proposal, now time.Time) map[string]interface{},
	describe func(p *models.Proposal) string) (*models.Proposal, error) {

	var result models.Proposal
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockProposal(tx, id)
		if err != nil {
			return err
		}
		if err := checkTransition(p, to); err != nil {
			return err
		}

		changes := updates(p, h.now())
		changes["status"] = to
		if err := tx.Model(p).Updates(changes).Error; err != nil {
			return fmt.Errorf("error updating proposal: %w", err)
		}
		if err := withItems(tx).First(&result, p.ID).Error; err != nil {
			return err
		}
		return h.audit.Record(tx, models.ActionProposal, describe(&result), actor)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (h *ProposalHandler) Approve(ctx context.Context, id int64, approver string) (*models.Proposal, error) {
	return h.decide(ctx, id, models.ProposalApproved, approver,
		func(_ *models.Proposal, now time.Time) map[string]interface{} {
			return map[string]interface{}{"approver": approver, "decided_at": now}
		},
		func(p *models.Proposal) string { return fmt.Sprintf("Approved proposal %s", p.Code) })
}

func (h *ProposalHandler) Reject(ctx context.Context, id int64, approver, reason string) (*models.Proposal, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ledger.Invalid("reason", "is required")
	}
	return h.decide(ctx, id, models.ProposalRejected, approver,
		func(_ *models.Proposal, now time.Time) map[string]interface{} {
			return map[string]interface{}{"approver": approver, "decided_at": now, "reject_reason": reason}
		},
		func(p *models.Proposal) string { return fmt.Sprintf("Rejected proposal %s: %s", p.Code, reason) })
}

// MarkPurchased closes an approved proposal once its items have been bought.
func (h *ProposalHandler) MarkPurchased(ctx context.Context, id int64, actor string) (*models.Proposal, error) {
	return h.decide(ctx, id, models.ProposalPurchased, actor,
		func(_ *models.Proposal, now time.Time) map[string]interface{} {
			return map[string]interface{}{"purchased_at": now}
		},
		func(p *models.Proposal) string { return fmt.Sprintf("Purchased proposal %s", p.Code) })
}

// DeleteProposal removes a proposal that was never approved.
func (h *ProposalHandler) DeleteProposal(ctx context.Context, id int64, actor string) error {
	return h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockProposal(tx, id)
		if err != nil {
			return err
		}
		if p.Status != models.ProposalPending && p.Status != models.ProposalRejected {
			return ledger.Conflict("proposal %s is %s and cannot be deleted", p.Code, p.Status)
		}
		if err := tx.Where("proposal_id = ?", p.ID).Delete(&models.ProposalItem{}).Error; err != nil {
			return fmt.Errorf("error deleting proposal items: %w", err)
		}
		if err := tx.Delete(p).Error; err != nil {
			return fmt.Errorf("error deleting proposal: %w", err)
		}
		return h.audit.Record(tx, models.ActionProposal, fmt.Sprintf("Deleted proposal %s", p.Code), actor)
	})
}
