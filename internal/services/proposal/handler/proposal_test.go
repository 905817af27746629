package handler

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"warehouse-system/internal/database/models"
	"warehouse-system/internal/database/testdb"
	"warehouse-system/internal/ledger"
	audithandler "warehouse-system/internal/services/audit/handler"
)

func setup(t *testing.T) (*ProposalHandler, *gorm.DB) {
	db := testdb.New(t)
	h := NewProposalHandler(db, audithandler.NewAuditHandler(db))
	h.now = func() time.Time { return time.Date(2026, 10, 5, 9, 0, 0, 0, time.UTC) }
	return h, db
}

func sampleRequest() ProposalRequest {
	price := decimal.NewFromInt(120000)
	return ProposalRequest{
		Department: "Bảo trì",
		Reason:     "Hết găng tay",
		Items: []ItemRequest{
			{Name: "Găng tay", Unit: "đôi", Quantity: 20, EstimatedPrice: &price},
			{Name: "Máy mài", Type: models.MaterialElectricTool, Unit: "cái", Quantity: 1},
		},
	}
}

func proposalLogs(t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Model(&models.SystemLog{}).Where("action = ?", models.ActionProposal).Count(&n).Error)
	return n
}

func TestCreateProposal(t *testing.T) {
	h, db := setup(t)
	ctx := context.Background()

	p, err := h.CreateProposal(ctx, sampleRequest(), "Lan")
	require.NoError(t, err)
	assert.Equal(t, "DX-2026-0001", p.Code)
	assert.Equal(t, models.ProposalPending, p.Status)
	assert.Equal(t, models.PriorityNormal, p.Priority)
	assert.Equal(t, "Lan", p.Requester)
	require.Len(t, p.Items, 2)
	assert.Equal(t, models.MaterialConsumable, p.Items[0].Type)

	second, err := h.CreateProposal(ctx, sampleRequest(), "Lan")
	require.NoError(t, err)
	assert.Equal(t, "DX-2026-0002", second.Code)

	got, err := h.GetProposal(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Găng tay", got.Items[0].Name)
	assert.True(t, decimal.NewFromInt(120000).Equal(*got.Items[0].EstimatedPrice))

	assert.EqualValues(t, 2, proposalLogs(t, db))
}

func TestCodesAreNotReusedAfterDelete(t *testing.T) {
	h, _ := setup(t)
	ctx := context.Background()

	first, err := h.CreateProposal(ctx, sampleRequest(), "Lan")
	require.NoError(t, err)
	_, err = h.CreateProposal(ctx, sampleRequest(), "Lan")
	require.NoError(t, err)
	require.NoError(t, h.DeleteProposal(ctx, first.ID, "Lan"))

	third, err := h.CreateProposal(ctx, sampleRequest(), "Lan")
	require.NoError(t, err)
	assert.Equal(t, "DX-2026-0003", third.Code)
}

func TestCreateProposalValidation(t *testing.T) {
	h, db := setup(t)
	ctx := context.Background()
	missing := int64(999)

	cases := []struct {
		name   string
		mutate func(r *ProposalRequest)
		field  string
	}{
		{"no department", func(r *ProposalRequest) { r.Department = " " }, "department"},
		{"no reason", func(r *ProposalRequest) { r.Reason = "" }, "reason"},
		{"bad priority", func(r *ProposalRequest) { r.Priority = "ASAP" }, "priority"},
		{"no items", func(r *ProposalRequest) { r.Items = nil }, "items"},
		{"unnamed item", func(r *ProposalRequest) { r.Items[1].Name = "" }, "items[1].name"},
		{"zero quantity", func(r *ProposalRequest) { r.Items[0].Quantity = 0 }, "items[0].quantity"},
		{"no unit", func(r *ProposalRequest) { r.Items[0].Unit = "" }, "items[0].unit"},
		{"bad type", func(r *ProposalRequest) { r.Items[0].Type = "FOOD" }, "items[0].type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := sampleRequest()
			tc.mutate(&req)
			_, err := h.CreateProposal(ctx, req, "Lan")
			require.Error(t, err)
			assert.True(t, ledger.IsValidation(err), err.Error())
			assert.Contains(t, err.Error(), tc.field)
		})
	}

	req := sampleRequest()
	req.Items[0].MaterialID = &missing
	_, err := h.CreateProposal(ctx, req, "Lan")
	assert.True(t, ledger.IsNotFound(err))

	var count int64
	require.NoError(t, db.Model(&models.Proposal{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, proposalLogs(t, db))
}

func TestApproveAndPurchase(t *testing.T) {
	h, db := setup(t)
	ctx := context.Background()

	p, err := h.CreateProposal(ctx, sampleRequest(), "Lan")
	require.NoError(t, err)

	approved, err := h.Approve(ctx, p.ID, "Giám đốc")
	require.NoError(t, err)
	assert.Equal(t, models.ProposalApproved, approved.Status)
	require.NotNil(t, approved.Approver)
	assert.Equal(t, "Giám đốc", *approved.Approver)
	require.NotNil(t, approved.DecidedAt)
	assert.Len(t, approved.Items, 2)

	purchased, err := h.MarkPurchased(ctx, p.ID, "keeper")
	require.NoError(t, err)
	assert.Equal(t, models.ProposalPurchased, purchased.Status)
	assert.NotNil(t, purchased.PurchasedAt)

	assert.EqualValues(t, 3, proposalLogs(t, db))
}

func TestIllegalTransitions(t *testing.T) {
	h, db := setup(t)
	ctx := context.Background()

	pending, err := h.CreateProposal(ctx, sampleRequest(), "Lan")
	require.NoError(t, err)
	rejected, err := h.CreateProposal(ctx, sampleRequest(), "Lan")
	require.NoError(t, err)
	_, err = h.Reject(ctx, rejected.ID, "Giám đốc", "Chưa cần")
	require.NoError(t, err)
	approved, err := h.CreateProposal(ctx, sampleRequest(), "Lan")
	require.NoError(t, err)
	_, err = h.Approve(ctx, approved.ID, "Giám đốc")
	require.NoError(t, err)
	purchased, err := h.CreateProposal(ctx, sampleRequest(), "Lan")
	require.NoError(t, err)
	_, err = h.Approve(ctx, purchased.ID, "Giám đốc")
	require.NoError(t, err)
	_, err = h.MarkPurchased(ctx, purchased.ID, "keeper")
	require.NoError(t, err)

	logsBefore := proposalLogs(t, db)

	cases := []struct {
		name string
		run  func() error
	}{
		{"purchase pending", func() error { _, err := h.MarkPurchased(ctx, pending.ID, "k"); return err }},
		{"approve rejected", func() error { _, err := h.Approve(ctx, rejected.ID, "d"); return err }},
		{"purchase rejected", func() error { _, err := h.MarkPurchased(ctx, rejected.ID, "k"); return err }},
		{"approve approved", func() error { _, err := h.Approve(ctx, approved.ID, "d"); return err }},
		{"reject approved", func() error { _, err := h.Reject(ctx, approved.ID, "d", "late"); return err }},
		{"approve purchased", func() error { _, err := h.Approve(ctx, purchased.ID, "d"); return err }},
		{"reject purchased", func() error { _, err := h.Reject(ctx, purchased.ID, "d", "late"); return err }},
		{"purchase purchased", func() error { _, err := h.MarkPurchased(ctx, purchased.ID, "k"); return err }},
		{"edit approved", func() error { _, err := h.UpdateProposal(ctx, approved.ID, sampleRequest(), "k"); return err }},
		{"edit rejected", func() error { _, err := h.UpdateProposal(ctx, rejected.ID, sampleRequest(), "k"); return err }},
		{"delete approved", func() error { return h.DeleteProposal(ctx, approved.ID, "k") }},
		{"delete purchased", func() error { return h.DeleteProposal(ctx, purchased.ID, "k") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			require.Error(t, err)
			assert.True(t, ledger.IsConflict(err), err.Error())
		})
	}

	assert.Equal(t, logsBefore, proposalLogs(t, db))

	got, err := h.GetProposal(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalApproved, got.Status)
	assert.Nil(t, got.RejectReason)
	got, err = h.GetProposal(ctx, purchased.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalPurchased, got.Status)
}

func TestRejectNeedsReason(t *testing.T) {
	h, _ := setup(t)
	ctx := context.Background()

	p, err := h.CreateProposal(ctx, sampleRequest(), "Lan")
	require.NoError(t, err)

	_, err = h.Reject(ctx, p.ID, "Giám đốc", "  ")
	assert.True(t, ledger.IsValidation(err))

	got, err := h.Reject(ctx, p.ID, "Giám đốc", "Ngân sách hết")
	require.NoError(t, err)
	assert.Equal(t, models.ProposalRejected, got.Status)
	require.NotNil(t, got.RejectReason)
	assert.Equal(t, "Ngân sách hết", *got.RejectReason)
	assert.NotNil(t, got.DecidedAt)

	_, err = h.Approve(ctx, 999, "Giám đốc")
	assert.True(t, ledger.IsNotFound(err))
}

func TestUpdatePendingProposal(t *testing.T) {
	h, db := setup(t)
	ctx := context.Background()

	p, err := h.CreateProposal(ctx, sampleRequest(), "Lan")
	require.NoError(t, err)

	note := "Cần trước thứ hai"
	updated, err := h.UpdateProposal(ctx, p.ID, ProposalRequest{
		Priority: models.PriorityUrgent,
		Note:     &note,
		Items:    []ItemRequest{{Name: "Dây điện", Unit: "m", Quantity: 50}},
	}, "Lan")
	require.NoError(t, err)
	assert.Equal(t, "Bảo trì", updated.Department)
	assert.Equal(t, "Hết găng tay", updated.Reason)
	assert.Equal(t, models.PriorityUrgent, updated.Priority)
	require.NotNil(t, updated.Note)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "Dây điện", updated.Items[0].Name)

	var items int64
	require.NoError(t, db.Model(&models.ProposalItem{}).Where("proposal_id = ?", p.ID).Count(&items).Error)
	assert.EqualValues(t, 1, items)

	_, err = h.UpdateProposal(ctx, p.ID, ProposalRequest{}, "Lan")
	assert.True(t, ledger.IsValidation(err))
}

func TestDeleteRejectedProposal(t *testing.T) {
	h, db := setup(t)
	ctx := context.Background()

	p, err := h.CreateProposal(ctx, sampleRequest(), "Lan")
	require.NoError(t, err)
	_, err = h.Reject(ctx, p.ID, "Giám đốc", "Trùng")
	require.NoError(t, err)

	require.NoError(t, h.DeleteProposal(ctx, p.ID, "Lan"))
	_, err = h.GetProposal(ctx, p.ID)
	assert.True(t, ledger.IsNotFound(err))

	var items int64
	require.NoError(t, db.Model(&models.ProposalItem{}).Count(&items).Error)
	assert.Zero(t, items)
}

func TestListProposalsByStatus(t *testing.T) {
	h, _ := setup(t)
	ctx := context.Background()

	a, err := h.CreateProposal(ctx, sampleRequest(), "Lan")
	require.NoError(t, err)
	_, err = h.CreateProposal(ctx, sampleRequest(), "Lan")
	require.NoError(t, err)
	_, err = h.Approve(ctx, a.ID, "Giám đốc")
	require.NoError(t, err)

	all, err := h.ListProposals(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	approved, err := h.ListProposals(ctx, models.ProposalApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, a.Code, approved[0].Code)
	assert.Len(t, approved[0].Items, 2)

	_, err = h.ListProposals(ctx, "DONE")
	assert.True(t, ledger.IsValidation(err))
}
