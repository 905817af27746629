package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "PENDING"
	ProposalApproved  ProposalStatus = "APPROVED"
	ProposalRejected  ProposalStatus = "REJECTED"
	ProposalPurchased ProposalStatus = "PURCHASED"
)

func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalPending, ProposalApproved, ProposalRejected, ProposalPurchased:
		return true
	}
	return false
}

type ProposalPriority string

const (
	PriorityLow    ProposalPriority = "LOW"
	PriorityNormal ProposalPriority = "NORMAL"
	PriorityHigh   ProposalPriority = "HIGH"
	PriorityUrgent ProposalPriority = "URGENT"
)

func (p ProposalPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Proposal is a request to purchase materials. It moves from PENDING to
// APPROVED or REJECTED, and an approved proposal ends as PURCHASED. Approver
// and DecidedAt are set by both approval and rejection.
type Proposal struct {
	ID           int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Code         string           `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Requester    string           `gorm:"size:100;not null" json:"requester"`
	Department   string           `gorm:"size:100;not null" json:"department"`
	Priority     ProposalPriority `gorm:"size:20;not null" json:"priority"`
	Status       ProposalStatus   `gorm:"size:20;index;not null" json:"status"`
	Reason       string           `gorm:"type:text;not null" json:"reason"`
	Note         *string          `gorm:"type:text" json:"note,omitempty"`
	Approver     *string          `gorm:"size:100" json:"approver,omitempty"`
	DecidedAt    *time.Time       `json:"decidedAt,omitempty"`
	RejectReason *string          `gorm:"type:text" json:"rejectReason,omitempty"`
	PurchasedAt  *time.Time       `json:"purchasedAt,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
	Items        []ProposalItem   `gorm:"foreignKey:ProposalID;constraint:OnDelete:CASCADE" json:"items"`
}

type ProposalItem struct {
	ID             int64            `gorm:"primaryKey;autoIncrement" json:"-"`
	ProposalID     int64            `gorm:"index;not null" json:"-"`
	MaterialID     *int64           `gorm:"index" json:"materialId,omitempty"`
	Name           string           `gorm:"size:255;not null" json:"name"`
	Type           MaterialType     `gorm:"size:30;not null" json:"type"`
	Unit           string           `gorm:"size:50;not null" json:"unit"`
	Quantity       int              `gorm:"not null" json:"quantity"`
	EstimatedPrice *decimal.Decimal `gorm:"type:numeric(15,2)" json:"estimatedPrice,omitempty"`
	Reason         string           `gorm:"size:255" json:"reason"`
}
