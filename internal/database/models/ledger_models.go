package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BorrowStatus string

const (
	BorrowStatusBorrowed BorrowStatus = "BORROWED"
	BorrowStatusReturned BorrowStatus = "RETURNED"
)

type ReturnCondition string

const (
	ConditionGood   ReturnCondition = "GOOD"
	ConditionBroken ReturnCondition = "BROKEN"
	ConditionLost   ReturnCondition = "LOST"
)

func (c ReturnCondition) Valid() bool {
	switch c {
	case ConditionGood, ConditionBroken, ConditionLost:
		return true
	}
	return false
}

type LogAction string

const (
	ActionImport      LogAction = "IMPORT"
	ActionExport      LogAction = "EXPORT"
	ActionBorrow      LogAction = "BORROW"
	ActionReturn      LogAction = "RETURN"
	ActionUpdate      LogAction = "UPDATE"
	ActionDelete      LogAction = "DELETE"
	ActionCreate      LogAction = "CREATE"
	ActionAdjust      LogAction = "ADJUST"
	ActionMaintenance LogAction = "MAINTENANCE"
	ActionLogin       LogAction = "LOGIN"
	ActionProposal    LogAction = "PROPOSAL"
)

type StockIn struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	MaterialID  int64           `gorm:"index;not null" json:"materialId"`
	SupplierID  *int64          `gorm:"index" json:"supplierId,omitempty"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"price"`
	Date        string          `gorm:"size:20;index;not null" json:"date"`
	Importer    string          `gorm:"size:100;not null" json:"importer"`
	DocumentURL *string         `gorm:"size:500" json:"documentUrl,omitempty"`
	Note        *string         `gorm:"type:text" json:"note,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type StockOut struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MaterialID int64     `gorm:"index;not null" json:"materialId"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	Date       string    `gorm:"size:20;index;not null" json:"date"`
	Receiver   string    `gorm:"size:100;not null" json:"receiver"`
	Department string    `gorm:"size:100" json:"department"`
	Reason     string    `gorm:"size:255" json:"reason"`
	Exporter   string    `gorm:"size:100;not null" json:"exporter"`
	CreatedAt  time.Time `json:"createdAt"`
}

type BorrowRecord struct {
	ID              int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	MaterialID      int64            `gorm:"index;not null" json:"materialId"`
	Borrower        string           `gorm:"size:100;not null" json:"borrower"`
	BorrowDate      string           `gorm:"size:20;not null" json:"borrowDate"`
	Quantity        int              `gorm:"not null" json:"quantity"`
	Condition       string           `gorm:"size:100" json:"condition"`
	ExpectedReturn  *string          `gorm:"size:20" json:"expectedReturn,omitempty"`
	Approver        string           `gorm:"size:100;not null" json:"approver"`
	Status          BorrowStatus     `gorm:"size:20;index;not null" json:"status"`
	ReturnDate      *string          `gorm:"size:20" json:"returnDate,omitempty"`
	ReturnCondition *ReturnCondition `gorm:"size:20" json:"returnCondition,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

type InventoryCheck struct {
	ID        int64                `gorm:"primaryKey;autoIncrement" json:"id"`
	Date      string               `gorm:"size:20;not null" json:"date"`
	Creator   string               `gorm:"size:100;not null" json:"creator"`
	Note      *string              `gorm:"type:text" json:"note,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
	Items     []InventoryCheckItem `gorm:"foreignKey:CheckID;constraint:OnDelete:CASCADE" json:"items"`
}

type InventoryCheckItem struct {
	ID           int64   `gorm:"primaryKey;autoIncrement" json:"-"`
	CheckID      int64   `gorm:"index;not null" json:"-"`
	MaterialID   int64   `gorm:"index;not null" json:"materialId"`
	MaterialName string  `gorm:"size:255" json:"materialName"`
	SystemStock  int     `json:"systemStock"`
	ActualStock  int     `json:"actualStock"`
	Diff         int     `json:"diff"`
	Reason       *string `gorm:"size:255" json:"reason,omitempty"`
}

// SystemLog rows are only ever inserted.
type SystemLog struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Action      LogAction `gorm:"size:20;index;not null" json:"action"`
	Description string    `gorm:"type:text;not null" json:"description"`
	User        string    `gorm:"size:100;not null" json:"user"`
	Timestamp   time.Time `gorm:"index;not null" json:"timestamp"`
}
