// Package ledger holds the rules for mutating a material's on-hand quantity.
// The functions here do not touch storage; callers load the material under a
// row lock, apply one rule and persist the result in the same transaction.
package ledger

import (
	"strings"
	"time"

	"warehouse-system/internal/database/models"
)

// DateLayout is how every ledger date is stored. Month filters match on its
// YYYY-MM prefix.
const DateLayout = "2006-01-02"

// CheckDate requires value to be a YYYY-MM-DD calendar date.
func CheckDate(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return Invalid(field, "is required")
	}
	if _, err := time.Parse(DateLayout, value); err != nil {
		return Invalid(field, "must be a YYYY-MM-DD date")
	}
	return nil
}

func requirePositive(quantity int) error {
	if quantity <= 0 {
		return Invalid("quantity", "must be greater than 0")
	}
	return nil
}

func requireSufficient(m *models.Material, quantity int) error {
	if quantity > m.CurrentStock {
		return &InsufficientStockError{
			MaterialID: m.ID,
			Available:  m.CurrentStock,
			Requested:  quantity,
		}
	}
	return nil
}

// ApplyStockIn adds quantity to the material's stock.
func ApplyStockIn(m *models.Material, quantity int) error {
	if err := requirePositive(quantity); err != nil {
		return err
	}
	m.CurrentStock += quantity
	return nil
}

// ApplyStockOut removes quantity from the material's stock. The stock is left
// untouched when the request cannot be served in full.
func ApplyStockOut(m *models.Material, quantity int) error {
	if err := requirePositive(quantity); err != nil {
		return err
	}
	if err := requireSufficient(m, quantity); err != nil {
		return err
	}
	m.CurrentStock -= quantity
	return nil
}

// ApplyBorrow moves record.Quantity units out of stock into the borrower's
// custody and marks the record BORROWED.
func ApplyBorrow(m *models.Material, record *models.BorrowRecord) error {
	if strings.TrimSpace(record.Borrower) == "" {
		return Invalid("borrower", "is required")
	}
	if err := requirePositive(record.Quantity); err != nil {
		return err
	}
	if err := requireSufficient(m, record.Quantity); err != nil {
		return err
	}
	m.CurrentStock -= record.Quantity
	record.MaterialID = m.ID
	record.Status = models.BorrowStatusBorrowed
	record.ReturnDate = nil
	record.ReturnCondition = nil
	return nil
}

// ApplyReturn closes an outstanding borrow. Stock is restored unless the
// items came back as LOST. BORROWED -> RETURNED is the only legal transition.
func ApplyReturn(m *models.Material, record *models.BorrowRecord, condition models.ReturnCondition, returnDate string) error {
	if record.Status != models.BorrowStatusBorrowed {
		return &NotFoundError{Entity: "borrow record", ID: record.ID, Reason: "no outstanding borrow to return"}
	}
	if record.MaterialID != m.ID {
		return Conflict("borrow record %d belongs to material %d, not %d", record.ID, record.MaterialID, m.ID)
	}
	if !condition.Valid() {
		return Invalid("condition", "must be one of GOOD, BROKEN, LOST")
	}
	if err := CheckDate("returnDate", returnDate); err != nil {
		return err
	}

	if condition != models.ConditionLost {
		m.CurrentStock += record.Quantity
	}
	record.Status = models.BorrowStatusReturned
	record.ReturnDate = &returnDate
	record.ReturnCondition = &condition
	return nil
}

// ApplyCount overwrites the material's stock with a physical count. When the
// counter supplied the stock they saw on record, it must still match the live
// value, otherwise another transaction got in between and the count is stale.
// item.SystemStock and item.Diff are filled from the live value.
func ApplyCount(m *models.Material, item *models.InventoryCheckItem, expectedSystemStock *int) error {
	if item.ActualStock < 0 {
		return Invalid("actualStock", "must not be negative")
	}
	if expectedSystemStock != nil && *expectedSystemStock != m.CurrentStock {
		return Conflict("stock of material %d changed since the count was prepared: expected %d, now %d",
			m.ID, *expectedSystemStock, m.CurrentStock)
	}

	item.MaterialID = m.ID
	item.MaterialName = m.Name
	item.SystemStock = m.CurrentStock
	item.Diff = item.ActualStock - m.CurrentStock
	m.CurrentStock = item.ActualStock
	return nil
}
