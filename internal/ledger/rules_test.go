package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehouse-system/internal/database/models"
)

func material(stock int) *models.Material {
	return &models.Material{ID: 10, Code: "M-10", Name: "Drill", CurrentStock: stock}
}

func intPtr(i int) *int {
	return &i
}

func TestApplyStockIn(t *testing.T) {
	for _, q := range []int{1, 7, 1000} {
		m := material(5)
		require.NoError(t, ApplyStockIn(m, q))
		assert.Equal(t, 5+q, m.CurrentStock)
	}
}

func TestApplyStockInRejectsNonPositive(t *testing.T) {
	for _, q := range []int{0, -3} {
		m := material(5)
		err := ApplyStockIn(m, q)
		assert.True(t, IsValidation(err), "quantity %d", q)
		assert.Equal(t, 5, m.CurrentStock)
	}
}

func TestApplyStockOut(t *testing.T) {
	tests := []struct {
		name      string
		stock     int
		quantity  int
		wantStock int
		wantErr   func(error) bool
	}{
		{"partial", 10, 4, 6, nil},
		{"everything", 10, 10, 0, nil},
		{"one too many", 10, 11, 10, IsInsufficientStock},
		{"empty stock", 0, 1, 0, IsInsufficientStock},
		{"zero quantity", 10, 0, 10, IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := material(tt.stock)
			err := ApplyStockOut(m, tt.quantity)
			if tt.wantErr != nil {
				assert.True(t, tt.wantErr(err), "unexpected error %v", err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantStock, m.CurrentStock)
			assert.GreaterOrEqual(t, m.CurrentStock, 0)
		})
	}
}

func TestStockOutSequence(t *testing.T) {
	m := material(10)
	require.NoError(t, ApplyStockOut(m, 5))
	assert.Equal(t, 5, m.CurrentStock)

	err := ApplyStockOut(m, 6)
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Available)
	assert.Equal(t, 6, insufficient.Requested)
	assert.Equal(t, 5, m.CurrentStock)
}

func TestBorrowReturnRoundTrip(t *testing.T) {
	m := material(10)
	record := &models.BorrowRecord{Borrower: "an", Quantity: 3}

	require.NoError(t, ApplyBorrow(m, record))
	assert.Equal(t, 7, m.CurrentStock)
	assert.Equal(t, models.BorrowStatusBorrowed, record.Status)
	assert.Equal(t, m.ID, record.MaterialID)

	require.NoError(t, ApplyReturn(m, record, models.ConditionBroken, "2024-05-02"))
	assert.Equal(t, 10, m.CurrentStock)
	assert.Equal(t, models.BorrowStatusReturned, record.Status)
	require.NotNil(t, record.ReturnCondition)
	assert.Equal(t, models.ConditionBroken, *record.ReturnCondition)
	assert.Equal(t, "2024-05-02", *record.ReturnDate)
}

func TestReturnLostKeepsStockDecremented(t *testing.T) {
	m := material(10)
	record := &models.BorrowRecord{Borrower: "an", Quantity: 4}

	require.NoError(t, ApplyBorrow(m, record))
	require.NoError(t, ApplyReturn(m, record, models.ConditionLost, "2024-05-02"))
	assert.Equal(t, 6, m.CurrentStock)
}

func TestReturnTwiceIsRejected(t *testing.T) {
	m := material(10)
	record := &models.BorrowRecord{Borrower: "an", Quantity: 2}

	require.NoError(t, ApplyBorrow(m, record))
	require.NoError(t, ApplyReturn(m, record, models.ConditionGood, "2024-05-02"))

	err := ApplyReturn(m, record, models.ConditionGood, "2024-05-03")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 10, m.CurrentStock)
	assert.Equal(t, "2024-05-02", *record.ReturnDate)
}

func TestReturnRejectsUnknownCondition(t *testing.T) {
	m := material(10)
	record := &models.BorrowRecord{Borrower: "an", Quantity: 2}
	require.NoError(t, ApplyBorrow(m, record))

	err := ApplyReturn(m, record, models.ReturnCondition("DAMAGED"), "2024-05-02")
	assert.True(t, IsValidation(err))
	assert.Equal(t, 8, m.CurrentStock)
	assert.Equal(t, models.BorrowStatusBorrowed, record.Status)
}

func TestBorrowInsufficient(t *testing.T) {
	m := material(2)
	record := &models.BorrowRecord{Borrower: "an", Quantity: 3}

	err := ApplyBorrow(m, record)
	assert.True(t, IsInsufficientStock(err))
	assert.Equal(t, 2, m.CurrentStock)
	assert.Empty(t, record.Status)
}

func TestApplyCount(t *testing.T) {
	for _, prior := range []int{0, 12, 50, 300} {
		m := material(prior)
		item := &models.InventoryCheckItem{ActualStock: 50}

		require.NoError(t, ApplyCount(m, item, nil))
		assert.Equal(t, 50, m.CurrentStock)
		assert.Equal(t, prior, item.SystemStock)
		assert.Equal(t, 50-prior, item.Diff)
		assert.Equal(t, "Drill", item.MaterialName)
	}
}

func TestApplyCountDetectsStaleSystemStock(t *testing.T) {
	m := material(12)
	item := &models.InventoryCheckItem{ActualStock: 9}

	err := ApplyCount(m, item, intPtr(15))
	assert.True(t, IsConflict(err))
	assert.Equal(t, 12, m.CurrentStock)

	require.NoError(t, ApplyCount(m, item, intPtr(12)))
	assert.Equal(t, 9, m.CurrentStock)
	assert.Equal(t, -3, item.Diff)
}

func TestApplyCountRejectsNegative(t *testing.T) {
	m := material(4)
	err := ApplyCount(m, &models.InventoryCheckItem{ActualStock: -1}, nil)
	assert.True(t, IsValidation(err))
	assert.Equal(t, 4, m.CurrentStock)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "ok", Kind(nil))
	assert.Equal(t, "not_found", Kind(NotFound("material", 1)))
	assert.Equal(t, "validation", Kind(Invalid("quantity", "bad")))
	assert.Equal(t, "conflict", Kind(Conflict("stale")))
	assert.Equal(t, "insufficient_stock", Kind(&InsufficientStockError{}))
}

func TestCheckDate(t *testing.T) {
	assert.NoError(t, CheckDate("date", "2024-02-29"))

	for _, value := range []string{"", "  ", "2023-02-29", "29/02/2024", "2024-2-29", "2024-02"} {
		err := CheckDate("date", value)
		assert.True(t, IsValidation(err), value)
	}
}

func TestReturnRejectsMalformedDate(t *testing.T) {
	m := material(10)
	record := &models.BorrowRecord{Borrower: "an", Quantity: 2}
	require.NoError(t, ApplyBorrow(m, record))

	err := ApplyReturn(m, record, models.ConditionGood, "05/09/2024")
	assert.True(t, IsValidation(err))
	assert.Equal(t, 8, m.CurrentStock)
	assert.Equal(t, models.BorrowStatusBorrowed, record.Status)
}
