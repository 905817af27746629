package handler

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"warehouse-system/internal/database/models"
	"warehouse-system/internal/database/testdb"
	"warehouse-system/internal/events"
	"warehouse-system/internal/ledger"
	"warehouse-system/internal/metrics"
	audithandler "warehouse-system/internal/services/audit/handler"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	ledger    *LedgerHandler
	publisher *recordingPublisher
	warehouse models.Warehouse
	supplier  models.Supplier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.New(t)

	f := &fixture{
		db:        db,
		publisher: &recordingPublisher{},
		warehouse: models.Warehouse{Name: "Main", Location: "Floor 1"},
		supplier:  models.Supplier{Name: "Acme Tools", ContactPerson: "Binh", Phone: "0900"},
	}
	require.NoError(t, db.Create(&f.warehouse).Error)
	require.NoError(t, db.Create(&f.supplier).Error)

	f.ledger = NewLedgerHandler(db, audithandler.NewAuditHandler(db), nil, f.publisher, metrics.New("test"))
	return f
}

func (f *fixture) material(t *testing.T, code string, stock int) models.Material {
	t.Helper()
	m := models.Material{
		Code:         code,
		Name:         "Material " + code,
		Unit:         "pcs",
		Type:         models.MaterialElectricTool,
		WarehouseID:  f.warehouse.ID,
		CurrentStock: stock,
	}
	require.NoError(t, f.db.Create(&m).Error)
	return m
}

func (f *fixture) stock(t *testing.T, id int64) int {
	t.Helper()
	var m models.Material
	require.NoError(t, f.db.First(&m, id).Error)
	return m.CurrentStock
}

func (f *fixture) logs(t *testing.T) []models.SystemLog {
	t.Helper()
	var logs []models.SystemLog
	require.NoError(t, f.db.Order("id").Find(&logs).Error)
	return logs
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestStockIn(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, "M-1", 4)
	ctx := context.Background()

	view, err := f.ledger.StockIn(ctx, StockInRequest{
		MaterialID: m.ID,
		SupplierID: &f.supplier.ID,
		Quantity:   6,
		Price:      decimal.RequireFromString("125000.50"),
		Date:       "2024-05-02",
		Importer:   "keeper1",
	})
	require.NoError(t, err)

	assert.Equal(t, 10, f.stock(t, m.ID))
	assert.Equal(t, TypeIn, view.Type)
	assert.Equal(t, "M-1", view.MaterialCode)
	assert.Equal(t, "pcs", view.MaterialUnit)
	require.NotNil(t, view.SupplierName)
	assert.Equal(t, "Acme Tools", *view.SupplierName)
	require.NotNil(t, view.CurrentStock)
	assert.Equal(t, 10, *view.CurrentStock)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionImport, logs[0].Action)
	assert.Equal(t, "keeper1", logs[0].User)
	assert.Equal(t, "Stock in: Material M-1 x 6", logs[0].Description)
	assert.Equal(t, []string{events.EventStockIn}, f.publisher.types())
}

func TestStockInRejectedLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, "M-1", 4)
	missingSupplier := int64(999)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     StockInRequest
		wantErr func(error) bool
	}{
		{"zero quantity", StockInRequest{MaterialID: m.ID, Quantity: 0, Date: "2024-05-02"}, ledger.IsValidation},
		{"negative quantity", StockInRequest{MaterialID: m.ID, Quantity: -2, Date: "2024-05-02"}, ledger.IsValidation},
		{"negative price", StockInRequest{MaterialID: m.ID, Quantity: 1, Price: decimal.NewFromInt(-1), Date: "2024-05-02"}, ledger.IsValidation},
		{"missing date", StockInRequest{MaterialID: m.ID, Quantity: 1}, ledger.IsValidation},
		{"unknown material", StockInRequest{MaterialID: 999, Quantity: 1, Date: "2024-05-02"}, ledger.IsNotFound},
		{"unknown supplier", StockInRequest{MaterialID: m.ID, SupplierID: &missingSupplier, Quantity: 1, Date: "2024-05-02"}, ledger.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.StockIn(ctx, tt.req)
			assert.True(t, tt.wantErr(err), "unexpected error %v", err)
		})
	}

	assert.Equal(t, 4, f.stock(t, m.ID))
	assert.Zero(t, f.count(t, &models.StockIn{}))
	assert.Empty(t, f.logs(t))
	assert.Empty(t, f.publisher.types())
}

func TestStockOutSequence(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, "M-1", 10)
	ctx := context.Background()

	view, err := f.ledger.StockOut(ctx, StockOutRequest{
		MaterialID: m.ID, Quantity: 5, Date: "2024-05-02",
		Receiver: "Workshop A", Department: "Maintenance", Reason: "repair", Exporter: "keeper1",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, *view.CurrentStock)
	assert.Equal(t, 5, f.stock(t, m.ID))

	_, err = f.ledger.StockOut(ctx, StockOutRequest{
		MaterialID: m.ID, Quantity: 6, Date: "2024-05-03", Receiver: "Workshop A", Exporter: "keeper1",
	})
	var insufficient *ledger.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Available)

	assert.Equal(t, 5, f.stock(t, m.ID))
	assert.Equal(t, int64(1), f.count(t, &models.StockOut{}))
	assert.Len(t, f.logs(t), 1)
}

func TestBorrowAndReturnBroken(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, "T-1", 10)
	ctx := context.Background()

	borrowed, err := f.ledger.Borrow(ctx, BorrowRequest{
		MaterialID: m.ID, Borrower: "Tuan", BorrowDate: "2024-05-02", Quantity: 3,
		Condition: "good", Approver: "keeper1",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, f.stock(t, m.ID))
	assert.Equal(t, models.BorrowStatusBorrowed, borrowed.Status)

	returned, err := f.ledger.Return(ctx, ReturnRequest{
		BorrowID: borrowed.ID, ReturnDate: "2024-05-09", Condition: models.ConditionBroken,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, f.stock(t, m.ID))
	assert.Equal(t, models.BorrowStatusReturned, returned.Status)
	assert.Equal(t, models.ConditionBroken, *returned.ReturnCondition)

	var record models.BorrowRecord
	require.NoError(t, f.db.First(&record, borrowed.ID).Error)
	assert.Equal(t, models.BorrowStatusReturned, record.Status)
	assert.Equal(t, "2024-05-09", *record.ReturnDate)

	logs := f.logs(t)
	require.Len(t, logs, 2)
	assert.Equal(t, models.ActionBorrow, logs[0].Action)
	assert.Equal(t, "keeper1", logs[0].User)
	assert.Equal(t, models.ActionReturn, logs[1].Action)
	assert.Equal(t, "Tuan", logs[1].User)
	assert.Equal(t, []string{events.EventBorrowCreated, events.EventBorrowReturned}, f.publisher.types())
}

func TestReturnLostDoesNotRestoreStock(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, "T-1", 10)
	ctx := context.Background()

	borrowed, err := f.ledger.Borrow(ctx, BorrowRequest{MaterialID: m.ID, Borrower: "Tuan", BorrowDate: "2024-05-02", Quantity: 4})
	require.NoError(t, err)

	_, err = f.ledger.Return(ctx, ReturnRequest{BorrowID: borrowed.ID, ReturnDate: "2024-05-09", Condition: models.ConditionLost})
	require.NoError(t, err)
	assert.Equal(t, 6, f.stock(t, m.ID))
}

func TestReturnTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, "T-1", 10)
	ctx := context.Background()

	borrowed, err := f.ledger.Borrow(ctx, BorrowRequest{MaterialID: m.ID, Borrower: "Tuan", BorrowDate: "2024-05-02", Quantity: 2})
	require.NoError(t, err)
	_, err = f.ledger.Return(ctx, ReturnRequest{BorrowID: borrowed.ID, ReturnDate: "2024-05-09", Condition: models.ConditionGood})
	require.NoError(t, err)

	_, err = f.ledger.Return(ctx, ReturnRequest{BorrowID: borrowed.ID, ReturnDate: "2024-05-10", Condition: models.ConditionGood})
	assert.True(t, ledger.IsNotFound(err))
	assert.Equal(t, 10, f.stock(t, m.ID))
	assert.Len(t, f.logs(t), 2)

	_, err = f.ledger.Return(ctx, ReturnRequest{BorrowID: 12345, ReturnDate: "2024-05-10", Condition: models.ConditionGood})
	assert.True(t, ledger.IsNotFound(err))
}

func TestBorrowInsufficient(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, "T-1", 2)

	_, err := f.ledger.Borrow(context.Background(), BorrowRequest{MaterialID: m.ID, Borrower: "Tuan", BorrowDate: "2024-05-02", Quantity: 3})
	assert.True(t, ledger.IsInsufficientStock(err))
	assert.Equal(t, 2, f.stock(t, m.ID))
	assert.Zero(t, f.count(t, &models.BorrowRecord{}))
}

func TestInventoryCheckOverwritesStock(t *testing.T) {
	f := newFixture(t)
	a := f.material(t, "A", 12)
	b := f.material(t, "B", 80)

	check, err := f.ledger.CreateInventoryCheck(context.Background(), InventoryCheckRequest{
		Date:    "2024-05-31",
		Creator: "keeper1",
		Items: []InventoryCheckItemRequest{
			{MaterialID: b.ID, ActualStock: 50},
			{MaterialID: a.ID, ActualStock: 50},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 50, f.stock(t, a.ID))
	assert.Equal(t, 50, f.stock(t, b.ID))
	require.Len(t, check.Items, 2)
	assert.Equal(t, a.ID, check.Items[0].MaterialID)
	assert.Equal(t, 12, check.Items[0].SystemStock)
	assert.Equal(t, 38, check.Items[0].Diff)
	assert.Equal(t, -30, check.Items[1].Diff)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionAdjust, logs[0].Action)

	checks, err := f.ledger.ListInventoryChecks(context.Background())
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Len(t, checks[0].Items, 2)
}

func TestInventoryCheckStaleSystemStockRollsBack(t *testing.T) {
	f := newFixture(t)
	a := f.material(t, "A", 12)
	b := f.material(t, "B", 20)
	stale := 25

	_, err := f.ledger.CreateInventoryCheck(context.Background(), InventoryCheckRequest{
		Date:    "2024-05-31",
		Creator: "keeper1",
		Items: []InventoryCheckItemRequest{
			{MaterialID: a.ID, ActualStock: 3},
			{MaterialID: b.ID, SystemStock: &stale, ActualStock: 18},
		},
	})
	assert.True(t, ledger.IsConflict(err))

	assert.Equal(t, 12, f.stock(t, a.ID))
	assert.Equal(t, 20, f.stock(t, b.ID))
	assert.Zero(t, f.count(t, &models.InventoryCheck{}))
	assert.Zero(t, f.count(t, &models.InventoryCheckItem{}))
	assert.Empty(t, f.logs(t))
}

func TestInventoryCheckValidation(t *testing.T) {
	f := newFixture(t)
	a := f.material(t, "A", 12)
	ctx := context.Background()

	_, err := f.ledger.CreateInventoryCheck(ctx, InventoryCheckRequest{Date: "2024-05-31"})
	assert.True(t, ledger.IsValidation(err))

	_, err = f.ledger.CreateInventoryCheck(ctx, InventoryCheckRequest{
		Date:  "2024-05-31",
		Items: []InventoryCheckItemRequest{{MaterialID: a.ID, ActualStock: 1}, {MaterialID: a.ID, ActualStock: 2}},
	})
	assert.True(t, ledger.IsValidation(err))

	_, err = f.ledger.CreateInventoryCheck(ctx, InventoryCheckRequest{
		Date:  "2024-05-31",
		Items: []InventoryCheckItemRequest{{MaterialID: a.ID, ActualStock: 1}, {MaterialID: 999, ActualStock: 2}},
	})
	assert.True(t, ledger.IsNotFound(err))
	assert.Equal(t, 12, f.stock(t, a.ID))
}

func TestConcurrentStockOutNeverOversells(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, "M-1", 5)

	const workers = 12
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.StockOut(context.Background(), StockOutRequest{
				MaterialID: m.ID, Quantity: 1, Date: "2024-05-02", Receiver: "line", Exporter: "keeper",
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if ledger.IsInsufficientStock(err) {
				insufficient++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, workers-5, insufficient)
	assert.Equal(t, 0, f.stock(t, m.ID))
	assert.Len(t, f.logs(t), 5)
}

func TestEverySuccessfulOperationLogsOnce(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, "M-1", 10)
	ctx := context.Background()

	steps := []func() error{
		func() error {
			_, err := f.ledger.StockIn(ctx, StockInRequest{MaterialID: m.ID, Quantity: 2, Date: "2024-05-01"})
			return err
		},
		func() error {
			_, err := f.ledger.StockOut(ctx, StockOutRequest{MaterialID: m.ID, Quantity: 1, Date: "2024-05-01", Receiver: "x"})
			return err
		},
		func() error {
			b, err := f.ledger.Borrow(ctx, BorrowRequest{MaterialID: m.ID, Borrower: "y", BorrowDate: "2024-05-01", Quantity: 1})
			if err != nil {
				return err
			}
			_, err = f.ledger.Return(ctx, ReturnRequest{BorrowID: b.ID, ReturnDate: "2024-05-02", Condition: models.ConditionGood})
			return err
		},
		func() error {
			_, err := f.ledger.CreateInventoryCheck(ctx, InventoryCheckRequest{
				Date: "2024-05-03", Items: []InventoryCheckItemRequest{{MaterialID: m.ID, ActualStock: 9}},
			})
			return err
		},
	}
	want := []int{1, 2, 4, 5}

	for i, step := range steps {
		require.NoError(t, step())
		logs := f.logs(t)
		require.Len(t, logs, want[i])
		for _, l := range logs {
			assert.NotEmpty(t, l.User)
			assert.NotEmpty(t, l.Description)
		}
	}
	assert.Equal(t, audithandler.SystemActor, f.logs(t)[0].User)
}

func TestListTransactions(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, "M-1", 10)
	ctx := context.Background()

	_, err := f.ledger.StockIn(ctx, StockInRequest{MaterialID: m.ID, SupplierID: &f.supplier.ID, Quantity: 2, Date: "2024-04-28", Importer: "k"})
	require.NoError(t, err)
	_, err = f.ledger.StockOut(ctx, StockOutRequest{MaterialID: m.ID, Quantity: 1, Date: "2024-05-02", Receiver: "x", Exporter: "k"})
	require.NoError(t, err)
	_, err = f.ledger.Borrow(ctx, BorrowRequest{MaterialID: m.ID, Borrower: "y", BorrowDate: "2024-05-01", Quantity: 1, Approver: "k"})
	require.NoError(t, err)

	all, err := f.ledger.ListTransactions(ctx, TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{TypeOut, TypeBorrow, TypeIn}, []string{all[0].Type, all[1].Type, all[2].Type})
	assert.Equal(t, "Material M-1", all[2].MaterialName)
	require.NotNil(t, all[2].SupplierName)
	assert.Equal(t, "Acme Tools", *all[2].SupplierName)

	may, err := f.ledger.ListTransactions(ctx, TransactionFilter{Month: "2024-05"})
	require.NoError(t, err)
	assert.Len(t, may, 2)

	outs, err := f.ledger.ListTransactions(ctx, TransactionFilter{Type: "out"})
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, "x", outs[0].Receiver)

	_, err = f.ledger.ListTransactions(ctx, TransactionFilter{Month: "May"})
	assert.True(t, ledger.IsValidation(err))

	open, err := f.ledger.ListBorrows(ctx, models.BorrowStatusBorrowed)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestMalformedDatesAreRejected(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, "D-1", 10)
	ctx := context.Background()

	borrowed, err := f.ledger.Borrow(ctx, BorrowRequest{MaterialID: m.ID, Borrower: "Tuan", BorrowDate: "2026-10-01", Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, 9, f.stock(t, m.ID))
	logsBefore := len(f.logs(t))

	tests := []struct {
		name  string
		field string
		run   func() error
	}{
		{"stock in", "date", func() error {
			_, err := f.ledger.StockIn(ctx, StockInRequest{MaterialID: m.ID, Quantity: 5, Date: "05/10/2026"})
			return err
		}},
		{"stock out", "date", func() error {
			_, err := f.ledger.StockOut(ctx, StockOutRequest{MaterialID: m.ID, Quantity: 1, Date: "2026-10", Receiver: "x"})
			return err
		}},
		{"borrow date", "borrowDate", func() error {
			_, err := f.ledger.Borrow(ctx, BorrowRequest{MaterialID: m.ID, Borrower: "y", BorrowDate: "2026/10/05", Quantity: 1})
			return err
		}},
		{"expected return", "expectedReturn", func() error {
			bad := "next week"
			_, err := f.ledger.Borrow(ctx, BorrowRequest{MaterialID: m.ID, Borrower: "y", BorrowDate: "2026-10-05", Quantity: 1, ExpectedReturn: &bad})
			return err
		}},
		{"return date", "returnDate", func() error {
			_, err := f.ledger.Return(ctx, ReturnRequest{BorrowID: borrowed.ID, ReturnDate: "2026-13-01", Condition: models.ConditionGood})
			return err
		}},
		{"inventory check", "date", func() error {
			_, err := f.ledger.CreateInventoryCheck(ctx, InventoryCheckRequest{
				Date: "10-05-2026", Creator: "k",
				Items: []InventoryCheckItemRequest{{MaterialID: m.ID, ActualStock: 3}},
			})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.True(t, ledger.IsValidation(err), "%v", err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	assert.Equal(t, 9, f.stock(t, m.ID))
	assert.Len(t, f.logs(t), logsBefore)
	assert.Zero(t, f.count(t, &models.StockIn{}))
	assert.Zero(t, f.count(t, &models.StockOut{}))
	assert.Zero(t, f.count(t, &models.InventoryCheck{}))

	october, err := f.ledger.ListTransactions(ctx, TransactionFilter{Month: "2026-10"})
	require.NoError(t, err)
	assert.Len(t, october, 1)
}
