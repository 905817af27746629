package handler

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"warehouse-system/internal/cache"
	"warehouse-system/internal/database/models"
	"warehouse-system/internal/ledger"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"

	// DueWithinDays is how far ahead the dashboard looks for maintenance.
	DueWithinDays = 7

	SheetStockIn  = "Stock In"
	SheetStockOut = "Stock Out"
)

type LowStockItem struct {
	ID           int64  `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	CurrentStock int    `json:"currentStock"`
	MinStock     int    `json:"minStock"`
}

type DueMaintenance struct {
	ScheduleID          int64                  `json:"scheduleId"`
	MaterialID          int64                  `json:"materialId"`
	MaterialName        string                 `json:"materialName"`
	Type                models.MaintenanceType `json:"type"`
	NextMaintenanceDate string                 `json:"nextMaintenanceDate"`
	Overdue             bool                   `json:"overdue"`
}

type Dashboard struct {
	Date               string           `json:"date"`
	Month              string           `json:"month"`
	MaterialCount      int64            `json:"materialCount"`
	LowStock           []LowStockItem   `json:"lowStock"`
	OutstandingBorrows int64            `json:"outstandingBorrows"`
	BorrowedUnits      int64            `json:"borrowedUnits"`
	MonthStockIn       int64            `json:"monthStockIn"`
	MonthStockInValue  decimal.Decimal  `json:"monthStockInValue"`
	MonthStockOut      int64            `json:"monthStockOut"`
	MaintenanceDue     []DueMaintenance `json:"maintenanceDue"`
}

type stockInRow struct {
	Date         string
	Code         string
	Name         string
	Unit         string
	Quantity     int
	Price        decimal.Decimal
	SupplierName *string
	Importer     string
}

type stockOutRow struct {
	Date       string
	Code       string
	Name       string
	Unit       string
	Quantity   int
	Receiver   string
	Department string
	Reason     string
	Exporter   string
}

type ReportsHandler struct {
	db    *gorm.DB
	cache *cache.Store
	now   func() time.Time
}

func NewReportsHandler(db *gorm.DB, store *cache.Store) *ReportsHandler {
	return &ReportsHandler{
		db:    db,
		cache: store,
		now:   time.Now,
	}
}

// Dashboard summarises the warehouse as of today. The result is cached
// briefly, dropped by every stock movement and never served past the day it
// was computed for.
func (h *ReportsHandler) Dashboard(ctx context.Context) (*Dashboard, error) {
	today := h.now()
	var d Dashboard
	todayStr := today.Format(dateLayout)
	if h.cache.GetJSON(ctx, cache.DashboardKey, &d) && d.Date == todayStr {
		return &d, nil
	}

	d = Dashboard{Date: todayStr, Month: today.Format(monthLayout)}
	db := h.db.WithContext(ctx)
	monthPrefix := d.Month + "%"

	if err := db.Model(&models.Material{}).Count(&d.MaterialCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count materials: %w", err)
	}

	err := db.Model(&models.Material{}).
		Select("id, code, name, unit, current_stock, min_stock").
		Where("current_stock <= min_stock").
		Order("current_stock, code").
		Scan(&d.LowStock).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load low stock materials: %w", err)
	}

	var borrows struct {
		Count int64
		Units int64
	}
	err = db.Model(&models.BorrowRecord{}).
		Select("COUNT(*) AS count, COALESCE(SUM(quantity), 0) AS units").
		Where("status = ?", models.BorrowStatusBorrowed).
		Scan(&borrows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarise borrows: %w", err)
	}
	d.OutstandingBorrows, d.BorrowedUnits = borrows.Count, borrows.Units

	var ins []models.StockIn
	if err := db.Select("quantity, price").Where("date LIKE ?", monthPrefix).Find(&ins).Error; err != nil {
		return nil, fmt.Errorf("failed to summarise stock in: %w", err)
	}
	d.MonthStockInValue = decimal.Zero
	for _, in := range ins {
		d.MonthStockIn += int64(in.Quantity)
		d.MonthStockInValue = d.MonthStockInValue.Add(in.Price.Mul(decimal.NewFromInt(int64(in.Quantity))))
	}

	err = db.Model(&models.StockOut{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("date LIKE ?", monthPrefix).
		Scan(&d.MonthStockOut).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarise stock out: %w", err)
	}

	horizon := today.AddDate(0, 0, DueWithinDays).Format(dateLayout)
	err = db.Table("maintenance_schedules AS s").
		Select("s.id AS schedule_id, s.material_id, m.name AS material_name, s.type, s.next_maintenance_date").
		Joins("LEFT JOIN materials m ON m.id = s.material_id").
		Where("s.next_maintenance_date <> '' AND s.next_maintenance_date <= ?", horizon).
		Order("s.next_maintenance_date, s.id").
		Scan(&d.MaintenanceDue).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load due maintenance: %w", err)
	}
	for i := range d.MaintenanceDue {
		d.MaintenanceDue[i].Overdue = d.MaintenanceDue[i].NextMaintenanceDate < todayStr
	}

	h.cache.SetJSON(ctx, cache.DashboardKey, d, cache.TTLShort)
	return &d, nil
}

// ParseMonth validates a YYYY-MM month.
func ParseMonth(month string) error {
	if _, err := time.Parse(monthLayout, month); err != nil {
		return ledger.Invalid("month", "must be in YYYY-MM format")
	}
	return nil
}

func (h *ReportsHandler) monthRows(ctx context.Context, month string) ([]stockInRow, []stockOutRow, error) {
	db := h.db.WithContext(ctx)
	prefix := month + "%"

	var ins []stockInRow
	err := db.Table("stock_ins AS i").
		Select("i.date, m.code, m.name, m.unit, i.quantity, i.price, s.name AS supplier_name, i.importer").
		Joins("JOIN materials m ON m.id = i.material_id").
		Joins("LEFT JOIN suppliers s ON s.id = i.supplier_id").
		Where("i.date LIKE ?", prefix).
		Order("i.date, i.id").
		Scan(&ins).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load stock in rows: %w", err)
	}

	var outs []stockOutRow
	err = db.Table("stock_outs AS o").
		Select("o.date, m.code, m.name, m.unit, o.quantity, o.receiver, o.department, o.reason, o.exporter").
		Joins("JOIN materials m ON m.id = o.material_id").
		Where("o.date LIKE ?", prefix).
		Order("o.date, o.id").
		Scan(&outs).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load stock out rows: %w", err)
	}
	return ins, outs, nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}, widths []float64) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return err
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(sheet, "A1", last+"1", style); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

// MonthlyReport builds the stock movement workbook for one month.
func (h *ReportsHandler) MonthlyReport(ctx context.Context, month string) (*excelize.File, string, error) {
	if err := ParseMonth(month); err != nil {
		return nil, "", err
	}
	ins, outs, err := h.monthRows(ctx, month)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetStockIn); err != nil {
		return nil, "", err
	}
	if _, err := f.NewSheet(SheetStockOut); err != nil {
		return nil, "", err
	}

	inRows := make([][]interface{}, 0, len(ins)+1)
	total := decimal.Zero
	for _, r := range ins {
		line := r.Price.Mul(decimal.NewFromInt(int64(r.Quantity)))
		total = total.Add(line)
		supplier := ""
		if r.SupplierName != nil {
			supplier = *r.SupplierName
		}
		inRows = append(inRows, []interface{}{
			r.Date, r.Code, r.Name, r.Unit, r.Quantity,
			r.Price.InexactFloat64(), line.InexactFloat64(), supplier, r.Importer,
		})
	}
	inRows = append(inRows, []interface{}{"Total", "", "", "", "", "", total.InexactFloat64()})

	err = writeSheet(f, SheetStockIn,
		[]string{"Date", "Code", "Name", "Unit", "Quantity", "Price", "Line Total", "Supplier", "Importer"},
		inRows, []float64{12, 14, 30, 8, 10, 14, 16, 24, 18})
	if err != nil {
		return nil, "", fmt.Errorf("failed to write %s sheet: %w", SheetStockIn, err)
	}

	outRows := make([][]interface{}, 0, len(outs))
	for _, r := range outs {
		outRows = append(outRows, []interface{}{
			r.Date, r.Code, r.Name, r.Unit, r.Quantity, r.Receiver, r.Department, r.Reason, r.Exporter,
		})
	}
	err = writeSheet(f, SheetStockOut,
		[]string{"Date", "Code", "Name", "Unit", "Quantity", "Receiver", "Department", "Reason", "Exporter"},
		outRows, []float64{12, 14, 30, 8, 10, 18, 18, 30, 18})
	if err != nil {
		return nil, "", fmt.Errorf("failed to write %s sheet: %w", SheetStockOut, err)
	}

	return f, fmt.Sprintf("bao-cao-kho_%s.xlsx", month), nil
}

// WriteMonthlyReport streams the workbook for month to w.
func (h *ReportsHandler) WriteMonthlyReport(ctx context.Context, month string, w io.Writer) error {
	f, _, err := h.MonthlyReport(ctx, month)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}
