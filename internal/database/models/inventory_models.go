package models

import "time"

type MaterialType string

const (
	MaterialConsumable       MaterialType = "CONSUMABLE"
	MaterialElectricTool     MaterialType = "ELECTRIC_TOOL"
	MaterialMechanicalTool   MaterialType = "MECHANICAL_TOOL"
	MaterialElectricDevice   MaterialType = "ELECTRIC_DEVICE"
	MaterialMechanicalDevice MaterialType = "MECHANICAL_DEVICE"
)

func (t MaterialType) Valid() bool {
	switch t {
	case MaterialConsumable, MaterialElectricTool, MaterialMechanicalTool,
		MaterialElectricDevice, MaterialMechanicalDevice:
		return true
	}
	return false
}

type Warehouse struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Location  string    `gorm:"size:255" json:"location"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Supplier struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	ContactPerson string    `gorm:"size:100" json:"contactPerson"`
	Phone         string    `gorm:"size:50" json:"phone"`
	Address       *string   `gorm:"size:255" json:"address,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Material.CurrentStock is written only by the ledger.
type Material struct {
	ID           int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Code         string       `gorm:"size:100;uniqueIndex;not null" json:"code"`
	Name         string       `gorm:"size:255;not null" json:"name"`
	Unit         string       `gorm:"size:50;not null" json:"unit"`
	Type         MaterialType `gorm:"size:30;not null" json:"type"`
	WarehouseID  int64        `gorm:"index;not null" json:"warehouseId"`
	SupplierID   *int64       `gorm:"index" json:"supplierId,omitempty"`
	BinLocation  string       `gorm:"size:100" json:"binLocation"`
	MinStock     int          `gorm:"not null;default:0" json:"minStock"`
	Note         string       `gorm:"type:text" json:"note"`
	CurrentStock int          `gorm:"not null;default:0" json:"currentStock"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`

	Warehouse *Warehouse `gorm:"foreignKey:WarehouseID" json:"-"`
	Supplier  *Supplier  `gorm:"foreignKey:SupplierID" json:"-"`
}

func (m Material) LowStock() bool {
	return m.CurrentStock <= m.MinStock
}
