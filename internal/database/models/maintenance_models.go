package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MaintenanceType string

const (
	MaintenanceRoutine     MaintenanceType = "ROUTINE"
	MaintenanceInspection  MaintenanceType = "INSPECTION"
	MaintenanceReplacement MaintenanceType = "REPLACEMENT"
	MaintenanceRepair      MaintenanceType = "REPAIR"
)

func (t MaintenanceType) Valid() bool {
	switch t {
	case MaintenanceRoutine, MaintenanceInspection, MaintenanceReplacement, MaintenanceRepair:
		return true
	}
	return false
}

type MaintenanceFrequency string

const (
	FrequencyWeekly    MaintenanceFrequency = "WEEKLY"
	FrequencyMonthly   MaintenanceFrequency = "MONTHLY"
	FrequencyQuarterly MaintenanceFrequency = "QUARTERLY"
	FrequencyYearly    MaintenanceFrequency = "YEARLY"
	FrequencyOnce      MaintenanceFrequency = "ONCE"
)

func (f MaintenanceFrequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly, FrequencyOnce:
		return true
	}
	return false
}

// Next returns the due date following a maintenance performed on from. ONCE
// schedules have no next date.
func (f MaintenanceFrequency) Next(from time.Time) (time.Time, bool) {
	switch f {
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7), true
	case FrequencyMonthly:
		return from.AddDate(0, 1, 0), true
	case FrequencyQuarterly:
		return from.AddDate(0, 3, 0), true
	case FrequencyYearly:
		return from.AddDate(1, 0, 0), true
	}
	return time.Time{}, false
}

// MaintenanceSchedule is a recurring maintenance plan for one material. The
// next date is empty once a ONCE schedule has been performed.
type MaintenanceSchedule struct {
	ID                  int64                `gorm:"primaryKey;autoIncrement" json:"id"`
	MaterialID          int64                `gorm:"index;not null" json:"materialId"`
	Type                MaintenanceType      `gorm:"size:20;not null" json:"type"`
	Frequency           MaintenanceFrequency `gorm:"size:20;not null" json:"frequency"`
	Description         string               `gorm:"type:text" json:"description"`
	LastMaintenanceDate *string              `gorm:"size:20" json:"lastMaintenanceDate,omitempty"`
	NextMaintenanceDate string               `gorm:"size:20;index;not null" json:"nextMaintenanceDate"`
	AssignedTo          *string              `gorm:"size:100" json:"assignedTo,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

type MaintenanceLog struct {
	ID                int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	ScheduleID        int64            `gorm:"index;not null" json:"scheduleId"`
	Date              string           `gorm:"size:20;not null" json:"date"`
	Performer         string           `gorm:"size:100;not null" json:"performer"`
	Result            string           `gorm:"type:text" json:"result"`
	Cost              *decimal.Decimal `gorm:"type:numeric(15,2)" json:"cost,omitempty"`
	NextScheduledDate *string          `gorm:"size:20" json:"nextScheduledDate,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
}
