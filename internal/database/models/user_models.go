package models

import "time"

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleKeeper   Role = "KEEPER"
	RoleStaff    Role = "STAFF"
	RoleDirector Role = "DIRECTOR"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleKeeper, RoleStaff, RoleDirector:
		return true
	}
	return false
}

type User struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string     `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Password  string     `gorm:"size:255;not null" json:"-"`
	Role      Role       `gorm:"size:20;not null" json:"role"`
	FullName  string     `gorm:"size:255;not null" json:"fullName"`
	Active    bool       `gorm:"not null" json:"active"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}
