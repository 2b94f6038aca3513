package model

import "time"

type UserRole string

const (
	Employee UserRole = "employee"
	Admin    UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name        string     `gorm:"size:100;not null" json:"name"`
	Email       string     `gorm:"size:100;unique;not null" json:"email"`
	Password    string     `gorm:"size:100;not null" json:"-"`
	Role        UserRole   `gorm:"type:enum('employee','admin');default:'employee'" json:"role"`
	CurrentRole string     `gorm:"size:100" json:"currentRole"` // 当前岗位，如 "Frontend Developer"
	TargetRole  string     `gorm:"size:100" json:"targetRole"`
	Skills      StringList `gorm:"type:json" json:"skills"`
	Disabled    bool       `gorm:"default:false" json:"disabled"`
	LastLogin   time.Time  `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastLogin"`
}

func (User) TableName() string {
	return "users"
}
