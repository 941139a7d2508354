package model

import "time"

// Operator roles.
const (
	RoleAdmin      = "admin"
	RoleAccountant = "accountant"
	RoleFranchise  = "franchise"
)

// Operator is a back-office user of the payment API.
// Role: "admin" | "accountant" | "franchise"
type Operator struct {
	ID           int64  `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	Name         string `gorm:"not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"type:varchar(20);not null"`
	// FranchiseID binds franchise operators to their own legal entity; nil = back office
	FranchiseID *int64
	Active      bool `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Operator) TableName() string { return "operators" }
