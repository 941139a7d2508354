package model

import (
	"strings"
	"time"
)

// FranchiseTypePerformer marks franchises that perform the work themselves.
const FranchiseTypePerformer = "performer"

// FranchiseDepartmentID is the department of franchise participants on an object.
const FranchiseDepartmentID = 10

// Franchise is the legal counterparty (merchant) attributed to objects.
type Franchise struct {
	ID            int64  `gorm:"column:franchise_id;primaryKey"`
	Name          string `gorm:"not null"`
	INN           string `gorm:"column:inn;type:varchar(12)"`
	Phone         string `gorm:"type:varchar(20)"`
	FranchiseType string `gorm:"type:varchar(64)"`
	IsActive      bool   `gorm:"not null"`
}

func (Franchise) TableName() string { return "franchises" }

// EstimateObject is a renovation object. Nominal objects pay outside the merchant network.
type EstimateObject struct {
	ObjectID  int64 `gorm:"primaryKey;autoIncrement:false"`
	Address   string
	IsNominal bool `gorm:"not null"`
}

func (EstimateObject) TableName() string { return "estimate_objects" }

// ObjectFranchise maps an object to its owning franchise.
type ObjectFranchise struct {
	ObjectID    int64 `gorm:"primaryKey;autoIncrement:false"`
	FranchiseID *int64
}

func (ObjectFranchise) TableName() string { return "object_franchises" }

// ObjectParticipant assigns a user of a department to an object for a date range.
type ObjectParticipant struct {
	ID           uint64 `gorm:"primaryKey"`
	ObjectID     int64  `gorm:"not null;index"`
	UserID       int64  `gorm:"not null"`
	DepartmentID int    `gorm:"not null"`
	DateStart    time.Time
	DateEnd      time.Time `gorm:"not null"`
}

func (ObjectParticipant) TableName() string { return "object_participants" }

type ObjectBudget struct {
	ObjectID int64 `gorm:"primaryKey;autoIncrement:false"`
	BudgetID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (ObjectBudget) TableName() string { return "object_budgets" }

// Client is the customer on an object; receipts are addressed to them.
type Client struct {
	ID         int64 `gorm:"column:client_id;primaryKey"`
	FirstName  string
	SecondName string
	MiddleName string
	Phone      string `gorm:"type:varchar(20)"`
	Email      string
	// IsLegal marks legal-entity clients; fiscal receipts are not issued to them
	IsLegal bool `gorm:"not null"`
}

func (Client) TableName() string { return "clients" }

// FullName joins the non-empty name parts, surname first.
func (c *Client) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.SecondName, c.FirstName, c.MiddleName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// DigitsPhone strips everything but digits from the phone number.
func (c *Client) DigitsPhone() string {
	var b strings.Builder
	for _, r := range c.Phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type ObjectClient struct {
	ObjectID int64 `gorm:"primaryKey;autoIncrement:false"`
	ClientID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (ObjectClient) TableName() string { return "object_clients" }
