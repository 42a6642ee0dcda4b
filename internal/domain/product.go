package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Size string

const (
	SizeHalfGallon Size = "half-gallon"
	SizeGallon     Size = "gallon"
	SizeQuart      Size = "quart"
)

func (s Size) Valid() bool {
	switch s {
	case SizeHalfGallon, SizeGallon, SizeQuart:
		return true
	}
	return false
}

type Category string

const (
	CategoryMilk  Category = "milk"
	CategoryCream Category = "cream"
)

func (c Category) Valid() bool {
	return c == CategoryMilk || c == CategoryCream
}

type Product struct {
	ID           uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         string          `json:"name" gorm:"size:255;not null"`
	Size         Size            `json:"size" gorm:"type:enum('half-gallon','gallon','quart');not null"`
	Price        decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Description  string          `json:"description" gorm:"type:text"`
	ImageURL     string          `json:"imageUrl" gorm:"size:512"`
	Category     Category        `json:"category" gorm:"type:enum('milk','cream');not null;index"`
	Active       bool            `json:"active" gorm:"not null"`
	Availability Availability    `json:"availability_by_date,omitempty" gorm:"-"`
	CreatedAt    time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

// Availability maps a delivery day to the units still sellable on it.
type Availability map[Day]int

// Get treats a missing day as zero units.
func (a Availability) Get(d Day) int {
	return a[d]
}

// AvailabilityEntry is the persisted form of one Availability key.
type AvailabilityEntry struct {
	ProductID uint64 `gorm:"primaryKey;autoIncrement:false"`
	Day       Day    `gorm:"primaryKey;autoIncrement:false"`
	Units     int    `gorm:"not null"`
}

func (AvailabilityEntry) TableName() string {
	return "product_availability"
}
