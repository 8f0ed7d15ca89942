package entity

import (
	"math"

	"github.com/google/uuid"
)

// Base holds the document primary key shared by every collection.
type Base struct {
	ID uuid.UUID `json:"id" validate:"required"`
}

// Key implements Canonical.
func (b Base) Key() uuid.UUID {
	return b.ID
}

// RoundPrice rounds a currency amount to two decimals.
func RoundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}

// Cents converts a currency amount to integer hundredths.
func Cents(v float64) int64 {
	return int64(math.Round(v * 100))
}
