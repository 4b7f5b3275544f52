package model

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// MaxQuantity is the largest stock a component may hold and the largest
// quantity a single movement may carry. It matches the INTEGER columns of
// both schemas.
const MaxQuantity = math.MaxInt32

// Component is a catalog entry. Quantity is the stock currently on hand.
type Component struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	Quantity     int       `db:"quantity" json:"quantity"`
	CategoryID   *int64    `db:"category_id" json:"category_id"`
	CategoryName *string   `db:"category_name" json:"category_name"`
	LocationID   *int64    `db:"location_id" json:"location_id"`
	LocationName *string   `db:"location_name" json:"location_name"`
	Status       string    `db:"status" json:"status"`
	ImageURL     *string   `db:"image_url" json:"image_url,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Component statuses.
const (
	StatusAvailable = "available"
	StatusDamaged   = "damaged"
	StatusRetired   = "retired"
)

// ValidStatus reports whether s is a known component status.
func ValidStatus(s string) bool {
	return s == StatusAvailable || s == StatusDamaged || s == StatusRetired
}

// ComponentInput holds the writable fields of a component.
type ComponentInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	CategoryID  *int64 `json:"category_id"`
	LocationID  *int64 `json:"location_id"`
	Status      string `json:"status"`
}

// Normalize trims text fields and fills in the default status.
func (in *ComponentInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Status = strings.TrimSpace(in.Status)
	if in.Status == "" {
		in.Status = StatusAvailable
	}
}

// Validate checks a normalized input.
func (in *ComponentInput) Validate() error {
	if in.Name == "" {
		return Required("name")
	}
	if in.Quantity < 0 {
		return &ValidationError{Field: "quantity", Message: "must not be negative"}
	}
	if in.Quantity > MaxQuantity {
		return &ValidationError{Field: "quantity", Message: "must not exceed " + strconv.Itoa(MaxQuantity)}
	}
	if !ValidStatus(in.Status) {
		return &ValidationError{Field: "status", Message: "unknown status " + in.Status}
	}
	return nil
}

// ComponentFilter narrows a component listing. Zero values match everything.
type ComponentFilter struct {
	NameContains string
	CategoryID   *int64
	LocationID   *int64
}
