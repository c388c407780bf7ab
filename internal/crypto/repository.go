// Package crypto implements storage, querying and export of cryptocurrency records.
package crypto

import (
	"context"
	"errors"

	"github.com/Aidin1998/cryptoapi/pkg/models"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no record matches the given identifier.
var ErrNotFound = errors.New("crypto not found")

// SortField names a sortable record attribute using its wire name.
type SortField string

const (
	SortByName       SortField = "name"
	SortByPrice      SortField = "price"
	SortByMarketCap  SortField = "marketCap"
	SortByLaunchDate SortField = "created_at"
)

// SortFields lists every accepted SortField.
var SortFields = []SortField{SortByName, SortByPrice, SortByMarketCap, SortByLaunchDate}

// Valid reports whether f is a known sort field.
func (f SortField) Valid() bool {
	for _, known := range SortFields {
		if f == known {
			return true
		}
	}
	return false
}

// Sort orders a listing by one field.
type Sort struct {
	Field SortField
	Desc  bool
}

// Filter restricts a listing. Zero value matches everything.
type Filter struct {
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	// Name matches records whose name contains it, ignoring case.
	Name string
}

// ListOptions controls a listing. Without a Sort records come back in
// insertion order. Limit 0 means no limit.
type ListOptions struct {
	Filter Filter
	Sort   *Sort
	Offset int
	Limit  int
}

// Repository persists crypto records.
type Repository interface {
	Migrate(ctx context.Context) error
	List(ctx context.Context, opts ListOptions) ([]models.Crypto, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	Get(ctx context.Context, id string) (*models.Crypto, error)
	Create(ctx context.Context, c *models.Crypto) error
	Replace(ctx context.Context, id string, c *models.Crypto) (*models.Crypto, error)
	Delete(ctx context.Context, id string) (*models.Crypto, error)
	DeleteAll(ctx context.Context) (int64, error)
	InsertMany(ctx context.Context, records []models.Crypto) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
