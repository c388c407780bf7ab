package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices and market caps go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Crypto represents a cryptocurrency record.
//
// LaunchedAt is the coin's own creation date and travels as "created_at";
// CreatedAt/UpdatedAt are record bookkeeping maintained by the store.
type Crypto struct {
	ID         string          `json:"_id" gorm:"primaryKey;type:varchar(36)"`
	Name       string          `json:"name" gorm:"type:varchar(100);not null;index"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(38,8);not null;index"`
	MarketCap  decimal.Decimal `json:"marketCap" gorm:"type:decimal(38,2);not null"`
	LaunchedAt time.Time       `json:"created_at" gorm:"column:launched_at;not null"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// TableName pins the SQL table name.
func (Crypto) TableName() string {
	return "cryptos"
}

// CryptoPage is a single page of a paginated listing.
type CryptoPage struct {
	TotalItems  int64    `json:"totalItems"`
	TotalPages  int      `json:"totalPages"`
	CurrentPage int      `json:"currentPage"`
	Data        []Crypto `json:"data"`
}

// ResetResult reports the outcome of a bulk reset.
type ResetResult struct {
	Deleted  int64 `json:"deleted"`
	Inserted int   `json:"inserted"`
}
