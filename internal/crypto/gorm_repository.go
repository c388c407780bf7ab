package crypto

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Aidin1998/cryptoapi/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var gormColumns = map[SortField]string{
	SortByName:       "name",
	SortByPrice:      "price",
	SortByMarketCap:  "market_cap",
	SortByLaunchDate: "launched_at",
}

// GormRepository implements Repository on top of a SQL database through GORM.
// Record IDs are UUIDv7 so that ordering by ID follows insertion order.
type GormRepository struct {
	db        *gorm.DB
	logger    *zap.Logger
	batchSize int
}

// NewGormRepository creates a new GORM-based repository
func NewGormRepository(db *gorm.DB, logger *zap.Logger) *GormRepository {
	return &GormRepository{
		db:        db,
		logger:    logger,
		batchSize: 100,
	}
}

// Migrate creates or updates the cryptos table
func (r *GormRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&models.Crypto{}); err != nil {
		return fmt.Errorf("failed to migrate cryptos table: %w", err)
	}
	return nil
}

func (r *GormRepository) filtered(ctx context.Context, f Filter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Crypto{})
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.Name != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(f.Name))+"%")
	}
	return q
}

// List returns records matching opts
func (r *GormRepository) List(ctx context.Context, opts ListOptions) ([]models.Crypto, error) {
	q := r.filtered(ctx, opts.Filter)
	if opts.Sort != nil {
		column, ok := gormColumns[opts.Sort.Field]
		if !ok {
			return nil, fmt.Errorf("unsupported sort field %q", opts.Sort.Field)
		}
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: opts.Sort.Desc})
	}
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	records := make([]models.Crypto, 0)
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list cryptos: %w", err)
	}
	return records, nil
}

// Count returns the number of records matching filter
func (r *GormRepository) Count(ctx context.Context, filter Filter) (int64, error) {
	var n int64
	if err := r.filtered(ctx, filter).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count cryptos: %w", err)
	}
	return n, nil
}

// Get retrieves a record by its ID
func (r *GormRepository) Get(ctx context.Context, id string) (*models.Crypto, error) {
	var c models.Crypto
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get crypto: %w", err)
	}
	return &c, nil
}

// Create inserts c, filling in its ID and timestamps
func (r *GormRepository) Create(ctx context.Context, c *models.Crypto) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate id: %w", err)
	}
	c.ID = id.String()

	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		r.logger.Error("Failed to create crypto", zap.Error(err), zap.String("name", c.Name))
		return fmt.Errorf("failed to create crypto: %w", err)
	}

	r.logger.Debug("Crypto created", zap.String("id", c.ID))
	return nil
}

// Replace overwrites every user-supplied field of the record with the given ID
func (r *GormRepository) Replace(ctx context.Context, id string, c *models.Crypto) (*models.Crypto, error) {
	result := r.db.WithContext(ctx).Model(&models.Crypto{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":        c.Name,
			"price":       c.Price,
			"market_cap":  c.MarketCap,
			"launched_at": c.LaunchedAt,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update crypto: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes the record with the given ID and returns it
func (r *GormRepository) Delete(ctx context.Context, id string) (*models.Crypto, error) {
	var deleted models.Crypto
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&deleted).Error; err != nil {
			return err
		}
		return tx.Delete(&deleted).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete crypto: %w", err)
	}
	return &deleted, nil
}

// DeleteAll removes every record
func (r *GormRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Crypto{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete cryptos: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// InsertMany inserts records in batches, assigning IDs in slice order
func (r *GormRepository) InsertMany(ctx context.Context, records []models.Crypto) error {
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate id: %w", err)
		}
		records[i].ID = id.String()
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&records, r.batchSize).Error; err != nil {
		return fmt.Errorf("failed to insert cryptos: %w", err)
	}
	return nil
}

// Ping checks the database connection
func (r *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool
func (r *GormRepository) Close(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// escapeLike escapes LIKE wildcards so user input matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
