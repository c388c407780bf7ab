package crypto

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Aidin1998/cryptoapi/pkg/metrics"
	"github.com/Aidin1998/cryptoapi/pkg/models"
	"github.com/Aidin1998/cryptoapi/pkg/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CryptoService defines the operations exposed over HTTP and the CLI.
type CryptoService interface {
	List(ctx context.Context, q ListQuery) (*models.CryptoPage, error)
	SortedByMarketCap(ctx context.Context, desc bool) ([]models.Crypto, error)
	SortedByDate(ctx context.Context, desc bool) ([]models.Crypto, error)
	PriceRange(ctx context.Context, filter Filter) ([]models.Crypto, error)
	Get(ctx context.Context, id string) (*models.Crypto, error)
	SearchByName(ctx context.Context, fragment string) ([]models.Crypto, error)
	Create(ctx context.Context, in Input) (*models.Crypto, error)
	Replace(ctx context.Context, id string, in Input) (*models.Crypto, error)
	Delete(ctx context.Context, id string) (*models.Crypto, error)
	Reset(ctx context.Context) (*models.ResetResult, error)
	Export(ctx context.Context, w io.Writer) error
	Ping(ctx context.Context) error
}

// Input is the client-supplied part of a record, used for create and replace.
// Digit bounds keep values within 34 significant digits (Decimal128) and the
// decimal(38,8) / decimal(38,2) SQL columns.
type Input struct {
	Name       string           `json:"name" validate:"required,min=1,max=100"`
	Price      *decimal.Decimal `json:"price" validate:"required,gte=0,decimal=26.8"`
	MarketCap  *decimal.Decimal `json:"marketCap" validate:"required,gte=0,decimal=32.2"`
	LaunchedAt *time.Time       `json:"created_at" validate:"required"`
}

// ValidationError reports an Input that failed validation.
type ValidationError struct {
	Fields validation.FieldErrors
}

func (e *ValidationError) Error() string { return e.Fields.Error() }

func (e *ValidationError) Unwrap() error { return e.Fields }

// Service implements CryptoService
type Service struct {
	repo      Repository
	publisher Publisher
	validator *validation.Validator
	logger    *zap.Logger
}

// NewService creates a new crypto service. A nil publisher discards events.
func NewService(repo Repository, publisher Publisher, validator *validation.Validator, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if validator == nil {
		validator = validation.NewValidator(logger)
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		validator: validator,
		logger:    logger,
	}
}

// List returns one page of records
func (s *Service) List(ctx context.Context, q ListQuery) (*models.CryptoPage, error) {
	total, err := s.repo.Count(ctx, q.Filter)
	if err != nil {
		return nil, err
	}
	data, err := s.repo.List(ctx, ListOptions{
		Filter: q.Filter,
		Sort:   q.Sort,
		Offset: q.Offset(),
		Limit:  q.Limit,
	})
	if err != nil {
		return nil, err
	}

	return &models.CryptoPage{
		TotalItems:  total,
		TotalPages:  int((total + int64(q.Limit) - 1) / int64(q.Limit)),
		CurrentPage: q.Page,
		Data:        data,
	}, nil
}

// SortedByMarketCap returns every record ordered by market cap
func (s *Service) SortedByMarketCap(ctx context.Context, desc bool) ([]models.Crypto, error) {
	return s.repo.List(ctx, ListOptions{Sort: &Sort{Field: SortByMarketCap, Desc: desc}})
}

// SortedByDate returns every record ordered by launch date
func (s *Service) SortedByDate(ctx context.Context, desc bool) ([]models.Crypto, error) {
	return s.repo.List(ctx, ListOptions{Sort: &Sort{Field: SortByLaunchDate, Desc: desc}})
}

// PriceRange returns every record priced within the filter bounds, cheapest first
func (s *Service) PriceRange(ctx context.Context, filter Filter) ([]models.Crypto, error) {
	return s.repo.List(ctx, ListOptions{
		Filter: Filter{MinPrice: filter.MinPrice, MaxPrice: filter.MaxPrice},
		Sort:   &Sort{Field: SortByPrice},
	})
}

// Get returns a single record
func (s *Service) Get(ctx context.Context, id string) (*models.Crypto, error) {
	return s.repo.Get(ctx, id)
}

// SearchByName returns records whose name contains fragment, ignoring case
func (s *Service) SearchByName(ctx context.Context, fragment string) ([]models.Crypto, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return []models.Crypto{}, nil
	}
	return s.repo.List(ctx, ListOptions{Filter: Filter{Name: fragment}})
}

// Create validates in and stores a new record
func (s *Service) Create(ctx context.Context, in Input) (*models.Crypto, error) {
	c, err := s.toModel(in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	metrics.RecordMutations.WithLabelValues(string(EventCreated)).Inc()
	s.logger.Info("Crypto created", zap.String("id", c.ID), zap.String("name", c.Name))
	s.publish(ctx, Event{Type: EventCreated, ID: c.ID, Record: c})
	return c, nil
}

// Replace overwrites the record with the given ID
func (s *Service) Replace(ctx context.Context, id string, in Input) (*models.Crypto, error) {
	c, err := s.toModel(in)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Replace(ctx, id, c)
	if err != nil {
		return nil, err
	}

	metrics.RecordMutations.WithLabelValues(string(EventUpdated)).Inc()
	s.logger.Info("Crypto updated", zap.String("id", id))
	s.publish(ctx, Event{Type: EventUpdated, ID: id, Record: updated})
	return updated, nil
}

// Delete removes the record with the given ID and returns it
func (s *Service) Delete(ctx context.Context, id string) (*models.Crypto, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.RecordMutations.WithLabelValues(string(EventDeleted)).Inc()
	s.logger.Info("Crypto deleted", zap.String("id", id))
	s.publish(ctx, Event{Type: EventDeleted, ID: id, Record: deleted})
	return deleted, nil
}

// Reset replaces the whole collection with the built-in data set.
// It is not atomic: a failed insert leaves the collection empty.
func (s *Service) Reset(ctx context.Context) (*models.ResetResult, error) {
	records, err := SeedData()
	if err != nil {
		return nil, err
	}

	deleted, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.repo.InsertMany(ctx, records); err != nil {
		return nil, err
	}

	result := &models.ResetResult{Deleted: deleted, Inserted: len(records)}
	metrics.RecordMutations.WithLabelValues(string(EventReset)).Inc()
	s.logger.Info("Collection reset", zap.Int64("deleted", deleted), zap.Int("inserted", len(records)))
	s.publish(ctx, Event{Type: EventReset, Deleted: deleted, Inserted: len(records)})
	return result, nil
}

// Export writes every record to w as CSV
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	records, err := s.repo.List(ctx, ListOptions{})
	if err != nil {
		return err
	}
	return WriteCSV(w, records)
}

// Ping checks the store
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) toModel(in Input) (*models.Crypto, error) {
	in.Name = s.validator.SanitizeText(in.Name)
	if err := s.validator.ValidateStruct(in); err != nil {
		var fieldErrs validation.FieldErrors
		if errors.As(err, &fieldErrs) {
			return nil, &ValidationError{Fields: fieldErrs}
		}
		return nil, fmt.Errorf("failed to validate input: %w", err)
	}

	return &models.Crypto{
		Name:       in.Name,
		Price:      *in.Price,
		MarketCap:  *in.MarketCap,
		LaunchedAt: in.LaunchedAt.UTC(),
	}, nil
}

func (s *Service) publish(ctx context.Context, evt Event) {
	evt.OccurredAt = time.Now().UTC()
	if err := s.publisher.Publish(ctx, evt); err != nil {
		metrics.EventPublishFailures.Inc()
		s.logger.Warn("Failed to publish change event",
			zap.String("type", string(evt.Type)),
			zap.String("id", evt.ID),
			zap.Error(err))
	}
}
