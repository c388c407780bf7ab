package crypto

import (
	"context"
	"errors"
	"time"

	"github.com/Aidin1998/cryptoapi/pkg/metrics"
	"github.com/Aidin1998/cryptoapi/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/Aidin1998/cryptoapi/internal/crypto"

// instrumentedRepository records latency and failures of every call
type instrumentedRepository struct {
	next    Repository
	backend string
}

// Instrument wraps repo so that each operation is traced and observed in
// Prometheus under the given backend label.
func Instrument(repo Repository, backend string) Repository {
	return &instrumentedRepository{next: repo, backend: backend}
}

func (r *instrumentedRepository) start(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "store."+op)
	span.SetAttributes(attribute.String("db.system", r.backend))
	start := time.Now()

	return ctx, func(err error) {
		metrics.StoreOperationDuration.WithLabelValues(r.backend, op).Observe(time.Since(start).Seconds())
		if err != nil && !errors.Is(err, ErrNotFound) {
			metrics.StoreOperationErrors.WithLabelValues(r.backend, op).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (r *instrumentedRepository) Migrate(ctx context.Context) (err error) {
	ctx, done := r.start(ctx, "migrate")
	defer func() { done(err) }()
	return r.next.Migrate(ctx)
}

func (r *instrumentedRepository) List(ctx context.Context, opts ListOptions) (out []models.Crypto, err error) {
	ctx, done := r.start(ctx, "list")
	defer func() { done(err) }()
	return r.next.List(ctx, opts)
}

func (r *instrumentedRepository) Count(ctx context.Context, filter Filter) (n int64, err error) {
	ctx, done := r.start(ctx, "count")
	defer func() { done(err) }()
	return r.next.Count(ctx, filter)
}

func (r *instrumentedRepository) Get(ctx context.Context, id string) (c *models.Crypto, err error) {
	ctx, done := r.start(ctx, "get")
	defer func() { done(err) }()
	return r.next.Get(ctx, id)
}

func (r *instrumentedRepository) Create(ctx context.Context, c *models.Crypto) (err error) {
	ctx, done := r.start(ctx, "create")
	defer func() { done(err) }()
	return r.next.Create(ctx, c)
}

func (r *instrumentedRepository) Replace(ctx context.Context, id string, c *models.Crypto) (out *models.Crypto, err error) {
	ctx, done := r.start(ctx, "replace")
	defer func() { done(err) }()
	return r.next.Replace(ctx, id, c)
}

func (r *instrumentedRepository) Delete(ctx context.Context, id string) (out *models.Crypto, err error) {
	ctx, done := r.start(ctx, "delete")
	defer func() { done(err) }()
	return r.next.Delete(ctx, id)
}

func (r *instrumentedRepository) DeleteAll(ctx context.Context) (n int64, err error) {
	ctx, done := r.start(ctx, "delete_all")
	defer func() { done(err) }()
	return r.next.DeleteAll(ctx)
}

func (r *instrumentedRepository) InsertMany(ctx context.Context, records []models.Crypto) (err error) {
	ctx, done := r.start(ctx, "insert_many")
	defer func() { done(err) }()
	return r.next.InsertMany(ctx, records)
}

func (r *instrumentedRepository) Ping(ctx context.Context) (err error) {
	ctx, done := r.start(ctx, "ping")
	defer func() { done(err) }()
	return r.next.Ping(ctx)
}

func (r *instrumentedRepository) Close(ctx context.Context) error {
	return r.next.Close(ctx)
}
