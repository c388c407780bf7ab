package crypto

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Aidin1998/cryptoapi/pkg/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestService(t *testing.T) (*Service, *recordingPublisher) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	pub := &recordingPublisher{}
	repo := Instrument(newTestRepository(t), "sqlite")
	return NewService(repo, pub, validation.NewValidator(logger), logger), pub
}

func input(name, price, marketCap string, launched time.Time) Input {
	p := decimal.RequireFromString(price)
	m := decimal.RequireFromString(marketCap)
	return Input{Name: name, Price: &p, MarketCap: &m, LaunchedAt: &launched}
}

func TestService_ListPagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 1; i <= 25; i++ {
		_, err := svc.Create(ctx, input(fmt.Sprintf("coin-%02d", i), "1", "1", time.Now()))
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, ListQuery{Page: 2, Limit: 10, Sort: &Sort{Field: SortByName}})
	require.NoError(t, err)

	assert.EqualValues(t, 25, page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	require.Len(t, page.Data, 10)
	assert.Equal(t, "coin-11", page.Data[0].Name)
	assert.Equal(t, "coin-20", page.Data[9].Name)

	page, err = svc.List(ctx, ListQuery{Page: 9, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Equal(t, 3, page.TotalPages)
}

func TestService_ListEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	page, err := svc.List(context.Background(), ListQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, page.TotalItems)
	assert.Zero(t, page.TotalPages)
	assert.NotNil(t, page.Data)
}

func TestService_CreateValidates(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{"missing name", input("", "1", "1", time.Now()), "name"},
		{"markup only name", input("<b></b>", "1", "1", time.Now()), "name"},
		{"negative price", input("X", "-1", "1", time.Now()), "price"},
		{"negative market cap", input("X", "1", "-5", time.Now()), "marketCap"},
		{"missing price", Input{Name: "X", MarketCap: input("X", "1", "1", time.Now()).MarketCap, LaunchedAt: ptrTime(time.Now())}, "price"},
		{"missing date", Input{Name: "X", Price: ptrDecimal("1"), MarketCap: ptrDecimal("1")}, "created_at"},
		{"price beyond decimal128 precision", input("X", "1.2345678901234567890123456789012345678", "1", time.Now()), "price"},
		{"price out of range", input("X", "1e7000", "1", time.Now()), "price"},
		{"market cap too many decimals", input("X", "1", "10.005", time.Now()), "marketCap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.NotEmpty(t, verr.Fields)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}
	assert.Empty(t, pub.types())
}

func TestService_CreateSanitizesName(t *testing.T) {
	svc, _ := newTestService(t)

	c, err := svc.Create(context.Background(), input("  <script>x</script>Monero ", "150", "2700000000", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "Monero", c.Name)
}

func TestService_PriceAtDigitBoundsIsValid(t *testing.T) {
	svc, _ := newTestService(t)
	c, err := svc.Create(context.Background(), input("Shiba", "0.00000001", "99999999999999999999999999999999.99", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "0.00000001", c.Price.String())
}

func TestService_ZeroPriceIsValid(t *testing.T) {
	svc, _ := newTestService(t)

	c, err := svc.Create(context.Background(), input("Dead Coin", "0", "0", time.Now()))
	require.NoError(t, err)
	assert.True(t, c.Price.IsZero())
}

func TestService_ReplaceAndDeletePublishEvents(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, input("Bitcoin", "1", "1", time.Date(2009, 1, 3, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	updated, err := svc.Replace(ctx, created.ID, input("Bitcoin", "2", "3", time.Date(2009, 1, 3, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, "2", updated.Price.String())

	deleted, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Replace(ctx, created.ID, input("Bitcoin", "2", "3", time.Now()))
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []EventType{EventCreated, EventUpdated, EventDeleted}, pub.types())
	for _, e := range pub.events {
		assert.Equal(t, created.ID, e.ID)
		assert.False(t, e.OccurredAt.IsZero())
	}
}

func TestService_PublishFailureDoesNotFailRequest(t *testing.T) {
	svc, pub := newTestService(t)
	pub.err = errors.New("broker down")

	c, err := svc.Create(context.Background(), input("Bitcoin", "1", "1", time.Now()))
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Len(t, pub.types(), 1)
}

func TestService_SearchByName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for _, n := range []string{"Bitcoin", "Bitcoin Cash", "Ethereum"} {
		_, err := svc.Create(ctx, input(n, "1", "1", time.Now()))
		require.NoError(t, err)
	}

	out, err := svc.SearchByName(ctx, "bitCOIN")
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = svc.SearchByName(ctx, "dogecoin")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = svc.SearchByName(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestService_SortedAndPriceRange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Reset(ctx)
	require.NoError(t, err)

	byCap, err := svc.SortedByMarketCap(ctx, true)
	require.NoError(t, err)
	require.NotEmpty(t, byCap)
	assert.Equal(t, "Bitcoin", byCap[0].Name)
	for i := 1; i < len(byCap); i++ {
		assert.False(t, byCap[i].MarketCap.GreaterThan(byCap[i-1].MarketCap))
	}

	byDate, err := svc.SortedByDate(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "Bitcoin", byDate[0].Name)

	lo, hi := decimal.NewFromInt(1), decimal.NewFromInt(100)
	inRange, err := svc.PriceRange(ctx, Filter{MinPrice: &lo, MaxPrice: &hi})
	require.NoError(t, err)
	require.NotEmpty(t, inRange)
	for i, c := range inRange {
		assert.True(t, c.Price.GreaterThanOrEqual(lo), c.Name)
		assert.True(t, c.Price.LessThanOrEqual(hi), c.Name)
		if i > 0 {
			assert.False(t, c.Price.LessThan(inRange[i-1].Price))
		}
	}
}

func TestService_Reset(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, input("Custom", "1", "1", time.Now()))
	require.NoError(t, err)

	seed, err := SeedData()
	require.NoError(t, err)

	result, err := svc.Reset(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Deleted)
	assert.Equal(t, len(seed), result.Inserted)

	out, err := svc.SearchByName(ctx, "Custom")
	require.NoError(t, err)
	assert.Empty(t, out)

	page, err := svc.List(ctx, ListQuery{Page: 1, Limit: 100})
	require.NoError(t, err)
	assert.EqualValues(t, len(seed), page.TotalItems)
	assert.Equal(t, seed[0].Name, page.Data[0].Name)

	assert.Equal(t, []EventType{EventCreated, EventReset}, pub.types())
}

func TestService_Export(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, input("Bitcoin", "67250.12", "1324500000000", time.Date(2009, 1, 3, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, CSVHeader, rows[0])
	assert.Equal(t, "Bitcoin", rows[1][0])
	assert.Equal(t, "67250.12", rows[1][1])
	assert.Equal(t, "2009-01-03T00:00:00Z", rows[1][3])
}

func ptrDecimal(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func ptrTime(t time.Time) *time.Time { return &t }
