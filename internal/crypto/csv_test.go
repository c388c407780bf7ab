package crypto

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/Aidin1998/cryptoapi/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV_RowsFollowHeaderOrder(t *testing.T) {
	launched := time.Date(2009, 1, 3, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	records := []models.Crypto{
		{
			ID:         "abc123",
			Name:       "Bitcoin",
			Price:      decimal.RequireFromString("67250.12"),
			MarketCap:  decimal.RequireFromString("1324500000000"),
			LaunchedAt: launched,
			CreatedAt:  created,
			UpdatedAt:  created.Add(time.Hour),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"name", "price", "marketCap", "created_at", "_id", "createdAt", "updatedAt"}, rows[0])
	assert.Equal(t, []string{
		"Bitcoin",
		"67250.12",
		"1324500000000",
		"2009-01-03T00:00:00Z",
		"abc123",
		"2024-05-01T12:30:00Z",
		"2024-05-01T13:30:00Z",
	}, rows[1])
}

func TestWriteCSV_QuotesNamesWithCommas(t *testing.T) {
	records := []models.Crypto{{ID: "1", Name: "Wrapped, Token", Price: decimal.NewFromInt(1), MarketCap: decimal.NewFromInt(2)}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	assert.Contains(t, buf.String(), `"Wrapped, Token",1,2,,1,,`)
}

func TestWriteCSV_EmptyHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(CSVHeader, ",")+"\n", buf.String())
}

func TestReadJSON(t *testing.T) {
	input := `[{"_id":"x1","name":"Ethereum","price":3485.4,"marketCap":418900000000,"created_at":"2015-07-30T00:00:00Z"}]`

	records, err := ReadJSON(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "x1", records[0].ID)
	assert.Equal(t, "3485.4", records[0].Price.String())
	assert.Equal(t, 2015, records[0].LaunchedAt.Year())

	_, err = ReadJSON(strings.NewReader(`{"name":"not an array"}`))
	assert.Error(t, err)
}

func TestSeedData(t *testing.T) {
	records, err := SeedData()
	require.NoError(t, err)
	require.NotEmpty(t, records)

	seen := map[string]bool{}
	for _, r := range records {
		assert.NotEmpty(t, r.Name)
		assert.False(t, r.Price.IsNegative(), r.Name)
		assert.False(t, r.LaunchedAt.IsZero(), r.Name)
		assert.False(t, seen[r.Name], "duplicate %s", r.Name)
		seen[r.Name] = true
	}

	// Callers may mutate the result freely.
	records[0].Name = "changed"
	again, err := SeedData()
	require.NoError(t, err)
	assert.NotEqual(t, "changed", again[0].Name)
}
