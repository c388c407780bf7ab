package crypto

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Aidin1998/cryptoapi/pkg/models"
)

// CSVHeader is the column layout of exported records.
var CSVHeader = []string{"name", "price", "marketCap", "created_at", "_id", "createdAt", "updatedAt"}

// WriteCSV writes a header row and one row per record, in header column order.
func WriteCSV(w io.Writer, records []models.Crypto) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, c := range records {
		if err := cw.Write(csvRow(c)); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(c models.Crypto) []string {
	return []string{
		c.Name,
		c.Price.String(),
		c.MarketCap.String(),
		formatTime(c.LaunchedAt),
		c.ID,
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ReadJSON decodes a JSON array of records, as served by the API.
func ReadJSON(r io.Reader) ([]models.Crypto, error) {
	var records []models.Crypto
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}
