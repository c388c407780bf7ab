package crypto

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/Aidin1998/cryptoapi/pkg/models"
)

//go:embed data/cryptos.json
var seedJSON []byte

// SeedData returns a fresh copy of the built-in data set.
func SeedData() ([]models.Crypto, error) {
	records, err := ReadJSON(bytes.NewReader(seedJSON))
	if err != nil {
		return nil, fmt.Errorf("invalid seed data: %w", err)
	}
	return records, nil
}
