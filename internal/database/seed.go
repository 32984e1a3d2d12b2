package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// SeedProduct is one entry of a seed file: a JSON array of
// {"name","description","price"} objects.
type SeedProduct struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

type SeedReport struct {
	Planned int      `json:"planned"`
	Created int      `json:"created"`
	IDs     []string `json:"ids,omitempty"`
	Noop    bool     `json:"noop"`
}

var DefaultSeedProducts = []SeedProduct{
	{Name: "Pen", Description: "Blue ink", Price: 1.5},
	{Name: "Notebook", Description: "A5 ruled, 80 sheets", Price: 4.25},
	{Name: "Stapler", Description: "Desktop, 20 sheet capacity", Price: 9.99},
}

// LoadSeedFile reads seed products from path, or returns the defaults when
// path is empty.
func LoadSeedFile(path string) ([]SeedProduct, error) {
	if strings.TrimSpace(path) == "" {
		return append([]SeedProduct(nil), DefaultSeedProducts...), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var items []SeedProduct
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	if err := validateSeed(items); err != nil {
		return nil, err
	}
	return items, nil
}

func validateSeed(items []SeedProduct) error {
	var errs []error
	for i, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			errs = append(errs, fmt.Errorf("item %d: name is required", i))
		}
		if it.Price < 0 {
			errs = append(errs, fmt.Errorf("item %d: price must not be negative", i))
		}
	}
	return errors.Join(errs...)
}
