/**
 * @description
 * Shared ingestion-mapper plumbing.
 * Mappers transform one raw snapshot payload into zero or more canonical
 * records. They are pure with respect to storage: parsing, unit
 * normalization, and condition collapsing happen here; persistence is the
 * store's job. A malformed individual entry is dropped and logged without
 * sinking the rest of the batch; a malformed payload fails the whole call.
 *
 * @dependencies
 * - github.com/shopspring/decimal
 * - backend/internal/models
 */

package services

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// ValidationError marks a raw payload (or payload entry) whose shape doesn't
// match the provider contract.
type ValidationError struct {
	Provider string
	Detail   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s payload validation: %s", e.Provider, e.Detail)
}

// MapContext carries the resolved identifiers a mapper needs but the raw
// payload doesn't contain.
type MapContext struct {
	SKU        string
	SizeSystem string // size system of the emitted size keys
	Region     string
	SnapshotAt int64 // unix seconds; one timestamp per ingestion batch
}

// parseSizeNumeric extracts the numeric portion of a provider size label
// ("10.5" -> 10.5, "10W" -> 10). Returns false for labels with no leading
// number.
func parseSizeNumeric(label string) (float64, bool) {
	end := 0
	for end < len(label) {
		c := label[end]
		if (c >= '0' && c <= '9') || c == '.' {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.ParseFloat(label[:end], 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// majorUnits parses a decimal string already denominated in major currency
// units ("145.00" -> 145.00). Pass-through by definition.
func majorUnits(amount string) (decimal.NullDecimal, error) {
	if amount == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

// minorUnits parses an integer cent string and divides by 100
// ("14500" -> 145.00). Treating cents as major units would inflate every
// downstream valuation a hundredfold, so the conversion is exact, not float.
func minorUnits(cents string) (decimal.NullDecimal, error) {
	if cents == "" {
		return decimal.NullDecimal{}, nil
	}
	n, err := strconv.ParseInt(cents, 10, 64)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: decimal.New(n, -2), Valid: true}, nil
}
