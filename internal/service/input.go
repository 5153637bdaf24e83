package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"barolo/internal/models"
)

// CreateInput is the raw create payload as decoded at the HTTP boundary.
// Validation happens exactly once, in Create; the engine never re-checks
// fields deeper in the call chain.
type CreateInput struct {
	Name  string
	Email string
	Phone string
	Date  string
	Time  string
	// Guests accepts both a JSON number and a numeric string.
	Guests json.Number
	Notes  string
	// TableNumber is kept raw so that absent, null, empty-string and
	// numeric forms can be told apart.
	TableNumber json.RawMessage
	// Status is honored only for admin-initiated creation; the public
	// form never sets it and defaults to pending.
	Status string
	// Honeypot carries the hidden form field. Bots fill it; humans never
	// see it.
	Honeypot string
}

// UpdateInput is the raw sparse admin edit payload. Nil means the field
// was absent from the request body.
type UpdateInput struct {
	Name        *string
	Email       *string
	Phone       *string
	Date        *string
	Time        *string
	Guests      *json.Number
	Notes       json.RawMessage
	TableNumber json.RawMessage
	Status      *string
}

// parseGuests applies the shared guests rule: numeric, finite, at least 1,
// rounded to the nearest whole guest. Values at or beyond the int64 range
// would wrap on conversion, so they fail validation here instead of
// surfacing as a store error.
func parseGuests(raw json.Number) (int64, error) {
	value, err := raw.Float64()
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value < 1 || value >= float64(math.MaxInt64) {
		return 0, newValidationError("Guests must be at least 1.")
	}
	return int64(math.Round(value)), nil
}

// parseTableNumber interprets the raw table field. Absent, null and empty
// string all mean "no table assigned"; anything else must be numeric.
func parseTableNumber(raw json.RawMessage) (*int64, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		if math.Abs(number) >= float64(math.MaxInt64) {
			return nil, newValidationError("Table must be a number.")
		}
		table := int64(math.Round(number))
		return &table, nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return nil, newValidationError("Table must be a number.")
	}
	str = strings.TrimSpace(str)
	if str == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(str, 64)
	if err != nil || math.IsNaN(parsed) || math.Abs(parsed) >= float64(math.MaxInt64) {
		return nil, newValidationError("Table must be a number.")
	}
	table := int64(math.Round(parsed))
	return &table, nil
}

// parseNotes interprets the raw notes field for sparse updates: null and
// empty clear the column, anything else is stored trimmed.
func parseNotes(raw json.RawMessage) (*string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return nil, newValidationError("Notes must be text.")
	}
	str = strings.TrimSpace(str)
	if str == "" {
		return nil, nil
	}
	return &str, nil
}

// normalizeNotes trims create-path notes, mapping empty to "no notes".
func normalizeNotes(notes string) *string {
	trimmed := strings.TrimSpace(notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func statusOrPending(raw string) (models.Status, error) {
	if strings.TrimSpace(raw) == "" {
		return models.StatusPending, nil
	}
	status, err := models.ParseStatus(raw)
	if err != nil {
		return "", newValidationError("Invalid status.")
	}
	return status, nil
}
