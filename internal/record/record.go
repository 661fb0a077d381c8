// Package record defines the spraying-log record and the boundary
// validation that turns raw user input into a storable candidate.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DateLayout is the calendar date format used for Record.Date.
const DateLayout = "2006-01-02"

// NotesPlaceholder is shown in place of empty notes.
const NotesPlaceholder = "-"

// Record is one logged spraying event. Records are never modified after
// creation; the only mutation is deletion.
type Record struct {
	ID      string  `json:"id,omitempty" yaml:"id,omitempty"`
	Date    string  `json:"date" yaml:"date"`
	Field   string  `json:"field" yaml:"field"`
	Product string  `json:"product" yaml:"product"`
	Dose    float64 `json:"dose" yaml:"dose"` // liters per hectare
	Notes   string  `json:"notes" yaml:"notes"`
}

// UnmarshalJSON accepts the identifier as a JSON string or a JSON number;
// numbers are kept as their decimal text.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var aux struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	id, err := decodeID(aux.ID)
	if err != nil {
		return err
	}
	*r = Record(aux.plain)
	r.ID = id
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("record id: %w", err)
	}
	return n.String(), nil
}

// Candidate is a validated record that has not been stored yet.
// It is also the JSON body of a create request.
type Candidate struct {
	Date    string  `json:"date"`
	Field   string  `json:"field"`
	Product string  `json:"product"`
	Dose    float64 `json:"dose"`
	Notes   string  `json:"notes"`
}

// WithID returns the stored form of the candidate.
func (c Candidate) WithID(id string) Record {
	return Record{
		ID:      id,
		Date:    c.Date,
		Field:   c.Field,
		Product: c.Product,
		Dose:    c.Dose,
		Notes:   c.Notes,
	}
}

// Normalize trims surrounding whitespace from the text fields.
func (c Candidate) Normalize() Candidate {
	c.Date = strings.TrimSpace(c.Date)
	c.Field = strings.TrimSpace(c.Field)
	c.Product = strings.TrimSpace(c.Product)
	c.Notes = strings.TrimSpace(c.Notes)
	return c
}

// Candidate strips the identifier from r.
func (r Record) Candidate() Candidate {
	return Candidate{
		Date:    r.Date,
		Field:   r.Field,
		Product: r.Product,
		Dose:    r.Dose,
		Notes:   r.Notes,
	}
}

// NotesOrPlaceholder returns the notes, or NotesPlaceholder when empty.
func (r Record) NotesOrPlaceholder() string {
	if r.Notes == "" {
		return NotesPlaceholder
	}
	return r.Notes
}

// FormatDose renders a dose as its shortest decimal form ("2.5", "3").
func FormatDose(dose float64) string {
	return strconv.FormatFloat(dose, 'f', -1, 64)
}

// Clone returns a copy of records that shares no backing array with the input.
func Clone(records []Record) []Record {
	if records == nil {
		return []Record{}
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
