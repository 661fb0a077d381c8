package record

// validation.go checks user input at the boundary, before anything reaches
// the record store.
//
// Two entry points exist:
//  1. ParseCandidate: raw form text (CLI flags, imported CSV cells)
//  2. Candidate.Validate: an already-typed candidate (decoded JSON bodies)
//
// Both report every offending field at once so the caller can show all
// problems in one message.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field name
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors is the error returned when one or more fields are invalid.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "invalid record: " + strings.Join(msgs, "; ")
}

// Input is raw, untrimmed user input for a new record.
type Input struct {
	Date    string
	Field   string
	Product string
	Dose    string
	Notes   string
}

// ParseCandidate validates raw input and converts it to a Candidate.
// An empty date defaults to the calendar date of now.
func ParseCandidate(in Input, now time.Time) (Candidate, error) {
	var errs ValidationErrors

	c := Candidate{
		Date:    strings.TrimSpace(in.Date),
		Field:   strings.TrimSpace(in.Field),
		Product: strings.TrimSpace(in.Product),
		Notes:   strings.TrimSpace(in.Notes),
	}
	if c.Date == "" {
		c.Date = now.Format(DateLayout)
	}

	rawDose := strings.TrimSpace(in.Dose)
	if rawDose == "" {
		errs = append(errs, ValidationError{Field: "dose", Message: "required field is empty"})
	} else {
		// Decimal comma is accepted ("2,5").
		dose, err := strconv.ParseFloat(strings.Replace(rawDose, ",", ".", 1), 64)
		if err != nil {
			errs = append(errs, ValidationError{Field: "dose", Value: rawDose, Message: "invalid number"})
		} else {
			c.Dose = dose
		}
	}

	errs = append(errs, c.check(hasField(errs, "dose"))...)
	if len(errs) > 0 {
		return Candidate{}, errs
	}
	return c, nil
}

// Validate checks a typed candidate. It does not trim or default anything.
func (c Candidate) Validate() error {
	if errs := c.check(false); len(errs) > 0 {
		return errs
	}
	return nil
}

func (c Candidate) check(skipDose bool) ValidationErrors {
	var errs ValidationErrors

	if c.Date == "" {
		errs = append(errs, ValidationError{Field: "date", Message: "required field is empty"})
	} else if _, err := time.Parse(DateLayout, c.Date); err != nil {
		errs = append(errs, ValidationError{Field: "date", Value: c.Date, Message: "invalid date, want YYYY-MM-DD"})
	}

	if strings.TrimSpace(c.Field) == "" {
		errs = append(errs, ValidationError{Field: "field", Message: "required field is empty"})
	}
	if strings.TrimSpace(c.Product) == "" {
		errs = append(errs, ValidationError{Field: "product", Message: "required field is empty"})
	}

	if !skipDose {
		switch {
		case math.IsNaN(c.Dose) || math.IsInf(c.Dose, 0):
			errs = append(errs, ValidationError{Field: "dose", Value: FormatDose(c.Dose), Message: "invalid number"})
		case c.Dose <= 0:
			errs = append(errs, ValidationError{Field: "dose", Value: FormatDose(c.Dose), Message: "must be positive"})
		}
	}

	return errs
}

func hasField(errs ValidationErrors, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}
