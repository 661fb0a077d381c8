// Package export serializes records to the spreadsheet-friendly CSV
// download and parses that format back.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JonMunkholm/spraylog/internal/record"
)

// FileName is the name offered for the downloaded export.
const FileName = "bespuitingen.csv"

// ContentType is the MIME type of the export artifact.
const ContentType = "text/csv; charset=utf-8"

// ErrNothingToExport is returned when there are no records to export.
// Callers treat it as a notice for the user, not as a fault.
var ErrNothingToExport = errors.New("no data to export")

// Header holds the column titles in export order. The on-screen actions
// column is never exported.
var Header = []string{"Datum", "Perceel", "Middel", "Dosering (L/ha)", "Opmerkingen"}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// Encode returns the CSV payload for records. Order is preserved.
func Encode(records []record.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the CSV payload for records to w.
//
// Every value is double-quoted with inner quotes doubled, line breaks inside
// values become a single space, and lines are separated by "\n" with no
// trailing newline.
func Write(w io.Writer, records []record.Record) error {
	if len(records) == 0 {
		return ErrNothingToExport
	}

	if err := writeLine(w, Header, false); err != nil {
		return err
	}
	for _, r := range records {
		line := []string{
			r.Date,
			r.Field,
			r.Product,
			record.FormatDose(r.Dose),
			r.Notes,
		}
		if err := writeLine(w, line, true); err != nil {
			return err
		}
	}
	return nil
}

func writeLine(w io.Writer, values []string, leadingNewline bool) error {
	var b strings.Builder
	if leadingNewline {
		b.WriteByte('\n')
	}
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(lineBreaks.Replace(v), `"`, `""`))
		b.WriteByte('"')
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// Decode parses an export payload back into records. The header line is
// required and skipped; decoded records carry no identifier.
func Decode(r io.Reader) ([]record.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNothingToExport
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv header: %w", err)
	}
	if !strings.EqualFold(strings.TrimPrefix(header[0], "\ufeff"), Header[0]) {
		return nil, fmt.Errorf("invalid csv header: column not found: %s", Header[0])
	}

	var records []record.Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}

		line, _ := cr.FieldPos(0)
		dose, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid number %q", line, row[3])
		}
		records = append(records, record.Record{
			Date:    row[0],
			Field:   row[1],
			Product: row[2],
			Dose:    dose,
			Notes:   row[4],
		})
	}
	return records, nil
}
