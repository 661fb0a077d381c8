// Package render projects a record store snapshot for display: a text
// table for people, JSON and YAML for scripts.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/spraylog/internal/record"
	"github.com/JonMunkholm/spraylog/internal/recordstore"
)

// Format selects an output projection.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formats lists the accepted Format values.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML}

// Status messages shown in place of records.
const (
	MsgLoading = "Data wordt geladen..."
	MsgEmpty   = "Nog geen registraties."
)

// MsgNothingToExport tells the user an export was skipped.
const MsgNothingToExport = "Geen data om te exporteren."

// DoseUnit follows every dose in the table.
const DoseUnit = "L/ha"

// Columns is the table header. The identifier column lets a user pick a
// record to delete.
var Columns = []string{"ID", "Datum", "Perceel", "Middel", "Dosering", "Opmerkingen"}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid format %q: must be one of %v", s, Formats)
}

// View is the structured projection of a snapshot.
type View struct {
	State   string          `json:"state" yaml:"state"`
	Message string          `json:"message,omitempty" yaml:"message,omitempty"`
	Records []record.Record `json:"records" yaml:"records"`
}

// NewView builds the structured projection of snap.
func NewView(snap recordstore.Snapshot) View {
	v := View{State: snap.State.String(), Records: record.Clone(snap.Records)}
	if msg, ok := statusMessage(snap); ok {
		v.Message = msg
	}
	return v
}

// Row returns the displayed cells of r in Columns order.
func Row(r record.Record) []string {
	return []string{
		r.ID,
		r.Date,
		r.Field,
		r.Product,
		record.FormatDose(r.Dose) + " " + DoseUnit,
		r.NotesOrPlaceholder(),
	}
}

// Snapshot writes snap to w in format f.
func Snapshot(w io.Writer, snap recordstore.Snapshot, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(NewView(snap))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewView(snap)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return Table(w, snap)
	}
}

// Table writes snap as an aligned text table. While loading, on error, or
// when there are no records, a single message line is written instead.
func Table(w io.Writer, snap recordstore.Snapshot) error {
	if msg, ok := statusMessage(snap); ok {
		_, err := fmt.Fprintln(w, msg)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	writeRow(tw, Columns)
	for _, r := range snap.Records {
		writeRow(tw, Row(r))
	}
	return tw.Flush()
}

func writeRow(w io.Writer, cells []string) {
	for i, c := range cells {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}

// statusMessage returns the message that replaces the record rows, if any.
func statusMessage(snap recordstore.Snapshot) (string, bool) {
	switch snap.State {
	case recordstore.StateIdle, recordstore.StateLoading:
		return MsgLoading, true
	case recordstore.StateError:
		var loadErr *recordstore.LoadError
		if errors.As(snap.Err, &loadErr) {
			return loadErr.Message(), true
		}
		return (&recordstore.LoadError{Err: snap.Err}).Message(), true
	}
	if len(snap.Records) == 0 {
		return MsgEmpty, true
	}
	return "", false
}
