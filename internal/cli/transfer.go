package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/spraylog/internal/export"
	"github.com/JonMunkholm/spraylog/internal/render"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all records to a CSV file",
		Long: `Write all records to a CSV file for spreadsheets. Nothing is written
when there are no records. Use -o - to write to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			data, err := store.Export()
			if errors.Is(err, export.ErrNothingToExport) {
				// Keep stdout free of anything but CSV.
				var notice io.Writer = cmd.OutOrStdout()
				if opts.Output == "-" {
					notice = cmd.ErrOrStderr()
				}
				fmt.Fprintln(notice, render.MsgNothingToExport)
				return nil
			}
			if err != nil {
				return err
			}

			if opts.Output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", len(store.Records()), opts.Output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", export.FileName, "output file, or - for stdout")

	return cmd
}

// ImportError reports an import that stopped part way. The first Imported
// records of the file (oldest first) are stored.
type ImportError struct {
	Imported int
	Total    int
	Err      error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("imported %d of %d records: %v", e.Imported, e.Total, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// NewImportCommand creates the import command.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Add the records of an exported CSV file",
		Long: `Add the records of a CSV file produced by export. Records keep their
relative order. Identifiers are assigned anew. The file is checked
completely before anything is stored; if storing fails part way, the
records imported so far are kept and reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			records, err := export.Decode(f)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			for i, r := range records {
				if err := r.Candidate().Validate(); err != nil {
					return fmt.Errorf("read %s: record %d: %w", args[0], i+1, err)
				}
			}

			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			// Files list newest first; create oldest first to keep that order.
			for i := len(records) - 1; i >= 0; i-- {
				if _, err := store.Create(cmd.Context(), records[i].Candidate()); err != nil {
					return &ImportError{Imported: len(records) - 1 - i, Total: len(records), Err: err}
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records\n", len(records))
			return nil
		},
	}
}
