package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/spraylog/internal/record"
	"github.com/JonMunkholm/spraylog/internal/recordstore"
	"github.com/JonMunkholm/spraylog/internal/render"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Watch    bool
	Interval time.Duration
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show all records, newest first",
		Long: `Show all records, newest first. With --watch the list is reloaded every
interval and printed again whenever it changes, until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if opts.Watch {
				if opts.Interval <= 0 {
					return errors.New("--interval must be positive")
				}
				return watchRecords(cmd.Context(), cmd.OutOrStdout(), store, opts.format, opts.Interval)
			}
			return render.Snapshot(cmd.OutOrStdout(), store.Snapshot(), opts.format)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "keep reloading and print changes")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 5*time.Second, "reload interval for --watch")

	return cmd
}

// watchRecords prints the store's snapshot, then reloads it every interval
// and prints each snapshot that renders differently from the last one
// printed. Failed loads are shown as their error message. It returns when
// ctx ends or the store is closed.
func watchRecords(ctx context.Context, w io.Writer, store *recordstore.Store, f render.Format, interval time.Duration) error {
	updates, unsubscribe := store.Subscribe()
	defer unsubscribe()

	var last []byte
	show := func(snap recordstore.Snapshot) error {
		if snap.State == recordstore.StateLoading {
			return nil
		}
		var buf bytes.Buffer
		if err := render.Snapshot(&buf, snap, f); err != nil {
			return err
		}
		if bytes.Equal(buf.Bytes(), last) {
			return nil
		}
		last = buf.Bytes()
		_, err := w.Write(last)
		return err
	}

	if err := show(store.Snapshot()); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			if err := show(snap); err != nil {
				return err
			}
		case <-ticker.C:
			if store.Busy() {
				continue
			}
			err := store.Load(ctx)
			if ctx.Err() != nil || errors.Is(err, recordstore.ErrClosed) {
				return nil
			}
			// Other load failures arrive as an error snapshot.
		}
	}
}

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Input record.Input
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a spraying event",
		Long: `Record a spraying event. The date defaults to today.

Example:
  spraylog add --field North-3 --product Glyphosate --dose 2.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := record.ParseCandidate(opts.Input, opts.Now())
			if err != nil {
				return err
			}

			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			created, err := store.Create(cmd.Context(), c)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added record %s\n", created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Input.Date, "date", "", "spraying date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&opts.Input.Field, "field", "", "field (perceel) name")
	cmd.Flags().StringVar(&opts.Input.Product, "product", "", "product (middel) name")
	cmd.Flags().StringVar(&opts.Input.Dose, "dose", "", "dose in L/ha")
	cmd.Flags().StringVar(&opts.Input.Notes, "notes", "", "optional notes")

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted record %s\n", args[0])
			return nil
		},
	}
}

// ClearOptions holds flags for the clear command.
type ClearOptions struct {
	*RootOptions
	Yes bool
}

// ClearPrompt asks for confirmation before every record is deleted.
const ClearPrompt = "Weet je zeker dat je alle registraties wilt wissen? [j/N] "

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClearOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all records after confirmation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			// Nothing to clear: no prompt and no request.
			if len(store.Records()) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), render.MsgEmpty)
				return nil
			}

			if !opts.Yes && !confirm(cmd, ClearPrompt) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}

			if err := store.DeleteAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All records deleted")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

// confirm reads one line from stdin and accepts j, ja, y or yes.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "j", "ja", "y", "yes":
		return true
	default:
		return false
	}
}
