// Package cli implements the spraylog command-line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/spraylog/internal/backend"
	"github.com/JonMunkholm/spraylog/internal/backend/local"
	"github.com/JonMunkholm/spraylog/internal/backend/remote"
	"github.com/JonMunkholm/spraylog/internal/config"
	"github.com/JonMunkholm/spraylog/internal/logging"
	"github.com/JonMunkholm/spraylog/internal/recordstore"
	"github.com/JonMunkholm/spraylog/internal/render"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Backend string
	APIURL  string
	DataDir string
	Format  string
	Verbose bool

	// Now supplies today's date for records added without one.
	Now func() time.Time

	cfg    *config.ClientConfig
	format render.Format
	logger *slog.Logger
}

// NewRootCommand creates the root command for the spraylog CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Now: time.Now})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spraylog",
		Short: "Keep a log of crop spraying events",
		Long: `spraylog records which product was sprayed on which field, when, and at
what dose. Records live either on a spraylog server (--backend remote) or in
a file on this machine (--backend local).

Settings come from SPRAYLOG_* environment variables; flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "record backend: remote|local (env SPRAYLOG_BACKEND)")
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api-url", "", "records API base URL (env SPRAYLOG_API_URL)")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "directory of the local record file (env SPRAYLOG_DATA_DIR)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", string(render.FormatTable), "output format: table|json|yaml")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log diagnostics to stderr")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))

	return cmd
}

// setup merges environment configuration with flags.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	format, err := render.ParseFormat(o.Format)
	if err != nil {
		return err
	}
	o.format = format

	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if o.APIURL != "" {
		cfg.APIURL = o.APIURL
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg

	o.logger = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, "text")
	return nil
}

// newAdapter constructs the configured backend.
func (o *RootOptions) newAdapter() (backend.Adapter, error) {
	switch o.cfg.Backend {
	case config.BackendRemote:
		return remote.New(o.cfg.APIURL,
			remote.WithTimeout(o.cfg.Timeout),
			remote.WithLogger(o.logger),
		)
	case config.BackendLocal:
		dir := o.cfg.DataDir
		if dir == "" {
			base, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("locate data directory: %w", err)
			}
			dir = filepath.Join(base, "spraylog")
		}
		return local.New(dir, local.WithLogger(o.logger))
	default:
		return nil, fmt.Errorf("unknown backend %q", o.cfg.Backend)
	}
}

// openStore constructs and loads a record store. The caller closes it.
func (o *RootOptions) openStore(ctx context.Context) (*recordstore.Store, error) {
	adapter, err := o.newAdapter()
	if err != nil {
		return nil, err
	}

	store := recordstore.New(adapter,
		recordstore.WithLogger(o.logger),
		recordstore.WithMaxWait(o.cfg.MaxWait),
	)
	if err := store.Load(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// UserMessage returns the text shown to the user for a failed command.
func UserMessage(err error) string {
	var importErr *ImportError
	var loadErr *recordstore.LoadError
	var mutErr *recordstore.MutationError
	switch {
	case errors.As(err, &importErr):
		return fmt.Sprintf("imported %d of %d records; %s", importErr.Imported, importErr.Total, UserMessage(importErr.Err))
	case errors.As(err, &loadErr):
		return loadErr.Message()
	case errors.As(err, &mutErr):
		return mutErr.Message()
	default:
		return err.Error()
	}
}
