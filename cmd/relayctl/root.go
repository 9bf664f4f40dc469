package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/eventrelay/pkg/eventrelay/config"
	"github.com/randalmurphal/eventrelay/pkg/eventrelay/event"
	"github.com/randalmurphal/eventrelay/pkg/eventrelay/storage"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	driver     string
	dsn        string
	output     string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "relayctl",
		Short: "Inspect and purge pending relay events",
		Long: `relayctl reads the durable store behind an event relay.

Pending events are events that were posted while no observer for their
type was registered. They are replayed and removed when an observer
registers. relayctl lists, counts, and purges them.

Examples:
  # List every pending event in a SQLite store
  relayctl pending list --driver sqlite --dsn ./pending.db

  # Count pending events per type using a config file
  relayctl pending count --config relay.yaml

  # Drop stale screen views
  relayctl pending purge screen_viewed --config relay.yaml`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (yaml or json)")
	cmd.PersistentFlags().StringVar(&flags.driver, "driver", "", "storage driver (memory, sqlite, postgres); overrides config")
	cmd.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "storage path or connection string; overrides config")
	cmd.PersistentFlags().StringVarP(&flags.output, "output", "o", "table", "output format (table, json)")

	cmd.AddCommand(newTypesCommand(flags))
	cmd.AddCommand(newPendingCommand(flags))
	return cmd
}

// settings resolves the config file and flag overrides.
func (f *globalFlags) settings() (config.Settings, error) {
	s := config.Defaults()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Settings{}, err
		}
		s = loaded
	}
	if f.driver != "" {
		s.Storage.Driver = f.driver
	}
	if f.dsn != "" {
		s.Storage.DSN = f.dsn
	}
	if err := s.Validate(); err != nil {
		return config.Settings{}, err
	}
	return s, nil
}

// openStore opens the configured store and a logger for diagnostics.
func (f *globalFlags) openStore(cmd *cobra.Command) (storage.Store, *slog.Logger, error) {
	s, err := f.settings()
	if err != nil {
		return nil, nil, err
	}
	logger := s.Log.Logger(cmd.ErrOrStderr())

	ctx, cancel := context.WithTimeout(cmd.Context(), s.Storage.Timeout)
	defer cancel()
	store, err := storage.Open(ctx, storage.Driver(s.Storage.Driver), s.Storage.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", s.Storage.Driver, err)
	}
	logger.Debug("store opened", slog.String("driver", s.Storage.Driver))
	return store, logger, nil
}

func (f *globalFlags) checkOutput() error {
	if f.output != "table" && f.output != "json" {
		return fmt.Errorf("unsupported output format %q (table, json)", f.output)
	}
	return nil
}

// resolveTypes returns the requested type, or every registered type when
// none is given.
func resolveTypes(registry *event.Registry, args []string) ([]event.Type, error) {
	if len(args) == 0 {
		return registry.AllTypes(), nil
	}
	t := event.Type(args[0])
	if !registry.Has(t) {
		return nil, fmt.Errorf("%w: %s", event.ErrUnknownType, t)
	}
	return []event.Type{t}, nil
}
