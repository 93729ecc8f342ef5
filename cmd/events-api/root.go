package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"example.com/golocalevents/internal/config"
	"example.com/golocalevents/internal/imagery"
	"example.com/golocalevents/internal/source"
	"example.com/golocalevents/internal/storage"
	"example.com/golocalevents/internal/storage/file"
	"example.com/golocalevents/internal/storage/memory"
	spg "example.com/golocalevents/internal/storage/postgres"
	sredis "example.com/golocalevents/internal/storage/redis"
	"example.com/golocalevents/internal/store"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	storage    string

	cfg config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "events-api",
		Short: "Discover, create and RSVP to local community events",
		Long: `events-api serves the local events collection over HTTP and offers the
same operations from the command line.

Settings come from defaults, an optional --config file (.env or yaml) and the
environment, in that order of precedence (environment wins).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (.env or .yaml)")
	root.PersistentFlags().StringVar(&a.storage, "storage", "", "storage backend: file, postgres, redis or memory (overrides STORAGE_BACKEND)")

	root.AddCommand(
		newServeCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newCreateCmd(a),
		newRsvpCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.storage != "" {
		cfg.StorageBackend = a.storage
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	log, err := config.NewLogger(cfg)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

func (a *app) openBackend(ctx context.Context) (storage.Backend, error) {
	switch a.cfg.StorageBackend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendPostgres:
		db, err := spg.Connect(ctx, a.cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		a.log.Info("storage: postgres connected, migration applied")
		return db, nil
	case config.BackendRedis:
		rc := sredis.DefaultConfig()
		rc.Addr = a.cfg.RedisAddr
		rc.Password = a.cfg.RedisPassword
		rc.DB = a.cfg.RedisDB
		rc.KeyPrefix = a.cfg.RedisKeyPrefix
		b, err := sredis.Connect(ctx, rc)
		if err != nil {
			return nil, err
		}
		a.log.Info("storage: redis connected", zap.String("addr", rc.Addr))
		return b, nil
	default:
		b, err := file.New(a.cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// openStore builds and initializes the store. A load failure is returned
// alongside the store so serve can still expose it.
func (a *app) openStore(ctx context.Context, obs store.Observer) (*store.Store, error) {
	backend, err := a.openBackend(ctx)
	if err != nil {
		return nil, err
	}
	client := source.NewHTTPClient(a.cfg.FetchTimeout)
	st := store.New(backend, source.New(a.cfg.EventsSource, client),
		store.WithKey(a.cfg.StorageKey),
		store.WithLogger(a.log.Named("store")),
		store.WithObserver(obs),
	)
	return st, st.Initialize(ctx)
}

// resolver never fails; a missing catalog degrades to the built-in fallback.
func (a *app) resolver(ctx context.Context) *imagery.Resolver {
	if a.cfg.ImageCatalog == "" {
		return imagery.NewResolver(nil, nil)
	}
	cat, err := imagery.LoadCatalog(ctx, a.cfg.ImageCatalog, source.NewHTTPClient(a.cfg.FetchTimeout))
	if err != nil {
		a.log.Named("imagery").Warn("image catalog unavailable, using fallback", zap.Error(err))
		return imagery.NewResolver(nil, nil)
	}
	return imagery.NewResolver(cat, nil)
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
