package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/agri-dashboard/internal/adapter/backend"
	httpadapter "github.com/couchcryptid/agri-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/agri-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/agri-dashboard/internal/adapter/kvstore"
	"github.com/couchcryptid/agri-dashboard/internal/adapter/nominatim"
	"github.com/couchcryptid/agri-dashboard/internal/config"
	"github.com/couchcryptid/agri-dashboard/internal/controller"
	"github.com/couchcryptid/agri-dashboard/internal/domain"
	"github.com/couchcryptid/agri-dashboard/internal/observability"
	"github.com/couchcryptid/agri-dashboard/internal/relay"
	"github.com/couchcryptid/agri-dashboard/internal/search"
	"github.com/couchcryptid/agri-dashboard/internal/session"
)

var (
	metricsOnce sync.Once
	metrics     *observability.Metrics
)

// processMetrics registers the collectors once per process.
func processMetrics() *observability.Metrics {
	metricsOnce.Do(func() { metrics = observability.NewMetrics() })
	return metrics
}

type kvStore interface {
	domain.KeyValueStore
	CheckReadiness(ctx context.Context) error
}

// app wires configuration, storage and adapters for one command run.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	store   kvStore
	client  *backend.Client
	session *session.Store
	deps    controller.Deps

	closers []io.Closer
}

type appOptions struct {
	ephemeral bool
	simulate  bool
}

func newApp(opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.simulate {
		cfg.SimulationMode = true
	}

	logger := observability.NewLogger(cfg)
	m := processMetrics()
	a := &app{cfg: cfg, logger: logger, metrics: m}

	if opts.ephemeral {
		a.store = kvstore.NewMemory()
		logger.Debug("using in-memory state")
	} else {
		db, err := kvstore.Open(cfg.StatePath, logger)
		if err != nil {
			return nil, err
		}
		a.store = db
		a.closers = append(a.closers, db)
	}

	a.client = backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, logger, m)
	a.session = session.NewStore(a.client, a.store, backend.UserMessage, logger, m)

	a.deps = controller.Deps{
		Relay:   relay.New(a.store, cfg.RelayMaxAge, logger),
		Logger:  logger,
		Metrics: m,
	}
	if cfg.SimulationMode {
		a.deps.Simulator = controller.NewSimulator(cfg.SimulationSeed)
		logger.Info("simulation mode enabled", "seed", cfg.SimulationSeed)
	}
	if cfg.JournalEnabled() {
		j := kafkaadapter.NewJournal(cfg, logger, m)
		a.deps.Journal = j
		a.closers = append(a.closers, j)
		logger.Info("outcome journal enabled", "topic", cfg.KafkaTopic)
	}
	return a, nil
}

// searcher builds the geocoder chain: HTTP client, rate limit, cache and
// the debouncer that coalesces rapid queries.
func (a *app) searcher() *search.Debouncer {
	client := nominatim.NewClient(a.cfg.GeocoderURL, a.cfg.GeocoderUserAgent, a.cfg.GeocoderTimeout, a.logger, a.metrics)
	cached := nominatim.New(client, a.cfg.GeocoderRPS, a.cfg.GeocoderCacheSize)
	return search.NewDebouncer(cached, a.cfg.SearchDebounce, clockwork.NewRealClock(), a.logger, a.metrics)
}

func (a *app) pages(searcher domain.PlaceSearcher) *httpadapter.Pages {
	return &httpadapter.Pages{
		Session:      a.session,
		Dashboard:    controller.NewDashboard(a.client, searcher, a.deps),
		Crop:         controller.NewCrop(a.client, a.deps),
		Yield:        controller.NewYield(a.client, a.deps),
		Stress:       controller.NewStress(a.client, a.deps),
		Fertilizer:   controller.NewFertilizer(a.client, a.deps),
		Spray:        controller.NewSpray(a.client, a.deps),
		FruitDisease: controller.NewFruitDisease(a.client, a.deps),
		LeafDisease:  controller.NewLeafDisease(a.client, a.deps),
		Chat:         controller.NewChat(a.client, a.deps),
	}
}

// CheckReadiness reports ready when the state store answers and the backend
// circuit is closed.
func (a *app) CheckReadiness(ctx context.Context) error {
	if err := a.store.CheckReadiness(ctx); err != nil {
		return fmt.Errorf("state store: %w", err)
	}
	return a.client.CheckReadiness(ctx)
}

var errNotSignedIn = errors.New("not logged in: run `agridash login` first")

// requireSession restores the stored session and refuses to continue when
// nobody is signed in.
func (a *app) requireSession(ctx context.Context) (domain.User, error) {
	a.session.Rehydrate(ctx)
	user, ok := a.session.User()
	if !ok {
		return domain.User{}, errNotSignedIn
	}
	return user, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
