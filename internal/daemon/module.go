package daemon

import (
	"context"
	"path/filepath"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/geovannymcode/chatflow-client/internal/bus"
	"github.com/geovannymcode/chatflow-client/internal/config"
	"github.com/geovannymcode/chatflow-client/internal/conn"
	"github.com/geovannymcode/chatflow-client/internal/lock"
	"github.com/geovannymcode/chatflow-client/internal/logging"
	"github.com/geovannymcode/chatflow-client/internal/msgsync"
	"github.com/geovannymcode/chatflow-client/internal/presence"
	"github.com/geovannymcode/chatflow-client/internal/rest"
	"github.com/geovannymcode/chatflow-client/internal/roster"
	"github.com/geovannymcode/chatflow-client/internal/status"
	"github.com/geovannymcode/chatflow-client/internal/store"
	"github.com/geovannymcode/chatflow-client/internal/wire"
)

// Params holds the resolved startup configuration passed to the fx module.
type Params struct {
	ConfigPath string
}

// Module returns the fx module for the client daemon, composing all
// providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideRESTClient,
			provideManager,
			provideWireHandler,
			provideEngine,
			provideTracker,
			provideNotifier,
			provideRoster,
			NewClient,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	return config.Load(p.ConfigPath)
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(filepath.Join(cfg.DataDir, "client.log"))
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(cfg *config.Config, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring data dir lock", zap.String("dir", cfg.DataDir))
	l, err := lock.Acquire(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Info("data dir lock acquired")
	return l, nil
}

func provideStore(cfg *config.Config, logger *zap.Logger) (*store.DB, error) {
	dbPath := filepath.Join(cfg.DataDir, "chatflow.db")
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideRESTClient(cfg *config.Config, db *store.DB, logger *zap.Logger) *rest.Client {
	return rest.NewClient(cfg.ServerURL, db, logger)
}

func provideManager(cfg *config.Config, db *store.DB, machine *status.Machine, b *bus.Bus, logger *zap.Logger) *conn.Manager {
	opts := conn.Options{
		URL:                  cfg.WSURL,
		ReconnectBase:        cfg.ReconnectBase(),
		ReconnectMax:         cfg.ReconnectMax(),
		ReconnectMultiplier:  cfg.ReconnectMultiplier,
		ReconnectMaxAttempts: cfg.ReconnectMaxAttempts,
		Heartbeat:            cfg.Heartbeat(),
	}
	return conn.NewManager(opts, conn.DialWebsocket, db, machine, b, logger)
}

func provideWireHandler(b *bus.Bus, logger *zap.Logger) *wire.Handler {
	return wire.NewHandler(b, logger)
}

func provideEngine(client *rest.Client, mgr *conn.Manager, db *store.DB, cfg *config.Config, b *bus.Bus, logger *zap.Logger) *msgsync.Engine {
	return msgsync.NewEngine(client, client, mgr, db, b, cfg.PageSize, logger)
}

func provideTracker(cfg *config.Config) *presence.Tracker {
	return presence.NewTracker(cfg.TypingExpiry())
}

func provideNotifier(cfg *config.Config, mgr *conn.Manager) *presence.Notifier {
	return presence.NewNotifier(mgr, cfg.TypingDebounce())
}

func provideRoster(client *rest.Client, db *store.DB, cfg *config.Config, logger *zap.Logger) *roster.Roster {
	return roster.New(client, db, cfg.PageSize, logger)
}

func registerLifecycle(
	lc fx.Lifecycle,
	lk *lock.Lock,
	db *store.DB,
	handler *wire.Handler,
	mgr *conn.Manager,
	engine *msgsync.Engine,
	tracker *presence.Tracker,
	rst *roster.Roster,
	client *Client,
	b *bus.Bus,
	logger *zap.Logger,
) {
	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Bus subscriptions first, so nothing delivered during the
			// initial connect is lost.
			engine.Start(runCtx)
			tracker.Start(runCtx, b)
			rst.Start(runCtx, b)

			handler.Attach(mgr)
			mgr.OnDisconnect(tracker.Reset)

			rst.Hydrate()
			mgr.Connect()
			return nil
		},
		OnStop: func(_ context.Context) error {
			mgr.Disconnect()
			cancel()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
