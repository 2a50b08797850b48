package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/goevery/sharerelay/internal/persistence"
	"github.com/goevery/sharerelay/internal/persistence/memory"
	"github.com/goevery/sharerelay/internal/persistence/mongodb"
	redisengine "github.com/goevery/sharerelay/internal/persistence/redis"
	"github.com/goevery/sharerelay/internal/relay"
	"github.com/goevery/sharerelay/internal/server"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

type App struct {
	logger            *zap.Logger
	settings          Settings
	persistenceEngine persistence.Engine
	relayServer       *server.RelayServer
	restServer        *server.RESTServer
}

func NewApp(logger *zap.Logger, settings Settings, persistenceEngine persistence.Engine) *App {
	originChecker := server.NewOriginChecker(settings.AllowedOriginList())
	websocketUpgrader := &websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       originChecker.Check,
		EnableCompression: true,
	}

	registry := relay.NewInMemoryRegistry(logger)
	broadcaster := relay.NewBroadcaster(
		logger,
		registry,
		settings.RelaySendTimeout(),
		settings.RelayFanout,
	)
	shareRelay := relay.NewRelay(
		logger,
		registry,
		broadcaster,
		settings.RelayShareRate,
		settings.RelayShareBurst,
	)

	websocketServer := server.NewWebSocketServer(
		logger,
		websocketUpgrader,
		shareRelay,
		int64(settings.RelayReadLimit),
	)
	relayServer := server.NewRelayServer(
		logger,
		shareRelay,
		websocketServer,
	)
	restServer := server.NewRESTServer(
		logger,
		persistenceEngine,
		relayServer,
	)

	return &App{
		logger,
		settings,
		persistenceEngine,
		relayServer,
		restServer,
	}
}

func (a *App) setup(ctx context.Context) error {
	err := a.persistenceEngine.Setup(ctx)
	if err != nil {
		return fmt.Errorf("persistence setup: %w", err)
	}

	a.startRelayServer()
	a.startHttpServer(ctx)

	return nil
}

// startRelayServer never fails the process: without the relay the site
// keeps serving, only live sharing is gone.
func (a *App) startRelayServer() {
	address := fmt.Sprintf("%s:%d", a.settings.Host, a.settings.RelayPort)

	err := a.relayServer.Start(address)
	if err != nil {
		a.logger.Error("relay server not started, live sharing disabled",
			zap.String("address", address),
			zap.Error(err))
	}
}

func (a *App) startHttpServer(ctx context.Context) {
	notifyCtx, notifyCtxCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer notifyCtxCancel()

	address := fmt.Sprintf("%s:%d", a.settings.Host, a.settings.Port)

	router := mux.NewRouter().
		PathPrefix(a.settings.BasePath).
		Subrouter()

	a.restServer.Register(router)

	httpServer := &http.Server{
		Addr:    address,
		Handler: router,
	}

	a.logger.Info("starting http server",
		zap.String("address", address))

	go func() {
		err := httpServer.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("failed to start http server",
				zap.Error(err))
		}
	}()

	<-notifyCtx.Done()

	a.logger.Info("stopping http server")

	shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCtxCancel()

	err := a.relayServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("relay server shutdown failed",
			zap.Error(err))
	}

	err = httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Fatal("http server shutdown failed",
			zap.Error(err))
	}

	err = a.persistenceEngine.Close(shutdownCtx)
	if err != nil {
		a.logger.Error("failed to close persistence engine",
			zap.Error(err))
	}

	a.logger.Info("http server stopped")
}

func newPersistenceEngine(logger *zap.Logger, settings Settings) (persistence.Engine, error) {
	switch settings.StoreDriver {
	case "memory":
		return memory.NewPersistenceEngine(settings.RecentSharesLimit), nil
	case "mongodb":
		client, err := mongo.Connect(options.Client().ApplyURI(settings.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect to mongodb: %w", err)
		}

		return mongodb.NewPersistenceEngine(logger, client, settings.MongoDatabase, settings.RecentSharesLimit), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:         settings.RedisAddr,
			Password:     settings.RedisPassword,
			DB:           settings.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})

		return redisengine.NewPersistenceEngine(client, settings.RedisKeyPrefix, settings.RecentSharesLimit), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %q", settings.StoreDriver)
	}
}

func main() {
	ctx := context.Background()

	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	if err != nil {
		panic(fmt.Sprintf("failed to parse settings from environment: %v", err))
	}

	logger, err := buildZapLogger(settings.LogEncoding, settings.LogFile)
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	defer logger.Sync()

	persistenceEngine, err := newPersistenceEngine(logger, settings)
	if err != nil {
		logger.Fatal("failed to create persistence engine", zap.Error(err))
	}

	app := NewApp(logger, settings, persistenceEngine)

	err = app.setup(ctx)
	if err != nil {
		logger.Fatal("failed to setup", zap.Error(err))
	}
}
