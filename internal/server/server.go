// Package server assembles the clover API from configuration: storage backend, optional
// graph, cache and event integrations, and the HTTP server in front of them.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/config"
	assetmanagerrepo "github.com/Ramsey-B/clover/internal/repositories/assetmanager"
	correlationrepo "github.com/Ramsey-B/clover/internal/repositories/correlation"
	elementrepo "github.com/Ramsey-B/clover/internal/repositories/element"
	relationshiprepo "github.com/Ramsey-B/clover/internal/repositories/relationship"
	"github.com/Ramsey-B/clover/pkg/cache"
	"github.com/Ramsey-B/clover/pkg/correlation"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/elementtypes"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/graph"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/memstore"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/routes"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	"github.com/Ramsey-B/clover/pkg/startup"
)

const (
	depDatabase   = "database"
	depMigrations = "migrations"
	depGraph      = "graph"
	depRedis      = "redis"
	depKafka      = "kafka"
	depAuth       = "auth"
)

// Server wires configuration, stores, the correlation manager and the HTTP router.
type Server struct {
	cfg      *config.Config
	logger   ectologger.Logger
	registry *elementtypes.Registry
	startup  *startup.Startup
	health   *health.Checker

	db       database.DB
	graph    *graph.Client
	redis    *redis.Client
	producer *kafka.Producer
	verifier middleware.TokenVerifier

	manager *correlation.Manager
	echo    *echo.Echo
	http    *http.Server
}

// New loads the element type registry and registers the startup dependencies cfg asks for.
func New(cfg *config.Config, logger ectologger.Logger) (*Server, error) {
	registry, err := elementtypes.LoadFile(cfg.ElementTypesFile)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		startup:  startup.NewStartup(logger, cfg.StartupMaxAttempts),
		health:   health.NewChecker(cfg.Version),
	}
	s.addDependencies()
	return s, nil
}

func (s *Server) addDependencies() {
	cfg := s.cfg

	if cfg.Backend == config.BackendPostgres {
		s.startup.AddDependency(&startup.Dependency{
			Name: depDatabase,
			StartFunc: func(ctx context.Context) error {
				db, err := database.Connect(ctx, database.ConnectionConfig{
					Driver:          cfg.DatabaseDriver,
					Host:            cfg.DatabaseHost,
					Port:            cfg.DatabasePort,
					UserName:        cfg.DatabaseUserName,
					Password:        cfg.DatabasePassword,
					Name:            cfg.DatabaseName,
					SSLMode:         cfg.DatabaseSSLMode,
					MaxOpenConns:    cfg.DatabaseMaxOpenConns,
					MaxIdleConns:    cfg.DatabaseMaxIdleConns,
					ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
				}, s.logger)
				if err != nil {
					return err
				}
				s.db = db
				s.health.AddCheck(depDatabase, db.PingContext)
				return nil
			},
			StopFunc: func(context.Context) error {
				return s.db.Close()
			},
		})
		s.startup.AddDependency(&startup.Dependency{
			Name:     depMigrations,
			Requires: []string{depDatabase},
			StartFunc: func(context.Context) error {
				migrations := database.NewMigrationService(s.logger, &database.MigrationConfig{
					MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
					Version:             uint(max(cfg.DatabaseMigrationVersion, 0)),
					Force:               cfg.DatabaseMigrationForce,
					AutoRollback:        cfg.DatabaseMigrationAutoRollback,
				})
				return migrations.MigratePostgres(s.db, cfg.DatabaseName)
			},
		})
	}

	if cfg.GraphEnabled {
		s.startup.AddDependency(&startup.Dependency{
			Name: depGraph,
			StartFunc: func(ctx context.Context) error {
				client, err := graph.NewClient(graph.Config{
					Host:     cfg.GraphHost,
					Port:     cfg.GraphPort,
					Username: cfg.GraphUser,
					Password: cfg.GraphPassword,
				}, s.logger)
				if err != nil {
					return err
				}
				if err := client.VerifyConnectivity(ctx); err != nil {
					_ = client.Close(ctx)
					return err
				}
				s.graph = client
				s.health.AddCheck(depGraph, client.VerifyConnectivity)
				return nil
			},
			StopFunc: func(ctx context.Context) error {
				return s.graph.Close(ctx)
			},
		})
	}

	if cfg.RedisEnabled {
		s.startup.AddDependency(&startup.Dependency{
			Name: depRedis,
			StartFunc: func(ctx context.Context) error {
				client, err := redis.NewClient(ctx, redis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, s.logger)
				if err != nil {
					return err
				}
				s.redis = client
				s.health.AddCheck(depRedis, client.Ping)
				return nil
			},
			StopFunc: func(context.Context) error {
				return s.redis.Close()
			},
		})
	}

	if cfg.KafkaEnabled {
		s.startup.AddDependency(&startup.Dependency{
			Name: depKafka,
			StartFunc: func(context.Context) error {
				s.producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      cfg.Brokers(),
					Topic:        cfg.KafkaTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: cfg.KafkaBatchTimeout,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, s.logger)
				return nil
			},
			StopFunc: func(context.Context) error {
				return s.producer.Close()
			},
		})
	}

	if cfg.AuthEnabled {
		s.startup.AddDependency(&startup.Dependency{
			Name: depAuth,
			StartFunc: func(ctx context.Context) error {
				verifier, err := middleware.NewOIDCVerifier(ctx, cfg.AuthIssuerURL, cfg.AuthClientID)
				if err != nil {
					return err
				}
				s.verifier = verifier
				return nil
			},
		})
	}
}

// Init starts every configured dependency and builds the manager and router.
func (s *Server) Init(ctx context.Context) error {
	if err := s.startup.Start(ctx); err != nil {
		return err
	}

	manager, err := correlation.NewManager(s.logger, s.registry, s.stores(), s.managerConfig())
	if err != nil {
		return err
	}
	s.manager = manager

	s.echo = routes.NewRouter(routes.RouterConfig{
		ServiceName: s.cfg.AppName,
		Logger:      s.logger,
		Manager:     manager,
		Health:      s.health,
		Verifier:    s.verifier,
	})
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.echo,
		ReadTimeout:       time.Duration(s.cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    s.cfg.MaxHeaderBytes,
	}
	s.health.SetReady(true)
	return nil
}

func (s *Server) stores() correlation.Stores {
	var stores correlation.Stores
	if s.cfg.Backend == config.BackendPostgres {
		stores = correlation.Stores{
			Elements:      elementrepo.NewRepository(s.db, s.logger),
			Relationships: relationshiprepo.NewRepository(s.db, s.logger),
			Correlations:  correlationrepo.NewRepository(s.db, s.logger),
			AssetManagers: assetmanagerrepo.NewRepository(s.db, s.logger),
		}
	} else {
		mem := memstore.New()
		stores = correlation.Stores{
			Elements:      mem.Elements(),
			Relationships: mem.Relationships(),
			Correlations:  mem.Correlations(),
			AssetManagers: mem.AssetManagers(),
		}
	}

	if s.graph != nil {
		stores.Relationships = graph.NewRelationshipStore(s.graph, s.logger)
	}
	if s.redis != nil {
		stores.Correlations = cache.NewCorrelationStore(stores.Correlations, s.redis, s.cfg.RedisCacheTTL, s.logger)
	}
	return stores
}

func (s *Server) managerConfig() correlation.Config {
	cfg := correlation.Config{
		MaxPageSize:       s.cfg.MaxPageSize,
		SkipHomeCheck:     s.cfg.SkipHomeCheck,
		ResolverCacheSize: s.cfg.ResolverCacheSize,
		ResolverCacheTTL:  s.cfg.ResolverCacheTTL,
		Observer:          metrics.NewObserver(),
	}
	if s.producer != nil {
		cfg.Notifier = events.NewEmitter(s.producer, s.logger)
	}
	return cfg
}

// Handler is the HTTP handler built by Init.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Serve blocks until the listener fails or Shutdown is called.
func (s *Server) Serve() error {
	s.logger.WithField("port", s.cfg.Port).Infof("Starting %s", s.cfg.AppName)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP traffic, then stops dependencies in reverse order.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	var httpErr error
	if s.http != nil {
		httpErr = s.http.Shutdown(ctx)
	}
	return errors.Join(httpErr, s.startup.Stop(ctx))
}
