// Package config loads the clover server configuration from flags, CLOVER_* environment
// variables and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
)

const EnvPrefix = "CLOVER"

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds the service configuration loaded from flags, CLOVER_* environment variables and .env.
type Config struct {
	AppName                       string
	Version                       string
	Port                          int
	LogLevel                      string
	PrettyLogs                    bool
	HttpServerWriteTimeoutSeconds int
	HttpServerReadTimeoutSeconds  int
	HttpServerIdleTimeoutSeconds  int
	ReadHeaderTimeoutSeconds      int
	MaxHeaderBytes                int
	StartupMaxAttempts            int
	ShutdownTimeout               time.Duration

	// Correlation
	Backend           string
	ElementTypesFile  string
	MaxPageSize       int
	SkipHomeCheck     bool
	ResolverCacheSize int
	ResolverCacheTTL  time.Duration

	// PostgreSQL
	DatabaseDriver                string
	DatabaseHost                  string
	DatabasePort                  string
	DatabaseUserName              string
	DatabasePassword              string
	DatabaseName                  string
	DatabaseSSLMode               string
	DatabaseMaxOpenConns          int
	DatabaseMaxIdleConns          int
	DatabaseConnMaxLifetime       time.Duration
	DatabaseMigrationFolderPath   string
	DatabaseMigrationVersion      int
	DatabaseMigrationForce        int
	DatabaseMigrationAutoRollback bool

	// Graph database, holds relationships when enabled
	GraphEnabled  bool
	GraphHost     string
	GraphPort     int
	GraphUser     string
	GraphPassword string

	// Redis correlation cache
	RedisEnabled  bool
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int
	RedisCacheTTL time.Duration

	// Kafka lifecycle events
	KafkaEnabled      bool
	KafkaBrokers      string
	KafkaTopic        string
	KafkaBatchSize    int
	KafkaBatchTimeout time.Duration
	KafkaRequiredAcks int
	KafkaCompression  string

	// Auth
	AuthEnabled   bool
	AuthIssuerURL string
	AuthClientID  string

	// Tracing
	OTLPEndpoint string
	OTLPProtocol string
	OTLPInsecure bool
}

// Load reads .env (when present), then parses args and CLOVER_* variables. Flags win
// over the environment.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	flags := flag.NewFlagSet("clover", flag.ContinueOnError)
	cfg.register(flags)

	if err := ff.Parse(flags, args, ff.WithEnvVarPrefix(EnvPrefix)); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) register(flags *flag.FlagSet) {
	flags.StringVar(&c.AppName, "app-name", "clover-api", "service name used for logs and traces")
	flags.StringVar(&c.Version, "version", "dev", "version reported by the health endpoint")
	flags.IntVar(&c.Port, "port", 3000, "HTTP listen port")
	flags.StringVar(&c.LogLevel, "log-level", "info", "debug, info, warn or error")
	flags.BoolVar(&c.PrettyLogs, "pretty-logs", false, "human readable console logs")
	flags.IntVar(&c.HttpServerWriteTimeoutSeconds, "http-server-write-timeout-seconds", 10, "")
	flags.IntVar(&c.HttpServerReadTimeoutSeconds, "http-server-read-timeout-seconds", 10, "")
	flags.IntVar(&c.HttpServerIdleTimeoutSeconds, "http-server-idle-timeout-seconds", 10, "")
	flags.IntVar(&c.ReadHeaderTimeoutSeconds, "http-server-read-header-timeout-seconds", 10, "")
	flags.IntVar(&c.MaxHeaderBytes, "http-server-max-header-bytes", 64000, "")
	flags.IntVar(&c.StartupMaxAttempts, "startup-max-attempts", 5, "dependency startup attempts before giving up")
	flags.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown limit")

	flags.StringVar(&c.Backend, "backend", BackendMemory, "element and correlation storage: memory or postgres")
	flags.StringVar(&c.ElementTypesFile, "element-types-file", "", "YAML file of additional element and relationship types")
	flags.IntVar(&c.MaxPageSize, "max-page-size", 1000, "largest page a query may request")
	flags.BoolVar(&c.SkipHomeCheck, "skip-home-check", false, "let any caller change elements homed in an asset manager")
	flags.IntVar(&c.ResolverCacheSize, "resolver-cache-size", 256, "asset managers cached per lookup key")
	flags.DurationVar(&c.ResolverCacheTTL, "resolver-cache-ttl", time.Minute, "how long a resolved asset manager is trusted")

	flags.StringVar(&c.DatabaseDriver, "db-driver", "postgres", "")
	flags.StringVar(&c.DatabaseHost, "db-host", "localhost", "")
	flags.StringVar(&c.DatabasePort, "db-port", "5432", "")
	flags.StringVar(&c.DatabaseUserName, "db-user-name", "", "")
	flags.StringVar(&c.DatabasePassword, "db-password", "", "")
	flags.StringVar(&c.DatabaseName, "db-name", "clover", "")
	flags.StringVar(&c.DatabaseSSLMode, "db-ssl-mode", "disable", "")
	flags.IntVar(&c.DatabaseMaxOpenConns, "db-max-open-conns", 25, "")
	flags.IntVar(&c.DatabaseMaxIdleConns, "db-max-idle-conns", 10, "")
	flags.DurationVar(&c.DatabaseConnMaxLifetime, "db-conn-max-lifetime", 10*time.Second, "")
	flags.StringVar(&c.DatabaseMigrationFolderPath, "db-migration-folder-path", "db/pg", "")
	flags.IntVar(&c.DatabaseMigrationVersion, "db-migration-version", 0, "target version, 0 for latest")
	flags.IntVar(&c.DatabaseMigrationForce, "db-migration-force", 0, "force the schema version before migrating")
	flags.BoolVar(&c.DatabaseMigrationAutoRollback, "db-migration-auto-rollback", true, "")

	flags.BoolVar(&c.GraphEnabled, "graph-enabled", false, "store relationships in the graph database")
	flags.StringVar(&c.GraphHost, "graph-host", "localhost", "")
	flags.IntVar(&c.GraphPort, "graph-port", 7687, "")
	flags.StringVar(&c.GraphUser, "graph-user", "", "")
	flags.StringVar(&c.GraphPassword, "graph-password", "", "")

	flags.BoolVar(&c.RedisEnabled, "redis-enabled", false, "cache correlation lookups in redis")
	flags.StringVar(&c.RedisHost, "redis-host", "localhost", "")
	flags.IntVar(&c.RedisPort, "redis-port", 6379, "")
	flags.StringVar(&c.RedisPassword, "redis-password", "", "")
	flags.IntVar(&c.RedisDB, "redis-db", 0, "")
	flags.DurationVar(&c.RedisCacheTTL, "redis-cache-ttl", 10*time.Minute, "")

	flags.BoolVar(&c.KafkaEnabled, "kafka-enabled", false, "publish lifecycle events")
	flags.StringVar(&c.KafkaBrokers, "kafka-brokers", "localhost:9092", "comma separated broker list")
	flags.StringVar(&c.KafkaTopic, "kafka-topic", "clover-events", "")
	flags.IntVar(&c.KafkaBatchSize, "kafka-batch-size", 100, "")
	flags.DurationVar(&c.KafkaBatchTimeout, "kafka-batch-timeout", 100*time.Millisecond, "")
	flags.IntVar(&c.KafkaRequiredAcks, "kafka-required-acks", 1, "")
	flags.StringVar(&c.KafkaCompression, "kafka-compression", "snappy", "snappy, gzip, lz4, zstd or none")

	flags.BoolVar(&c.AuthEnabled, "auth-enabled", false, "require OIDC bearer tokens on the API")
	flags.StringVar(&c.AuthIssuerURL, "auth-issuer-url", "", "")
	flags.StringVar(&c.AuthClientID, "auth-client-id", "", "")

	flags.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "trace collector address, empty disables export")
	flags.StringVar(&c.OTLPProtocol, "otlp-protocol", "grpc", "grpc or http")
	flags.BoolVar(&c.OTLPInsecure, "otlp-insecure", true, "")
}

// Validate checks values that flag parsing cannot.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("unknown backend %q, expected %s or %s", c.Backend, BackendMemory, BackendPostgres)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.AuthEnabled && (c.AuthIssuerURL == "" || c.AuthClientID == "") {
		return fmt.Errorf("auth requires an issuer url and client id")
	}
	if c.KafkaEnabled && len(c.Brokers()) == 0 {
		return fmt.Errorf("kafka requires at least one broker")
	}
	if c.MaxPageSize <= 0 {
		return fmt.Errorf("max page size must be positive, got %d", c.MaxPageSize)
	}
	return nil
}

// Brokers splits KafkaBrokers into host:port entries.
func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
