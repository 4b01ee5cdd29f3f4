// Package storage opens the optional SQL store shared by the smileid
// binaries: a go-persistence-bun client with migrations applied, the
// cached link store and the outcome store.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/afrimobile/go-smileid/core"
	"github.com/afrimobile/go-smileid/migrations"
	sqlstore "github.com/afrimobile/go-smileid/store/sql"
	"github.com/afrimobile/go-smileid/webhooks"
)

const (
	defaultServiceName  = "smileid"
	defaultLinkCacheTTL = 5 * time.Minute
	pingTimeout         = 5 * time.Second
)

type persistenceConfig struct {
	driver  string
	dsn     string
	service string
	debug   bool
}

func (c persistenceConfig) GetDebug() bool                { return c.debug }
func (c persistenceConfig) GetDriver() string             { return c.driver }
func (c persistenceConfig) GetServer() string             { return c.dsn }
func (c persistenceConfig) GetPingTimeout() time.Duration { return pingTimeout }
func (c persistenceConfig) GetOtelIdentifier() string     { return c.service }

type Store struct {
	client   *persistence.Client
	Links    *sqlstore.CachedLinkStore
	Outcomes *sqlstore.OutcomeStore
}

type Option func(*options)

type options struct {
	service  string
	cacheTTL time.Duration
}

// WithServiceName sets the identifier reported to tracing.
func WithServiceName(name string) Option {
	return func(o *options) {
		if name = strings.TrimSpace(name); name != "" {
			o.service = name
		}
	}
}

func WithLinkCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

// Open returns a nil Store and no error when cfg has no DSN.
func Open(ctx context.Context, cfg core.DatabaseConfig, logger core.Logger, opts ...Option) (*Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		core.LogWithFields(ctx, logger, "info", "no database configured", nil)
		return nil, nil
	}
	resolved := options{service: defaultServiceName, cacheTTL: defaultLinkCacheTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(&resolved)
		}
	}

	dialectName, err := migrations.DialectForDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	var (
		dialect schema.Dialect
		driver  string
	)
	switch dialectName {
	case migrations.DialectPostgres:
		dialect = pgdialect.New()
		driver = "postgres"
	default:
		dialect = sqlitedialect.New()
		driver = "sqlite3"
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s database: %w", driver, err)
	}
	if dialectName == migrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(persistenceConfig{
		driver:  driver,
		dsn:     dsn,
		service: resolved.service,
	}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("storage: persistence client: %w", err)
	}
	if err := migrations.Apply(ctx, client, dialectName); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("storage: apply migrations: %w", err)
	}

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	cacheConfig := repositorycache.DefaultConfig()
	cacheConfig.TTL = resolved.cacheTTL
	cacheService, err := repositorycache.NewCacheService(cacheConfig)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("storage: link cache: %w", err)
	}
	links, err := sqlstore.NewCachedLinkStore(factory.LinkStore(), cacheService)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	core.LogWithFields(ctx, logger, "info", "database ready", map[string]any{
		"driver":  driver,
		"dialect": dialectName,
	})
	return &Store{client: client, Links: links, Outcomes: factory.OutcomeStore()}, nil
}

// Sink logs every outcome and persists it.
func (s *Store) Sink(logger core.Logger) core.OutcomeSink {
	if s == nil || s.Outcomes == nil {
		return webhooks.NewLoggingSink(logger)
	}
	return webhooks.MultiSink{webhooks.NewLoggingSink(logger), s.Outcomes}
}

func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
