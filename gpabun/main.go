// Package gpabun provides a Bun adapter for the Go Persistence API (GPA)
package gpabun

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/melmanss/gpa"
	"github.com/melmanss/gpa/internal/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// =====================================
// Provider Implementation
// =====================================

// Provider implements gpa.Provider using Bun
type Provider struct {
	db     *bun.DB
	config gpa.Config
	log    *logger.Logger
}

// Factory implements gpa.ProviderFactory
type Factory struct{}

// Create creates a new Bun provider instance
func (f *Factory) Create(config gpa.Config) (gpa.Provider, error) {
	log, err := logger.New(config.Logging.Mode)
	if err != nil {
		return nil, gpa.NewErrorWithCause(gpa.ErrorTypeInvalidArgument, "failed to build logger", err)
	}
	provider := &Provider{config: config, log: log.With("provider", "bun", "driver", config.Driver)}

	dialect, err := gpa.DialectFor(config.Driver)
	if err != nil {
		return nil, err
	}
	bunOpts := config.AdapterOptions("bun")

	var sqlDB *sql.DB
	switch dialect {
	case gpa.DialectPgSQL:
		if driver, _ := bunOpts["pg_driver"].(string); driver == "pq" {
			sqlDB, err = createPqConnection(config)
		} else {
			sqlDB, err = createPgDriverConnection(config)
		}
	case gpa.DialectMySQL:
		sqlDB, err = createMySQLConnection(config)
	case gpa.DialectSQLite:
		sqlDB, err = createSQLiteConnection(config)
	default:
		return nil, gpa.GPAError{
			Type:    gpa.ErrorTypeUnsupported,
			Message: fmt.Sprintf("unsupported driver: %s", config.Driver),
		}
	}
	if err != nil {
		return nil, gpa.GPAError{
			Type:    gpa.ErrorTypeConnection,
			Message: "failed to connect to database",
			Cause:   err,
		}
	}

	var bunDB *bun.DB
	switch dialect {
	case gpa.DialectPgSQL:
		bunDB = bun.NewDB(sqlDB, pgdialect.New())
	case gpa.DialectMySQL:
		bunDB = bun.NewDB(sqlDB, mysqldialect.New())
	case gpa.DialectSQLite:
		bunDB = bun.NewDB(sqlDB, sqlitedialect.New())
	}

	if logLevel, ok := bunOpts["log_level"].(string); ok && logLevel != "silent" {
		bunDB.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(logLevel == "debug"),
		))
	}
	bunDB.AddQueryHook(&queryLogHook{log: provider.log})

	provider.db = bunDB
	if err := provider.Configure(config); err != nil {
		return nil, err
	}

	provider.log.Info("provider opened", "database", config.Database)
	return provider, nil
}

// SupportedDrivers returns the list of supported database drivers
func (f *Factory) SupportedDrivers() []string {
	return []string{"postgres", "postgresql", "mysql", "sqlite", "sqlite3"}
}

// OpenSession pins one pooled connection for the lifetime of the session.
func (p *Provider) OpenSession(ctx context.Context) (*gpa.Session, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, gpa.NewErrorWithCause(gpa.ErrorTypeConnection, "failed to acquire connection", err)
	}
	return gpa.NewSession(&Store{db: conn, release: conn.Close}, p.log), nil
}

// Migrate creates the tables of the given models if they do not exist
func (p *Provider) Migrate(ctx context.Context, models ...interface{}) error {
	for _, model := range models {
		if _, err := p.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return convertBunError(err)
		}
	}
	return nil
}

// Configure applies pool settings to the underlying sql.DB
func (p *Provider) Configure(config gpa.Config) error {
	sqlDB := p.db.DB
	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}
	if config.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}
	p.config = config
	return nil
}

// Health checks the database connection health
func (p *Provider) Health() error {
	if err := p.db.Ping(); err != nil {
		return gpa.NewErrorWithCause(gpa.ErrorTypeConnection, "database ping failed", err)
	}
	return nil
}

// Close closes the database connection
func (p *Provider) Close() error {
	p.log.Info("provider closed")
	p.log.Sync()
	return p.db.Close()
}

// SupportedFeatures returns the list of supported features
func (p *Provider) SupportedFeatures() []gpa.Feature {
	return []gpa.Feature{
		gpa.FeatureTransactions,
		gpa.FeatureJoins,
		gpa.FeatureIndexing,
		gpa.FeatureRawSQL,
		gpa.FeatureMigration,
	}
}

// ProviderInfo returns information about this provider
func (p *Provider) ProviderInfo() gpa.ProviderInfo {
	return gpa.ProviderInfo{
		Name:         "bun",
		Version:      "1.0.0",
		DatabaseType: gpa.DatabaseTypeSQL,
		Features:     p.SupportedFeatures(),
	}
}

// queryLogHook reports every query to the provider's structured logger
type queryLogHook struct {
	log *logger.Logger
}

func (h *queryLogHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryLogHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	elapsed := time.Since(event.StartTime)
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		h.log.Warn("query failed", "query", event.Query, "error", event.Err, "elapsed", elapsed)
		return
	}
	h.log.Debug("query", "query", event.Query, "elapsed", elapsed)
}

// =====================================
// Store Implementation
// =====================================

// Store implements gpa.Store over a bun.Conn, or a bun.Tx inside a transaction
type Store struct {
	db      bun.IDB
	release func() error
	once    sync.Once
}

var _ gpa.Store = (*Store)(nil)

// DB exposes the scoped Bun handle
func (s *Store) DB() bun.IDB {
	return s.db
}

func (s *Store) Insert(ctx context.Context, entity interface{}) error {
	_, err := s.db.NewInsert().Model(entity).Exec(ctx)
	return convertBunError(err)
}

func (s *Store) Update(ctx context.Context, entity interface{}) (int64, error) {
	res, err := s.db.NewUpdate().Model(entity).WherePK().Exec(ctx)
	if err != nil {
		return 0, convertBunError(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, convertBunError(err)
	}
	return rows, nil
}

func (s *Store) First(ctx context.Context, dest interface{}, opts ...gpa.QueryOption) error {
	return convertBunError(s.buildSelectQuery(dest, opts...).Limit(1).Scan(ctx))
}

func (s *Store) Find(ctx context.Context, dest interface{}, opts ...gpa.QueryOption) error {
	return convertBunError(s.buildSelectQuery(dest, opts...).Scan(ctx))
}

func (s *Store) Count(ctx context.Context, model interface{}, opts ...gpa.QueryOption) (int64, error) {
	count, err := s.buildSelectQuery(model, opts...).Count(ctx)
	if err != nil {
		return 0, convertBunError(err)
	}
	return int64(count), nil
}

func (s *Store) Delete(ctx context.Context, model interface{}, opts ...gpa.QueryOption) (int64, error) {
	query := gpa.NewQuery(opts...)
	if len(query.Conditions) == 0 {
		return 0, gpa.NewError(gpa.ErrorTypeValidation, "missing where clause")
	}

	q := s.db.NewDelete().Model(model)
	for _, condition := range query.Conditions {
		expr, args := conditionExpr(condition)
		q = q.Where(expr, args...)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, convertBunError(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, convertBunError(err)
	}
	return rows, nil
}

func (s *Store) RawQuery(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return convertBunError(s.db.NewRaw(query, args...).Scan(ctx, dest))
}

// Transaction begins a transaction on the pinned connection. Inside one, fn joins it.
func (s *Store) Transaction(ctx context.Context, fn gpa.TransactionFunc) error {
	run := func(ctx context.Context, tx bun.Tx) error {
		return fn(&Store{db: tx})
	}

	switch db := s.db.(type) {
	case bun.Tx:
		return fn(s)
	case bun.Conn:
		return db.RunInTx(ctx, nil, run)
	case *bun.DB:
		return db.RunInTx(ctx, nil, run)
	default:
		return gpa.GPAError{
			Type:    gpa.ErrorTypeTransaction,
			Message: "unable to start transaction: invalid database type",
		}
	}
}

// Close returns the pinned connection to the pool
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		if s.release != nil {
			err = s.release()
		}
	})
	return err
}

// =====================================
// Query Building Helpers
// =====================================

// buildSelectQuery builds a select query from GPA query options
func (s *Store) buildSelectQuery(dest interface{}, opts ...gpa.QueryOption) *bun.SelectQuery {
	query := gpa.NewQuery(opts...)
	q := s.db.NewSelect().Model(dest)

	for _, condition := range query.Conditions {
		expr, args := conditionExpr(condition)
		q = q.Where(expr, args...)
	}
	for _, order := range query.Orders {
		q = q.OrderExpr("? ?", bun.Ident(order.Field), bun.Safe(string(order.Direction)))
	}
	if query.Limit != nil {
		q = q.Limit(*query.Limit)
	}
	if query.Offset != nil {
		q = q.Offset(*query.Offset)
	}
	return q
}

// conditionExpr renders a condition as a bun where expression
func conditionExpr(condition gpa.Condition) (string, []interface{}) {
	field := bun.Ident(condition.Field())
	value := condition.Value()

	switch op := condition.Operator(); op {
	case gpa.OpIn:
		return "? IN (?)", []interface{}{field, bun.In(value)}
	case gpa.OpNotIn:
		return "? NOT IN (?)", []interface{}{field, bun.In(value)}
	case gpa.OpIsNull:
		return "? IS NULL", []interface{}{field}
	case gpa.OpIsNotNull:
		return "? IS NOT NULL", []interface{}{field}
	default:
		return "? " + string(op) + " ?", []interface{}{field, value}
	}
}

// =====================================
// Connections
// =====================================

// createPgDriverConnection creates a PostgreSQL connection using pgdriver
func createPgDriverConnection(config gpa.Config) (*sql.DB, error) {
	connector := pgdriver.NewConnector(pgdriver.WithDSN(buildPostgresDSN(config)))
	return sql.OpenDB(connector), nil
}

// createPqConnection creates a PostgreSQL connection using lib/pq
func createPqConnection(config gpa.Config) (*sql.DB, error) {
	return sql.Open("postgres", buildPostgresDSN(config))
}

// createMySQLConnection creates a MySQL connection
func createMySQLConnection(config gpa.Config) (*sql.DB, error) {
	if config.ConnectionURL != "" {
		return sql.Open("mysql", config.ConnectionURL)
	}
	return sql.Open("mysql", buildMySQLConfig(config).FormatDSN())
}

// createSQLiteConnection creates a SQLite connection with foreign keys on
func createSQLiteConnection(config gpa.Config) (*sql.DB, error) {
	return sql.Open("sqlite3", gpa.SQLiteDSN(config))
}

// buildPostgresDSN builds a PostgreSQL DSN string
func buildPostgresDSN(config gpa.Config) string {
	if config.ConnectionURL != "" {
		return config.ConnectionURL
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		config.Username, config.Password, config.Host, config.Port, config.Database)

	params := []string{}
	if config.SSL.Enabled {
		params = append(params, "sslmode="+config.SSL.Mode)
		if config.SSL.CertFile != "" {
			params = append(params, "sslcert="+config.SSL.CertFile)
		}
		if config.SSL.KeyFile != "" {
			params = append(params, "sslkey="+config.SSL.KeyFile)
		}
		if config.SSL.CAFile != "" {
			params = append(params, "sslrootcert="+config.SSL.CAFile)
		}
	} else {
		params = append(params, "sslmode=disable")
	}

	return dsn + "?" + strings.Join(params, "&")
}

// buildMySQLConfig builds the driver config. ClientFoundRows makes an unchanged row count as matched.
func buildMySQLConfig(config gpa.Config) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = config.Username
	cfg.Passwd = config.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", config.Host, config.Port)
	cfg.DBName = config.Database
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	if config.SSL.Enabled {
		cfg.TLSConfig = config.SSL.Mode
	}
	return cfg
}

// =====================================
// Error Conversion
// =====================================

// convertBunError converts Bun errors to GPA errors
func convertBunError(err error) error {
	if err == nil {
		return nil
	}
	var gpaErr gpa.GPAError
	if errors.As(err, &gpaErr) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeNotFound,
			Message: "record not found",
			Cause:   err,
		}
	case errors.Is(err, sql.ErrTxDone):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeTransaction,
			Message: "transaction already finished",
			Cause:   err,
		}
	case errors.Is(err, sql.ErrConnDone):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeConnection,
			Message: "connection already closed",
			Cause:   err,
		}
	case strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique"):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeDuplicate,
			Message: "duplicate key violation",
			Cause:   err,
		}
	case strings.Contains(msg, "foreign key") || strings.Contains(msg, "constraint"):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeConstraint,
			Message: "constraint violation",
			Cause:   err,
		}
	case strings.Contains(msg, "timeout"):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeTimeout,
			Message: "operation timeout",
			Cause:   err,
		}
	case strings.Contains(msg, "connection") || strings.Contains(msg, "database is closed"):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeConnection,
			Message: "connection error",
			Cause:   err,
		}
	default:
		return gpa.GPAError{
			Type:    gpa.ErrorTypeDatabase,
			Message: "database operation failed",
			Cause:   err,
		}
	}
}

// =====================================
// Registration
// =====================================

func init() {
	_ = gpa.RegisterProvider("bun", &Factory{})
}
