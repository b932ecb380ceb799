// Package gpagorm provides a GORM adapter for the Go Persistence API (GPA)
package gpagorm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/melmanss/gpa"
	"github.com/melmanss/gpa/internal/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// =====================================
// Provider Implementation
// =====================================

// Provider implements gpa.Provider using GORM
type Provider struct {
	db     *gorm.DB
	config gpa.Config
	log    *logger.Logger
}

// Factory implements gpa.ProviderFactory
type Factory struct{}

// Create creates a new GORM provider instance
func (f *Factory) Create(config gpa.Config) (gpa.Provider, error) {
	log, err := logger.New(config.Logging.Mode)
	if err != nil {
		return nil, gpa.NewErrorWithCause(gpa.ErrorTypeInvalidArgument, "failed to build logger", err)
	}
	provider := &Provider{config: config, log: log.With("provider", "gorm", "driver", config.Driver)}

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	}

	gormOpts := config.AdapterOptions("gorm")
	if logLevel, ok := gormOpts["log_level"].(string); ok {
		gormConfig.Logger = gormlogger.Default.LogMode(parseLogLevel(logLevel))
	}
	if singularTable, ok := gormOpts["singular_table"].(bool); ok {
		gormConfig.NamingStrategy = schema.NamingStrategy{
			SingularTable: singularTable,
		}
	}

	dialect, err := gpa.DialectFor(config.Driver)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch dialect {
	case gpa.DialectPgSQL:
		dialector = postgres.Open(buildPostgresDSN(config))
	case gpa.DialectMySQL:
		dialector = mysql.Open(buildMySQLDSN(config))
	case gpa.DialectSQLite:
		dialector = sqlite.Open(gpa.SQLiteDSN(config))
	case gpa.DialectMsSQL:
		dialector = sqlserver.Open(buildSQLServerDSN(config))
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, gpa.GPAError{
			Type:    gpa.ErrorTypeConnection,
			Message: "failed to connect to database",
			Cause:   err,
		}
	}
	provider.db = db

	if err := provider.Configure(config); err != nil {
		return nil, err
	}

	provider.log.Info("provider opened", "database", config.Database)
	return provider, nil
}

// SupportedDrivers returns the list of supported database drivers
func (f *Factory) SupportedDrivers() []string {
	return []string{"postgres", "postgresql", "mysql", "sqlite", "sqlite3", "sqlserver", "mssql"}
}

func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// OpenSession pins one pooled connection for the lifetime of the session.
func (p *Provider) OpenSession(ctx context.Context) (*gpa.Session, error) {
	sqlDB, err := p.db.DB()
	if err != nil {
		return nil, gpa.NewErrorWithCause(gpa.ErrorTypeConnection, "failed to get underlying sql.DB", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, gpa.NewErrorWithCause(gpa.ErrorTypeConnection, "failed to acquire connection", err)
	}

	scoped := p.db.Session(&gorm.Session{NewDB: true, Context: ctx})
	scoped.Statement.ConnPool = conn

	return gpa.NewSession(&Store{db: scoped, release: conn.Close}, p.log), nil
}

// Migrate creates missing tables and columns for the given models
func (p *Provider) Migrate(ctx context.Context, models ...interface{}) error {
	if err := p.db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return convertGormError(err)
	}
	return nil
}

// Configure applies pool settings to the underlying sql.DB
func (p *Provider) Configure(config gpa.Config) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return gpa.GPAError{
			Type:    gpa.ErrorTypeConnection,
			Message: "failed to get underlying sql.DB",
			Cause:   err,
		}
	}

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

// Health checks if the database connection is healthy
func (p *Provider) Health() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return gpa.NewErrorWithCause(gpa.ErrorTypeConnection, "failed to get underlying sql.DB", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return gpa.NewErrorWithCause(gpa.ErrorTypeConnection, "database ping failed", err)
	}
	return nil
}

// Close closes the database connection
func (p *Provider) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	p.log.Info("provider closed")
	p.log.Sync()
	return sqlDB.Close()
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

// ProviderInfo returns information about the provider
func (p *Provider) ProviderInfo() gpa.ProviderInfo {
	return gpa.ProviderInfo{
		Name:         "gorm",
		Version:      "1.0.0",
		DatabaseType: gpa.DatabaseTypeSQL,
		Features:     p.SupportedFeatures(),
	}
}

// =====================================
// Store Implementation
// =====================================

// Store implements gpa.Store over a GORM handle bound to one connection
type Store struct {
	db      *gorm.DB
	inTx    bool
	release func() error
	once    sync.Once
}

var _ gpa.Store = (*Store)(nil)

// DB exposes the scoped GORM handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Insert(ctx context.Context, entity interface{}) error {
	return convertGormError(s.db.WithContext(ctx).Omit(clause.Associations).Create(entity).Error)
}

func (s *Store) Update(ctx context.Context, entity interface{}) (int64, error) {
	result := s.db.WithContext(ctx).Model(entity).Select("*").Omit(clause.Associations).Updates(entity)
	if result.Error != nil {
		return 0, convertGormError(result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Store) First(ctx context.Context, dest interface{}, opts ...gpa.QueryOption) error {
	return convertGormError(s.buildQuery(ctx, opts...).First(dest).Error)
}

func (s *Store) Find(ctx context.Context, dest interface{}, opts ...gpa.QueryOption) error {
	return convertGormError(s.buildQuery(ctx, opts...).Find(dest).Error)
}

func (s *Store) Count(ctx context.Context, model interface{}, opts ...gpa.QueryOption) (int64, error) {
	var count int64
	err := s.buildQuery(ctx, opts...).Model(model).Count(&count).Error
	return count, convertGormError(err)
}

func (s *Store) Delete(ctx context.Context, model interface{}, opts ...gpa.QueryOption) (int64, error) {
	if len(gpa.NewQuery(opts...).Conditions) == 0 {
		return 0, convertGormError(gorm.ErrMissingWhereClause)
	}
	result := s.buildQuery(ctx, opts...).Delete(model)
	if result.Error != nil {
		return 0, convertGormError(result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Store) RawQuery(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return convertGormError(s.db.WithContext(ctx).Raw(query, args...).Scan(dest).Error)
}

// Transaction begins a transaction on the pinned connection. Inside one, fn joins it.
func (s *Store) Transaction(ctx context.Context, fn gpa.TransactionFunc) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
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

// buildQuery builds a GORM query from GPA query options
func (s *Store) buildQuery(ctx context.Context, opts ...gpa.QueryOption) *gorm.DB {
	query := gpa.NewQuery(opts...)
	db := s.db.WithContext(ctx)

	for _, condition := range query.Conditions {
		db = applyCondition(db, condition)
	}
	for _, order := range query.Orders {
		db = db.Order(fmt.Sprintf("%s %s", order.Field, order.Direction))
	}
	if query.Limit != nil {
		db = db.Limit(*query.Limit)
	}
	if query.Offset != nil {
		db = db.Offset(*query.Offset)
	}
	return db
}

// applyCondition applies a condition to the GORM query
func applyCondition(db *gorm.DB, condition gpa.Condition) *gorm.DB {
	field := condition.Field()
	value := condition.Value()

	switch condition.Operator() {
	case gpa.OpIn:
		return db.Where(fmt.Sprintf("%s IN ?", field), value)
	case gpa.OpNotIn:
		return db.Where(fmt.Sprintf("%s NOT IN ?", field), value)
	case gpa.OpIsNull:
		return db.Where(fmt.Sprintf("%s IS NULL", field))
	case gpa.OpIsNotNull:
		return db.Where(fmt.Sprintf("%s IS NOT NULL", field))
	default:
		return db.Where(fmt.Sprintf("%s %s ?", field, condition.Operator()), value)
	}
}

// =====================================
// Error Conversion
// =====================================

// convertGormError converts GORM errors to GPA errors
func convertGormError(err error) error {
	if err == nil {
		return nil
	}
	var gpaErr gpa.GPAError
	if errors.As(err, &gpaErr) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeNotFound,
			Message: "record not found",
			Cause:   err,
		}
	case errors.Is(err, gorm.ErrInvalidTransaction):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeTransaction,
			Message: "invalid transaction",
			Cause:   err,
		}
	case errors.Is(err, gorm.ErrNotImplemented):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeUnsupported,
			Message: "operation not implemented",
			Cause:   err,
		}
	case errors.Is(err, gorm.ErrMissingWhereClause):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeValidation,
			Message: "missing where clause",
			Cause:   err,
		}
	case errors.Is(err, gorm.ErrPrimaryKeyRequired):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeValidation,
			Message: "primary key required",
			Cause:   err,
		}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeDuplicate,
			Message: "duplicate key violation",
			Cause:   err,
		}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeConstraint,
			Message: "foreign key violation",
			Cause:   err,
		}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "duplicate") || strings.Contains(errStr, "unique"):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeDuplicate,
			Message: "duplicate key violation",
			Cause:   err,
		}
	case strings.Contains(errStr, "foreign key") || strings.Contains(errStr, "constraint"):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeConstraint,
			Message: "constraint violation",
			Cause:   err,
		}
	case strings.Contains(errStr, "timeout"):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeTimeout,
			Message: "operation timeout",
			Cause:   err,
		}
	case strings.Contains(errStr, "connection") || strings.Contains(errStr, "database is closed"):
		return gpa.GPAError{
			Type:    gpa.ErrorTypeConnection,
			Message: "connection error",
			Cause:   err,
		}
	}

	return gpa.GPAError{
		Type:    gpa.ErrorTypeDatabase,
		Message: "database operation failed",
		Cause:   err,
	}
}

// =====================================
// DSN Builders
// =====================================

// buildPostgresDSN builds a PostgreSQL DSN
func buildPostgresDSN(config gpa.Config) string {
	if config.ConnectionURL != "" {
		return config.ConnectionURL
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		config.Host, config.Port, config.Username, config.Password, config.Database)

	if config.SSL.Enabled {
		dsn += " sslmode=" + config.SSL.Mode
		if config.SSL.CertFile != "" {
			dsn += " sslcert=" + config.SSL.CertFile
		}
		if config.SSL.KeyFile != "" {
			dsn += " sslkey=" + config.SSL.KeyFile
		}
		if config.SSL.CAFile != "" {
			dsn += " sslrootcert=" + config.SSL.CAFile
		}
	} else {
		dsn += " sslmode=disable"
	}

	return dsn
}

// buildMySQLDSN builds a MySQL DSN. clientFoundRows makes an unchanged row count as matched.
func buildMySQLDSN(config gpa.Config) string {
	if config.ConnectionURL != "" {
		return config.ConnectionURL
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&clientFoundRows=true",
		config.Username, config.Password, config.Host, config.Port, config.Database)

	if config.SSL.Enabled {
		dsn += "&tls=" + config.SSL.Mode
	}

	return dsn
}

// buildSQLServerDSN builds a SQL Server DSN
func buildSQLServerDSN(config gpa.Config) string {
	if config.ConnectionURL != "" {
		return config.ConnectionURL
	}

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
		config.Username, config.Password, config.Host, config.Port, config.Database)
}

// =====================================
// Registration
// =====================================

// init registers the GORM provider factory
func init() {
	_ = gpa.RegisterProvider("gorm", &Factory{})
}
