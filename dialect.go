package gpa

import (
	"fmt"
	"strings"
)

// Dialect constants
const (
	DialectSQLite = "sqlite"
	DialectMySQL  = "mysql"
	DialectPgSQL  = "pgsql"
	DialectMsSQL  = "mssql"
)

var driverAliases = map[string]string{
	"sqlite":     DialectSQLite,
	"sqlite3":    DialectSQLite,
	"mysql":      DialectMySQL,
	"mariadb":    DialectMySQL,
	"postgres":   DialectPgSQL,
	"postgresql": DialectPgSQL,
	"pgsql":      DialectPgSQL,
	"pg":         DialectPgSQL,
	"sqlserver":  DialectMsSQL,
	"mssql":      DialectMsSQL,
}

// DialectFor maps a configured driver name to its dialect.
func DialectFor(driver string) (string, error) {
	dialect, ok := driverAliases[strings.ToLower(strings.TrimSpace(driver))]
	if !ok {
		return "", GPAError{
			Type:    ErrorTypeUnsupported,
			Message: fmt.Sprintf("unsupported driver: %s", driver),
		}
	}
	return dialect, nil
}

// SQLiteDSN returns the sqlite file name with foreign key enforcement turned on,
// unless the caller already passed query parameters. An in-memory database uses a
// shared cache so every pooled connection sees the same schema.
func SQLiteDSN(config Config) string {
	dsn := config.ConnectionURL
	if dsn == "" {
		dsn = config.Database
	}
	if dsn == "" || dsn == ":memory:" {
		return "file::memory:?cache=shared&_foreign_keys=on"
	}
	if strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?_foreign_keys=on"
}
