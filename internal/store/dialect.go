package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// sqliteDriverName is go-sqlite3 with unicode_lower registered on every
// connection. SQLite's built-in LOWER() only folds ASCII.
const sqliteDriverName = "sqlite3_notely"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("unicode_lower", strings.ToLower, true)
		},
	})
}

// dialect isolates the SQL that differs between backends.
type dialect struct {
	name       string
	driverName string
	schema     []string
	dsn        func(string) (string, error)
	// ignoreDuplicate is appended to a multi-row INSERT so rows that hit a
	// unique constraint on col are skipped.
	ignoreDuplicate func(col string) string
	// lower is the SQL function that folds case the way strings.ToLower does.
	lower string
	// lockingRead is appended to a SELECT that must see rows committed after
	// the transaction's snapshot was taken.
	lockingRead string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite, "":
		return sqliteDialect, nil
	case DriverMySQL:
		return mysqlDialect, nil
	default:
		return dialect{}, fmt.Errorf("store: unsupported driver %q", driver)
	}
}

var sqliteDialect = dialect{
	name:       DriverSQLite,
	driverName: sqliteDriverName,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			user_id    INTEGER NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_user_updated ON notes(user_id, updated_at)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS note_tags (
			note_id INTEGER NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
			tag_id  INTEGER NOT NULL REFERENCES tags(id),
			UNIQUE(note_id, tag_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_note_tags_tag ON note_tags(tag_id)`,
	},
	dsn: func(path string) (string, error) {
		return path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate", nil
	},
	ignoreDuplicate: func(string) string {
		return " ON CONFLICT DO NOTHING"
	},
	lower: "unicode_lower",
	// lockingRead stays empty: _txlock=immediate serializes writers.
}

var mysqlDialect = dialect{
	name:       DriverMySQL,
	driverName: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGINT AUTO_INCREMENT PRIMARY KEY,
			username      VARCHAR(255) COLLATE utf8mb4_bin NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at    DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
		) DEFAULT CHARSET = utf8mb4`,
		`CREATE TABLE IF NOT EXISTS notes (
			id         BIGINT AUTO_INCREMENT PRIMARY KEY,
			title      VARCHAR(512) NOT NULL,
			content    MEDIUMTEXT NOT NULL,
			user_id    BIGINT NOT NULL,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX idx_notes_user_updated (user_id, updated_at),
			FOREIGN KEY (user_id) REFERENCES users(id)
		) DEFAULT CHARSET = utf8mb4`,
		`CREATE TABLE IF NOT EXISTS tags (
			id   BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) COLLATE utf8mb4_bin NOT NULL UNIQUE
		) DEFAULT CHARSET = utf8mb4`,
		`CREATE TABLE IF NOT EXISTS note_tags (
			note_id BIGINT NOT NULL,
			tag_id  BIGINT NOT NULL,
			UNIQUE KEY uq_note_tag (note_id, tag_id),
			INDEX idx_note_tags_tag (tag_id),
			FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE,
			FOREIGN KEY (tag_id) REFERENCES tags(id)
		) DEFAULT CHARSET = utf8mb4`,
	},
	dsn: func(dsn string) (string, error) {
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("store: parse mysql dsn: %w", err)
		}
		// Timestamps are written in UTC and must scan back into time.Time.
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		return cfg.FormatDSN(), nil
	},
	ignoreDuplicate: func(col string) string {
		return fmt.Sprintf(" ON DUPLICATE KEY UPDATE %s = %s", col, col)
	},
	lower:       "LOWER",
	lockingRead: " FOR SHARE",
}

// isUniqueViolation reports whether err is a unique-constraint failure on
// either backend.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	return false
}
