package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQLite string

//go:embed schema_mysql.sql
var schemaMySQL string

type DB struct {
	*sql.DB
}

// New opens the database behind the given DSN and applies the schema.
// A DSN containing '@' is treated as MySQL, anything else as a SQLite
// file path (or :memory:).
func New(dsn string) (*DB, error) {
	var db *sql.DB
	var err error
	var dbType string

	isMySQL := strings.Contains(dsn, "@")

	if isMySQL {
		dbType = "mysql"
		db, err = sql.Open("mysql", dsn)
	} else {
		dbType = "sqlite"
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			dir := filepath.Dir(dsn)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}

		if !strings.Contains(dsn, "?") {
			dsn += "?"
		} else {
			dsn += "&"
		}

		// modernc.org/sqlite applies _pragma DSN parameters to every
		// connection in the pool.
		pragmas := []string{
			"_pragma=foreign_keys(1)",
			"_pragma=journal_mode(WAL)",
			"_pragma=busy_timeout(30000)",
			"_pragma=synchronous(NORMAL)",
			"_pragma=cache_size(-20000)",
			"_pragma=temp_store(MEMORY)",
		}
		dsn += strings.Join(pragmas, "&")

		db, err = sql.Open("sqlite", dsn)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dbType == "sqlite" {
		// Concurrent requests plus nested per-session queries need more
		// than the single default connection.
		db.SetMaxOpenConns(25)
	}

	if err := initSchema(db, dbType); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

func initSchema(db *sql.DB, dbType string) error {
	schema := schemaSQLite
	if dbType == "mysql" {
		schema = schemaMySQL
	}

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}
