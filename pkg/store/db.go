package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

const (
	// DataFileName is the default database file name.
	DataFileName = "nftmeta.db"
	driverName   = "sqlite"
)

var (
	//go:embed sql/*
	f embed.FS

	ErrDBNotInitialized = errors.New("database not initialized")
)

// Init creates the schema in the database at dbFilePath. Safe to call on an
// existing database.
func Init(dbFilePath string) error {
	if dbFilePath == "" {
		return errors.New("dbFilePath not specified")
	}

	db, err := GetDB(dbFilePath)
	if err != nil {
		return err
	}
	defer db.Close()

	b, err := f.ReadFile("sql/ddl.sql")
	if err != nil {
		return fmt.Errorf("reading schema file: %w", err)
	}
	if _, err := db.Exec(string(b)); err != nil {
		return fmt.Errorf("creating schema in %s: %w", dbFilePath, err)
	}

	slog.Debug("db schema ready", "path", dbFilePath)
	return nil
}

func GetDB(path string) (*sql.DB, error) {
	conn, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return conn, nil
}

// rollback is deferred by writers; it is a no-op after a commit.
func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Error("rolling back transaction", "error", err)
	}
}
