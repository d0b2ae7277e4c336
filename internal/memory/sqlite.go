package memory

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - cells table keyed by (partition, key)
const currentSchemaVersion = 1

// SQLite stores all partitions in a single table of one SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - FULL synchronous mode, every write is on disk when Exec returns
//   - 5-second busy timeout for lock contention
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("%w: schema %d", ErrLayoutVersion, version)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

func (s *SQLite) Partition(id PartitionID) Partition {
	return &sqlitePartition{db: s.db, id: int(id)}
}

// Compact folds the WAL back into the main database file.
func (s *SQLite) Compact() error {
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return BackendError{Original: err}
	}
	return nil
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type sqlitePartition struct {
	db *sql.DB
	id int
}

func (p *sqlitePartition) Get(key []byte) ([]byte, error) {
	var value []byte
	err := p.db.QueryRow(`
		SELECT value FROM cells
		WHERE partition = ? AND key = ?
	`, p.id, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, BackendError{Original: err}
	}
	return value, nil
}

func (p *sqlitePartition) Set(key, value []byte) error {
	_, err := p.db.Exec(`
		INSERT INTO cells (partition, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(partition, key) DO UPDATE SET value = excluded.value
	`, p.id, key, value)
	if err != nil {
		return BackendError{Original: err}
	}
	return nil
}

func (p *sqlitePartition) Delete(key []byte) error {
	_, err := p.db.Exec(`DELETE FROM cells WHERE partition = ? AND key = ?`, p.id, key)
	if err != nil {
		return BackendError{Original: err}
	}
	return nil
}

// Ascend reads the whole partition before calling fn; the pool holds a
// single connection.
func (p *sqlitePartition) Ascend(fn func(key, value []byte) bool) error {
	rows, err := p.db.Query(`
		SELECT key, value FROM cells
		WHERE partition = ?
		ORDER BY key ASC
	`, p.id)
	if err != nil {
		return BackendError{Original: err}
	}
	defer rows.Close()

	type cell struct{ key, value []byte }
	var cells []cell
	for rows.Next() {
		var c cell
		if err := rows.Scan(&c.key, &c.value); err != nil {
			return BackendError{Original: err}
		}
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return BackendError{Original: err}
	}
	rows.Close()

	for _, c := range cells {
		if !fn(c.key, c.value) {
			return nil
		}
	}
	return nil
}
