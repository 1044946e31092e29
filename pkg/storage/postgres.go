package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store over a single key-value table, for setups
// where several machines share one saved list.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to Postgres and verifies it.
func NewPostgresStore(host, user, password, dbname string, port int) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresStore{db: db}, nil
}

// InitSchema creates the key-value table if it does not exist.
func (p *PostgresStore) InitSchema() error {
	query := `CREATE TABLE IF NOT EXISTS resource_kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`

	if _, err := p.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create kv table: %w", err)
	}
	return nil
}

// Get returns the stored value for key, or false if it was never set.
func (p *PostgresStore) Get(key string) (string, bool) {
	var value string
	err := p.db.QueryRow(`SELECT value FROM resource_kv WHERE key = $1`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// Set writes the value for key, replacing any previous value.
func (p *PostgresStore) Set(key, value string) error {
	_, err := p.db.Exec(`
		INSERT INTO resource_kv (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}
	return nil
}

// Delete removes the key. Deleting an absent key is a no-op.
func (p *PostgresStore) Delete(key string) error {
	if _, err := p.db.Exec(`DELETE FROM resource_kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// Keys lists every stored key.
func (p *PostgresStore) Keys() ([]string, error) {
	rows, err := p.db.Query(`SELECT key FROM resource_kv`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close releases the underlying connection pool.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}
