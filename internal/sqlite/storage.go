package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrClosed is returned by Storage methods when the storage has been closed.
	ErrClosed = errors.New("storage is closed")
	// ErrEmpty is returned by [Storage.Pop] when there are no items.
	ErrEmpty = errors.New("storage is empty")
)

const (
	memory = ":memory:"
)

// Storage is a persistent FIFO of encoded items backed by SQLite.
type Storage struct {
	cfg *Config
	db  *sql.DB
}

// New creates a new Storage with the provided configuration functions.
//
// Default configuration:
//   - URI: ":memory:" (in-memory database)
//   - Conns: 1
//
// Returns an error if the SQLite database cannot be opened or initialized.
func New(configFuncs ...ConfigFunc) (*Storage, error) {
	cfg := &Config{}
	cfg.URI(memory)
	cfg.Conns(1)
	for _, cf := range configFuncs {
		cf(cfg)
	}

	db, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	if err := setup(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setup: %w", err)
	}

	storage := Storage{
		cfg: cfg,
		db:  db,
	}

	return &storage, nil
}

// Append inserts an encoded item at the tail and returns its sequence number.
//
// Returns [ErrClosed] if the storage has been closed.
func (s *Storage) Append(ctx context.Context, data []byte) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`
		insert into item (
			data,
			stored_at
		) values (
			:data,
			:stored_at
		)
		`,
		sql.Named("data", data),
		sql.Named("stored_at", toTimestamp(time.Now())),
	)
	if err != nil {
		return 0, closedOr(err)
	}

	return res.LastInsertId()
}

// Pop atomically removes the item at the head and returns it.
//
// Returns [ErrEmpty] if there are no items and [ErrClosed] if the storage has been closed.
func (s *Storage) Pop(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(
		ctx,
		`
		delete from item
		where
			seq = (select min(seq) from item)
		returning data
		`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmpty
	} else if err != nil {
		return nil, closedOr(err)
	}

	return data, nil
}

// Len returns the number of stored items.
func (s *Storage) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "select count(*) from item").Scan(&n)
	if err != nil {
		return 0, closedOr(err)
	}
	return n, nil
}

// Close closes the underlying SQLite database.
//
// After closing, all methods on Storage will return [ErrClosed].
func (s *Storage) Close() error {
	return s.db.Close()
}

func open(cfg *Config) (*sql.DB, error) {
	path, query, _ := strings.Cut(cfg.uri, "?")

	params := url.Values{}
	params.Add("_txlock", "immediate")
	params.Add("_timeout", "5000") // 5s
	params.Add("_foreign_keys", "on")
	inMemory := path == memory
	if inMemory {
		path = uuid.NewString()
		params.Add("mode", "memory")
		params.Add("cache", "shared")
	} else {
		params.Add("_journal", "wal")
		params.Add("_sync", "normal")
		params.Add("_cache_size", "-20000") // 20mb
	}

	extra, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	for k, v := range extra {
		if len(v) != 0 {
			params.Set(k, v[0])
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)
	if inMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(cfg.conns)
		db.SetMaxIdleConns(cfg.conns)
	}

	return db, nil
}

func setup(db *sql.DB) error {
	if _, err := db.Exec(
		`
		create table if not exists item (
			seq       integer primary key autoincrement,
			data      blob not null,
			stored_at int not null
		) strict
		`,
	); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	return nil
}

func closedOr(err error) error {
	if err.Error() == "sql: database is closed" {
		return ErrClosed
	}
	return err
}

func toTimestamp(time time.Time) int64 {
	return time.UnixNano()
}
