// FILE: lixenwraith/props/source/sqlsource/sqlsource.go

// Package sqlsource serves properties from a name/value table in a SQLite
// database, read through a connection pool.
package sqlsource

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Config holds the parameters for opening a database-backed source.
// Path is required; all other fields have defaults.
type Config struct {
	// Path is the SQLite database file, or ":memory:" with PoolSize 1
	Path string

	// PoolSize defaults to max(runtime.NumCPU(), 4)
	PoolSize int

	// Table and column names, default properties(name, value)
	Table       string
	NameColumn  string
	ValueColumn string

	// CreateTable creates the table on first connect if missing
	CreateTable bool

	// Name reported to the chain, default "sqlite"
	Name string

	// Logger receives pool events; nil discards
	Logger *slog.Logger
}

// Source looks properties up by name. Lookups block on pool availability
// and honor ctx.
type Source struct {
	pool   *sqlitex.Pool
	name   string
	path   string
	logger *slog.Logger

	lookupQuery string
	listQuery   string
	upsertQuery string
}

// Open creates the pool. Connections are initialized lazily on first Take.
func Open(cfg Config) (*Source, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlsource: Path is required")
	}
	if cfg.Table == "" {
		cfg.Table = "properties"
	}
	if cfg.NameColumn == "" {
		cfg.NameColumn = "name"
	}
	if cfg.ValueColumn == "" {
		cfg.ValueColumn = "value"
	}
	if cfg.Name == "" {
		cfg.Name = "sqlite"
	}
	for _, ident := range []string{cfg.Table, cfg.NameColumn, cfg.ValueColumn} {
		if !isIdentifier(ident) {
			return nil, fmt.Errorf("sqlsource: invalid identifier %q", ident)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = max(runtime.NumCPU(), 4)
	}

	createStmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s TEXT PRIMARY KEY NOT NULL, %s TEXT NOT NULL)`,
		cfg.Table, cfg.NameColumn, cfg.ValueColumn)

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			if err := sqlitex.ExecuteTransient(conn, "PRAGMA busy_timeout=5000", nil); err != nil {
				return err
			}
			if cfg.CreateTable {
				return sqlitex.ExecuteTransient(conn, createStmt, nil)
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlsource: opening %s: %w", cfg.Path, err)
	}

	logger.Info("property database opened",
		"path", cfg.Path,
		"table", cfg.Table,
		"pool_size", poolSize,
	)

	return &Source{
		pool:        pool,
		name:        cfg.Name,
		path:        cfg.Path,
		logger:      logger,
		lookupQuery: fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`, cfg.ValueColumn, cfg.Table, cfg.NameColumn),
		listQuery:   fmt.Sprintf(`SELECT %s FROM %s`, cfg.NameColumn, cfg.Table),
		upsertQuery: fmt.Sprintf(`INSERT INTO %[1]s (%[2]s, %[3]s) VALUES (?, ?) ON CONFLICT(%[2]s) DO UPDATE SET %[3]s = excluded.%[3]s`,
			cfg.Table, cfg.NameColumn, cfg.ValueColumn),
	}, nil
}

func (s *Source) Name() string { return s.name }

// Lookup queries the table. Pool and query failures are backend errors.
func (s *Source) Lookup(ctx context.Context, name string) (string, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", false, fmt.Errorf("sqlsource: take: %w", err)
	}
	defer s.pool.Put(conn)

	var value string
	found := false
	err = sqlitex.Execute(conn, s.lookupQuery, &sqlitex.ExecOptions{
		Args: []any{name},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = stmt.ColumnText(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("sqlsource: lookup %q: %w", name, err)
	}
	return value, found, nil
}

// Set inserts or replaces a property.
func (s *Source) Set(ctx context.Context, name, value string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlsource: take: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.Execute(conn, s.upsertQuery, &sqlitex.ExecOptions{Args: []any{name, value}}); err != nil {
		return fmt.Errorf("sqlsource: set %q: %w", name, err)
	}
	return nil
}

// List returns every property name in the table, sorted.
func (s *Source) List(ctx context.Context) ([]string, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlsource: take: %w", err)
	}
	defer s.pool.Put(conn)

	var names []string
	err = sqlitex.Execute(conn, s.listQuery, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			names = append(names, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlsource: list: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Keys lists property names for dumps; failures are logged and yield nil.
func (s *Source) Keys() []string {
	names, err := s.List(context.Background())
	if err != nil {
		s.logger.Warn("listing properties failed", "path", s.path, "error", err)
		return nil
	}
	return names
}

// Close closes all connections. Blocks until borrowed connections return.
func (s *Source) Close() error {
	if err := s.pool.Close(); err != nil {
		s.logger.Error("property database close error", "path", s.path, "error", err)
		return fmt.Errorf("sqlsource: closing %s: %w", s.path, err)
	}
	s.logger.Info("property database closed", "path", s.path)
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if !isLetter && !(isDigit && i > 0) {
			return false
		}
	}
	return true
}
