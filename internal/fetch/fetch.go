package fetch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dailyreport/internal/config"
	"github.com/dailyreport/internal/table"
	"github.com/shopspring/decimal"
)

// Error reports a failure to obtain data. Stage names the step that failed.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch: %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ReadQuery returns the statement stored at path.
func ReadQuery(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &Error{Stage: "read query", Err: fmt.Errorf("query file not found at %s", path)}
		}
		return "", &Error{Stage: "read query", Err: err}
	}
	query := strings.TrimSpace(string(data))
	if query == "" {
		return "", &Error{Stage: "read query", Err: fmt.Errorf("query file %s is empty", path)}
	}
	return query, nil
}

// OpenFunc opens a database handle. It matches sql.Open.
type OpenFunc func(driverName, dataSourceName string) (*sql.DB, error)

// Fetcher runs a query against the configured relational source.
type Fetcher struct {
	db     config.Database
	logger *slog.Logger
	open   OpenFunc
}

func New(db config.Database, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{db: db, logger: logger, open: sql.Open}
}

// WithOpener replaces the function used to open connections.
func (f *Fetcher) WithOpener(open OpenFunc) *Fetcher {
	f.open = open
	return f
}

// Fetch reads the query at queryPath, executes it and returns the full
// result. An empty result is not an error. The connection is closed before
// Fetch returns.
func (f *Fetcher) Fetch(ctx context.Context, queryPath string) (table.Table, error) {
	query, err := ReadQuery(queryPath)
	if err != nil {
		return table.Table{}, err
	}

	db, err := f.connect(ctx)
	if err != nil {
		return table.Table{}, err
	}
	defer func() {
		if err := db.Close(); err != nil {
			f.logger.Warn("fetch: close failed", "err", err)
			return
		}
		f.logger.Debug("database connection closed")
	}()

	f.logger.Info("executing query", "file", queryPath)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return table.Table{}, &Error{Stage: "query", Err: err}
	}
	defer rows.Close()

	t, err := scanTable(rows)
	if err != nil {
		return table.Table{}, err
	}

	f.logger.Info("query complete", "rows", t.NumRows(), "columns", len(t.Columns))
	return t, nil
}

// Ping opens a connection and verifies the source is reachable.
func (f *Fetcher) Ping(ctx context.Context) error {
	db, err := f.connect(ctx)
	if err != nil {
		return err
	}
	return db.Close()
}

func (f *Fetcher) connect(ctx context.Context) (*sql.DB, error) {
	dsn, err := DSN(f.db)
	if err != nil {
		return nil, &Error{Stage: "open", Err: err}
	}

	f.logger.Info("connecting to database", "driver", f.db.Driver, "server", f.db.Server, "database", f.db.Name)
	db, err := f.open(f.db.Driver, dsn)
	if err != nil {
		return nil, &Error{Stage: "open", Err: err}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &Error{Stage: "ping", Err: err}
	}
	return db, nil
}

func scanTable(rows *sql.Rows) (table.Table, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return table.Table{}, &Error{Stage: "scan", Err: err}
	}

	cols := make([]table.Column, len(types))
	for i, ct := range types {
		cols[i] = table.Column{Name: ct.Name(), DBType: ct.DatabaseTypeName(), Values: []any{}}
	}

	dest := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return table.Table{}, &Error{Stage: "scan", Err: err}
		}
		for i := range cols {
			v, err := normalize(dest[i], cols[i].DBType)
			if err != nil {
				return table.Table{}, &Error{Stage: "scan", Err: fmt.Errorf("column %q: %w", cols[i].Name, err)}
			}
			cols[i].Values = append(cols[i].Values, v)
		}
	}
	if err := rows.Err(); err != nil {
		return table.Table{}, &Error{Stage: "scan", Err: err}
	}

	return table.Table{Columns: cols}, nil
}

// normalize converts raw driver bytes and numeric text into typed values.
// Several drivers return DECIMAL and, over the text protocol, every column
// as []byte; pgx returns NUMERIC as a string.
func normalize(v any, dbType string) (any, error) {
	var s string
	switch x := v.(type) {
	case []byte:
		s = string(x)
		if !table.IsNumericType(dbType) {
			return s, nil
		}
	case string:
		if !table.IsNumericType(dbType) {
			return x, nil
		}
		n, err := parseNumber(x, dbType)
		if err != nil {
			// Formatted values such as MONEY stay as text.
			return x, nil
		}
		return n, nil
	default:
		return v, nil
	}
	return parseNumber(s, dbType)
}

func parseNumber(s, dbType string) (any, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if table.IsIntegerType(dbType) && d.IsInteger() && d.Cmp(decimal.NewFromInt(d.IntPart())) == 0 {
		return d.IntPart(), nil
	}
	return d, nil
}
