package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Column is a named, ordered sequence of values. DBType is the type name
// reported by the database driver and may be empty.
type Column struct {
	Name   string
	DBType string
	Values []any
}

// Table is a query result held column by column. The row count is the
// length of every column.
type Table struct {
	Columns []Column
}

// New builds a table from headers and rows. Rows shorter than the header
// are padded with nil.
func New(headers []string, rows [][]any) Table {
	cols := make([]Column, len(headers))
	for i, h := range headers {
		cols[i] = Column{Name: h, Values: make([]any, len(rows))}
		for r, row := range rows {
			if i < len(row) {
				cols[i].Values[r] = row[i]
			}
		}
	}
	return Table{Columns: cols}
}

// NumRows returns the number of rows.
func (t Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// Empty reports whether the table holds no rows.
func (t Table) Empty() bool {
	return t.NumRows() == 0
}

// Headers returns the column names in order.
func (t Table) Headers() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of the named column, or -1.
func (t Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Row returns the values of row i across all columns.
func (t Table) Row(i int) []any {
	out := make([]any, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = c.Values[i]
	}
	return out
}

// Cell returns the string form of the value at row i, column j.
func (t Table) Cell(i, j int) string {
	return FormatValue(t.Columns[j].Values[i])
}

// StringRows returns every row as formatted cell strings.
func (t Table) StringRows() [][]string {
	n := t.NumRows()
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(t.Columns))
		for j := range t.Columns {
			row[j] = t.Cell(i, j)
		}
		out[i] = row
	}
	return out
}

// Clone returns a deep copy of the column structure. Values themselves are
// treated as immutable and shared.
func (t Table) Clone() Table {
	cols := make([]Column, len(t.Columns))
	for i, c := range t.Columns {
		vals := make([]any, len(c.Values))
		copy(vals, c.Values)
		cols[i] = Column{Name: c.Name, DBType: c.DBType, Values: vals}
	}
	return Table{Columns: cols}
}

// Head returns a copy holding at most the first n rows.
func (t Table) Head(n int) Table {
	out := t.Clone()
	if n >= out.NumRows() {
		return out
	}
	for i := range out.Columns {
		out.Columns[i].Values = out.Columns[i].Values[:n]
	}
	return out
}

// FormatValue stringifies a cell value without rounding or locale formatting.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case decimal.Decimal:
		return x.String()
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// IsNumericType reports whether a driver database type name denotes a
// numeric SQL type.
func IsNumericType(dbType string) bool {
	t := strings.ToUpper(strings.TrimSpace(dbType))
	t = strings.TrimPrefix(t, "UNSIGNED ")
	switch t {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT",
		"INT2", "INT4", "INT8",
		"DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY",
		"FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "REAL":
		return true
	}
	return false
}

// IsIntegerType reports whether a numeric database type holds whole numbers.
func IsIntegerType(dbType string) bool {
	t := strings.ToUpper(strings.TrimSpace(dbType))
	t = strings.TrimPrefix(t, "UNSIGNED ")
	switch t {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT", "INT2", "INT4", "INT8":
		return true
	}
	return false
}
