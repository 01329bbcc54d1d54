package aggregate

import (
	"fmt"
	"math"

	"github.com/dailyreport/internal/table"
	"github.com/shopspring/decimal"
)

// InputShapeError reports a table that cannot be summarized.
type InputShapeError struct {
	Reason string
}

func (e *InputShapeError) Error() string {
	return "aggregate: " + e.Reason
}

// SumRow collapses t into a single row holding the sum of every numeric
// column except the key column. An empty key selects column 0. Sums are
// accumulated as arbitrary-precision decimals; NULL and NaN cells are skipped.
func SumRow(t table.Table, key string) (table.Table, error) {
	if len(t.Columns) < 2 {
		return table.Table{}, &InputShapeError{
			Reason: fmt.Sprintf("need at least 2 columns, got %d", len(t.Columns)),
		}
	}

	keyIdx := 0
	if key != "" {
		keyIdx = t.Index(key)
		if keyIdx < 0 {
			return table.Table{}, &InputShapeError{Reason: fmt.Sprintf("key column %q not found", key)}
		}
	}

	var out table.Table
	for i, col := range t.Columns {
		if i == keyIdx {
			continue
		}
		sum, ok := sumColumn(col)
		if !ok {
			continue
		}
		out.Columns = append(out.Columns, table.Column{
			Name:   col.Name,
			DBType: col.DBType,
			Values: []any{sum},
		})
	}

	if len(out.Columns) == 0 {
		return table.Table{}, &InputShapeError{Reason: "no numeric columns to sum after excluding the key column"}
	}
	return out, nil
}

// sumColumn returns the column total and whether the column is numeric.
func sumColumn(col table.Column) (decimal.Decimal, bool) {
	total := decimal.Zero
	seen := 0
	for _, v := range col.Values {
		if v == nil {
			continue
		}
		d, skip, ok := toDecimal(v)
		if !ok {
			return decimal.Zero, false
		}
		if skip {
			continue
		}
		total = total.Add(d)
		seen++
	}
	if seen == 0 && !table.IsNumericType(col.DBType) {
		return decimal.Zero, false
	}
	return total, true
}

// toDecimal converts a numeric cell. skip is set for NaN, which counts as
// missing; ok is false for anything non-numeric, including infinities.
func toDecimal(v any) (d decimal.Decimal, skip, ok bool) {
	switch x := v.(type) {
	case int:
		return decimal.NewFromInt(int64(x)), false, true
	case int8:
		return decimal.NewFromInt(int64(x)), false, true
	case int16:
		return decimal.NewFromInt(int64(x)), false, true
	case int32:
		return decimal.NewFromInt32(x), false, true
	case int64:
		return decimal.NewFromInt(x), false, true
	case uint:
		return decimal.NewFromUint64(uint64(x)), false, true
	case uint8:
		return decimal.NewFromUint64(uint64(x)), false, true
	case uint16:
		return decimal.NewFromUint64(uint64(x)), false, true
	case uint32:
		return decimal.NewFromUint64(uint64(x)), false, true
	case uint64:
		return decimal.NewFromUint64(x), false, true
	case float32:
		return fromFloat(float64(x))
	case float64:
		return fromFloat(x)
	case decimal.Decimal:
		return x, false, true
	}
	return decimal.Zero, false, false
}

func fromFloat(f float64) (decimal.Decimal, bool, bool) {
	if math.IsNaN(f) {
		return decimal.Zero, true, true
	}
	if math.IsInf(f, 0) {
		return decimal.Zero, false, false
	}
	return decimal.NewFromFloat(f), false, true
}
