package table

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewAndAccessors(t *testing.T) {
	tbl := New([]string{"ShipDate", "LocA", "LocB"}, [][]any{
		{"2024-01-01", 3, 5},
		{"2024-01-02", 2},
	})

	if got := tbl.NumRows(); got != 2 {
		t.Fatalf("NumRows() = %d, want 2", got)
	}
	if got := tbl.Headers(); !reflect.DeepEqual(got, []string{"ShipDate", "LocA", "LocB"}) {
		t.Errorf("Headers() = %v", got)
	}
	if got := tbl.Index("LocB"); got != 2 {
		t.Errorf("Index(LocB) = %d, want 2", got)
	}
	if got := tbl.Index("missing"); got != -1 {
		t.Errorf("Index(missing) = %d, want -1", got)
	}
	if got := tbl.Row(1)[2]; got != nil {
		t.Errorf("short row should be padded with nil, got %v", got)
	}
	if got := tbl.Cell(0, 1); got != "3" {
		t.Errorf("Cell(0,1) = %q, want 3", got)
	}
}

func TestEmptyTable(t *testing.T) {
	if !(Table{}).Empty() {
		t.Error("zero table should be empty")
	}
	tbl := New([]string{"a", "b"}, nil)
	if !tbl.Empty() {
		t.Error("table without rows should be empty")
	}
	if len(tbl.Columns) != 2 {
		t.Errorf("columns should survive an empty result, got %d", len(tbl.Columns))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := New([]string{"a"}, [][]any{{1}, {2}})
	cp := orig.Clone()
	cp.Columns[0].Values[0] = 99
	cp.Columns[0].Name = "changed"

	if orig.Columns[0].Values[0] != 1 || orig.Columns[0].Name != "a" {
		t.Errorf("clone mutated original: %+v", orig)
	}
}

func TestHead(t *testing.T) {
	tbl := New([]string{"a"}, [][]any{{1}, {2}, {3}})
	if got := tbl.Head(2).NumRows(); got != 2 {
		t.Errorf("Head(2) rows = %d", got)
	}
	if got := tbl.Head(10).NumRows(); got != 3 {
		t.Errorf("Head(10) rows = %d", got)
	}
	if tbl.NumRows() != 3 {
		t.Error("Head must not shrink the source table")
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "Loc A", "Loc A"},
		{"bytes", []byte("raw"), "raw"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"float", 2.5, "2.5"},
		{"float whole", 3.0, "3"},
		{"decimal", decimal.RequireFromString("10.250"), "10.25"},
		{"date", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "2024-01-02"},
		{"datetime", time.Date(2024, 1, 2, 13, 4, 5, 0, time.UTC), "2024-01-02 13:04:05"},
		{"bool", true, "true"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatValue(tc.in); got != tc.want {
				t.Errorf("FormatValue(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestIsNumericType(t *testing.T) {
	for _, typ := range []string{"INT", "bigint", "DECIMAL", "UNSIGNED BIGINT", "FLOAT8", "money"} {
		if !IsNumericType(typ) {
			t.Errorf("IsNumericType(%q) = false, want true", typ)
		}
	}
	for _, typ := range []string{"", "VARCHAR", "DATE", "INTERVAL", "POINT", "BIT"} {
		if IsNumericType(typ) {
			t.Errorf("IsNumericType(%q) = true, want false", typ)
		}
	}
}
