package services

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/adapters/datasource"
	"github.com/insightloop/insight-engine/pkg/models"
	"github.com/insightloop/insight-engine/pkg/sql"
)

func singleCellRaw(v any) *datasource.QueryExecutionResult {
	return &datasource.QueryExecutionResult{
		Columns:  []datasource.ColumnInfo{{Name: "v", Type: "TEXT"}},
		Rows:     [][]any{{v}},
		RowCount: 1,
	}
}

func TestNormalizeCellTypes(t *testing.T) {
	normalizer := NewResultNormalizer(100, zap.NewNop())
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  any
		want models.Value
	}{
		{"nil", nil, models.NullValue()},
		{"int64", int64(42), models.IntValue(42)},
		{"int", int(7), models.IntValue(7)},
		{"int32", int32(-3), models.IntValue(-3)},
		{"int16", int16(9), models.IntValue(9)},
		{"int8", int8(1), models.IntValue(1)},
		{"uint32", uint32(10), models.IntValue(10)},
		{"float64", 3.5, models.FloatValue(3.5)},
		{"float32", float32(2), models.FloatValue(2)},
		{"string", "hello", models.StringValue("hello")},
		{"bytes", []byte("raw"), models.StringValue("raw")},
		{"bool", true, models.BoolValue(true)},
		{"time", ts, models.TimeValue(ts)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizer.Normalize(singleCellRaw(tt.raw))
			if len(result.Rows) != 1 || len(result.Rows[0]) != 1 {
				t.Fatalf("unexpected result shape: %+v", result)
			}
			if got := result.Rows[0][0]; got != tt.want {
				t.Errorf("normalized %v (%T) = %+v, want %+v", tt.raw, tt.raw, got, tt.want)
			}
			if len(result.Warnings) != 0 {
				t.Errorf("unexpected warnings: %v", result.Warnings)
			}
		})
	}
}

func TestNormalizeCoercesUnknownTypes(t *testing.T) {
	normalizer := NewResultNormalizer(100, zap.NewNop())

	type point struct{ X, Y int }
	raw := &datasource.QueryExecutionResult{
		Columns:  []datasource.ColumnInfo{{Name: "loc", Type: "POINT"}},
		Rows:     [][]any{{point{1, 2}}, {point{3, 4}}},
		RowCount: 2,
	}

	result := normalizer.Normalize(raw)

	if got := result.Rows[0][0]; got != models.StringValue("{1 2}") {
		t.Errorf("coerced value = %+v, want string {1 2}", got)
	}
	// One warning per column and type, not per row.
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", result.Warnings)
	}
	if !strings.Contains(result.Warnings[0], "coerced to string") {
		t.Errorf("unexpected warning text: %q", result.Warnings[0])
	}
	if !strings.Contains(result.Warnings[0], `"loc"`) {
		t.Errorf("warning should name the column: %q", result.Warnings[0])
	}
}

func TestNormalizeTruncatesAtCap(t *testing.T) {
	normalizer := NewResultNormalizer(2, zap.NewNop())
	raw := &datasource.QueryExecutionResult{
		Columns:  []datasource.ColumnInfo{{Name: "n", Type: "INT8"}},
		Rows:     [][]any{{int64(1)}, {int64(2)}, {int64(3)}},
		RowCount: 3,
	}

	result := normalizer.Normalize(raw)

	if result.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", result.RowCount)
	}
	if !result.Truncated {
		t.Error("Truncated should be set when rows are dropped")
	}
	if result.Rows[1][0] != models.IntValue(2) {
		t.Errorf("kept rows should be the first ones, got %+v", result.Rows)
	}
}

func TestNormalizeDefaultCap(t *testing.T) {
	normalizer := NewResultNormalizer(0, zap.NewNop())

	rows := make([][]any, sql.DefaultRowLimit+1)
	for i := range rows {
		rows[i] = []any{int64(i)}
	}
	raw := &datasource.QueryExecutionResult{
		Columns:  []datasource.ColumnInfo{{Name: "n", Type: "INT8"}},
		Rows:     rows,
		RowCount: len(rows),
	}

	result := normalizer.Normalize(raw)

	if result.RowCount != sql.DefaultRowLimit {
		t.Errorf("RowCount = %d, want %d", result.RowCount, sql.DefaultRowLimit)
	}
	if !result.Truncated {
		t.Error("Truncated should be set")
	}
}

func TestNormalizePadsShortRows(t *testing.T) {
	normalizer := NewResultNormalizer(100, zap.NewNop())
	raw := &datasource.QueryExecutionResult{
		Columns:  []datasource.ColumnInfo{{Name: "a", Type: "TEXT"}, {Name: "b", Type: "TEXT"}},
		Rows:     [][]any{{"only"}},
		RowCount: 1,
	}

	result := normalizer.Normalize(raw)

	if result.Rows[0][0] != models.StringValue("only") {
		t.Errorf("first cell = %+v", result.Rows[0][0])
	}
	if !result.Rows[0][1].IsNull() {
		t.Errorf("missing cell should normalize to null, got %+v", result.Rows[0][1])
	}
}

func TestNormalizeNilResult(t *testing.T) {
	normalizer := NewResultNormalizer(100, zap.NewNop())

	result := normalizer.Normalize(nil)

	if result == nil {
		t.Fatal("nil raw result should produce an empty result, not nil")
	}
	if result.RowCount != 0 || len(result.Columns) != 0 || len(result.Rows) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
	if result.Truncated {
		t.Error("empty result should not be truncated")
	}
}

func TestNormalizeKeepsColumnOrder(t *testing.T) {
	normalizer := NewResultNormalizer(100, zap.NewNop())
	raw := &datasource.QueryExecutionResult{
		Columns: []datasource.ColumnInfo{
			{Name: "status", Type: "TEXT"},
			{Name: "n", Type: "INT8"},
		},
		Rows:     [][]any{{"active", int64(70)}},
		RowCount: 1,
	}

	result := normalizer.Normalize(raw)

	if result.Columns[0] != "status" || result.Columns[1] != "n" {
		t.Errorf("columns = %v", result.Columns)
	}
	if result.Rows[0][1] != models.IntValue(70) {
		t.Errorf("cell order not preserved: %+v", result.Rows[0])
	}
}
