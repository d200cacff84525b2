package services

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/adapters/datasource"
	"github.com/insightloop/insight-engine/pkg/models"
	"github.com/insightloop/insight-engine/pkg/sql"
)

// ResultNormalizer converts raw adapter results into the portable value model
// the rest of the pipeline works with. Adapters already decode their
// driver-native types, so by the time a cell arrives here it is one of a
// small set of Go scalars; anything else is coerced to its string rendering
// and recorded as a warning.
type ResultNormalizer struct {
	maxRows int
	logger  *zap.Logger
}

// NewResultNormalizer creates a normalizer that caps results at maxRows. A
// non-positive cap falls back to the guard's default row limit.
func NewResultNormalizer(maxRows int, logger *zap.Logger) *ResultNormalizer {
	if maxRows <= 0 {
		maxRows = sql.DefaultRowLimit
	}
	return &ResultNormalizer{
		maxRows: maxRows,
		logger:  logger.Named("normalizer"),
	}
}

// Normalize maps every cell of the raw result onto a Value, preserving column
// order. The row cap is enforced again here even though the guard already
// bounded the statement: adapters for engines with no portable LIMIT support
// may return more. Truncated reports whether rows were dropped by either
// this cap or the adapter.
func (n *ResultNormalizer) Normalize(raw *datasource.QueryExecutionResult) *models.ExecutionResult {
	if raw == nil {
		return &models.ExecutionResult{Columns: []string{}, Rows: [][]models.Value{}}
	}

	columns := make([]string, len(raw.Columns))
	for i, c := range raw.Columns {
		columns[i] = c.Name
	}

	rowLimit := len(raw.Rows)
	truncated := false
	if rowLimit > n.maxRows {
		rowLimit = n.maxRows
		truncated = true
	}

	warned := make(map[string]bool)
	result := &models.ExecutionResult{
		Columns:   columns,
		Rows:      make([][]models.Value, 0, rowLimit),
		Truncated: truncated,
	}

	for _, rawRow := range raw.Rows[:rowLimit] {
		row := make([]models.Value, len(columns))
		for i := range columns {
			if i >= len(rawRow) {
				row[i] = models.NullValue()
				continue
			}
			row[i] = n.normalizeCell(rawRow[i], columns[i], warned, result)
		}
		result.Rows = append(result.Rows, row)
	}

	result.RowCount = len(result.Rows)
	return result
}

// normalizeCell maps one raw cell to a Value. Unknown types are stringified
// rather than dropped, with one warning per column and type pair.
func (n *ResultNormalizer) normalizeCell(v any, column string, warned map[string]bool, result *models.ExecutionResult) models.Value {
	switch tv := v.(type) {
	case nil:
		return models.NullValue()
	case int64:
		return models.IntValue(tv)
	case int:
		return models.IntValue(int64(tv))
	case int32:
		return models.IntValue(int64(tv))
	case int16:
		return models.IntValue(int64(tv))
	case int8:
		return models.IntValue(int64(tv))
	case uint32:
		return models.IntValue(int64(tv))
	case float64:
		return models.FloatValue(tv)
	case float32:
		return models.FloatValue(float64(tv))
	case string:
		return models.StringValue(tv)
	case []byte:
		return models.StringValue(string(tv))
	case bool:
		return models.BoolValue(tv)
	case time.Time:
		return models.TimeValue(tv)
	default:
		key := fmt.Sprintf("%s|%T", column, v)
		if !warned[key] {
			warned[key] = true
			warning := fmt.Sprintf("column %q: values of type %T coerced to string", column, v)
			result.Warnings = append(result.Warnings, warning)
			n.logger.Warn("Coercing unsupported value type to string",
				zap.String("column", column),
				zap.String("go_type", fmt.Sprintf("%T", v)))
		}
		return models.StringValue(fmt.Sprintf("%v", v))
	}
}
