package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/insightloop/insight-engine/pkg/models"
)

// chartPalette is the fixed ordinal palette. Colors are assigned by position
// and repeat when a chart has more elements than the palette has entries.
var chartPalette = []string{
	"#3498db", "#e74c3c", "#2ecc71", "#f39c12", "#9b59b6", "#1abc9c", "#34495e",
}

const (
	barCategoryLimit  = 20
	pieCategoryLimit  = 10
	lineSeriesLimit   = 3
	tableDisplayRows  = 50
	histogramBinLimit = 20
	heatmapColumnMax  = 5
)

// BuildChartConfig materializes the full chart description for the selected
// type. It is a pure function of its inputs: labels come from column display
// names, values from the normalized result, colors from the fixed palette.
// A type whose data requirements turn out unmet degrades to a table config
// rather than returning an empty chart.
func BuildChartConfig(chartType models.ChartType, question string, result *models.ExecutionResult, schema *models.DatasetSchema) models.ChartConfig {
	shape := analyzeResult(result, schema)

	switch chartType {
	case models.ChartKPI:
		return buildKPIConfig(question, result, shape)
	case models.ChartMetric:
		return buildMetricConfig(result, shape)
	case models.ChartBar:
		return buildBarConfig(result, shape)
	case models.ChartPie:
		return buildPieConfig(result, shape)
	case models.ChartLine:
		return buildLineConfig(result, shape)
	case models.ChartScatter:
		return buildScatterConfig(result, shape)
	case models.ChartHistogram:
		return buildHistogramConfig(result, shape)
	case models.ChartHeatmap:
		return buildHeatmapConfig(result, shape)
	case models.ChartDashboard:
		return buildDashboardConfig(question, result, shape)
	default:
		return buildTableConfig(result, shape)
	}
}

// buildKPIConfig renders a single headline number. Count questions about
// "active" records compute the active share from a status column; otherwise
// a lone numeric cell is the value, and failing that the row count is.
func buildKPIConfig(question string, result *models.ExecutionResult, shape resultShape) models.ChartConfig {
	q := strings.ToLower(question)

	if strings.Contains(q, "active") {
		if col, ok := statusColumn(result, shape); ok {
			total := result.RowCount
			active := 0
			for _, v := range result.ColumnValues(col.Name) {
				if strings.EqualFold(v.String(), "active") {
					active++
				}
			}
			var pct *float64
			if total > 0 {
				p := round1(float64(active) / float64(total) * 100)
				pct = &p
			}
			return models.ChartConfig{
				Type:  models.ChartKPI,
				Title: "Active Count",
				KPI: &models.KPIConfig{
					Value:      fmt.Sprintf("%d", active),
					Label:      "Active Users",
					Subtitle:   fmt.Sprintf("out of %d total", total),
					Percentage: pct,
				},
			}
		}
	}

	if result != nil && result.RowCount == 1 && len(result.Columns) == 1 {
		cell := result.Rows[0][0]
		if _, ok := cell.AsFloat(); ok {
			return models.ChartConfig{
				Type:  models.ChartKPI,
				Title: shape.Columns[0].Display,
				KPI: &models.KPIConfig{
					Value: cell.String(),
					Label: shape.Columns[0].Display,
				},
			}
		}
	}

	rowCount := 0
	if result != nil {
		rowCount = result.RowCount
	}
	return models.ChartConfig{
		Type:  models.ChartKPI,
		Title: "Total Records",
		KPI: &models.KPIConfig{
			Value:    fmt.Sprintf("%d", rowCount),
			Label:    "Total Records",
			Subtitle: "in dataset",
		},
	}
}

// statusColumn locates the column whose values carry an active/inactive
// marker. A column named like "status" wins; otherwise the first column
// that actually contains the value "active".
func statusColumn(result *models.ExecutionResult, shape resultShape) (columnShape, bool) {
	if result == nil {
		return columnShape{}, false
	}
	for _, col := range shape.Columns {
		if strings.Contains(strings.ToLower(col.Name), "status") {
			return col, true
		}
	}
	for _, col := range shape.Columns {
		for _, v := range result.ColumnValues(col.Name) {
			if strings.EqualFold(v.String(), "active") {
				return col, true
			}
		}
	}
	return columnShape{}, false
}

func buildMetricConfig(result *models.ExecutionResult, shape resultShape) models.ChartConfig {
	if result != nil && result.RowCount == 1 && len(result.Columns) == 1 {
		return models.ChartConfig{
			Type:  models.ChartMetric,
			Title: shape.Columns[0].Display,
			KPI: &models.KPIConfig{
				Value: result.Rows[0][0].String(),
				Label: shape.Columns[0].Display,
			},
		}
	}

	if len(shape.Numeric) > 0 && result != nil && result.RowCount > 0 {
		col := shape.Numeric[0]
		values := result.ColumnValues(col.Name)
		if len(values) > 0 {
			return models.ChartConfig{
				Type:  models.ChartMetric,
				Title: col.Display,
				KPI: &models.KPIConfig{
					Value: values[0].String(),
					Label: col.Display,
				},
			}
		}
	}

	rowCount := 0
	if result != nil {
		rowCount = result.RowCount
	}
	return models.ChartConfig{
		Type:  models.ChartMetric,
		Title: "Total Records",
		KPI: &models.KPIConfig{
			Value: fmt.Sprintf("%d", rowCount),
			Label: "Total Records",
		},
	}
}

// buildBarConfig groups the first categorical column. With a numeric column
// present the bars carry its per-category sum; without one they carry plain
// occurrence counts. Categories are sorted by descending value, ties keeping
// first-seen order, and capped.
func buildBarConfig(result *models.ExecutionResult, shape resultShape) models.ChartConfig {
	if len(shape.Categorical) == 0 {
		return buildTableConfig(result, shape)
	}
	catCol := shape.Categorical[0]

	if len(shape.Numeric) > 0 {
		numCol := shape.Numeric[0]
		labels, values := groupSum(result, catCol, numCol)
		labels, values = topByValue(labels, values, barCategoryLimit)
		return models.ChartConfig{
			Type:       models.ChartBar,
			Title:      fmt.Sprintf("%s by %s", numCol.Display, catCol.Display),
			XAxisLabel: catCol.Display,
			YAxisLabel: numCol.Display,
			Categories: labels,
			Series:     []models.ChartSeries{{Name: numCol.Display, Values: values}},
			Colors:     paletteColors(len(labels)),
		}
	}

	labels, counts := valueCounts(result, catCol)
	labels, counts = topByValue(labels, counts, barCategoryLimit)
	return models.ChartConfig{
		Type:       models.ChartBar,
		Title:      fmt.Sprintf("Count by %s", catCol.Display),
		XAxisLabel: catCol.Display,
		YAxisLabel: "Count",
		Categories: labels,
		Series:     []models.ChartSeries{{Name: "Count", Values: counts}},
		Colors:     paletteColors(len(labels)),
	}
}

func buildPieConfig(result *models.ExecutionResult, shape resultShape) models.ChartConfig {
	if len(shape.Categorical) == 0 {
		return buildTableConfig(result, shape)
	}
	catCol := shape.Categorical[0]

	var labels []string
	var values []float64
	if len(shape.Numeric) > 0 {
		labels, values = groupSum(result, catCol, shape.Numeric[0])
	} else {
		labels, values = valueCounts(result, catCol)
	}
	labels, values = topByValue(labels, values, pieCategoryLimit)

	return models.ChartConfig{
		Type:       models.ChartPie,
		Title:      fmt.Sprintf("Distribution of %s", catCol.Display),
		Categories: labels,
		Series:     []models.ChartSeries{{Name: catCol.Display, Values: values}},
		Colors:     paletteColors(len(labels)),
	}
}

// buildLineConfig plots numeric columns over the first date column. Rows are
// ordered by date and up to three numeric series are drawn.
func buildLineConfig(result *models.ExecutionResult, shape resultShape) models.ChartConfig {
	if len(shape.Dates) == 0 || len(shape.Numeric) == 0 || result == nil {
		return buildTableConfig(result, shape)
	}
	dateCol := shape.Dates[0]
	dateIdx := result.ColumnIndex(dateCol.Name)
	if dateIdx < 0 {
		return buildTableConfig(result, shape)
	}

	order := make([]int, 0, len(result.Rows))
	for i, row := range result.Rows {
		if dateIdx < len(row) && !row[dateIdx].IsNull() {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := result.Rows[order[a]][dateIdx], result.Rows[order[b]][dateIdx]
		if va.Kind == models.ValueTimestamp && vb.Kind == models.ValueTimestamp {
			return va.Ts.Before(vb.Ts)
		}
		return va.String() < vb.String()
	})

	categories := make([]string, len(order))
	for i, rowIdx := range order {
		categories[i] = result.Rows[rowIdx][dateIdx].String()
	}

	numericCols := shape.Numeric
	if len(numericCols) > lineSeriesLimit {
		numericCols = numericCols[:lineSeriesLimit]
	}
	series := make([]models.ChartSeries, 0, len(numericCols))
	for _, col := range numericCols {
		idx := result.ColumnIndex(col.Name)
		if idx < 0 {
			continue
		}
		values := make([]float64, len(order))
		for i, rowIdx := range order {
			if f, ok := result.Rows[rowIdx][idx].AsFloat(); ok {
				values[i] = f
			}
		}
		series = append(series, models.ChartSeries{Name: col.Display, Values: values})
	}

	yLabel := "Value"
	if len(series) == 1 {
		yLabel = series[0].Name
	}
	return models.ChartConfig{
		Type:       models.ChartLine,
		Title:      "Trends Over Time",
		XAxisLabel: dateCol.Display,
		YAxisLabel: yLabel,
		Categories: categories,
		Series:     series,
		Colors:     paletteColors(len(series)),
	}
}

func buildScatterConfig(result *models.ExecutionResult, shape resultShape) models.ChartConfig {
	if len(shape.Numeric) < 2 || result == nil {
		return buildTableConfig(result, shape)
	}
	xCol, yCol := shape.Numeric[0], shape.Numeric[1]
	xIdx, yIdx := result.ColumnIndex(xCol.Name), result.ColumnIndex(yCol.Name)
	if xIdx < 0 || yIdx < 0 {
		return buildTableConfig(result, shape)
	}

	points := make([]models.ChartPoint, 0, len(result.Rows))
	for _, row := range result.Rows {
		if xIdx >= len(row) || yIdx >= len(row) {
			continue
		}
		x, okX := row[xIdx].AsFloat()
		y, okY := row[yIdx].AsFloat()
		if okX && okY {
			points = append(points, models.ChartPoint{X: x, Y: y})
		}
	}

	return models.ChartConfig{
		Type:       models.ChartScatter,
		Title:      fmt.Sprintf("%s vs %s", yCol.Display, xCol.Display),
		XAxisLabel: xCol.Display,
		YAxisLabel: yCol.Display,
		Points:     points,
		Colors:     paletteColors(1),
	}
}

// buildHistogramConfig bins the first numeric column into equal-width
// buckets. The bin count scales with the value count, capped at twenty.
func buildHistogramConfig(result *models.ExecutionResult, shape resultShape) models.ChartConfig {
	if len(shape.Numeric) == 0 || result == nil {
		return buildTableConfig(result, shape)
	}
	col := shape.Numeric[0]

	values := make([]float64, 0, result.RowCount)
	for _, v := range result.ColumnValues(col.Name) {
		if f, ok := v.AsFloat(); ok {
			values = append(values, f)
		}
	}
	if len(values) == 0 {
		return buildTableConfig(result, shape)
	}

	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	config := models.ChartConfig{
		Type:       models.ChartHistogram,
		Title:      fmt.Sprintf("Distribution of %s", col.Display),
		XAxisLabel: col.Display,
		YAxisLabel: "Frequency",
		Colors:     paletteColors(1),
	}

	if min == max {
		config.Bins = []models.HistogramBin{{Low: min, High: max, Count: len(values)}}
		return config
	}

	binCount := len(values)/5 + 1
	if binCount > histogramBinLimit {
		binCount = histogramBinLimit
	}
	width := (max - min) / float64(binCount)
	bins := make([]models.HistogramBin, binCount)
	for i := range bins {
		bins[i] = models.HistogramBin{
			Low:  min + float64(i)*width,
			High: min + float64(i+1)*width,
		}
	}
	for _, v := range values {
		idx := int((v - min) / width)
		if idx >= binCount {
			idx = binCount - 1
		}
		bins[idx].Count++
	}
	config.Bins = bins
	return config
}

// buildHeatmapConfig renders the pairwise correlation matrix of the numeric
// columns, at most five of them.
func buildHeatmapConfig(result *models.ExecutionResult, shape resultShape) models.ChartConfig {
	if len(shape.Numeric) < 2 || result == nil {
		return buildTableConfig(result, shape)
	}
	cols := shape.Numeric
	if len(cols) > heatmapColumnMax {
		cols = cols[:heatmapColumnMax]
	}

	labels := make([]string, len(cols))
	series := make([][]float64, len(cols))
	for i, col := range cols {
		labels[i] = col.Display
		idx := result.ColumnIndex(col.Name)
		values := make([]float64, 0, len(result.Rows))
		for _, row := range result.Rows {
			if idx >= 0 && idx < len(row) {
				if f, ok := row[idx].AsFloat(); ok {
					values = append(values, f)
					continue
				}
			}
			values = append(values, math.NaN())
		}
		series[i] = values
	}

	grid := make([][]float64, len(cols))
	for i := range cols {
		grid[i] = make([]float64, len(cols))
		for j := range cols {
			grid[i][j] = round2(pearson(series[i], series[j]))
		}
	}

	return models.ChartConfig{
		Type:   models.ChartHeatmap,
		Title:  "Correlation Matrix",
		Matrix: &models.MatrixConfig{RowLabels: labels, ColumnLabels: labels, Values: grid},
	}
}

// pearson computes the correlation of two aligned samples, skipping pairs
// where either side is missing. Degenerate inputs yield 0.
func pearson(xs, ys []float64) float64 {
	var n float64
	var sumX, sumY float64
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		n++
		sumX += xs[i]
		sumY += ys[i]
	}
	if n < 2 {
		return 0
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// buildDashboardConfig composes a small panel set: the headline KPI, plus a
// bar and a line panel when the shape supports them, falling back to a table
// panel when neither does.
func buildDashboardConfig(question string, result *models.ExecutionResult, shape resultShape) models.ChartConfig {
	panels := []models.ChartConfig{buildKPIConfig(question, result, shape)}

	if len(shape.Categorical) > 0 {
		panels = append(panels, buildBarConfig(result, shape))
	}
	if len(shape.Dates) > 0 && len(shape.Numeric) > 0 {
		panels = append(panels, buildLineConfig(result, shape))
	}
	if len(panels) == 1 {
		panels = append(panels, buildTableConfig(result, shape))
	}

	return models.ChartConfig{
		Type:   models.ChartDashboard,
		Title:  "Overview",
		Panels: panels,
	}
}

func buildTableConfig(result *models.ExecutionResult, shape resultShape) models.ChartConfig {
	columns := make([]string, len(shape.Columns))
	for i, col := range shape.Columns {
		columns[i] = col.Display
	}

	var rows [][]string
	if result != nil {
		limit := len(result.Rows)
		if limit > tableDisplayRows {
			limit = tableDisplayRows
		}
		rows = make([][]string, 0, limit)
		for _, row := range result.Rows[:limit] {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = v.String()
			}
			rows = append(rows, cells)
		}
	}

	return models.ChartConfig{
		Type:  models.ChartTable,
		Title: "Data Table",
		Table: &models.TableConfig{Columns: columns, Rows: rows},
	}
}

// groupSum sums the numeric column per category value, in first-seen
// category order. Rows with a null category are skipped.
func groupSum(result *models.ExecutionResult, catCol, numCol columnShape) ([]string, []float64) {
	if result == nil {
		return nil, nil
	}
	catIdx := result.ColumnIndex(catCol.Name)
	numIdx := result.ColumnIndex(numCol.Name)
	if catIdx < 0 || numIdx < 0 {
		return nil, nil
	}

	var labels []string
	sums := make(map[string]float64)
	for _, row := range result.Rows {
		if catIdx >= len(row) || numIdx >= len(row) || row[catIdx].IsNull() {
			continue
		}
		label := row[catIdx].String()
		if _, seen := sums[label]; !seen {
			labels = append(labels, label)
			sums[label] = 0
		}
		if f, ok := row[numIdx].AsFloat(); ok {
			sums[label] += f
		}
	}

	values := make([]float64, len(labels))
	for i, label := range labels {
		values[i] = sums[label]
	}
	return labels, values
}

// valueCounts counts occurrences of each category value, in first-seen order.
func valueCounts(result *models.ExecutionResult, catCol columnShape) ([]string, []float64) {
	if result == nil {
		return nil, nil
	}
	idx := result.ColumnIndex(catCol.Name)
	if idx < 0 {
		return nil, nil
	}

	var labels []string
	counts := make(map[string]float64)
	for _, row := range result.Rows {
		if idx >= len(row) || row[idx].IsNull() {
			continue
		}
		label := row[idx].String()
		if _, seen := counts[label]; !seen {
			labels = append(labels, label)
		}
		counts[label]++
	}

	values := make([]float64, len(labels))
	for i, label := range labels {
		values[i] = counts[label]
	}
	return labels, values
}

// topByValue keeps the highest-valued entries, stable so equal values retain
// their first-seen order.
func topByValue(labels []string, values []float64, limit int) ([]string, []float64) {
	order := make([]int, len(labels))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})
	if len(order) > limit {
		order = order[:limit]
	}

	outLabels := make([]string, len(order))
	outValues := make([]float64, len(order))
	for i, idx := range order {
		outLabels[i] = labels[idx]
		outValues[i] = values[idx]
	}
	return outLabels, outValues
}

func paletteColors(n int) []string {
	if n <= 0 {
		return nil
	}
	colors := make([]string, n)
	for i := range colors {
		colors[i] = chartPalette[i%len(chartPalette)]
	}
	return colors
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
