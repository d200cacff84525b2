package models

// ChartType is the renderer-agnostic visualization kind selected for a result.
type ChartType string

const (
	ChartKPI       ChartType = "kpi"
	ChartMetric    ChartType = "metric"
	ChartBar       ChartType = "bar"
	ChartPie       ChartType = "pie"
	ChartLine      ChartType = "line"
	ChartScatter   ChartType = "scatter"
	ChartHistogram ChartType = "histogram"
	ChartHeatmap   ChartType = "heatmap"
	ChartDashboard ChartType = "dashboard"
	ChartTable     ChartType = "table"
)

// Visualization is the complete display recommendation for one result:
// chart type, its config, narrative insights, and follow-up suggestions.
type Visualization struct {
	Type               ChartType   `json:"type"`
	Config             ChartConfig `json:"config"`
	Insights           []string    `json:"insights,omitempty"`
	RecommendedActions []string    `json:"recommended_actions,omitempty"`
}

// ChartConfig is a plain, fully materialized chart description. No field
// holds behavior; colors are resolved eagerly into flat arrays so the whole
// structure survives serialization.
type ChartConfig struct {
	Type       ChartType `json:"type"`
	Title      string    `json:"title"`
	XAxisLabel string    `json:"x_axis_label,omitempty"`
	YAxisLabel string    `json:"y_axis_label,omitempty"`

	// Categorical charts (bar, pie, line): label axis plus one or more series.
	Categories []string      `json:"categories,omitempty"`
	Series     []ChartSeries `json:"series,omitempty"`

	// Colors are assigned positionally from a fixed ordinal palette.
	Colors []string `json:"colors,omitempty"`

	// Shape-specific payloads, one populated per chart type.
	KPI    *KPIConfig     `json:"kpi,omitempty"`
	Points []ChartPoint   `json:"points,omitempty"`
	Bins   []HistogramBin `json:"bins,omitempty"`
	Matrix *MatrixConfig  `json:"matrix,omitempty"`
	Table  *TableConfig   `json:"table,omitempty"`
	Panels []ChartConfig  `json:"panels,omitempty"`
}

// ChartSeries is one named sequence of values aligned with Categories.
type ChartSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// ChartPoint is one (x, y) pair for scatter charts.
type ChartPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HistogramBin is one bucket of a histogram: the half-open range [Low, High)
// and the number of values that fell into it.
type HistogramBin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// KPIConfig is the payload for metric and kpi cards.
type KPIConfig struct {
	Value      string   `json:"value"`
	Label      string   `json:"label"`
	Subtitle   string   `json:"subtitle,omitempty"`
	Percentage *float64 `json:"percentage,omitempty"`
}

// MatrixConfig is the payload for heatmaps: row/column labels plus a dense
// value grid, row-major.
type MatrixConfig struct {
	RowLabels    []string    `json:"row_labels"`
	ColumnLabels []string    `json:"column_labels"`
	Values       [][]float64 `json:"values"`
}

// TableConfig is the payload for plain data tables: column headers plus a
// bounded number of display rows, every cell already rendered to text.
type TableConfig struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}
