package models

import (
	"strings"
	"time"
)

// BusinessType is the semantic category assigned to a column, distinct from
// its raw storage type. Profiling assigns exactly one per column.
type BusinessType string

const (
	BusinessTypeNumeric    BusinessType = "numeric"
	BusinessTypeCurrency   BusinessType = "currency"
	BusinessTypePercentage BusinessType = "percentage"
	BusinessTypeCategory   BusinessType = "category"
	BusinessTypeDate       BusinessType = "date"
	BusinessTypeBoolean    BusinessType = "boolean"
	BusinessTypeIdentifier BusinessType = "identifier"
	BusinessTypeText       BusinessType = "text"
)

// ValidBusinessTypes contains all valid business type values.
var ValidBusinessTypes = []BusinessType{
	BusinessTypeNumeric,
	BusinessTypeCurrency,
	BusinessTypePercentage,
	BusinessTypeCategory,
	BusinessTypeDate,
	BusinessTypeBoolean,
	BusinessTypeIdentifier,
	BusinessTypeText,
}

// IsValidBusinessType checks if the given type is valid.
func IsValidBusinessType(t BusinessType) bool {
	for _, v := range ValidBusinessTypes {
		if v == t {
			return true
		}
	}
	return false
}

// DatasetSchema is the profiled shape of one dataset table. It is produced
// by the ingestion process, stored alongside the dataset, and read-only for
// the lifetime of a pipeline run.
type DatasetSchema struct {
	TableName string          `json:"table_name"`
	RowCount  int64           `json:"row_count"`
	Columns   []ColumnProfile `json:"columns"`
}

// ColumnProfile describes one column. Exactly one of Numeric, Categorical,
// Date is populated, matching the business type; identifier and text columns
// carry only the common fields.
type ColumnProfile struct {
	Name         string       `json:"name"`
	DataType     string       `json:"data_type"`
	BusinessType BusinessType `json:"business_type"`
	Description  string       `json:"description,omitempty"`
	Nullable     bool         `json:"nullable"`
	NullCount    int64        `json:"null_count"`
	Cardinality  int64        `json:"cardinality"`
	SampleValues []string     `json:"sample_values,omitempty"`

	Numeric     *NumericProfile     `json:"numeric,omitempty"`
	Categorical *CategoricalProfile `json:"categorical,omitempty"`
	Date        *DateProfile        `json:"date,omitempty"`
}

// NumericProfile holds statistics for numeric, currency, and percentage columns.
type NumericProfile struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// CategoricalProfile holds the value distribution for category and boolean columns.
type CategoricalProfile struct {
	TopValues []ValueCount `json:"top_values,omitempty"`
}

// ValueCount is one observed value with its occurrence count.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// DateProfile holds the observed range for date columns.
type DateProfile struct {
	MinDate time.Time `json:"min_date"`
	MaxDate time.Time `json:"max_date"`
}

// IsNumeric reports whether the column carries quantitative values.
func (c *ColumnProfile) IsNumeric() bool {
	switch c.BusinessType {
	case BusinessTypeNumeric, BusinessTypeCurrency, BusinessTypePercentage:
		return true
	}
	return false
}

// IsCategorical reports whether the column carries discrete labels.
func (c *ColumnProfile) IsCategorical() bool {
	return c.BusinessType == BusinessTypeCategory || c.BusinessType == BusinessTypeBoolean
}

// IsDate reports whether the column carries temporal values.
func (c *ColumnProfile) IsDate() bool {
	return c.BusinessType == BusinessTypeDate
}

// DisplayName returns a human-readable label derived from the column name:
// underscores become spaces and each word is capitalized.
func (c *ColumnProfile) DisplayName() string {
	words := strings.FieldsFunc(c.Name, func(r rune) bool {
		return r == '_' || r == ' '
	})
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Column returns the profile for the named column, or nil if absent.
func (s *DatasetSchema) Column(name string) *ColumnProfile {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			return &s.Columns[i]
		}
	}
	return nil
}

// NumericColumns returns the columns carrying quantitative values.
func (s *DatasetSchema) NumericColumns() []ColumnProfile {
	var out []ColumnProfile
	for _, c := range s.Columns {
		if c.IsNumeric() {
			out = append(out, c)
		}
	}
	return out
}

// CategoricalColumns returns the columns carrying discrete labels.
func (s *DatasetSchema) CategoricalColumns() []ColumnProfile {
	var out []ColumnProfile
	for _, c := range s.Columns {
		if c.IsCategorical() {
			out = append(out, c)
		}
	}
	return out
}

// DateColumns returns the columns carrying temporal values.
func (s *DatasetSchema) DateColumns() []ColumnProfile {
	var out []ColumnProfile
	for _, c := range s.Columns {
		if c.IsDate() {
			out = append(out, c)
		}
	}
	return out
}
