package models

import (
	"encoding/json"
	"fmt"
)

// Operator is the closed set of filter operators the SQL compiler accepts.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
	OpContains     Operator = "contains"
)

// IsComparison reports whether the operator is one of the six scalar
// comparison operators. Relative-time filters accept only these.
func (o Operator) IsComparison() bool {
	switch o {
	case OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		return true
	}
	return false
}

// TimeUnit is a calendar unit for relative-time filters.
type TimeUnit string

const (
	UnitDay     TimeUnit = "day"
	UnitWeek    TimeUnit = "week"
	UnitMonth   TimeUnit = "month"
	UnitQuarter TimeUnit = "quarter"
	UnitYear    TimeUnit = "year"
)

// Valid reports whether the unit is one the compiler can render.
func (u TimeUnit) Valid() bool {
	switch u {
	case UnitDay, UnitWeek, UnitMonth, UnitQuarter, UnitYear:
		return true
	}
	return false
}

// TimeDirection selects which side of now a relative-time window covers.
type TimeDirection string

const (
	DirectionPast   TimeDirection = "past"
	DirectionFuture TimeDirection = "future"
)

// RelativeTimeValue represents "N units ago/hence" relative to evaluation
// time. It is always resolved against CURRENT_TIMESTAMP in generated SQL,
// never materialized into a literal date.
type RelativeTimeValue struct {
	Kind      string        `json:"kind"` // always "relative_time"
	Unit      TimeUnit      `json:"unit"`
	Amount    int           `json:"amount"`
	Direction TimeDirection `json:"direction"`
}

// FilterExpr is one atomic filter condition. Value holds either a literal
// (string, number, bool, or array of those) or a *RelativeTimeValue.
type FilterExpr struct {
	Column string   `json:"column"`
	Op     Operator `json:"op"`
	Value  any      `json:"value"`
}

// UnmarshalJSON decodes the value field, recognizing relative-time objects
// by their kind discriminator so they survive as *RelativeTimeValue rather
// than a generic map.
func (f *FilterExpr) UnmarshalJSON(data []byte) error {
	type raw struct {
		Column string          `json:"column"`
		Op     Operator        `json:"op"`
		Value  json.RawMessage `json:"value"`
	}
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	f.Column = r.Column
	f.Op = r.Op
	if len(r.Value) == 0 {
		return nil
	}

	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(r.Value, &probe); err == nil && probe.Kind == "relative_time" {
		var rt RelativeTimeValue
		if err := json.Unmarshal(r.Value, &rt); err != nil {
			return fmt.Errorf("decode relative_time value: %w", err)
		}
		f.Value = &rt
		return nil
	}

	var v any
	if err := json.Unmarshal(r.Value, &v); err != nil {
		return err
	}
	f.Value = v
	return nil
}

// Aggregation is the closed set of metric aggregation kinds.
type Aggregation string

const (
	AggCount         Aggregation = "count"
	AggCountDistinct Aggregation = "count_distinct"
	AggSum           Aggregation = "sum"
	AggAvg           Aggregation = "avg"
	AggMin           Aggregation = "min"
	AggMax           Aggregation = "max"
)

// RequiresColumn reports whether the aggregation needs a column argument.
// Only plain count operates without one.
func (a Aggregation) RequiresColumn() bool {
	return a != AggCount
}

// Valid reports whether the aggregation is a known kind.
func (a Aggregation) Valid() bool {
	switch a {
	case AggCount, AggCountDistinct, AggSum, AggAvg, AggMin, AggMax:
		return true
	}
	return false
}

// MetricDefinition is one named aggregation over the table.
type MetricDefinition struct {
	Name        string       `json:"name"`
	Label       string       `json:"label"`
	Aggregation Aggregation  `json:"aggregation"`
	Column      string       `json:"column,omitempty"`
	Where       []FilterExpr `json:"where,omitempty"`
}

// MetricSet is an ordered collection of metric definitions. Order is the
// user's insertion order and is significant for Top-K truncation.
type MetricSet []MetricDefinition

// Lookup returns the definition with the given name.
func (s MetricSet) Lookup(name string) (MetricDefinition, bool) {
	for _, m := range s {
		if m.Name == name {
			return m, true
		}
	}
	return MetricDefinition{}, false
}

// MetricSource identifies where an effective metric definition came from
// when system defaults and user overrides are merged.
type MetricSource string

const (
	MetricSourceUser   MetricSource = "user"
	MetricSourceSystem MetricSource = "system"
	MetricSourceNone   MetricSource = "none"
)

// FieldMapping maps semantic roles to physical column names for one table.
type FieldMapping map[string]string

// SkillConfig is the per-table user configuration: field mapping, default
// filters, and metric overrides. Injected into LLM prompts as a digest.
type SkillConfig struct {
	TableName    string       `json:"table_name"`
	FieldMapping FieldMapping `json:"field_mapping,omitempty"`
	Filters      []FilterExpr `json:"filters,omitempty"`
	Metrics      MetricSet    `json:"metrics,omitempty"`
}
