// Package digest renders bounded-size textual summaries of a table's skill
// configuration for inclusion in an LLM prompt budget.
package digest

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/models"
)

// TruncationMarker is appended when the assembled digest exceeds the budget.
const TruncationMarker = "... (truncated)"

// Limits bounds the digest output.
type Limits struct {
	MaxFilters int
	MaxMetrics int
	MaxChars   int
}

// DefaultLimits returns the standard prompt budget for a skill digest.
func DefaultLimits() Limits {
	return Limits{
		MaxFilters: 5,
		MaxMetrics: 8,
		MaxChars:   2000,
	}
}

// Build renders the skill configuration as a human-readable block. The field
// mapping is always included in full; filters and metrics are cut at the
// Top-N/Top-K limit in their original order with a "+K more..." summary for
// the remainder. The final string is hard-truncated to MaxChars with a
// marker appended if truncation occurred. Truncation operates on the whole
// assembled string, not per section, so an oversized field mapping can
// starve the later sections.
func Build(cfg models.SkillConfig, lim Limits) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Table: %s\n", cfg.TableName)

	if len(cfg.FieldMapping) > 0 {
		b.WriteString("Field mapping:\n")
		roles := make([]string, 0, len(cfg.FieldMapping))
		for role := range cfg.FieldMapping {
			roles = append(roles, role)
		}
		sort.Strings(roles)
		for _, role := range roles {
			fmt.Fprintf(&b, "  %s -> %s\n", role, cfg.FieldMapping[role])
		}
	}

	if len(cfg.Filters) > 0 {
		b.WriteString("Default filters:\n")
		shown := cfg.Filters
		if lim.MaxFilters > 0 && len(shown) > lim.MaxFilters {
			shown = shown[:lim.MaxFilters]
		}
		for _, f := range shown {
			fmt.Fprintf(&b, "  - %s\n", describeFilter(f))
		}
		if rest := len(cfg.Filters) - len(shown); rest > 0 {
			fmt.Fprintf(&b, "  +%d more...\n", rest)
		}
	}

	if len(cfg.Metrics) > 0 {
		b.WriteString("Metrics:\n")
		shown := cfg.Metrics
		if lim.MaxMetrics > 0 && len(shown) > lim.MaxMetrics {
			shown = shown[:lim.MaxMetrics]
		}
		for _, m := range shown {
			fmt.Fprintf(&b, "  - %s\n", describeMetric(m))
		}
		if rest := len(cfg.Metrics) - len(shown); rest > 0 {
			fmt.Fprintf(&b, "  +%d more...\n", rest)
		}
	}

	out := b.String()
	if lim.MaxChars > 0 && utf8.RuneCountInString(out) > lim.MaxChars {
		runes := []rune(out)
		out = string(runes[:lim.MaxChars]) + TruncationMarker
	}
	return out
}

// CheckBudget reports whether a digest fits the character limit.
func CheckBudget(digest string, limit int) bool {
	return utf8.RuneCountInString(digest) <= limit
}

// describeFilter renders a filter declaratively for prompt consumption.
// This is a description, not compiled SQL; the digest never runs the
// compiler.
func describeFilter(f models.FilterExpr) string {
	if rt, ok := f.Value.(*models.RelativeTimeValue); ok {
		when := "last"
		if rt.Direction == models.DirectionFuture {
			when = "next"
		}
		return fmt.Sprintf("%s within %s %d %s(s)", f.Column, when, rt.Amount, rt.Unit)
	}
	return fmt.Sprintf("%s %s %v", f.Column, f.Op, f.Value)
}

func describeMetric(m models.MetricDefinition) string {
	arg := m.Column
	if m.Aggregation == models.AggCount {
		arg = "*"
	}
	desc := fmt.Sprintf("%s: %s(%s)", m.Label, m.Aggregation, arg)
	if len(m.Where) > 0 {
		desc += fmt.Sprintf(" [%d condition(s)]", len(m.Where))
	}
	return desc
}
