package digest

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/adapters/datasource"
)

// SchemaMaxChars is the budget for schema digests embedded in prompts.
const SchemaMaxChars = 500

// TableSchema pairs a table name with its columns for digest rendering.
type TableSchema struct {
	Name    string
	Columns []datasource.Column
}

// BuildSchema renders a compact one-line-per-table schema digest:
//
//	orders(customer_id VARCHAR, order_date TIMESTAMP, amount DOUBLE)
//
// Truncated to maxChars runes with the shared marker when it overruns.
func BuildSchema(tables []TableSchema, maxChars int) string {
	var b strings.Builder
	for i, t := range tables {
		if i > 0 {
			b.WriteByte('\n')
		}
		cols := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			cols[j] = fmt.Sprintf("%s %s", c.Name, c.DataType)
		}
		fmt.Fprintf(&b, "%s(%s)", t.Name, strings.Join(cols, ", "))
	}

	out := b.String()
	if maxChars > 0 && utf8.RuneCountInString(out) > maxChars {
		runes := []rune(out)
		out = string(runes[:maxChars]) + TruncationMarker
	}
	return out
}
