package tabular

import (
	"fmt"
	"strings"
)

// FormatMarkdownTable renders query results as a markdown table with the
// columns in their original order.
func FormatMarkdownTable(columns []string, rows []map[string]any) string {
	if len(rows) == 0 {
		return "*(no results)*"
	}

	var b strings.Builder
	b.WriteString("\n| ")
	b.WriteString(strings.Join(columns, " | "))
	b.WriteString(" |\n|")
	b.WriteString(strings.Repeat("---|", len(columns)))
	b.WriteString("\n")

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			v := row[col]
			if v == nil {
				cells[i] = ""
			} else {
				cells[i] = fmt.Sprintf("%v", v)
			}
		}
		b.WriteString("| ")
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(" |\n")
	}
	return b.String()
}
