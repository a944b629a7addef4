// Package output renders usage reports as terminal tables.
package output

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatNumber renders an integer with thousands separators.
func FormatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// FormatCost renders a USD amount with four decimal places.
func FormatCost(c decimal.Decimal) string {
	return "$" + c.StringFixed(4)
}

var modelNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^claude-`),
	regexp.MustCompile(`-\d{8}$`),
}

// ShortenModelName trims the vendor prefix and date suffix for narrow
// columns: "claude-sonnet-4-20250514" becomes "sonnet-4".
func ShortenModelName(name string) string {
	for _, re := range modelNamePatterns {
		name = re.ReplaceAllString(name, "")
	}
	return name
}

// Width returns the usable terminal width, honoring COLUMNS.
func Width() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 120
}

// Table accumulates rows and renders them with aligned columns.
type Table struct {
	headers []string
	rows    [][]string
	rightAl []bool
}

// NewTable starts a table. rightAlign marks which columns align right
// (numbers); missing entries default to left.
func NewTable(headers []string, rightAlign ...bool) *Table {
	return &Table{headers: headers, rightAl: rightAlign}
}

// AddRow appends one row; short rows are padded.
func (t *Table) AddRow(cells ...string) {
	for len(cells) < len(t.headers) {
		cells = append(cells, "")
	}
	t.rows = append(t.rows, cells)
}

// Render writes the table as a string.
func (t *Table) Render() string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			if i < len(t.rightAl) && t.rightAl[i] {
				fmt.Fprintf(&b, "%*s", widths[i], cell)
			} else {
				fmt.Fprintf(&b, "%-*s", widths[i], cell)
			}
		}
		b.WriteByte('\n')
	}

	writeRow(t.headers)
	for i, w := range widths {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(strings.Repeat("-", w))
	}
	b.WriteByte('\n')
	for _, row := range t.rows {
		writeRow(row)
	}
	return b.String()
}
