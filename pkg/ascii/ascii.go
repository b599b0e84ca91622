// Package ascii lays out plain-text tables whose cells may hold accented,
// CJK or emoji names, measuring by terminal display width.
package ascii

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// StringWidth returns the display width of s.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// PadRight fills s with spaces up to width display columns.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// Truncate shortens value so that its display width fits within width. An
// ellipsis ("...") is appended when truncation occurs and there is space
// for it.
func Truncate(value string, width int) string {
	if width <= 0 {
		return ""
	}
	if StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return substringWithWidth(value, width)
	}
	return substringWithWidth(value, width-3) + "..."
}

func substringWithWidth(s string, target int) string {
	width := 0
	var sb strings.Builder
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if width+w > target {
			break
		}
		width += w
		sb.WriteRune(r)
	}
	return sb.String()
}

// Table renders rows under a header.
type Table struct {
	Header []string
	Rows   [][]string
	// MaxWidth caps every body cell; longer cells are truncated. Zero
	// means no cap.
	MaxWidth int
}

// Append adds a row.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// WriteTo prints the table with two spaces between columns. The last
// column is not padded and trailing blanks are trimmed.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = make([]string, len(r))
		for j, c := range r {
			if t.MaxWidth > 0 {
				c = Truncate(c, t.MaxWidth)
			}
			rows[i][j] = c
		}
	}

	widths := make([]int, len(t.Header))
	measure := func(row []string) {
		for i, c := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], StringWidth(c))
			}
		}
	}
	measure(t.Header)
	for _, r := range rows {
		measure(r)
	}

	var total int64
	line := func(row []string) error {
		cells := make([]string, len(row))
		for i, c := range row {
			if i < len(row)-1 && i < len(widths) {
				c = PadRight(c, widths[i])
			}
			cells[i] = c
		}
		n, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
		total += int64(n)
		return err
	}
	if err := line(t.Header); err != nil {
		return total, err
	}
	for _, r := range rows {
		if err := line(r); err != nil {
			return total, err
		}
	}
	return total, nil
}
