// internal/layout/line.go
package layout

import "strings"

// Align selects how a table cell is filled.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Column describes one cell of a fixed-width table row.
type Column struct {
	Text  string
	Width int
	Align Align
}

// PadOrTruncate fits text into exactly width columns. Longer text is cut on a
// character boundary and may come out one column short when the next
// character is full-width.
func PadOrTruncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	w := Measure(text)
	if w <= width {
		return text + strings.Repeat(" ", width-w)
	}
	return truncate(text, width)
}

// PadLeft right-aligns text within width columns. Text that already fills
// the width is returned unchanged.
func PadLeft(text string, width int) string {
	w := Measure(text)
	if w >= width {
		return text
	}
	return strings.Repeat(" ", width-w) + text
}

// FormatLine places left and right on a single LineWidth line.
func FormatLine(left, right string) string {
	return FormatLineWidth(left, right, LineWidth)
}

// FormatLineWidth places left and right on one line of total columns. When
// they do not fit, left is truncated and a fixed two-space separator is used.
func FormatLineWidth(left, right string, total int) string {
	rw := Measure(right)
	gap := total - Measure(left) - rw
	if gap >= 1 {
		return left + strings.Repeat(" ", gap) + right
	}
	return truncate(left, total-rw-2) + "  " + right
}

// FormatTableRow concatenates cells in order with no separator.
func FormatTableRow(cols []Column) string {
	var b strings.Builder
	for _, c := range cols {
		if c.Align == AlignRight {
			b.WriteString(PadLeft(c.Text, c.Width))
			continue
		}
		b.WriteString(PadOrTruncate(c.Text, c.Width))
	}
	return b.String()
}

// Rule returns a LineWidth line of ch.
func Rule(ch string) string {
	w := Measure(ch)
	if w == 0 {
		return ""
	}
	return strings.Repeat(ch, LineWidth/w)
}

func truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	var b strings.Builder
	used := 0
	for _, r := range text {
		cw := ColumnsOf(r)
		if used+cw > width {
			break
		}
		b.WriteRune(r)
		used += cw
	}
	return b.String()
}
