// internal/layout/width.go
package layout

// Column counts used by the 80 mm receipt layout.
const (
	// LineWidth is the number of half-width columns on 80 mm paper.
	LineWidth = 48
)

// wideRanges lists the code point blocks printed at double width.
var wideRanges = [...]struct{ lo, hi rune }{
	{0x3000, 0x303F}, // CJK symbols and punctuation
	{0x3040, 0x309F}, // hiragana
	{0x30A0, 0x30FF}, // katakana
	{0x4E00, 0x9FFF}, // CJK unified ideographs
	{0xFF00, 0xFF60}, // fullwidth ASCII variants
	{0xFFE0, 0xFFE6}, // fullwidth signs
}

// ColumnsOf returns the number of print columns r occupies: 2 for
// full-width CJK characters, 1 for everything else.
func ColumnsOf(r rune) int {
	for _, rg := range wideRanges {
		if r >= rg.lo && r <= rg.hi {
			return 2
		}
	}
	return 1
}

// Measure returns the printed width of s in columns.
func Measure(s string) int {
	n := 0
	for _, r := range s {
		n += ColumnsOf(r)
	}
	return n
}
