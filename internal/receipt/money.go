// internal/receipt/money.go
package receipt

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Yen renders an amount as ¥ followed by the thousands-grouped integer value.
func Yen(d decimal.Decimal) string {
	n := d.Round(0).IntPart()
	if n < 0 {
		return "-¥" + group(-n)
	}
	return "¥" + group(n)
}

// SignedYen renders an adjustment with an explicit sign.
func SignedYen(d decimal.Decimal) string {
	if d.IsNegative() {
		return Yen(d)
	}
	return "+" + Yen(d)
}

func group(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
