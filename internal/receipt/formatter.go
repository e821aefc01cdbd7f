// internal/receipt/formatter.go
package receipt

import (
	"fmt"
	"strings"
	"time"

	"printer-service/internal/layout"
	"printer-service/internal/model"
	"printer-service/pkg/driver"
)

// Item table column widths. They add up to layout.LineWidth.
const (
	nameWidth   = 31
	qtyWidth    = 5
	amountWidth = 12
)

var (
	doubleRule = layout.Rule("=")
	singleRule = layout.Rule("-")
	weekdays   = [...]string{"日", "月", "火", "水", "木", "金", "土"}

	defaultFooter = []string{
		"ご来店ありがとうございました",
		"またのお越しをお待ちしております",
	}
)

// Sink receives formatted receipt content. driver.Builder satisfies it.
type Sink interface {
	AddText(text string)
	AddTextAlign(align driver.Align)
	AddTextStyle(emphasis bool)
	AddTextSize(width, height int)
	AddFeedLine(lines int)
}

// Formatter lays out ReceiptData on 48 column paper.
type Formatter struct {
	registerID string
	location   *time.Location
}

// Option configures a Formatter
type Option func(*Formatter)

// WithRegisterID sets the register number printed on every receipt.
func WithRegisterID(id string) Option {
	return func(f *Formatter) { f.registerID = id }
}

// WithLocation sets the time zone used for the transaction timestamp.
func WithLocation(loc *time.Location) Option {
	return func(f *Formatter) { f.location = loc }
}

// NewFormatter creates a receipt formatter
func NewFormatter(opts ...Option) *Formatter {
	f := &Formatter{registerID: "01", location: time.Local}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format writes the receipt body to s. Sections are always emitted in the
// same order; a section without data is skipped.
func (f *Formatter) Format(s Sink, data *model.ReceiptData) {
	f.header(s, &data.Store)
	f.transaction(s, &data.Transaction)
	if len(data.Items) > 0 {
		f.items(s, data.Items)
	}
	f.summary(s, &data.Summary)
	f.payments(s, data)
	if data.MemberID != "" || data.Points > 0 {
		f.member(s, data)
	}
	f.footer(s, data.FooterMessage)
}

// Lines renders the receipt as plain text lines, for previews and logs.
func (f *Formatter) Lines(data *model.ReceiptData) []string {
	rec := &lineSink{}
	f.Format(rec, data)
	return rec.lines()
}

func line(s Sink, text string) {
	s.AddText(text + "\n")
}

func (f *Formatter) header(s Sink, store *model.StoreInfo) {
	s.AddTextAlign(driver.AlignCenter)
	line(s, doubleRule)
	if store.Name != "" {
		s.AddTextStyle(true)
		line(s, store.Name)
		s.AddTextStyle(false)
	}
	if store.Address != "" {
		line(s, store.Address)
	}
	if store.Phone != "" {
		line(s, "TEL: "+store.Phone)
	}
	line(s, doubleRule)
	s.AddTextAlign(driver.AlignLeft)
}

func (f *Formatter) transaction(s Sink, tx *model.TransactionInfo) {
	line(s, layout.FormatLine(f.timestamp(tx.IssuedAt), "No."+receiptSuffix(tx.ReceiptNumber)))
	staff := ""
	if tx.StaffName != "" {
		staff = "担当: " + tx.StaffName
	}
	line(s, layout.FormatLine("レジ"+f.registerID, staff))
}

func (f *Formatter) timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(f.location)
	return fmt.Sprintf("%d年%02d月%02d日(%s) %02d:%02d",
		t.Year(), t.Month(), t.Day(), weekdays[t.Weekday()], t.Hour(), t.Minute())
}

// receiptSuffix keeps the last four characters, zero padded.
func receiptSuffix(number string) string {
	r := []rune(number)
	if len(r) >= 4 {
		return string(r[len(r)-4:])
	}
	return strings.Repeat("0", 4-len(r)) + string(r)
}

func (f *Formatter) items(s Sink, items []model.LineItem) {
	line(s, layout.FormatTableRow([]layout.Column{
		{Text: "品名", Width: nameWidth},
		{Text: "数量", Width: qtyWidth, Align: layout.AlignRight},
		{Text: "金額", Width: amountWidth, Align: layout.AlignRight},
	}))
	line(s, singleRule)
	for _, it := range items {
		line(s, layout.FormatTableRow([]layout.Column{
			{Text: it.Name, Width: nameWidth},
			{Text: fmt.Sprintf("%d", it.Quantity), Width: qtyWidth, Align: layout.AlignRight},
			{Text: Yen(it.Total), Width: amountWidth, Align: layout.AlignRight},
		}))
		if it.Quantity > 1 || !it.UnitAdjustment.IsZero() {
			detail := "  @" + Yen(it.UnitPrice)
			if !it.UnitAdjustment.IsZero() {
				detail += " (" + SignedYen(it.UnitAdjustment) + ")"
			}
			line(s, layout.PadOrTruncate(detail, layout.LineWidth))
		}
	}
	line(s, singleRule)
}

func (f *Formatter) summary(s Sink, sum *model.Summary) {
	line(s, layout.FormatLine("小計", Yen(sum.Subtotal)))
	if !sum.CaseAdjustment.IsZero() {
		line(s, layout.FormatLine("ケース割引", SignedYen(sum.CaseAdjustment)))
	}
	if !sum.CouponDiscount.IsZero() {
		line(s, layout.FormatLine("クーポン割引", SignedYen(sum.CouponDiscount)))
	}
	line(s, singleRule)

	s.AddTextStyle(true)
	s.AddTextSize(1, 2)
	line(s, layout.FormatLine("合計", Yen(sum.Total)))
	s.AddTextSize(1, 1)
	s.AddTextStyle(false)

	for _, tax := range sum.Taxes {
		mark := ""
		if tax.RateType == model.TaxReduced {
			mark = "軽"
		}
		left := fmt.Sprintf("  (%s%d%%対象 %s", mark, tax.Rate, Yen(tax.Taxable))
		line(s, layout.FormatLine(left, "内税 "+Yen(tax.Tax)+")"))
	}
}

func (f *Formatter) payments(s Sink, data *model.ReceiptData) {
	if len(data.Payments) == 0 && !data.Deposit.IsPositive() && !data.Change.IsPositive() {
		return
	}
	line(s, singleRule)
	for _, p := range data.Payments {
		line(s, layout.FormatLine(p.Method, Yen(p.Amount)))
	}
	if data.Deposit.IsPositive() {
		line(s, layout.FormatLine("お預り", Yen(data.Deposit)))
	}
	if data.Change.IsPositive() {
		line(s, layout.FormatLine("お釣り", Yen(data.Change)))
	}
}

func (f *Formatter) member(s Sink, data *model.ReceiptData) {
	line(s, singleRule)
	if data.MemberID != "" {
		line(s, layout.FormatLine("会員番号", data.MemberID))
	}
	if data.Points > 0 {
		line(s, layout.FormatLine("ポイント", fmt.Sprintf("%dpt", data.Points)))
	}
}

func (f *Formatter) footer(s Sink, message string) {
	line(s, doubleRule)
	s.AddTextAlign(driver.AlignCenter)
	msgs := defaultFooter
	if strings.TrimSpace(message) != "" {
		msgs = strings.Split(strings.TrimRight(message, "\n"), "\n")
	}
	for _, m := range msgs {
		line(s, m)
	}
	s.AddTextAlign(driver.AlignLeft)
	line(s, doubleRule)
	s.AddFeedLine(3)
}

// lineSink collects text only.
type lineSink struct {
	buf strings.Builder
}

func (l *lineSink) AddText(text string) { l.buf.WriteString(text) }
func (l *lineSink) AddTextAlign(driver.Align) {}
func (l *lineSink) AddTextStyle(bool) {}
func (l *lineSink) AddTextSize(int, int) {}
func (l *lineSink) AddFeedLine(lines int) { l.buf.WriteString(strings.Repeat("\n", lines)) }

func (l *lineSink) lines() []string {
	return strings.Split(strings.TrimRight(l.buf.String(), "\n"), "\n")
}
