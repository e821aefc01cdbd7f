package receipt

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"printer-service/internal/layout"
	"printer-service/internal/model"
	"printer-service/pkg/driver"
)

type recordingSink struct {
	ops []string
}

func (r *recordingSink) AddText(text string) {
	r.ops = append(r.ops, "text:"+strings.TrimSuffix(text, "\n"))
}
func (r *recordingSink) AddTextAlign(a driver.Align) { r.ops = append(r.ops, "align:"+string(a)) }
func (r *recordingSink) AddTextStyle(b bool) { r.ops = append(r.ops, fmt.Sprintf("bold:%v", b)) }
func (r *recordingSink) AddTextSize(w, h int) { r.ops = append(r.ops, fmt.Sprintf("size:%dx%d", w, h)) }
func (r *recordingSink) AddFeedLine(n int) { r.ops = append(r.ops, fmt.Sprintf("feed:%d", n)) }

func (r *recordingSink) texts() []string {
	var out []string
	for _, op := range r.ops {
		if strings.HasPrefix(op, "text:") {
			out = append(out, strings.TrimPrefix(op, "text:"))
		}
	}
	return out
}

func yen(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func sampleReceipt() *model.ReceiptData {
	return &model.ReceiptData{
		Store: model.StoreInfo{Name: "コーヒー豆専門店 渋谷店", Address: "東京都渋谷区神南1-2-3", Phone: "03-1234-5678"},
		Transaction: model.TransactionInfo{
			ReceiptNumber: "R2024011500123",
			IssuedAt:      time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC),
			StaffName:     "山田",
		},
		Items: []model.LineItem{
			{Name: "ブレンドコーヒー 200g", Quantity: 2, UnitPrice: yen(1200), UnitAdjustment: yen(-100), Total: yen(2200)},
			{Name: "ドリップバッグ", Quantity: 1, UnitPrice: yen(150), Total: yen(150)},
		},
		Summary: model.Summary{
			Subtotal:       yen(2350),
			CouponDiscount: yen(-50),
			Total:          yen(2300),
			Taxes: []model.TaxBucket{
				{RateType: model.TaxReduced, Rate: 8, Taxable: yen(2150), Tax: yen(159)},
				{RateType: model.TaxStandard, Rate: 10, Taxable: yen(150), Tax: yen(13)},
			},
		},
		Payments: []model.Payment{{Method: "現金", Amount: yen(2300)}},
		Deposit:  yen(5000),
		Change:   yen(2700),
		MemberID: "M-000123",
		Points:   23,
	}
}

func TestYen(t *testing.T) {
	tests := []struct {
		in   decimal.Decimal
		want string
	}{
		{yen(0), "¥0"},
		{yen(100), "¥100"},
		{yen(1100), "¥1,100"},
		{yen(1234567), "¥1,234,567"},
		{yen(-1000), "-¥1,000"},
		{decimal.RequireFromString("99.5"), "¥100"},
	}
	for _, tt := range tests {
		if got := Yen(tt.in); got != tt.want {
			t.Errorf("Yen(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := SignedYen(yen(50)); got != "+¥50" {
		t.Errorf("SignedYen = %q", got)
	}
	if got := SignedYen(yen(-50)); got != "-¥50" {
		t.Errorf("SignedYen = %q", got)
	}
}

func TestFormatSectionOrder(t *testing.T) {
	f := NewFormatter(WithRegisterID("03"), WithLocation(time.UTC))
	sink := &recordingSink{}
	f.Format(sink, sampleReceipt())
	texts := sink.texts()

	order := []string{
		"コーヒー豆専門店 渋谷店",
		"2024年01月15日(月) 14:30",
		"レジ03",
		"品名",
		"ブレンドコーヒー 200g",
		"  @¥1,200 (-¥100)",
		"ドリップバッグ",
		"小計",
		"クーポン割引",
		"合計",
		"  (軽8%対象 ¥2,150",
		"  (10%対象 ¥150",
		"現金",
		"お預り",
		"お釣り",
		"会員番号",
		"ポイント",
		"ご来店ありがとうございました",
		"またのお越しをお待ちしております",
	}
	idx := 0
	for _, line := range texts {
		if idx < len(order) && strings.HasPrefix(line, order[idx]) {
			idx++
		}
	}
	if idx != len(order) {
		t.Fatalf("section order broken at %q\n%s", order[idx], strings.Join(texts, "\n"))
	}
}

func TestFormatLinesAreFullWidth(t *testing.T) {
	f := NewFormatter(WithLocation(time.UTC))
	sink := &recordingSink{}
	f.Format(sink, sampleReceipt())

	centered := map[string]bool{}
	for _, c := range []string{
		"コーヒー豆専門店 渋谷店",
		"東京都渋谷区神南1-2-3",
		"TEL: 03-1234-5678",
		"ご来店ありがとうございました",
		"またのお越しをお待ちしております",
	} {
		centered[c] = true
	}
	for _, line := range sink.texts() {
		if centered[line] {
			continue
		}
		if w := layout.Measure(line); w != layout.LineWidth {
			t.Errorf("line %q has width %d", line, w)
		}
	}
}

func TestFormatTransactionLine(t *testing.T) {
	f := NewFormatter(WithLocation(time.UTC))
	lines := f.Lines(sampleReceipt())
	want := layout.FormatLine("2024年01月15日(月) 14:30", "No.0123")
	found := false
	for _, l := range lines {
		if l == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("transaction line %q not found", want)
	}
	if receiptSuffix("7") != "0007" {
		t.Errorf("receiptSuffix(7) = %q", receiptSuffix("7"))
	}
}

func TestFormatTotalEmphasis(t *testing.T) {
	sink := &recordingSink{}
	NewFormatter().Format(sink, sampleReceipt())
	ops := strings.Join(sink.ops, "|")
	want := "bold:true|size:1x2|text:" + layout.FormatLine("合計", "¥2,300") + "|size:1x1|bold:false"
	if !strings.Contains(ops, want) {
		t.Fatalf("total line not emphasized: %s", ops)
	}
}

func TestFormatOmitsEmptySections(t *testing.T) {
	data := sampleReceipt()
	data.Items[0].Quantity = 1
	data.Items[0].UnitAdjustment = decimal.Zero
	data.Summary.CouponDiscount = decimal.Zero
	data.Deposit = decimal.Zero
	data.Change = decimal.Zero
	data.MemberID = ""
	data.Points = 0

	lines := strings.Join(NewFormatter().Lines(data), "\n")
	for _, absent := range []string{"@¥", "クーポン割引", "ケース割引", "お預り", "お釣り", "会員番号", "ポイント"} {
		if strings.Contains(lines, absent) {
			t.Errorf("unexpected %q in\n%s", absent, lines)
		}
	}
}

func TestFormatSecondLineForQuantity(t *testing.T) {
	data := sampleReceipt()
	data.Items = []model.LineItem{{Name: "水", Quantity: 3, UnitPrice: yen(100), Total: yen(300)}}
	lines := strings.Join(NewFormatter().Lines(data), "\n")
	if !strings.Contains(lines, "  @¥100 ") {
		t.Fatalf("missing unit price line:\n%s", lines)
	}
	if strings.Contains(lines, "(+") || strings.Contains(lines, "(-") {
		t.Fatalf("adjustment shown for zero adjustment:\n%s", lines)
	}
}

func TestFormatMemberPointsOnly(t *testing.T) {
	data := sampleReceipt()
	data.MemberID = ""
	lines := strings.Join(NewFormatter().Lines(data), "\n")
	if strings.Contains(lines, "会員番号") || !strings.Contains(lines, "23pt") {
		t.Fatalf("unexpected member section:\n%s", lines)
	}
}

func TestFormatCustomFooter(t *testing.T) {
	data := sampleReceipt()
	data.FooterMessage = "年末年始は休業します\n1/4より営業"
	lines := NewFormatter().Lines(data)
	joined := strings.Join(lines, "\n")
	if strings.Contains(joined, "ご来店ありがとうございました") {
		t.Fatal("default footer printed with custom message")
	}
	if !strings.Contains(joined, "年末年始は休業します\n1/4より営業") {
		t.Fatalf("custom footer missing:\n%s", joined)
	}
	if lines[len(lines)-1] != layout.Rule("=") {
		t.Fatalf("footer must end with a rule, got %q", lines[len(lines)-1])
	}
}

func TestFormatTaxOrderPreserved(t *testing.T) {
	data := sampleReceipt()
	data.Summary.Taxes[0], data.Summary.Taxes[1] = data.Summary.Taxes[1], data.Summary.Taxes[0]
	lines := strings.Join(NewFormatter().Lines(data), "\n")
	if strings.Index(lines, "(10%対象") > strings.Index(lines, "(軽8%対象") {
		t.Fatalf("tax buckets re-sorted:\n%s", lines)
	}
}
