// internal/model/receipt.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptData is supplied by the caller and only read by the formatter.
type ReceiptData struct {
	Store         StoreInfo       `json:"store"`
	Transaction   TransactionInfo `json:"transaction"`
	Items         []LineItem      `json:"items"`
	Summary       Summary         `json:"summary"`
	Payments      []Payment       `json:"payments"`
	Deposit       decimal.Decimal `json:"deposit"`
	Change        decimal.Decimal `json:"change"`
	MemberID      string          `json:"member_id,omitempty"`
	Points        int             `json:"points,omitempty"`
	FooterMessage string          `json:"footer_message,omitempty"`
}

type StoreInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type TransactionInfo struct {
	ReceiptNumber string    `json:"receipt_number"`
	IssuedAt      time.Time `json:"issued_at"`
	StaffName     string    `json:"staff_name"`
}

// LineItem is one row of the item table. UnitAdjustment is the signed
// per-unit price change (negative for discounts).
type LineItem struct {
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	UnitAdjustment decimal.Decimal `json:"unit_adjustment"`
	Total          decimal.Decimal `json:"total"`
}

// TaxRateType distinguishes the standard and reduced consumption tax rates.
type TaxRateType string

const (
	TaxStandard TaxRateType = "standard"
	TaxReduced  TaxRateType = "reduced"
)

type TaxBucket struct {
	RateType TaxRateType     `json:"rate_type"`
	Rate     int             `json:"rate"`
	Taxable  decimal.Decimal `json:"taxable"`
	Tax      decimal.Decimal `json:"tax"`
}

type Summary struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	CaseAdjustment decimal.Decimal `json:"case_adjustment"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	Total          decimal.Decimal `json:"total"`
	Taxes          []TaxBucket     `json:"taxes"`
}

type Payment struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}
