package model

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// BaseCurrency is the currency that needs no exchange rate.
const BaseCurrency = "KRW"

// Currencies lists the selectable voucher currencies.
var Currencies = []string{"KRW", "USD", "EUR", "JPY"}

// IsSupportedCurrency reports whether code is one of Currencies.
func IsSupportedCurrency(code string) bool {
	for _, c := range Currencies {
		if c == code {
			return true
		}
	}
	return false
}

// DateLayout is the wire and input format of voucher dates.
const DateLayout = "2006-01-02"

// dateLayouts are the typed date forms accepted besides DateLayout.
var dateLayouts = []string{DateLayout, "2006/01/02", "2006.01.02", "20060102", "2006-1-2", "2006/1/2", "2006.1.2"}

// ParseDate reads a calendar date in DateLayout or one of the common
// slash, dot or compact forms.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want %s", s, DateLayout)
}

// IsDateField reports whether f holds a calendar date.
func (f Field) IsDateField() bool {
	return f == FieldTransactionDate || f == FieldPaymentDueDate || f == FieldExchangeRateDate
}

// Field names a voucher draft field. Values match the backend's JSON keys.
type Field string

// Voucher draft fields.
const (
	FieldVoucherID           Field = "voucher_id"
	FieldCreator             Field = "creator"
	FieldTransactionDate     Field = "transaction_date"
	FieldPaymentDueDate      Field = "payment_due_date"
	FieldAmount              Field = "amount"
	FieldVendor              Field = "vendor"
	FieldCurrency            Field = "currency"
	FieldExchangeRate        Field = "exchange_rate"
	FieldExchangeRateDate    Field = "exchange_rate_date"
	FieldDescription         Field = "description"
	FieldSystemAccountNumber Field = "system_account_number"
	FieldTaxInvoiceAccount   Field = "tax_invoice_account"
	FieldInvoiceAmount       Field = "invoice_amount"
	FieldTaxInvoiceAmount    Field = "tax_invoice_amount"
	FieldInvoiceVendor       Field = "invoice_vendor"
	FieldTaxInvoiceVendor    Field = "tax_invoice_vendor"
)

// EditableFields lists the fields a user can type into, in form order.
var EditableFields = []Field{
	FieldCreator,
	FieldTransactionDate,
	FieldPaymentDueDate,
	FieldVendor,
	FieldAmount,
	FieldCurrency,
	FieldExchangeRate,
	FieldExchangeRateDate,
	FieldDescription,
	FieldSystemAccountNumber,
	FieldTaxInvoiceAccount,
	FieldInvoiceAmount,
	FieldTaxInvoiceAmount,
	FieldInvoiceVendor,
	FieldTaxInvoiceVendor,
}

// Label returns the Korean form label of a field.
func (f Field) Label() string {
	switch f {
	case FieldVoucherID:
		return "전표번호"
	case FieldCreator:
		return "작성자"
	case FieldTransactionDate:
		return "거래일자"
	case FieldPaymentDueDate:
		return "지급예정일"
	case FieldAmount:
		return "금액"
	case FieldVendor:
		return "거래처"
	case FieldCurrency:
		return "통화"
	case FieldExchangeRate:
		return "환율"
	case FieldExchangeRateDate:
		return "환율 적용일"
	case FieldDescription:
		return "적요"
	case FieldSystemAccountNumber:
		return "시스템 등록 계좌번호"
	case FieldTaxInvoiceAccount:
		return "세금계산서 계좌번호"
	case FieldInvoiceAmount:
		return "Invoice 금액"
	case FieldTaxInvoiceAmount:
		return "세금계산서 금액"
	case FieldInvoiceVendor:
		return "Invoice 거래처"
	case FieldTaxInvoiceVendor:
		return "세금계산서 거래처"
	}
	return string(f)
}

// Voucher is a draft accounting transaction as typed into the entry form.
// Every value is kept as the raw input string.
type Voucher struct {
	VoucherID           string `json:"voucher_id"`
	Creator             string `json:"creator"`
	TransactionDate     string `json:"transaction_date"`
	PaymentDueDate      string `json:"payment_due_date"`
	Amount              string `json:"amount"`
	Vendor              string `json:"vendor"`
	Currency            string `json:"currency"`
	ExchangeRate        string `json:"exchange_rate"`
	ExchangeRateDate    string `json:"exchange_rate_date"`
	Description         string `json:"description"`
	SystemAccountNumber string `json:"system_account_number"`
	TaxInvoiceAccount   string `json:"tax_invoice_account"`
	InvoiceAmount       string `json:"invoice_amount"`
	TaxInvoiceAmount    string `json:"tax_invoice_amount"`
	InvoiceVendor       string `json:"invoice_vendor"`
	TaxInvoiceVendor    string `json:"tax_invoice_vendor"`
}

// NewVoucher returns an empty draft in the base currency.
func NewVoucher(id string) Voucher {
	return Voucher{VoucherID: id, Currency: BaseCurrency}
}

// ForeignCurrency reports whether an exchange rate applies.
func (v Voucher) ForeignCurrency() bool {
	return v.Currency != "" && v.Currency != BaseCurrency
}

// Get returns the value of a field.
func (v Voucher) Get(f Field) string {
	if p := v.ref(f); p != nil {
		return *p
	}
	return ""
}

// Set assigns a field. The voucher id is read-only.
func (v *Voucher) Set(f Field, value string) error {
	if f == FieldVoucherID {
		return fmt.Errorf("field %s is read-only", f)
	}
	p := v.ref(f)
	if p == nil {
		return fmt.Errorf("unknown voucher field %q", f)
	}
	// Complete dates are stored in DateLayout; partial input stays as typed.
	if f.IsDateField() {
		if t, err := ParseDate(value); err == nil {
			value = t.Format(DateLayout)
		}
	}
	*p = value
	return nil
}

func (v *Voucher) ref(f Field) *string {
	switch f {
	case FieldVoucherID:
		return &v.VoucherID
	case FieldCreator:
		return &v.Creator
	case FieldTransactionDate:
		return &v.TransactionDate
	case FieldPaymentDueDate:
		return &v.PaymentDueDate
	case FieldAmount:
		return &v.Amount
	case FieldVendor:
		return &v.Vendor
	case FieldCurrency:
		return &v.Currency
	case FieldExchangeRate:
		return &v.ExchangeRate
	case FieldExchangeRateDate:
		return &v.ExchangeRateDate
	case FieldDescription:
		return &v.Description
	case FieldSystemAccountNumber:
		return &v.SystemAccountNumber
	case FieldTaxInvoiceAccount:
		return &v.TaxInvoiceAccount
	case FieldInvoiceAmount:
		return &v.InvoiceAmount
	case FieldTaxInvoiceAmount:
		return &v.TaxInvoiceAmount
	case FieldInvoiceVendor:
		return &v.InvoiceVendor
	case FieldTaxInvoiceVendor:
		return &v.TaxInvoiceVendor
	}
	return nil
}

// RequiredFields returns the fields that must be filled before submit.
func (v Voucher) RequiredFields() []Field {
	fields := []Field{
		FieldCreator,
		FieldTransactionDate,
		FieldPaymentDueDate,
		FieldVendor,
		FieldAmount,
		FieldDescription,
		FieldSystemAccountNumber,
		FieldTaxInvoiceAccount,
	}
	if v.ForeignCurrency() {
		fields = append(fields, FieldExchangeRate, FieldExchangeRateDate)
	}
	return fields
}

// MissingFields returns required fields that are still empty.
func (v Voucher) MissingFields() []Field {
	var missing []Field
	for _, f := range v.RequiredFields() {
		if v.Get(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// DefaultVoucherIDPrefix is prepended to every generated voucher id.
const DefaultVoucherIDPrefix = "V2025-"

// VoucherIDGenerator produces ids of the form prefix + 4 digits (1000-9999).
// Uniqueness is not guaranteed by the generator itself. Next is safe for
// concurrent use.
type VoucherIDGenerator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	Prefix string
}

// NewVoucherIDGenerator creates a generator. A nil source seeds from the clock.
func NewVoucherIDGenerator(prefix string, src rand.Source) *VoucherIDGenerator {
	if prefix == "" {
		prefix = DefaultVoucherIDPrefix
	}
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &VoucherIDGenerator{Prefix: prefix, rng: rand.New(src)} //nolint:gosec // ids are not secrets
}

// Next returns a new candidate id.
func (g *VoucherIDGenerator) Next() string {
	g.mu.Lock()
	n := g.rng.Intn(9000) + 1000
	g.mu.Unlock()
	return fmt.Sprintf("%s%04d", g.Prefix, n)
}
