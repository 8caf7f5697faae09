// Package validation implements the cross-field voucher checks and their
// debounced scheduling.
package validation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/yesan/internal/model"
)

// Status is the outcome of a rule. The zero value is Unknown.
type Status int

// Rule outcomes.
const (
	Unknown Status = iota
	Pass
	Fail
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// Rule names one cross-field check.
type Rule string

// Voucher rules.
const (
	RuleAccount      Rule = "account"
	RuleInvoice      Rule = "invoice"
	RuleExchangeDate Rule = "exchange_date"
	RulePeriod       Rule = "period"
)

// Rules lists every rule in display order.
var Rules = []Rule{RuleAccount, RuleInvoice, RuleExchangeDate, RulePeriod}

// InvoiceTolerance is the largest accepted difference between the invoice
// and tax invoice amounts.
var InvoiceTolerance = decimal.NewFromInt(100)

var monthToken = regexp.MustCompile(`(\d+)월`)

// Label returns the summary-panel label of the rule.
func (r Rule) Label() string {
	switch r {
	case RuleAccount:
		return "계좌번호 일치 확인"
	case RuleInvoice:
		return "Invoice 금액 일치"
	case RuleExchangeDate:
		return "환율 적용일 일치"
	case RulePeriod:
		return "기간 귀속 일치"
	}
	return string(r)
}

// Message returns the inline hint shown next to the field for a status.
func (r Rule) Message(s Status) string {
	switch {
	case r == RuleAccount && s == Fail:
		return "⚠️ 시스템 계좌번호와 불일치!"
	case r == RuleAccount && s == Pass:
		return "✓ 계좌번호 일치"
	case r == RuleInvoice && s == Fail:
		return "⚠️ Invoice와 세금계산서 금액이 일치하지 않습니다!"
	case r == RuleInvoice && s == Pass:
		return "✓ 증빙 서류 금액이 일치합니다"
	case r == RuleExchangeDate && s == Fail:
		return "⚠️ 거래일과 일치해야 합니다"
	case r == RulePeriod && s == Fail:
		return "⚠️ 기간이 거래일자와 불일치합니다"
	}
	return ""
}

// Field returns the form field the rule's hint is attached to.
func (r Rule) Field() model.Field {
	switch r {
	case RuleAccount:
		return model.FieldTaxInvoiceAccount
	case RuleInvoice:
		return model.FieldTaxInvoiceAmount
	case RuleExchangeDate:
		return model.FieldExchangeRateDate
	default:
		return model.FieldDescription
	}
}

// AffectedRules returns the rules that must be re-evaluated when f changes.
func AffectedRules(f model.Field) []Rule {
	switch f {
	case model.FieldTaxInvoiceAccount, model.FieldSystemAccountNumber:
		return []Rule{RuleAccount}
	case model.FieldInvoiceAmount, model.FieldTaxInvoiceAmount:
		return []Rule{RuleInvoice}
	case model.FieldExchangeRateDate, model.FieldCurrency:
		return []Rule{RuleExchangeDate}
	case model.FieldTransactionDate:
		return []Rule{RuleExchangeDate, RulePeriod}
	case model.FieldDescription:
		return []Rule{RulePeriod}
	}
	return nil
}

// Applicable reports whether the rule takes part in the submit decision.
func Applicable(r Rule, v model.Voucher) bool {
	if r == RuleExchangeDate {
		return v.ForeignCurrency()
	}
	return true
}

// Evaluate runs one rule against a voucher. The second return value is
// false when the inputs are incomplete, in which case the previous status
// must be kept.
func Evaluate(r Rule, v model.Voucher) (Status, bool) {
	switch r {
	case RuleAccount:
		return CheckAccount(v.SystemAccountNumber, v.TaxInvoiceAccount)
	case RuleInvoice:
		return CheckInvoice(v.InvoiceAmount, v.TaxInvoiceAmount)
	case RuleExchangeDate:
		if !v.ForeignCurrency() {
			return Unknown, false
		}
		return CheckExchangeDate(v.ExchangeRateDate, v.TransactionDate)
	case RulePeriod:
		return CheckPeriod(v.Description, v.TransactionDate)
	}
	return Unknown, false
}

// CheckAccount compares the registered and tax invoice account numbers.
func CheckAccount(system, taxInvoice string) (Status, bool) {
	if system == "" || taxInvoice == "" {
		return Unknown, false
	}
	return statusOf(system == taxInvoice), true
}

// CheckInvoice compares the two document amounts within InvoiceTolerance.
// An amount that is not a number fails.
func CheckInvoice(invoice, taxInvoice string) (Status, bool) {
	if invoice == "" || taxInvoice == "" {
		return Unknown, false
	}
	a, errA := decimal.NewFromString(strings.TrimSpace(invoice))
	b, errB := decimal.NewFromString(strings.TrimSpace(taxInvoice))
	if errA != nil || errB != nil {
		return Fail, true
	}
	return statusOf(a.Sub(b).Abs().LessThanOrEqual(InvoiceTolerance)), true
}

// CheckExchangeDate requires the rate date to equal the transaction date.
func CheckExchangeDate(rateDate, transactionDate string) (Status, bool) {
	if rateDate == "" || transactionDate == "" {
		return Unknown, false
	}
	a, errA := model.ParseDate(rateDate)
	b, errB := model.ParseDate(transactionDate)
	if errA != nil || errB != nil {
		return statusOf(strings.TrimSpace(rateDate) == strings.TrimSpace(transactionDate)), true
	}
	return statusOf(a.Equal(b)), true
}

// CheckPeriod compares the first "<n>월" token of the description with the
// transaction month. A description without such a token is not evaluated;
// an unparsable date fails.
func CheckPeriod(description, transactionDate string) (Status, bool) {
	if description == "" || transactionDate == "" {
		return Unknown, false
	}
	m := monthToken.FindStringSubmatch(description)
	if m == nil {
		return Unknown, false
	}
	month, err := strconv.Atoi(m[1])
	if err != nil {
		return Fail, true
	}
	date, err := model.ParseDate(transactionDate)
	if err != nil {
		return Fail, true
	}
	return statusOf(month == int(date.Month())), true
}

func statusOf(ok bool) Status {
	if ok {
		return Pass
	}
	return Fail
}

// Statuses maps every rule to its current outcome.
type Statuses map[Rule]Status

// Blocking returns the applicable rules that failed, in display order.
func (s Statuses) Blocking(v model.Voucher) []Rule {
	var failed []Rule
	for _, r := range Rules {
		if s[r] == Fail && Applicable(r, v) {
			failed = append(failed, r)
		}
	}
	return failed
}

// EvaluateAll runs every rule immediately, starting from prev. It is the
// synchronous counterpart of the Validator for one-shot checks.
func EvaluateAll(v model.Voucher, prev Statuses) Statuses {
	out := make(Statuses, len(Rules))
	for _, r := range Rules {
		out[r] = prev[r]
		if status, ok := Evaluate(r, v); ok {
			out[r] = status
		}
	}
	return out
}
