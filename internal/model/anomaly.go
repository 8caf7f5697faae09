package model

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Severity ranks how dangerous a detected anomaly is.
type Severity string

// Severity levels as emitted by the detection engine.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists every level from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Anomaly is one inconsistency detected in a voucher.
type Anomaly struct {
	Type           string   `json:"type"`
	Severity       Severity `json:"severity"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`
}

// FlexString accepts a JSON string, number, or boolean and keeps its text.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = FlexString(str)
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*s = FlexString(strconv.FormatBool(t))
	case float64:
		*s = FlexString(strconv.FormatFloat(t, 'f', -1, 64))
	default:
		return fmt.Errorf("unsupported value %s", string(data))
	}
	return nil
}

// VoucherSnapshot is the backend's view of a stored voucher.
type VoucherSnapshot struct {
	VoucherID         string              `json:"voucher_id"`
	Creator           string              `json:"creator"`
	TransactionDate   string              `json:"transaction_date"`
	PaymentDueDate    string              `json:"payment_due_date"`
	Vendor            string              `json:"vendor"`
	Currency          string              `json:"currency"`
	ExchangeRateDate  string              `json:"exchange_rate_date"`
	Description       string              `json:"description"`
	ApprovalStatus    FlexString          `json:"approval_status"`
	AccountingCreated FlexString          `json:"accounting_created"`
	ValidationStatus  FlexString          `json:"validation_status"`
	ExchangeRate      decimal.NullDecimal `json:"exchange_rate"`
	Amount            decimal.Decimal     `json:"amount"`
}

// AnomalyResult pairs a voucher with everything detected in it. The raw
// voucher JSON is kept so it can be echoed back unchanged in alerts.
type AnomalyResult struct {
	MaxSeverity Severity        `json:"max_severity"`
	RawVoucher  json.RawMessage `json:"voucher"`
	Anomalies   []Anomaly       `json:"anomalies"`
	Voucher     VoucherSnapshot `json:"-"`
}

// UnmarshalJSON decodes the result and its typed voucher view.
func (r *AnomalyResult) UnmarshalJSON(data []byte) error {
	type plain AnomalyResult
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if len(p.RawVoucher) > 0 && string(p.RawVoucher) != "null" {
		if err := json.Unmarshal(p.RawVoucher, &p.Voucher); err != nil {
			return fmt.Errorf("decode voucher: %w", err)
		}
	}
	*r = AnomalyResult(p)
	return nil
}

// AlertRequest is the body of a send-alert request.
type AlertRequest struct {
	Voucher   json.RawMessage `json:"voucher"`
	Anomalies []Anomaly       `json:"anomalies"`
}

// NewAlertRequest builds the alert body for a result.
func NewAlertRequest(r AnomalyResult) AlertRequest {
	raw := r.RawVoucher
	if len(raw) == 0 {
		raw, _ = json.Marshal(r.Voucher)
	}
	return AlertRequest{Voucher: raw, Anomalies: r.Anomalies}
}
