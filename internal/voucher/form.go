// Package voucher holds the voucher entry form: the draft, its attached
// documents, live validation and submission.
package voucher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/yesan/internal/common"
	"github.com/Veraticus/yesan/internal/extract"
	"github.com/Veraticus/yesan/internal/model"
	"github.com/Veraticus/yesan/internal/service"
	"github.com/Veraticus/yesan/internal/validation"
)

// User-facing submit outcomes.
const (
	SubmitSuccessMessage = "✅ 전표가 성공적으로 저장되었습니다!"
	SubmitBlockedMessage = "⚠️ 검증 오류가 있습니다. 모든 항목을 확인해주세요."
)

// Form errors.
var (
	ErrValidationFailed  = errors.New("voucher has failing validations")
	ErrMissingField      = errors.New("required field missing")
	ErrUnknownReceipt    = errors.New("no such receipt")
	ErrIDSpaceExhausted  = errors.New("could not generate an unused voucher id")
	ErrUnsupportedChoice = errors.New("unsupported currency")
)

const maxIDAttempts = 20

// Attachment is an uploaded document and what was read from it.
type Attachment struct {
	Kind      extract.Kind
	Name      string
	Extracted extract.Extracted
	Size      int
}

// Option configures a Form.
type Option func(*Form)

// WithExtractor sets the document extractor. The default is simulated.
func WithExtractor(e extract.DocumentExtractor) Option {
	return func(f *Form) {
		f.extractor = e
	}
}

// WithJournal records acknowledged submissions and checks id collisions.
func WithJournal(s service.Storage) Option {
	return func(f *Form) {
		f.journal = s
	}
}

// WithIDGenerator replaces the voucher id generator.
func WithIDGenerator(g *model.VoucherIDGenerator) Option {
	return func(f *Form) {
		f.ids = g
	}
}

// WithValidation passes options to the form's validator.
func WithValidation(opts ...validation.Option) Option {
	return func(f *Form) {
		f.validationOpts = append(f.validationOpts, opts...)
	}
}

// WithClock sets the submission clock.
func WithClock(now func() time.Time) Option {
	return func(f *Form) {
		f.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Form) {
		f.logger = l
	}
}

// Form is one voucher being written. It is safe for concurrent use; the
// validator reports asynchronously through Updates.
type Form struct {
	extractor      extract.DocumentExtractor
	journal        service.Storage
	validator      *validation.Validator
	ids            *model.VoucherIDGenerator
	logger         *slog.Logger
	now            func() time.Time
	taxInvoice     *Attachment
	invoice        *Attachment
	updates        chan struct{}
	draft          model.Voucher
	receipts       []Attachment
	validationOpts []validation.Option
	mu             sync.Mutex
}

// NewForm creates an empty draft with a fresh voucher id.
func NewForm(ctx context.Context, opts ...Option) (*Form, error) {
	f := &Form{
		updates: make(chan struct{}, 1),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.extractor == nil {
		f.extractor = extract.NewSimulated(nil, nil)
	}
	if f.ids == nil {
		f.ids = model.NewVoucherIDGenerator(model.DefaultVoucherIDPrefix, nil)
	}

	vopts := append([]validation.Option{validation.WithNotify(func(validation.Result) { f.signal() })}, f.validationOpts...)
	f.validator = validation.NewValidator(vopts...)

	id, err := f.newID(ctx)
	if err != nil {
		return nil, err
	}
	f.draft = model.NewVoucher(id)
	return f, nil
}

// newID draws ids until one is not already in the journal.
func (f *Form) newID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := f.ids.Next()
		if f.journal == nil {
			return id, nil
		}
		exists, err := f.journal.VoucherExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check voucher id: %w", err)
		}
		if !exists {
			return id, nil
		}
		f.logger.Debug("Voucher id already used, drawing another", "voucher_id", id)
	}
	return "", ErrIDSpaceExhausted
}

func (f *Form) signal() {
	select {
	case f.updates <- struct{}{}:
	default:
	}
}

// Updates delivers a coalesced signal whenever a validation status changed.
func (f *Form) Updates() <-chan struct{} {
	return f.updates
}

// Draft returns a copy of the current draft.
func (f *Form) Draft() model.Voucher {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Statuses returns the current validation statuses.
func (f *Form) Statuses() validation.Statuses {
	return f.validator.Statuses()
}

// ValidationPending reports whether a rule evaluation is still scheduled.
func (f *Form) ValidationPending() bool {
	return f.validator.Pending()
}

// Set assigns a field and schedules the rules that depend on it.
func (f *Form) Set(field model.Field, value string) error {
	if field == model.FieldCurrency && !model.IsSupportedCurrency(value) {
		return fmt.Errorf("%w: %q", ErrUnsupportedChoice, value)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.draft.Set(field, value); err != nil {
		return err
	}
	// Scheduling under the lock keeps schedule order equal to edit order.
	f.validator.FieldChanged(field, f.draft)
	return nil
}

// setFieldsLocked writes several fields and returns the rules they affect.
func (f *Form) setFieldsLocked(values map[model.Field]string) []validation.Rule {
	seen := make(map[validation.Rule]bool)
	var rules []validation.Rule
	for field, value := range values {
		if value == "" {
			continue
		}
		if err := f.draft.Set(field, value); err != nil {
			f.logger.Warn("Skipping auto-filled field", "field", field, "error", err)
			continue
		}
		for _, r := range validation.AffectedRules(field) {
			if !seen[r] {
				seen[r] = true
				rules = append(rules, r)
			}
		}
	}
	return rules
}

func amountText(e extract.Extracted) string {
	if !e.HasAmount {
		return ""
	}
	return e.Amount.String()
}

// Upload reads a document and attaches it. Receipts accumulate and are
// only offered for auto-fill; a tax invoice or invoice replaces the
// previous one and writes its values straight into the draft.
func (f *Form) Upload(ctx context.Context, kind extract.Kind, doc extract.Document) (Attachment, error) {
	if !extract.Accepts(doc.Name, doc.MIMEType) {
		return Attachment{}, fmt.Errorf("%w: %s", extract.ErrUnsupportedDocument, doc.Name)
	}

	data, err := f.extractor.Extract(ctx, kind, doc)
	if err != nil {
		return Attachment{}, fmt.Errorf("extract %s: %w", kind, err)
	}
	att := Attachment{Kind: kind, Name: doc.Name, Size: len(doc.Data), Extracted: data}

	f.mu.Lock()
	var rules []validation.Rule
	switch kind {
	case extract.KindReceipt:
		f.receipts = append(f.receipts, att)
	case extract.KindTaxInvoice:
		f.taxInvoice = &att
		rules = f.setFieldsLocked(map[model.Field]string{
			model.FieldTaxInvoiceAccount: data.Account,
			model.FieldTaxInvoiceAmount:  amountText(data),
			model.FieldTaxInvoiceVendor:  data.Vendor,
			model.FieldTransactionDate:   data.Date,
		})
	case extract.KindInvoice:
		f.invoice = &att
		rules = f.setFieldsLocked(map[model.Field]string{
			model.FieldInvoiceAmount: amountText(data),
			model.FieldInvoiceVendor: data.Vendor,
		})
	}
	if len(rules) > 0 {
		f.validator.Schedule(rules, f.draft)
	}
	f.mu.Unlock()

	f.logger.Info("Document attached", "kind", kind, "name", doc.Name, "bytes", att.Size)
	return att, nil
}

// Receipts returns the uploaded receipts in upload order.
func (f *Form) Receipts() []Attachment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Attachment(nil), f.receipts...)
}

// TaxInvoice returns the current tax invoice, if any.
func (f *Form) TaxInvoice() *Attachment {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.taxInvoice == nil {
		return nil
	}
	att := *f.taxInvoice
	return &att
}

// Invoice returns the current invoice, if any.
func (f *Form) Invoice() *Attachment {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invoice == nil {
		return nil
	}
	att := *f.invoice
	return &att
}

// AutoFillFromReceipt copies a receipt's amount, vendor and date into the
// draft.
func (f *Form) AutoFillFromReceipt(index int) error {
	f.mu.Lock()
	if index < 0 || index >= len(f.receipts) {
		f.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownReceipt, index)
	}
	data := f.receipts[index].Extracted
	rules := f.setFieldsLocked(map[model.Field]string{
		model.FieldAmount:          amountText(data),
		model.FieldVendor:          data.Vendor,
		model.FieldTransactionDate: data.Date,
	})
	if len(rules) > 0 {
		f.validator.Schedule(rules, f.draft)
	}
	f.mu.Unlock()
	return nil
}

// MissingFieldsError lists the empty required fields.
type MissingFieldsError struct {
	Fields []model.Field
}

func (e *MissingFieldsError) Error() string {
	labels := make([]string, len(e.Fields))
	for i, field := range e.Fields {
		labels[i] = field.Label()
	}
	return "필수 항목을 입력해주세요: " + strings.Join(labels, ", ")
}

func (e *MissingFieldsError) Unwrap() error {
	return ErrMissingField
}

// Submit acknowledges the draft locally. Pending validations are
// evaluated first; any applicable failing rule blocks the submission.
func (f *Form) Submit(ctx context.Context) (*model.VoucherRecord, error) {
	f.mu.Lock()
	draft := f.draft
	if missing := draft.MissingFields(); len(missing) > 0 {
		f.mu.Unlock()
		return nil, &MissingFieldsError{Fields: missing}
	}
	statuses := f.validator.Flush(draft)
	f.mu.Unlock()

	if failed := statuses.Blocking(draft); len(failed) > 0 {
		names := make([]string, len(failed))
		for i, r := range failed {
			names[i] = string(r)
		}
		return nil, common.NewUserError(SubmitBlockedMessage,
			fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(names, ", ")))
	}

	record := &model.VoucherRecord{
		Voucher:     draft,
		SubmittedAt: f.now(),
		Attachments: f.attachmentNames(),
	}

	if f.journal != nil {
		if err := f.journal.SaveVoucher(ctx, record); err != nil {
			f.logger.Error("Failed to record voucher in journal", "voucher_id", draft.VoucherID, "error", err)
		}
	}

	f.logger.Info("Voucher submitted", "voucher_id", draft.VoucherID, "amount", draft.Amount, "vendor", draft.Vendor)
	return record, nil
}

func (f *Form) attachmentNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, r := range f.receipts {
		names = append(names, r.Name)
	}
	if f.taxInvoice != nil {
		names = append(names, f.taxInvoice.Name)
	}
	if f.invoice != nil {
		names = append(names, f.invoice.Name)
	}
	return names
}

// Reset discards the draft, its attachments and validation state and
// starts over with a new voucher id.
func (f *Form) Reset(ctx context.Context) error {
	id, err := f.newID(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validator.Reset()
	f.draft = model.NewVoucher(id)
	f.receipts = nil
	f.taxInvoice = nil
	f.invoice = nil
	return nil
}

// Close cancels pending validations.
func (f *Form) Close() {
	f.validator.Stop()
}
