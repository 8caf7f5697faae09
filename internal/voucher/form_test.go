package voucher

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/yesan/internal/common"
	"github.com/Veraticus/yesan/internal/extract"
	"github.com/Veraticus/yesan/internal/model"
	"github.com/Veraticus/yesan/internal/service"
	"github.com/Veraticus/yesan/internal/validation"
)

type stubExtractor struct {
	results map[extract.Kind]extract.Extracted
	err     error
}

func (s stubExtractor) Extract(_ context.Context, kind extract.Kind, _ extract.Document) (extract.Extracted, error) {
	if s.err != nil {
		return extract.Extracted{}, s.err
	}
	return s.results[kind], nil
}

type memJournal struct {
	vouchers map[string]*model.VoucherRecord
	saveErr  error
	mu       sync.Mutex
}

func newMemJournal() *memJournal {
	return &memJournal{vouchers: make(map[string]*model.VoucherRecord)}
}

func (m *memJournal) SaveVoucher(_ context.Context, r *model.VoucherRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.vouchers[r.Voucher.VoucherID] = r
	return nil
}

func (m *memJournal) GetVoucher(_ context.Context, id string) (*model.VoucherRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.vouchers[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return r, nil
}

func (m *memJournal) VoucherExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.vouchers[id]
	return ok, nil
}

func (m *memJournal) ListVouchers(context.Context, service.VoucherFilter) ([]model.VoucherRecord, error) {
	return nil, nil
}
func (m *memJournal) SaveFeedback(context.Context, *model.FeedbackRecord) error { return nil }
func (m *memJournal) ListFeedback(context.Context, int) ([]model.FeedbackRecord, error) {
	return nil, nil
}
func (m *memJournal) Migrate(context.Context) error { return nil }
func (m *memJournal) Close() error                  { return nil }

func newTestForm(t *testing.T, opts ...Option) *Form {
	t.Helper()
	opts = append([]Option{WithValidation(validation.WithDelay(0))}, opts...)
	f, err := NewForm(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f
}

func fill(t *testing.T, f *Form, values map[model.Field]string) {
	t.Helper()
	for field, value := range values {
		require.NoError(t, f.Set(field, value))
	}
}

func completeDraft() map[model.Field]string {
	return map[model.Field]string{
		model.FieldCreator:             "김민수",
		model.FieldTransactionDate:     "2025-11-03",
		model.FieldPaymentDueDate:      "2025-11-30",
		model.FieldVendor:              "한빛상사",
		model.FieldAmount:              "1500000",
		model.FieldDescription:         "11월 시설장비 유지보수",
		model.FieldSystemAccountNumber: "123-456-789",
		model.FieldTaxInvoiceAccount:   "123-456-789",
		model.FieldInvoiceAmount:       "1500000",
		model.FieldTaxInvoiceAmount:    "1500050",
	}
}

func TestNewFormGeneratesID(t *testing.T) {
	f := newTestForm(t)

	d := f.Draft()
	assert.Regexp(t, `^V2025-\d{4}$`, d.VoucherID)
	assert.Equal(t, model.BaseCurrency, d.Currency)
	for _, r := range validation.Rules {
		assert.Equal(t, validation.Unknown, f.Statuses()[r])
	}
}

func TestNewFormSkipsUsedIDs(t *testing.T) {
	gen := model.NewVoucherIDGenerator("", rand.NewSource(7))
	taken := model.NewVoucherIDGenerator("", rand.NewSource(7)).Next()

	journal := newMemJournal()
	journal.vouchers[taken] = &model.VoucherRecord{}

	f := newTestForm(t, WithIDGenerator(gen), WithJournal(journal))
	assert.NotEqual(t, taken, f.Draft().VoucherID)
}

func TestNewFormIDSpaceExhausted(t *testing.T) {
	journal := newMemJournal()
	// A constant source yields the same id on every draw.
	gen := model.NewVoucherIDGenerator("", constSource(0))
	journal.vouchers[gen.Next()] = &model.VoucherRecord{}

	_, err := NewForm(context.Background(), WithIDGenerator(gen), WithJournal(journal))
	assert.ErrorIs(t, err, ErrIDSpaceExhausted)
}

type constSource int64

func (c constSource) Int63() int64 { return int64(c) }
func (constSource) Seed(int64)     {}

func TestSetTriggersAffectedRules(t *testing.T) {
	f := newTestForm(t)

	require.NoError(t, f.Set(model.FieldSystemAccountNumber, "123-456-789"))
	assert.Equal(t, validation.Unknown, f.Statuses()[validation.RuleAccount])

	require.NoError(t, f.Set(model.FieldTaxInvoiceAccount, "999-999-999"))
	assert.Equal(t, validation.Fail, f.Statuses()[validation.RuleAccount])

	require.NoError(t, f.Set(model.FieldTaxInvoiceAccount, "123-456-789"))
	assert.Equal(t, validation.Pass, f.Statuses()[validation.RuleAccount])
}

func TestSetRejectsUnsupportedCurrency(t *testing.T) {
	f := newTestForm(t)
	assert.ErrorIs(t, f.Set(model.FieldCurrency, "GBP"), ErrUnsupportedChoice)
	assert.NoError(t, f.Set(model.FieldCurrency, "USD"))
	assert.Error(t, f.Set(model.FieldVoucherID, "V2025-0001"))
}

func TestUpdatesSignalOnStatusChange(t *testing.T) {
	f := newTestForm(t)
	fill(t, f, map[model.Field]string{
		model.FieldSystemAccountNumber: "1",
		model.FieldTaxInvoiceAccount:   "2",
	})

	select {
	case <-f.Updates():
	case <-time.After(time.Second):
		t.Fatal("expected an update signal")
	}
}

func TestDebouncedValidation(t *testing.T) {
	f := newTestForm(t, WithValidation(validation.WithDelay(20*time.Millisecond)))
	fill(t, f, map[model.Field]string{
		model.FieldInvoiceAmount:    "1000",
		model.FieldTaxInvoiceAmount: "5000",
	})

	assert.True(t, f.ValidationPending())
	assert.Eventually(t, func() bool {
		return f.Statuses()[validation.RuleInvoice] == validation.Fail
	}, time.Second, 5*time.Millisecond)
}

func TestConcurrentEditsSettleOnLatestDraft(t *testing.T) {
	tests := []struct {
		name  string
		delay time.Duration
	}{
		{"synchronous", 0},
		{"debounced", time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				f := newTestForm(t, WithValidation(validation.WithDelay(tt.delay)))
				fill(t, f, map[model.Field]string{
					model.FieldInvoiceAmount:    "1000",
					model.FieldTaxInvoiceAmount: "1000",
				})

				var wg sync.WaitGroup
				for _, field := range []model.Field{model.FieldInvoiceAmount, model.FieldTaxInvoiceAmount} {
					wg.Add(1)
					go func(field model.Field) {
						defer wg.Done()
						assert.NoError(t, f.Set(field, "9000"))
					}(field)
				}
				wg.Wait()

				require.Eventually(t, func() bool { return !f.ValidationPending() }, time.Second, time.Millisecond)
				d := f.Draft()
				want, _ := validation.CheckInvoice(d.InvoiceAmount, d.TaxInvoiceAmount)
				require.Equal(t, want, f.Statuses()[validation.RuleInvoice], "iteration %d", i)
			}
		})
	}
}

func TestUploadTaxInvoiceFillsDraft(t *testing.T) {
	stub := stubExtractor{results: map[extract.Kind]extract.Extracted{
		extract.KindTaxInvoice: {
			Account:   "123-456-789",
			Vendor:    "세금계산서 거래처",
			Date:      "2025-11-03",
			Amount:    decimal.NewFromInt(2000000),
			HasAmount: true,
		},
	}}
	f := newTestForm(t, WithExtractor(stub))
	require.NoError(t, f.Set(model.FieldSystemAccountNumber, "123-456-789"))
	require.NoError(t, f.Set(model.FieldInvoiceAmount, "2000080"))

	att, err := f.Upload(context.Background(), extract.KindTaxInvoice, extract.Document{Name: "tax.png", MIMEType: "image/png", Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "tax.png", att.Name)

	d := f.Draft()
	assert.Equal(t, "123-456-789", d.TaxInvoiceAccount)
	assert.Equal(t, "2000000", d.TaxInvoiceAmount)
	assert.Equal(t, "세금계산서 거래처", d.TaxInvoiceVendor)
	assert.Equal(t, "2025-11-03", d.TransactionDate)

	st := f.Statuses()
	assert.Equal(t, validation.Pass, st[validation.RuleAccount])
	assert.Equal(t, validation.Pass, st[validation.RuleInvoice])
	require.NotNil(t, f.TaxInvoice())
}

func TestUploadInvoiceReplacesPrevious(t *testing.T) {
	stub := stubExtractor{results: map[extract.Kind]extract.Extracted{
		extract.KindInvoice: {Vendor: "Invoice 거래처", Amount: decimal.NewFromInt(3000000), HasAmount: true},
	}}
	f := newTestForm(t, WithExtractor(stub))
	ctx := context.Background()

	_, err := f.Upload(ctx, extract.KindInvoice, extract.Document{Name: "a.pdf", MIMEType: "application/pdf"})
	require.NoError(t, err)
	_, err = f.Upload(ctx, extract.KindInvoice, extract.Document{Name: "b.jpg", MIMEType: "image/jpeg"})
	require.NoError(t, err)

	assert.Equal(t, "b.jpg", f.Invoice().Name)
	assert.Equal(t, "3000000", f.Draft().InvoiceAmount)
	assert.Equal(t, "Invoice 거래처", f.Draft().InvoiceVendor)
}

func TestUploadReceiptsAccumulateWithoutFilling(t *testing.T) {
	stub := stubExtractor{results: map[extract.Kind]extract.Extracted{
		extract.KindReceipt: {Vendor: "거래처명", Date: "2025-11-05", Amount: decimal.NewFromInt(250000), HasAmount: true},
	}}
	f := newTestForm(t, WithExtractor(stub))
	ctx := context.Background()

	for _, name := range []string{"r1.png", "r2.png"} {
		_, err := f.Upload(ctx, extract.KindReceipt, extract.Document{Name: name, MIMEType: "image/png"})
		require.NoError(t, err)
	}

	receipts := f.Receipts()
	require.Len(t, receipts, 2)
	assert.Equal(t, "r1.png", receipts[0].Name)
	assert.Equal(t, "r2.png", receipts[1].Name)
	assert.Empty(t, f.Draft().Amount)

	require.NoError(t, f.AutoFillFromReceipt(1))
	d := f.Draft()
	assert.Equal(t, "250000", d.Amount)
	assert.Equal(t, "거래처명", d.Vendor)
	assert.Equal(t, "2025-11-05", d.TransactionDate)

	assert.ErrorIs(t, f.AutoFillFromReceipt(5), ErrUnknownReceipt)
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name string
		ext  extract.DocumentExtractor
		doc  extract.Document
		want error
	}{
		{
			name: "unsupported type",
			ext:  stubExtractor{},
			doc:  extract.Document{Name: "notes.txt", MIMEType: "text/plain"},
			want: extract.ErrUnsupportedDocument,
		},
		{
			name: "extractor failure",
			ext:  stubExtractor{err: common.ErrBackendUnavailable},
			doc:  extract.Document{Name: "scan.png", MIMEType: "image/png"},
			want: common.ErrBackendUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestForm(t, WithExtractor(tt.ext))
			_, err := f.Upload(context.Background(), extract.KindReceipt, tt.doc)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.Receipts())
		})
	}
}

func TestSubmitMissingFields(t *testing.T) {
	f := newTestForm(t)
	require.NoError(t, f.Set(model.FieldCreator, "김민수"))

	_, err := f.Submit(context.Background())
	require.ErrorIs(t, err, ErrMissingField)

	var mf *MissingFieldsError
	require.ErrorAs(t, err, &mf)
	assert.Contains(t, mf.Fields, model.FieldAmount)
	assert.NotContains(t, mf.Fields, model.FieldCreator)
	assert.Contains(t, err.Error(), "금액")
}

func TestSubmitBlockedByFailingRule(t *testing.T) {
	f := newTestForm(t)
	values := completeDraft()
	values[model.FieldTaxInvoiceAmount] = "1600000"
	fill(t, f, values)

	_, err := f.Submit(context.Background())
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, SubmitBlockedMessage, common.UserMessage(err, ""))
}

func TestSubmitEvaluatesPendingRules(t *testing.T) {
	f := newTestForm(t, WithValidation(validation.WithDelay(time.Hour)))
	values := completeDraft()
	values[model.FieldTaxInvoiceAccount] = "000-000-000"
	fill(t, f, values)
	assert.True(t, f.ValidationPending())

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestSubmitIgnoresExchangeRuleInBaseCurrency(t *testing.T) {
	f := newTestForm(t)
	values := completeDraft()
	values[model.FieldExchangeRateDate] = "2025-01-01"
	fill(t, f, values)

	_, err := f.Submit(context.Background())
	assert.NoError(t, err)
}

func TestSubmitRecordsJournal(t *testing.T) {
	journal := newMemJournal()
	at := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	stub := stubExtractor{results: map[extract.Kind]extract.Extracted{
		extract.KindReceipt: {Vendor: "한빛상사"},
	}}
	f := newTestForm(t, WithJournal(journal), WithClock(func() time.Time { return at }), WithExtractor(stub))
	fill(t, f, completeDraft())
	_, err := f.Upload(context.Background(), extract.KindReceipt, extract.Document{Name: "r.png", MIMEType: "image/png"})
	require.NoError(t, err)

	rec, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at, rec.SubmittedAt)
	assert.Equal(t, []string{"r.png"}, rec.Attachments)

	stored, err := journal.GetVoucher(context.Background(), rec.Voucher.VoucherID)
	require.NoError(t, err)
	assert.Equal(t, "한빛상사", stored.Voucher.Vendor)
}

func TestSubmitSucceedsWhenJournalFails(t *testing.T) {
	journal := newMemJournal()
	f := newTestForm(t, WithJournal(journal))
	journal.saveErr = errors.New("disk full")
	fill(t, f, completeDraft())

	rec, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestReset(t *testing.T) {
	stub := stubExtractor{results: map[extract.Kind]extract.Extracted{extract.KindReceipt: {}}}
	f := newTestForm(t, WithExtractor(stub), WithIDGenerator(model.NewVoucherIDGenerator("", rand.NewSource(3))))
	fill(t, f, completeDraft())
	_, err := f.Upload(context.Background(), extract.KindReceipt, extract.Document{Name: "r.png", MIMEType: "image/png"})
	require.NoError(t, err)

	require.NoError(t, f.Reset(context.Background()))

	d := f.Draft()
	assert.Regexp(t, `^V2025-\d{4}$`, d.VoucherID)
	assert.Empty(t, d.Creator)
	assert.Empty(t, f.Receipts())
	assert.Nil(t, f.TaxInvoice())
	assert.Equal(t, validation.Unknown, f.Statuses()[validation.RuleInvoice])
}
