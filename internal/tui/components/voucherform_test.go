package components

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/yesan/internal/extract"
	"github.com/Veraticus/yesan/internal/model"
	"github.com/Veraticus/yesan/internal/tui/themes"
	"github.com/Veraticus/yesan/internal/validation"
	"github.com/Veraticus/yesan/internal/voucher"
)

type stubExtractor struct {
	results map[extract.Kind]extract.Extracted
}

func (s stubExtractor) Extract(_ context.Context, kind extract.Kind, _ extract.Document) (extract.Extracted, error) {
	return s.results[kind], nil
}

func newTestVoucherModel(t *testing.T, opts ...voucher.Option) VoucherFormModel {
	t.Helper()
	opts = append([]voucher.Option{voucher.WithValidation(validation.WithDelay(0))}, opts...)
	form, err := voucher.NewForm(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(form.Close)

	m := NewVoucherFormModel(form, themes.Default)
	m.Resize(140, 50)
	return m
}

func writeFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test"), 0o600))
	return path
}

func typeText(m VoucherFormModel, text string) VoucherFormModel {
	for _, r := range text {
		m, _ = m.Update(keyRunes(string(r)))
	}
	return m
}

func TestVoucherFormEditField(t *testing.T) {
	m := newTestVoucherModel(t)
	require.Equal(t, model.FieldCreator, m.focusedField())

	m, _ = m.Update(keyType(tea.KeyEnter))
	assert.True(t, m.Capturing())

	m = typeText(m, "김철수")
	assert.Equal(t, "김철수", m.form.Draft().Creator)

	m, _ = m.Update(keyType(tea.KeyEnter))
	assert.False(t, m.Capturing())
	assert.Equal(t, model.FieldTransactionDate, m.focusedField(), "enter advances to the next field")
}

func TestVoucherFormCurrencyTogglesExchangeFields(t *testing.T) {
	m := newTestVoucherModel(t)
	assert.Len(t, m.visibleFields(), len(model.EditableFields)-2)

	for m.focusedField() != model.FieldCurrency {
		m, _ = m.Update(keyType(tea.KeyDown))
	}

	m, _ = m.Update(keyType(tea.KeyRight))
	assert.Equal(t, "USD", m.form.Draft().Currency)
	assert.Len(t, m.visibleFields(), len(model.EditableFields))
	assert.Contains(t, m.View(), model.FieldExchangeRate.Label())

	m, _ = m.Update(keyType(tea.KeyLeft))
	assert.Equal(t, model.BaseCurrency, m.form.Draft().Currency)
	assert.Len(t, m.visibleFields(), len(model.EditableFields)-2)
}

func TestVoucherFormUpload(t *testing.T) {
	stub := stubExtractor{results: map[extract.Kind]extract.Extracted{
		extract.KindTaxInvoice: {Account: "110-123-456789", Vendor: "(주)한빛상사", Amount: decimal.NewFromInt(550000), HasAmount: true},
	}}

	tests := []struct {
		name       string
		key        string
		file       string
		wantNotice string
		wantErr    bool
	}{
		{"tax invoice fills the form", "T", "invoice.pdf", extract.KindTaxInvoice.Label() + " " + AutoFillDoneMessage, false},
		{"receipt is attached", "R", "receipt.pdf", extract.KindReceipt.Label() + " 업로드 완료", false},
		{"text file is rejected", "R", "notes.txt", UploadRejectedMessage, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestVoucherModel(t, voucher.WithExtractor(stub))

			m, _ = m.Update(keyRunes(tt.key))
			require.True(t, m.Capturing())
			m.path.SetValue(writeFile(t, tt.file))

			m, cmd := m.Update(keyType(tea.KeyEnter))
			assert.False(t, m.Capturing())
			require.NotNil(t, cmd)
			m, _ = m.Update(find[uploadDoneMsg](t, cmd))

			assert.Equal(t, tt.wantNotice, m.notice)
			assert.Equal(t, tt.wantErr, m.noticeErr)
		})
	}
}

func TestVoucherFormUploadFillsInputs(t *testing.T) {
	stub := stubExtractor{results: map[extract.Kind]extract.Extracted{
		extract.KindTaxInvoice: {Account: "110-123-456789", Vendor: "(주)한빛상사", Amount: decimal.NewFromInt(550000), HasAmount: true},
	}}
	m := newTestVoucherModel(t, voucher.WithExtractor(stub))

	m, _ = m.Update(keyRunes("T"))
	m.path.SetValue(writeFile(t, "invoice.pdf"))
	m, cmd := m.Update(keyType(tea.KeyEnter))
	m, _ = m.Update(find[uploadDoneMsg](t, cmd))

	assert.Equal(t, "110-123-456789", m.inputs[model.FieldTaxInvoiceAccount].Value())
	assert.Equal(t, "110-123-456789", m.form.Draft().TaxInvoiceAccount)
}

func TestVoucherFormSubmitMissingFields(t *testing.T) {
	m := newTestVoucherModel(t)

	m, cmd := m.Update(keyRunes("s"))
	require.NotNil(t, cmd)
	m, _ = m.Update(find[submitDoneMsg](t, cmd))

	assert.True(t, m.noticeErr)
	assert.True(t, strings.HasPrefix(m.notice, "⚠️ "))
	assert.False(t, m.busy)
}

func TestVoucherFormAutoFillWithoutReceipt(t *testing.T) {
	m := newTestVoucherModel(t)

	m, _ = m.Update(keyRunes("a"))
	assert.True(t, m.noticeErr)
}

func TestVoucherFormReset(t *testing.T) {
	m := newTestVoucherModel(t)
	before := m.form.Draft().VoucherID

	m, _ = m.Update(keyType(tea.KeyEnter))
	m = typeText(m, "김철수")
	m, _ = m.Update(keyType(tea.KeyEsc))

	m, cmd := m.Update(keyRunes("n"))
	require.NotNil(t, cmd)
	m, _ = m.Update(find[resetDoneMsg](t, cmd))

	draft := m.form.Draft()
	assert.Empty(t, draft.Creator)
	assert.Empty(t, m.inputs[model.FieldCreator].Value())
	assert.NotEqual(t, before, draft.VoucherID)
}
