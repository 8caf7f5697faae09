package extract

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)
}

func TestSimulated_Ranges(t *testing.T) {
	s := NewSimulated(rand.NewSource(7), fixedNow)
	ctx := context.Background()

	tests := []struct {
		kind    Kind
		vendor  string
		account string
		min     int64
		max     int64
	}{
		{kind: KindReceipt, vendor: SimulatedReceiptVendor, min: 100000, max: 1099999},
		{kind: KindTaxInvoice, vendor: SimulatedTaxInvoiceVendor, account: SimulatedAccount, min: 1000000, max: 5999999},
		{kind: KindInvoice, vendor: SimulatedInvoiceVendor, min: 1000000, max: 5999999},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			for i := 0; i < 200; i++ {
				out, err := s.Extract(ctx, tt.kind, Document{Name: "scan.png"})
				require.NoError(t, err)

				assert.True(t, out.HasAmount)
				assert.True(t, out.Amount.IsInteger())
				assert.True(t, out.Amount.GreaterThanOrEqual(decimal.NewFromInt(tt.min)), out.Amount.String())
				assert.True(t, out.Amount.LessThanOrEqual(decimal.NewFromInt(tt.max)), out.Amount.String())
				assert.Equal(t, tt.vendor, out.Vendor)
				assert.Equal(t, tt.account, out.Account)
				assert.Equal(t, "2025-11-03", out.Date)
			}
		})
	}
}

func TestSimulated_Deterministic(t *testing.T) {
	a := NewSimulated(rand.NewSource(42), fixedNow)
	b := NewSimulated(rand.NewSource(42), fixedNow)

	outA, err := a.Extract(context.Background(), KindReceipt, Document{})
	require.NoError(t, err)
	outB, err := b.Extract(context.Background(), KindReceipt, Document{})
	require.NoError(t, err)
	assert.True(t, outA.Amount.Equal(outB.Amount))
}

func TestSimulated_DateIsUTC(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"after local midnight", time.Date(2025, 11, 4, 0, 30, 0, 0, seoul), "2025-11-03"},
		{"local afternoon", time.Date(2025, 11, 4, 15, 0, 0, 0, seoul), "2025-11-04"},
		{"behind utc", time.Date(2025, 11, 3, 20, 0, 0, 0, time.FixedZone("EST", -5*60*60)), "2025-11-04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSimulated(rand.NewSource(1), func() time.Time { return tt.now })
			out, err := s.Extract(context.Background(), KindReceipt, Document{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Date)
		})
	}
}

func TestSimulated_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSimulated(nil, nil).Extract(ctx, KindInvoice, Document{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAccepts(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		want     bool
	}{
		{name: "receipt.png", mimeType: "image/png", want: true},
		{name: "receipt.heic", mimeType: "image/heic", want: true},
		{name: "invoice.PDF", mimeType: "application/octet-stream", want: true},
		{name: "invoice.pdf", mimeType: "application/pdf", want: true},
		{name: "notes.txt", mimeType: "text/plain", want: false},
		{name: "sheet.xlsx", mimeType: "application/zip", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Accepts(tt.name, tt.mimeType))
		})
	}
}

func TestLoadDocument(t *testing.T) {
	dir := t.TempDir()

	png := filepath.Join(dir, "receipt.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\nrest"), 0o600))
	doc, err := LoadDocument(png)
	require.NoError(t, err)
	assert.Equal(t, "receipt.png", doc.Name)
	assert.Equal(t, "image/png", doc.MIMEType)
	assert.False(t, doc.IsPDF())

	txt := filepath.Join(dir, "memo.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o600))
	_, err = LoadDocument(txt)
	assert.ErrorIs(t, err, ErrUnsupportedDocument)

	_, err = LoadDocument(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestDetectMIMEType_FallsBackToContent(t *testing.T) {
	assert.Equal(t, "image/png", DetectMIMEType("scan", []byte("\x89PNG\r\n\x1a\n0000")))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("tax-invoice")
	require.NoError(t, err)
	assert.Equal(t, KindTaxInvoice, k)

	k, err = ParseKind("RECEIPT")
	require.NoError(t, err)
	assert.Equal(t, KindReceipt, k)

	_, err = ParseKind("contract")
	assert.Error(t, err)
}

type stubExtractor struct {
	err   error
	out   Extracted
	calls int
}

func (s *stubExtractor) Extract(context.Context, Kind, Document) (Extracted, error) {
	s.calls++
	return s.out, s.err
}

func TestFallback(t *testing.T) {
	primary := &stubExtractor{err: ErrUnsupportedDocument}
	secondary := &stubExtractor{out: Extracted{Vendor: "fallback"}}

	out, err := Fallback{Primary: primary, Secondary: secondary}.Extract(context.Background(), KindReceipt, Document{})
	require.NoError(t, err)
	assert.Equal(t, "fallback", out.Vendor)

	boom := errors.New("boom")
	primary.err = boom
	_, err = Fallback{Primary: primary, Secondary: secondary}.Extract(context.Background(), KindReceipt, Document{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, secondary.calls, "only unsupported documents fall back")
}
