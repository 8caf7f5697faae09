// Package extract reads data out of uploaded voucher documents.
package extract

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind is the type of an uploaded document.
type Kind string

// Document kinds.
const (
	KindReceipt    Kind = "receipt"
	KindTaxInvoice Kind = "tax_invoice"
	KindInvoice    Kind = "invoice"
)

// Kinds lists every document kind in upload-panel order.
var Kinds = []Kind{KindReceipt, KindTaxInvoice, KindInvoice}

// Label returns the Korean name of the document kind.
func (k Kind) Label() string {
	switch k {
	case KindReceipt:
		return "영수증"
	case KindTaxInvoice:
		return "세금계산서"
	case KindInvoice:
		return "Invoice"
	}
	return string(k)
}

// ParseKind validates a document kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindReceipt, KindTaxInvoice, KindInvoice:
		return k, nil
	case "tax-invoice", "taxinvoice":
		return KindTaxInvoice, nil
	}
	return "", fmt.Errorf("unknown document kind %q", s)
}

// ErrUnsupportedDocument is returned for files outside the accept filter or
// formats an extractor cannot read.
var ErrUnsupportedDocument = errors.New("unsupported document")

// Document is an uploaded file held in memory.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Extracted holds the fields read from a document. Empty strings and a
// zero Amount with HasAmount false mean the field was not found.
type Extracted struct {
	Account   string
	Vendor    string
	Date      string
	Amount    decimal.Decimal
	HasAmount bool
}

// DocumentExtractor reads voucher fields out of a document.
type DocumentExtractor interface {
	Extract(ctx context.Context, kind Kind, doc Document) (Extracted, error)
}

// Accepts reports whether a file passes the upload filter: any image type,
// or a .pdf extension.
func Accepts(name, mimeType string) bool {
	if strings.HasPrefix(mimeType, "image/") {
		return true
	}
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// DetectMIMEType guesses the media type from the extension, then the content.
func DetectMIMEType(name string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return http.DetectContentType(data)
}

// NewDocument builds a document from bytes, enforcing the accept filter.
func NewDocument(name string, data []byte) (Document, error) {
	doc := Document{Name: filepath.Base(name), MIMEType: DetectMIMEType(name, data), Data: data}
	if !Accepts(doc.Name, doc.MIMEType) {
		return Document{}, fmt.Errorf("%w: %s (%s)", ErrUnsupportedDocument, doc.Name, doc.MIMEType)
	}
	return doc, nil
}

// LoadDocument reads a file fully into memory.
func LoadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}
	return NewDocument(path, data)
}

// IsPDF reports whether the document is a PDF.
func (d Document) IsPDF() bool {
	return d.MIMEType == "application/pdf" || strings.EqualFold(filepath.Ext(d.Name), ".pdf")
}

// Fallback tries primary and falls back to secondary when primary cannot
// read the document format.
type Fallback struct {
	Primary   DocumentExtractor
	Secondary DocumentExtractor
}

// Extract implements DocumentExtractor.
func (f Fallback) Extract(ctx context.Context, kind Kind, doc Document) (Extracted, error) {
	out, err := f.Primary.Extract(ctx, kind, doc)
	if errors.Is(err, ErrUnsupportedDocument) && f.Secondary != nil {
		return f.Secondary.Extract(ctx, kind, doc)
	}
	return out, err
}
