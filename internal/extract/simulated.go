package extract

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/yesan/internal/model"
)

// Values produced by the simulated extractor.
const (
	SimulatedReceiptVendor    = "거래처명"
	SimulatedTaxInvoiceVendor = "세금계산서 거래처"
	SimulatedInvoiceVendor    = "Invoice 거래처"
	SimulatedAccount          = "123-456-789"
)

// Simulated fabricates plausible document data without reading the file.
type Simulated struct {
	rng *rand.Rand
	now func() time.Time
	mu  sync.Mutex
}

// NewSimulated creates a simulated extractor. Nil arguments default to a
// clock-seeded source and time.Now.
func NewSimulated(src rand.Source, now func() time.Time) *Simulated {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	if now == nil {
		now = time.Now
	}
	return &Simulated{rng: rand.New(src), now: now} //nolint:gosec // fake data
}

// Extract implements DocumentExtractor.
func (s *Simulated) Extract(ctx context.Context, kind Kind, _ Document) (Extracted, error) {
	if err := ctx.Err(); err != nil {
		return Extracted{}, err
	}

	today := s.now().UTC().Format(model.DateLayout)
	switch kind {
	case KindReceipt:
		return Extracted{
			Amount:    s.amount(100000, 1000000),
			HasAmount: true,
			Vendor:    SimulatedReceiptVendor,
			Date:      today,
		}, nil
	case KindTaxInvoice:
		return Extracted{
			Account:   SimulatedAccount,
			Amount:    s.amount(1000000, 5000000),
			HasAmount: true,
			Vendor:    SimulatedTaxInvoiceVendor,
			Date:      today,
		}, nil
	default:
		return Extracted{
			Amount:    s.amount(1000000, 5000000),
			HasAmount: true,
			Vendor:    SimulatedInvoiceVendor,
			Date:      today,
		}, nil
	}
}

// amount returns a whole number in [base, base+span).
func (s *Simulated) amount(base, span int64) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decimal.NewFromInt(base + s.rng.Int63n(span))
}
