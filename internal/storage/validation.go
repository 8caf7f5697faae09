package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/yesan/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidVoucher  = errors.New("invalid voucher")
	ErrInvalidFeedback = errors.New("invalid feedback")
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateVoucherRecord(r *model.VoucherRecord) error {
	if r == nil {
		return fmt.Errorf("%w: voucher record", ErrNilParameter)
	}
	if strings.TrimSpace(r.Voucher.VoucherID) == "" {
		return fmt.Errorf("%w: voucher id is required", ErrInvalidVoucher)
	}
	if r.SubmittedAt.IsZero() {
		return fmt.Errorf("%w: submission time is required", ErrInvalidVoucher)
	}
	return nil
}

func validateFeedbackRecord(r *model.FeedbackRecord) error {
	if r == nil {
		return fmt.Errorf("%w: feedback record", ErrNilParameter)
	}
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidFeedback)
	}
	if _, err := model.ParseAction(string(r.Feedback.Action)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFeedback, err)
	}
	if r.Feedback.Reward < model.MinReward || r.Feedback.Reward > model.MaxReward {
		return fmt.Errorf("%w: reward %d out of range", ErrInvalidFeedback, r.Feedback.Reward)
	}
	return nil
}
