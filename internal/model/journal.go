package model

import "time"

// VoucherRecord is a locally acknowledged voucher submission.
type VoucherRecord struct {
	SubmittedAt time.Time
	Attachments []string
	Voucher     Voucher
}

// FeedbackRecord is an RL feedback submission the backend accepted.
type FeedbackRecord struct {
	RecordedAt time.Time
	Category   string
	Feedback   Feedback
	ID         int64
}
