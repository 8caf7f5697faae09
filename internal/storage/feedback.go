package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Veraticus/yesan/internal/model"
)

// SaveFeedback appends an accepted feedback submission and sets its id.
func (s *SQLiteStorage) SaveFeedback(ctx context.Context, record *model.FeedbackRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateFeedbackRecord(record); err != nil {
		return err
	}

	state, err := json.Marshal(record.Feedback.State)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	next, err := json.Marshal(record.Feedback.NextState)
	if err != nil {
		return fmt.Errorf("failed to encode next state: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (category, action, reward, state, next_state, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.Category, string(record.Feedback.Action), record.Feedback.Reward,
		string(state), string(next), record.RecordedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read feedback id: %w", err)
	}
	record.ID = id
	return nil
}

// ListFeedback returns the most recent feedback first. A limit of zero or
// less returns everything.
func (s *SQLiteStorage) ListFeedback(ctx context.Context, limit int) ([]model.FeedbackRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT id, category, action, reward, state, next_state, recorded_at
		FROM feedback ORDER BY recorded_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.FeedbackRecord
	for rows.Next() {
		var (
			r           model.FeedbackRecord
			action      string
			state, next string
		)
		if err := rows.Scan(&r.ID, &r.Category, &action, &r.Feedback.Reward, &state, &next, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		r.Feedback.Action = model.Action(action)
		if err := json.Unmarshal([]byte(state), &r.Feedback.State); err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
		if err := json.Unmarshal([]byte(next), &r.Feedback.NextState); err != nil {
			return nil, fmt.Errorf("decode next state: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return records, nil
}
