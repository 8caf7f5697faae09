package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/Veraticus/yesan/internal/common"
	"github.com/Veraticus/yesan/internal/model"
	"github.com/Veraticus/yesan/internal/service"
)

// SaveVoucher records an acknowledged submission. Ids are unique.
func (s *SQLiteStorage) SaveVoucher(ctx context.Context, record *model.VoucherRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateVoucherRecord(record); err != nil {
		return err
	}

	payload, err := json.Marshal(record.Voucher)
	if err != nil {
		return fmt.Errorf("failed to encode voucher: %w", err)
	}
	attachments, err := json.Marshal(record.Attachments)
	if err != nil {
		return fmt.Errorf("failed to encode attachments: %w", err)
	}

	v := record.Voucher
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO vouchers (voucher_id, creator, transaction_date, vendor, amount,
			currency, description, payload, attachments, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.VoucherID, v.Creator, v.TransactionDate, v.Vendor, v.Amount,
		v.Currency, v.Description, string(payload), string(attachments), record.SubmittedAt.UTC())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
			return fmt.Errorf("%w: voucher %s", common.ErrDuplicateEntry, v.VoucherID)
		}
		return fmt.Errorf("failed to save voucher: %w", err)
	}
	return nil
}

// GetVoucher returns a recorded voucher or common.ErrNotFound.
func (s *SQLiteStorage) GetVoucher(ctx context.Context, id string) (*model.VoucherRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT payload, attachments, submitted_at FROM vouchers WHERE voucher_id = ?
	`, id)
	record, err := scanVoucher(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: voucher %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	return record, nil
}

// VoucherExists reports whether an id was already recorded.
func (s *SQLiteStorage) VoucherExists(ctx context.Context, id string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vouchers WHERE voucher_id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check voucher: %w", err)
	}
	return count > 0, nil
}

// ListVouchers returns recorded vouchers, newest first.
func (s *SQLiteStorage) ListVouchers(ctx context.Context, filter service.VoucherFilter) ([]model.VoucherRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.Since != nil {
		where = append(where, "submitted_at >= ?")
		args = append(args, filter.Since.UTC())
	}
	if filter.Creator != "" {
		where = append(where, "creator = ?")
		args = append(args, filter.Creator)
	}

	query := `SELECT payload, attachments, submitted_at FROM vouchers`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY submitted_at DESC, voucher_id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.VoucherRecord
	for rows.Next() {
		record, err := scanVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voucher: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVoucher(row scanner) (*model.VoucherRecord, error) {
	var (
		payload     string
		attachments sql.NullString
		record      model.VoucherRecord
	)
	if err := row.Scan(&payload, &attachments, &record.SubmittedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &record.Voucher); err != nil {
		return nil, fmt.Errorf("decode voucher payload: %w", err)
	}
	if attachments.Valid && attachments.String != "" {
		if err := json.Unmarshal([]byte(attachments.String), &record.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments: %w", err)
		}
	}
	return &record, nil
}
