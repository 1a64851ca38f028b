// internal/repository/transfer_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"camera-service/internal/database"
	"camera-service/internal/model"
	"camera-service/internal/utils"
)

// transferRepository implements TransferRepository on PostgreSQL
type transferRepository struct {
	db     *database.DB
	logger *utils.ServiceLogger
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *database.DB, logger *zap.Logger) TransferRepository {
	return &transferRepository{
		db:     db,
		logger: utils.NewServiceLogger(logger, "transfer-repository"),
	}
}

const transferColumns = `id, kind, image_name, register, slot, status, expected_bytes, bytes,
	started_at, completed_at, duration_ms, bytes_per_second, error_code, error_message`

// Create inserts a transfer
func (r *transferRepository) Create(ctx context.Context, t *model.Transfer) error {
	query := `
		INSERT INTO transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Kind, t.ImageName, t.Register, t.Slot, t.Status, t.Expected, t.Bytes,
		t.StartedAt, t.CompletedAt, t.DurationMs, t.Rate, t.ErrorCode, t.ErrorMessage,
	)
	if err != nil {
		r.logger.Error("Failed to create transfer", zap.Error(err))
		return fmt.Errorf("failed to create transfer: %w", err)
	}
	return nil
}

// Update stores the progress or outcome of a transfer
func (r *transferRepository) Update(ctx context.Context, t *model.Transfer) error {
	query := `
		UPDATE transfers SET
			status = $2, bytes = $3, completed_at = $4, duration_ms = $5,
			bytes_per_second = $6, error_code = $7, error_message = $8
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		t.ID, t.Status, t.Bytes, t.CompletedAt, t.DurationMs, t.Rate, t.ErrorCode, t.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("transfer %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

// GetByID retrieves a transfer by ID
func (r *transferRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Transfer, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id)
	t, err := scanTransfer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transfer %s: %w", id, ErrNotFound)
	}
	return t, err
}

// List returns transfers, newest first, with the total matching count
func (r *transferRepository) List(ctx context.Context, filter *model.TransferFilter) ([]*model.Transfer, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ImageName != "" {
		args = append(args, filter.ImageName)
		where = append(where, fmt.Sprintf("image_name = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transfers`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transfers: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM transfers%s ORDER BY started_at DESC LIMIT $%d OFFSET $%d`,
		transferColumns, clause, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*model.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, 0, err
		}
		transfers = append(transfers, t)
	}
	return transfers, total, rows.Err()
}

// GetStats summarises the transfer log
func (r *transferRepository) GetStats(ctx context.Context) (*TransferStats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE status = 'FAILED'),
			COUNT(*) FILTER (WHERE status = 'RUNNING'),
			COALESCE(SUM(bytes) FILTER (WHERE status = 'COMPLETED'), 0)
		FROM transfers
	`
	s := &TransferStats{}
	if err := r.db.QueryRowContext(ctx, query).Scan(&s.Total, &s.Completed, &s.Failed, &s.Running, &s.TotalBytes); err != nil {
		return nil, fmt.Errorf("failed to get transfer stats: %w", err)
	}
	return s, nil
}

// DeleteOlderThan removes finished transfers started before olderThan
func (r *transferRepository) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	const query = `DELETE FROM transfers WHERE started_at < $1 AND status IN ('COMPLETED', 'FAILED')`
	start := time.Now()
	result, err := r.db.ExecContext(ctx, query, olderThan)
	r.logger.LogDatabaseQuery(query, time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old transfers: %w", err)
	}
	return result.RowsAffected()
}

func scanTransfer(s scanner) (*model.Transfer, error) {
	t := &model.Transfer{}
	err := s.Scan(&t.ID, &t.Kind, &t.ImageName, &t.Register, &t.Slot, &t.Status, &t.Expected, &t.Bytes,
		&t.StartedAt, &t.CompletedAt, &t.DurationMs, &t.Rate, &t.ErrorCode, &t.ErrorMessage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transfer: %w", err)
	}
	return t, nil
}
