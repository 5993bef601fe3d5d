package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/mgallardo/gamestore/internal/domain/transaction"
	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, rec *domain.Record) error {
	row := transactionRow{
		Token:     rec.Token,
		UserID:    rec.UserID,
		BuyOrder:  rec.BuyOrder,
		Flag:      rec.Flag,
		Finalized: rec.Finalized,
		CreatedAt: rec.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("gormstore: create transaction record: %w", err)
	}
	return nil
}

func (r *TransactionRepository) Get(ctx context.Context, token string) (*domain.Record, error) {
	var row transactionRow
	err := r.db.WithContext(ctx).First(&row, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: get transaction record: %w", err)
	}
	return recordFromRow(&row), nil
}

func (r *TransactionRepository) MarkFinalized(ctx context.Context, token string) error {
	res := r.db.WithContext(ctx).Model(&transactionRow{}).
		Where("token = ?", token).
		UpdateColumn("finalized", true)
	if res.Error != nil {
		return fmt.Errorf("gormstore: finalize transaction record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *TransactionRepository) ListStalePending(ctx context.Context, before time.Time) ([]*domain.Record, error) {
	var rows []transactionRow
	err := r.db.WithContext(ctx).
		Where("finalized = ? AND created_at < ?", false, before).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("gormstore: list stale transactions: %w", err)
	}
	out := make([]*domain.Record, 0, len(rows))
	for i := range rows {
		out = append(out, recordFromRow(&rows[i]))
	}
	return out, nil
}

func (r *TransactionRepository) Delete(ctx context.Context, token string) error {
	err := r.db.WithContext(ctx).Delete(&transactionRow{}, "token = ?", token).Error
	if err != nil {
		return fmt.Errorf("gormstore: delete transaction record: %w", err)
	}
	return nil
}

func recordFromRow(row *transactionRow) *domain.Record {
	return &domain.Record{
		Token:     row.Token,
		UserID:    row.UserID,
		BuyOrder:  row.BuyOrder,
		Flag:      row.Flag,
		Finalized: row.Finalized,
		CreatedAt: row.CreatedAt,
	}
}
