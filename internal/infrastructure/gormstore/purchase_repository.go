package gormstore

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/mgallardo/gamestore/internal/domain/purchase"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// CreateIfAbsent relies on the unique index on transaction_id: the
// INSERT ... ON CONFLICT DO NOTHING either lands the row or affects
// nothing, in one statement. No read precedes the write.
func (r *PurchaseRepository) CreateIfAbsent(ctx context.Context, p *domain.Purchase) (bool, error) {
	raw, err := marshalPurchaseItems(p.Items)
	if err != nil {
		return false, fmt.Errorf("gormstore: encode purchase items: %w", err)
	}
	row := purchaseRow{
		ID:            p.ID,
		UserID:        p.UserID,
		TransactionID: p.TransactionID,
		Total:         p.Total,
		Date:          p.Date,
		BuyOrder:      p.BuyOrder,
		PaymentType:   p.PaymentType,
		Items:         raw,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("gormstore: create purchase: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *PurchaseRepository) FindByTransactionID(ctx context.Context, transactionID string) (*domain.Purchase, error) {
	var row purchaseRow
	err := r.db.WithContext(ctx).First(&row, "transaction_id = ?", transactionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: find purchase by transaction: %w", err)
	}
	return purchaseFromRow(&row)
}

func (r *PurchaseRepository) FindByID(ctx context.Context, id string) (*domain.Purchase, error) {
	var row purchaseRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: find purchase: %w", err)
	}
	return purchaseFromRow(&row)
}

func (r *PurchaseRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Purchase, error) {
	var rows []purchaseRow
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("gormstore: list purchases: %w", err)
	}
	out := make([]*domain.Purchase, 0, len(rows))
	for i := range rows {
		p, err := purchaseFromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func purchaseFromRow(row *purchaseRow) (*domain.Purchase, error) {
	items, err := unmarshalPurchaseItems(row.Items)
	if err != nil {
		return nil, fmt.Errorf("gormstore: decode purchase items: %w", err)
	}
	return &domain.Purchase{
		ID:            row.ID,
		UserID:        row.UserID,
		TransactionID: row.TransactionID,
		Total:         row.Total,
		Date:          row.Date,
		BuyOrder:      row.BuyOrder,
		PaymentType:   row.PaymentType,
		Items:         items,
	}, nil
}
