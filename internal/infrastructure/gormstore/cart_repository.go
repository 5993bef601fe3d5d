package gormstore

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/mgallardo/gamestore/internal/domain/cart"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) Get(ctx context.Context, userID string, kind domain.Kind) (*domain.Cart, error) {
	var row cartRow
	err := r.db.WithContext(ctx).
		First(&row, "user_id = ? AND kind = ?", userID, string(kind)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: get cart: %w", err)
	}

	items, err := unmarshalCartItems(row.Items)
	if err != nil {
		return nil, fmt.Errorf("gormstore: decode cart items: %w", err)
	}
	return &domain.Cart{
		UserID:    row.UserID,
		Kind:      domain.Kind(row.Kind),
		Items:     items,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	raw, err := marshalCartItems(c.Items)
	if err != nil {
		return fmt.Errorf("gormstore: encode cart items: %w", err)
	}
	row := cartRow{
		UserID:    c.UserID,
		Kind:      string(c.Kind),
		Items:     raw,
		UpdatedAt: c.UpdatedAt,
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("gormstore: save cart: %w", err)
	}
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, userID string, kind domain.Kind) error {
	err := r.db.WithContext(ctx).
		Delete(&cartRow{}, "user_id = ? AND kind = ?", userID, string(kind)).Error
	if err != nil {
		return fmt.Errorf("gormstore: delete cart: %w", err)
	}
	return nil
}
