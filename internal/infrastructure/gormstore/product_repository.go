package gormstore

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/mgallardo/gamestore/internal/domain/catalog"
	"gorm.io/gorm"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var row productRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: get product: %w", err)
	}
	return productFromRow(&row), nil
}

func (r *ProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	var rows []productRow
	if err := r.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("gormstore: list products: %w", err)
	}
	out := make([]*domain.Product, 0, len(rows))
	for i := range rows {
		out = append(out, productFromRow(&rows[i]))
	}
	return out, nil
}

func (r *ProductRepository) Save(ctx context.Context, p *domain.Product) error {
	row := productRow{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Photo:       p.Photo,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("gormstore: save product: %w", err)
	}
	return nil
}

func (r *ProductRepository) SetStock(ctx context.Context, id string, stock int) error {
	if stock < 0 {
		return domain.ErrInvalidStock
	}
	res := r.db.WithContext(ctx).Model(&productRow{}).
		Where("id = ?", id).
		UpdateColumn("stock", stock)
	if res.Error != nil {
		return fmt.Errorf("gormstore: set stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DecrementStock runs as one conditional UPDATE so concurrent
// settlements neither lose updates nor drive stock below zero.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	res := r.db.WithContext(ctx).Model(&productRow{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("GREATEST(stock - ?, 0)", quantity))
	if res.Error != nil {
		return fmt.Errorf("gormstore: decrement stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func productFromRow(row *productRow) *domain.Product {
	return &domain.Product{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Price:       row.Price,
		Stock:       row.Stock,
		Photo:       row.Photo,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
