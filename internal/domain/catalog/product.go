package catalog

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("catalog: product not found")
	ErrInvalidStock = errors.New("catalog: stock must be zero or greater")
)

type Product struct {
	ID          string
	Name        string
	Description string
	Price       int64
	Stock       int
	Photo       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewProduct(id, name string, price int64, stock int, photo string) (*Product, error) {
	if stock < 0 {
		return nil, ErrInvalidStock
	}
	now := time.Now().UTC()
	return &Product{
		ID:        id,
		Name:      name,
		Price:     price,
		Stock:     stock,
		Photo:     photo,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
