package catalog

import (
	"context"

	domain "github.com/mgallardo/gamestore/internal/domain/catalog"
)

var ErrNotFound = domain.ErrNotFound

// Service exposes catalog browsing and the admin stock override.
type Service struct {
	repo domain.Repository
}

func NewService(repo domain.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]*domain.Product, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Save(ctx context.Context, p *domain.Product) error {
	return s.repo.Save(ctx, p)
}

func (s *Service) SetStock(ctx context.Context, id string, stock int) error {
	return s.repo.SetStock(ctx, id, stock)
}
