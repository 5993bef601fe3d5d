package purchase

import (
	"context"

	domain "github.com/mgallardo/gamestore/internal/domain/purchase"
)

var ErrNotFound = domain.ErrNotFound

// Service exposes the purchase history. Purchases are written only by
// settlement; this service is read-only.
type Service struct {
	repo domain.Repository
}

func NewService(repo domain.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) History(ctx context.Context, userID string) ([]*domain.Purchase, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Purchase, error) {
	return s.repo.FindByID(ctx, id)
}
