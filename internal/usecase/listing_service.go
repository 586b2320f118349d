package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/gifthawk/internal/domain/listing"
)

type ListingService struct {
	repo listing.Repository
}

func NewListingService(repo listing.Repository) *ListingService {
	return &ListingService{repo: repo}
}

func (s *ListingService) List(ctx context.Context, f listing.Filter) ([]listing.Listing, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ListingService.List")
	defer span.End()

	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	return s.repo.List(ctx, f)
}

func (s *ListingService) GetByCode(ctx context.Context, code string) (listing.Listing, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ListingService.GetByCode")
	defer span.End()

	if code == "" {
		return listing.Listing{}, fmt.Errorf("%w: listing code is required", ErrInvalidInput)
	}

	item, found, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return listing.Listing{}, fmt.Errorf("get listing code=%s: %w", code, err)
	}
	if !found {
		return listing.Listing{}, fmt.Errorf("%w: listing code=%s", ErrNotFound, code)
	}
	return item, nil
}
