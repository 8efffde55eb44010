package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/model"
	"github.com/iliyamo/cafe-pos/internal/store"
)

// CatalogService is the read-only menu the POS front end renders.
type CatalogService struct {
	base
}

func NewCatalogService(uow store.UnitOfWork, log *zap.Logger) *CatalogService {
	return &CatalogService{base: newBase(uow, log)}
}

func (s *CatalogService) Products(ctx context.Context) (products []model.Product, err error) {
	err = s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		products, err = r.Products.List(ctx)
		return err
	})
	return products, err
}

func (s *CatalogService) Product(ctx context.Context, id uint64) (product *model.Product, err error) {
	err = s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		product, err = r.Products.GetByID(ctx, id)
		return err
	})
	return product, err
}

func (s *CatalogService) Categories(ctx context.Context) (categories []model.Category, err error) {
	err = s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		categories, err = r.Categories.List(ctx)
		return err
	})
	return categories, err
}
