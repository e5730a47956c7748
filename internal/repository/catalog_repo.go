package repository

import (
	"context"

	"delegate-portal/internal/models"

	"gorm.io/gorm"
)

type CatalogRepo interface {
	Create(ctx context.Context, it *models.CatalogItem) error
	// GetByCodes resolves active catalog entries in one query. Unknown codes
	// are absent from the result.
	GetByCodes(ctx context.Context, codes []string) (map[string]models.CatalogItem, error)
}

type catalogRepo struct{ db *gorm.DB }

func NewCatalogRepo(db *gorm.DB) CatalogRepo { return &catalogRepo{db: db} }

func (r *catalogRepo) Create(ctx context.Context, it *models.CatalogItem) error {
	return r.db.WithContext(ctx).Create(it).Error
}

func (r *catalogRepo) GetByCodes(ctx context.Context, codes []string) (map[string]models.CatalogItem, error) {
	out := make(map[string]models.CatalogItem, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	var rows []models.CatalogItem
	if err := r.db.WithContext(ctx).Where("item_code IN ? AND active = ?", codes, true).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, it := range rows {
		out[it.ItemCode] = it
	}
	return out, nil
}
