package service

import (
	"context"

	"delegate-portal/internal/models"
)

// CatalogProvider resolves catalog metadata for a batch of item codes in one
// call. Codes it does not know are left out of the result.
type CatalogProvider interface {
	GetByCodes(ctx context.Context, codes []string) (map[string]models.CatalogItem, error)
}
