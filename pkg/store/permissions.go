package store

import (
	"context"

	"duckpay/models"
)

// CatalogNode is a permission as shown in the public catalog.
type CatalogNode struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CatalogCategory groups catalog nodes under their category label.
type CatalogCategory struct {
	Category string        `json:"category"`
	Children []CatalogNode `json:"children"`
}

func (s *Store) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	if err := s.db.WithContext(ctx).Order("category, name").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

// PermissionCatalog returns the catalog grouped by category, in category order.
// Results are cached until the TTL passes or PurgeCatalog is called.
func (s *Store) PermissionCatalog(ctx context.Context) ([]CatalogCategory, error) {
	if cached, ok := s.catalog.Get(catalogKey); ok {
		return cached, nil
	}
	perms, err := s.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	var out []CatalogCategory
	for _, p := range perms {
		if len(out) == 0 || out[len(out)-1].Category != p.Category {
			out = append(out, CatalogCategory{Category: p.Category})
		}
		last := &out[len(out)-1]
		last.Children = append(last.Children, CatalogNode{ID: p.ID, Name: p.Name, Description: p.Description})
	}
	if out == nil {
		out = []CatalogCategory{}
	}
	s.catalog.Add(catalogKey, out)
	return out, nil
}

// PurgeCatalog drops the cached catalog.
func (s *Store) PurgeCatalog() {
	s.catalog.Purge()
}
