package services

import (
	"context"

	"github.com/username/cancat/client/src/models"
)

// CatalogAPI is the slice of the remote API the catalog service needs.
// *api.Client satisfies it.
type CatalogAPI interface {
	Tags(ctx context.Context) ([]models.Tag, error)
	CreateTag(ctx context.Context, name string) (*models.Tag, error)
	Rules(ctx context.Context) ([]models.Rule, error)
	DeleteRule(ctx context.Context, id int64) error
}

// CatalogService serves the tag and rule catalogs. Tags and Rules answer
// from a TTL cache when possible; the Refresh variants always hit the API
// and re-prime the cache. Mutations invalidate the affected catalog so the
// next read cannot serve a stale copy.
type CatalogService interface {
	Tags(ctx context.Context) ([]models.Tag, error)
	RefreshTags(ctx context.Context) ([]models.Tag, error)
	CreateTag(ctx context.Context, name string) (*models.Tag, error)

	Rules(ctx context.Context) ([]models.Rule, error)
	RefreshRules(ctx context.Context) ([]models.Rule, error)
	DeleteRule(ctx context.Context, id int64) error
}
