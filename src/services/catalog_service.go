package services

import (
	"context"
	"fmt"

	"github.com/patrickmn/go-cache"
	"github.com/username/cancat/client/src/logger"
	"github.com/username/cancat/client/src/models"
)

const (
	tagsCacheKey  = "catalog:tags"
	rulesCacheKey = "catalog:rules"
)

type catalogService struct {
	api   CatalogAPI
	cache *cache.Cache
}

// NewCatalogService builds a CatalogService on top of the remote API and the
// given cache instance. The cache's default TTL applies to both catalogs.
func NewCatalogService(api CatalogAPI, c *cache.Cache) CatalogService {
	return &catalogService{api: api, cache: c}
}

func (s *catalogService) Tags(ctx context.Context) ([]models.Tag, error) {
	if cached, found := s.cache.Get(tagsCacheKey); found {
		if tags, ok := cached.([]models.Tag); ok {
			return tags, nil
		}
	}
	return s.RefreshTags(ctx)
}

func (s *catalogService) RefreshTags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.api.Tags(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching tag catalog: %w", err)
	}
	s.cache.Set(tagsCacheKey, tags, cache.DefaultExpiration)
	return tags, nil
}

func (s *catalogService) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	tag, err := s.api.CreateTag(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("creating tag %q: %w", name, err)
	}
	// The server assigned the id; drop the cached catalog rather than guess
	// at its ordering.
	s.cache.Delete(tagsCacheKey)
	if logger.L != nil {
		logger.L.Info("Tag created", "tagId", tag.ID, "name", tag.Name)
	}
	return tag, nil
}

func (s *catalogService) Rules(ctx context.Context) ([]models.Rule, error) {
	if cached, found := s.cache.Get(rulesCacheKey); found {
		if rules, ok := cached.([]models.Rule); ok {
			return rules, nil
		}
	}
	return s.RefreshRules(ctx)
}

func (s *catalogService) RefreshRules(ctx context.Context) ([]models.Rule, error) {
	rules, err := s.api.Rules(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching rule catalog: %w", err)
	}
	s.cache.Set(rulesCacheKey, rules, cache.DefaultExpiration)
	return rules, nil
}

func (s *catalogService) DeleteRule(ctx context.Context, id int64) error {
	err := s.api.DeleteRule(ctx, id)
	s.cache.Delete(rulesCacheKey)
	if err != nil {
		return fmt.Errorf("deleting rule %d: %w", id, err)
	}
	return nil
}
