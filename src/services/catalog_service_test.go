package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/cancat/client/src/models"
)

type fakeCatalogAPI struct {
	tags  []models.Tag
	rules []models.Rule

	tagCalls   int
	ruleCalls  int
	createErr  error
	deleteErr  error
	deletedIDs []int64
}

func (f *fakeCatalogAPI) Tags(ctx context.Context) ([]models.Tag, error) {
	f.tagCalls++
	return f.tags, nil
}

func (f *fakeCatalogAPI) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	tag := models.Tag{ID: int64(len(f.tags) + 1), Name: name}
	f.tags = append(f.tags, tag)
	return &tag, nil
}

func (f *fakeCatalogAPI) Rules(ctx context.Context) ([]models.Rule, error) {
	f.ruleCalls++
	return f.rules, nil
}

func (f *fakeCatalogAPI) DeleteRule(ctx context.Context, id int64) error {
	f.deletedIDs = append(f.deletedIDs, id)
	return f.deleteErr
}

func newTestService(api CatalogAPI) CatalogService {
	return NewCatalogService(api, cache.New(time.Minute, time.Minute))
}

func TestTagsAreServedFromCache(t *testing.T) {
	fake := &fakeCatalogAPI{tags: []models.Tag{{ID: 1, Name: "Groceries"}}}
	svc := newTestService(fake)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tags, err := svc.Tags(ctx)
		if err != nil {
			t.Fatalf("Tags: %v", err)
		}
		if len(tags) != 1 || tags[0].Name != "Groceries" {
			t.Fatalf("tags = %+v", tags)
		}
	}
	if fake.tagCalls != 1 {
		t.Fatalf("API called %d times, want 1 (cache miss only)", fake.tagCalls)
	}
}

func TestRefreshTagsBypassesCache(t *testing.T) {
	fake := &fakeCatalogAPI{}
	svc := newTestService(fake)
	ctx := context.Background()

	if _, err := svc.Tags(ctx); err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if _, err := svc.RefreshTags(ctx); err != nil {
		t.Fatalf("RefreshTags: %v", err)
	}
	if fake.tagCalls != 2 {
		t.Fatalf("API called %d times, want 2", fake.tagCalls)
	}
}

func TestCreateTagInvalidatesTagCache(t *testing.T) {
	fake := &fakeCatalogAPI{}
	svc := newTestService(fake)
	ctx := context.Background()

	if _, err := svc.Tags(ctx); err != nil {
		t.Fatalf("Tags: %v", err)
	}
	tag, err := svc.CreateTag(ctx, "Travel")
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if tag.Name != "Travel" {
		t.Fatalf("created tag = %+v", tag)
	}

	tags, err := svc.Tags(ctx)
	if err != nil {
		t.Fatalf("Tags after create: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "Travel" {
		t.Fatalf("tags after create = %+v, want the new tag visible", tags)
	}
	if fake.tagCalls != 2 {
		t.Fatalf("API called %d times, want 2 (cache dropped by create)", fake.tagCalls)
	}
}

func TestDeleteRuleInvalidatesRuleCacheEvenOnFailure(t *testing.T) {
	fake := &fakeCatalogAPI{
		rules:     []models.Rule{{ID: 5, Label: "AMZN*MKTP", Nickname: "Amazon"}},
		deleteErr: errors.New("boom"),
	}
	svc := newTestService(fake)
	ctx := context.Background()

	if _, err := svc.Rules(ctx); err != nil {
		t.Fatalf("Rules: %v", err)
	}
	if err := svc.DeleteRule(ctx, 5); err == nil {
		t.Fatal("DeleteRule returned nil, want wrapped error")
	}
	if _, err := svc.Rules(ctx); err != nil {
		t.Fatalf("Rules after delete: %v", err)
	}
	if fake.ruleCalls != 2 {
		t.Fatalf("API called %d times, want 2 (cache dropped despite failure)", fake.ruleCalls)
	}
	if len(fake.deletedIDs) != 1 || fake.deletedIDs[0] != 5 {
		t.Fatalf("deleted ids = %v, want [5]", fake.deletedIDs)
	}
}
