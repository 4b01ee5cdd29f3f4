package sqlstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/afrimobile/go-smileid/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type stubLinkStore struct {
	mu          sync.Mutex
	links       map[string]core.IssuedLink
	getCalls    int
	recordCalls int
}

func (s *stubLinkStore) RecordLink(_ context.Context, result core.LinkResult, req core.LinkRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordCalls++
	if s.links == nil {
		s.links = map[string]core.IssuedLink{}
	}
	s.links[result.LinkID] = core.IssuedLink{LinkID: result.LinkID, UserID: result.UserID, Name: req.Name}
	return nil
}

func (s *stubLinkStore) Get(_ context.Context, linkID string) (core.IssuedLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	link, ok := s.links[linkID]
	if !ok {
		return core.IssuedLink{}, core.NewNotFoundError("link not found", nil)
	}
	return link, nil
}

func (s *stubLinkStore) ListByUser(_ context.Context, userID string, _ int) ([]core.IssuedLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.IssuedLink
	for _, link := range s.links {
		if link.UserID == userID {
			out = append(out, link)
		}
	}
	return out, nil
}

func TestCachedLinkStore_Get_MissFetchThenHit(t *testing.T) {
	base := &stubLinkStore{links: map[string]core.IssuedLink{
		"lnk_1": {LinkID: "lnk_1", UserID: "user-1", PartnerParams: map[string]any{"k": "v"}},
	}}
	store, err := NewCachedLinkStore(base, newTestLinkCacheService(t))
	if err != nil {
		t.Fatalf("new cached link store: %v", err)
	}

	if _, err := store.Get(context.Background(), "lnk_1"); err != nil {
		t.Fatalf("first get: %v", err)
	}
	got, err := store.Get(context.Background(), "lnk_1")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected second get to be a cache hit, base get calls=%d", base.getCalls)
	}
	if got.PartnerParams["k"] != "v" {
		t.Fatalf("unexpected cached link: %#v", got)
	}
}

func TestCachedLinkStore_RecordInvalidates(t *testing.T) {
	base := &stubLinkStore{links: map[string]core.IssuedLink{
		"lnk_1": {LinkID: "lnk_1", UserID: "user-1", Name: "old"},
	}}
	store, err := NewCachedLinkStore(base, newTestLinkCacheService(t))
	if err != nil {
		t.Fatalf("new cached link store: %v", err)
	}
	ctx := context.Background()
	if _, err := store.Get(ctx, "lnk_1"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	if err := store.RecordLink(ctx, core.LinkResult{Success: true, LinkID: "lnk_1", UserID: "user-1"}, core.LinkRequest{Name: "new"}); err != nil {
		t.Fatalf("record link: %v", err)
	}
	got, err := store.Get(ctx, "lnk_1")
	if err != nil {
		t.Fatalf("get after record: %v", err)
	}
	if got.Name != "new" || base.getCalls != 2 {
		t.Fatalf("expected refetch after invalidation, got %#v (calls=%d)", got, base.getCalls)
	}
}

func TestLinkCacheKey(t *testing.T) {
	key, err := LinkCacheKey(" lnk/1 ")
	if err != nil {
		t.Fatalf("cache key: %v", err)
	}
	if key != "go-smileid::link::v1::lnk%2F1" {
		t.Fatalf("unexpected cache key %q", key)
	}
	if _, err := LinkCacheKey(""); err == nil {
		t.Fatalf("expected error for empty link id")
	}
}

func TestNewCachedLinkStore_RequiresDependencies(t *testing.T) {
	if _, err := NewCachedLinkStore(nil, newTestLinkCacheService(t)); err == nil {
		t.Fatalf("expected error for nil base store")
	}
	if _, err := NewCachedLinkStore(&stubLinkStore{}, nil); err == nil {
		t.Fatalf("expected error for nil cache service")
	}
}

func newTestLinkCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}
