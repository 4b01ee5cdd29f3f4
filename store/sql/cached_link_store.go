package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/afrimobile/go-smileid/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const linkCacheKeyPrefix = "go-smileid::link::v1"

// LinkReadWriter is the LinkStore surface wrapped by CachedLinkStore.
type LinkReadWriter interface {
	core.LinkRecorder
	Get(ctx context.Context, linkID string) (core.IssuedLink, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]core.IssuedLink, error)
}

// CachedLinkStore serves single-link reads from a go-repository-cache
// service. Writes go to the base store and drop the cached entry.
type CachedLinkStore struct {
	base  LinkReadWriter
	cache repositorycache.CacheService
}

func NewCachedLinkStore(base LinkReadWriter, cacheService repositorycache.CacheService) (*CachedLinkStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base link store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: link cache service is required")
	}
	return &CachedLinkStore{base: base, cache: cacheService}, nil
}

// LinkCacheKey returns go-smileid::link::v1::<link_id> with the id
// URL-path escaped.
func LinkCacheKey(linkID string) (string, error) {
	trimmed := strings.TrimSpace(linkID)
	if trimmed == "" {
		return "", core.NewBadInputError("sqlstore: link id is required", nil)
	}
	return linkCacheKeyPrefix + "::" + url.PathEscape(trimmed), nil
}

func (s *CachedLinkStore) Get(ctx context.Context, linkID string) (core.IssuedLink, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.IssuedLink{}, fmt.Errorf("sqlstore: cached link store is not configured")
	}
	cacheKey, err := LinkCacheKey(linkID)
	if err != nil {
		return core.IssuedLink{}, err
	}
	link, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.IssuedLink, error) {
		return s.base.Get(ctx, strings.TrimSpace(linkID))
	})
	if err != nil {
		return core.IssuedLink{}, err
	}
	return cloneIssuedLink(link), nil
}

// ListByUser is not cached; the result set changes with every issuance.
func (s *CachedLinkStore) ListByUser(ctx context.Context, userID string, limit int) ([]core.IssuedLink, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached link store is not configured")
	}
	return s.base.ListByUser(ctx, userID, limit)
}

func (s *CachedLinkStore) RecordLink(ctx context.Context, result core.LinkResult, req core.LinkRequest) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached link store is not configured")
	}
	if err := s.base.RecordLink(ctx, result, req); err != nil {
		return err
	}
	if strings.TrimSpace(result.LinkID) == "" {
		return nil
	}
	cacheKey, err := LinkCacheKey(result.LinkID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func cloneIssuedLink(link core.IssuedLink) core.IssuedLink {
	cloned := link
	cloned.PartnerParams = copyAnyMap(link.PartnerParams)
	cloned.ExpiresAt = copyTimePointer(link.ExpiresAt)
	return cloned
}
