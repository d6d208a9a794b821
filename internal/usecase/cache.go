package usecase

import (
	"context"
	"strings"
	"time"
)

// Cache is the JSON cache used for external lookups. A failing cache is
// bypassed, never surfaced.
type Cache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	SetIfNotExists(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
}

// GithubCachePrefix covers every key the GitHub lookup writes.
const GithubCachePrefix = "github:"

func normalizeCacheValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return s
}

func GithubReposCacheKey(username string) string {
	return GithubCachePrefix + "repos:" + normalizeCacheValue(username)
}

func GithubReposLockKey(cacheKey string) string {
	cacheKey = strings.TrimSpace(cacheKey)
	if strings.HasPrefix(cacheKey, "github:repos:") {
		return "github:lock:" + strings.TrimPrefix(cacheKey, "github:repos:")
	}
	return "github:lock:" + cacheKey
}
