package usecase

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"time"

	"skill-registry/internal/infrastructure/github"
	"skill-registry/internal/metrics"
)

var githubUsernamePattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9]|-[A-Za-z0-9]){0,38}$`)

type GithubClient interface {
	ListRepositories(ctx context.Context, username string) ([]github.Repository, error)
}

type GithubUsecase interface {
	Repositories(ctx context.Context, username string) ([]github.Repository, error)
}

type Github struct {
	client  GithubClient
	cache   Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *log.Logger

	lockWait time.Duration
}

func NewGithubUsecase(client GithubClient, cache Cache, ttl time.Duration, m *metrics.Metrics, logger *log.Logger) *Github {
	return &Github{client: client, cache: cache, ttl: ttl, metrics: m, logger: logger, lockWait: 300 * time.Millisecond}
}

// Repositories proxies the public repository listing of username. Results are
// cached for the configured TTL; nothing is persisted.
func (u *Github) Repositories(ctx context.Context, username string) ([]github.Repository, error) {
	username = strings.TrimSpace(username)
	if !githubUsernamePattern.MatchString(username) {
		return nil, invalidField("username", "is not a valid github username")
	}

	cacheKey := GithubReposCacheKey(username)
	if cached, ok := u.cached(ctx, cacheKey); ok {
		return cached, nil
	}

	if u.cache != nil {
		lockKey := GithubReposLockKey(cacheKey)
		ok, err := u.cache.SetIfNotExists(ctx, lockKey, "1", 10*time.Second)
		if err == nil && ok {
			defer func() { _ = u.cache.Delete(context.WithoutCancel(ctx), lockKey) }()
		} else if err == nil && !ok {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(u.lockWait):
			}
			if cached, ok := u.cached(ctx, cacheKey); ok {
				return cached, nil
			}
		}
	}

	repos, err := u.client.ListRepositories(ctx, username)
	if err != nil {
		if errors.Is(err, github.ErrNotFound) {
			return nil, ErrGithubProfileNotFound
		}
		return nil, internalError(err)
	}

	if u.cache != nil {
		if err := u.cache.SetJSON(ctx, cacheKey, repos, u.ttl); err != nil && u.logger != nil {
			u.logger.Printf("[Github] Cache write failed key=%s err=%v", cacheKey, err)
		}
	}
	return repos, nil
}

func (u *Github) cached(ctx context.Context, key string) ([]github.Repository, bool) {
	if u.cache == nil {
		return nil, false
	}
	var out []github.Repository
	hit, err := u.cache.GetJSON(ctx, key, &out)
	if err != nil {
		if u.logger != nil {
			u.logger.Printf("[Github] Cache bypassed key=%s err=%v", key, err)
		}
		return nil, false
	}
	u.metrics.CacheLookup("github", hit)
	if hit && u.logger != nil {
		u.logger.Printf("[Github] Cache HIT: %s", key)
	}
	return out, hit
}
