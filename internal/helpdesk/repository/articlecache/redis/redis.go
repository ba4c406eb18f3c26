package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/repository/articlecache"
	"github.com/Leopold1975/helpdesk/internal/pkg/config"
	"github.com/Leopold1975/helpdesk/internal/pkg/redistools"
	"github.com/redis/go-redis/v9"
)

const (
	ownersKey    = "owners"
	globalGenKey = "gen:articles"
)

// ArticleCache keeps each owner's full article list as one JSON value so the
// list order survives the round trip. The "owners" set indexes every cached owner.
type ArticleCache struct {
	rdb     *redis.Client
	expTime time.Duration
}

func New(ctx context.Context, cfg config.RedisCache) (ArticleCache, error) {
	rdb, err := redistools.NewClient(ctx, cfg)
	if err != nil {
		return ArticleCache{}, fmt.Errorf("connect error: %w", err)
	}

	return ArticleCache{
		rdb:     rdb,
		expTime: cfg.ExpTime,
	}, nil
}

func (ac ArticleCache) GetArticles(ctx context.Context, owner string) ([]models.HelpArticle, error) {
	articlesJSON, err := ac.rdb.Get(ctx, articlesKey(owner)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, articlecache.ErrCacheMiss
	} else if err != nil {
		return nil, fmt.Errorf("get error: %w", err)
	}

	var articles []models.HelpArticle

	if err := json.Unmarshal([]byte(articlesJSON), &articles); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	return articles, nil
}

// Version reads the global and the owner generation. Pass it to SetArticles
// after loading the list from the repository.
func (ac ArticleCache) Version(ctx context.Context, owner string) (string, error) {
	return readVersion(ctx, ac.rdb, owner)
}

// SetArticles stores the list only if no invalidation happened since version
// was read. Otherwise it returns articlecache.ErrStaleVersion.
func (ac ArticleCache) SetArticles(ctx context.Context, owner, version string, articles []models.HelpArticle) error {
	if articles == nil {
		articles = []models.HelpArticle{}
	}

	articlesJSON, err := json.Marshal(articles)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	err = ac.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersion(ctx, tx, owner)
		if err != nil {
			return err
		}

		if current != version {
			return articlecache.ErrStaleVersion
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, articlesKey(owner), articlesJSON, ac.expTime)
			pipe.SAdd(ctx, ownersKey, owner)

			return nil
		})

		return err //nolint:wrapcheck
	}, globalGenKey, genKey(owner))

	switch {
	case errors.Is(err, redis.TxFailedErr):
		return articlecache.ErrStaleVersion
	case errors.Is(err, articlecache.ErrStaleVersion):
		return err
	case err != nil:
		return fmt.Errorf("set error: %w", err)
	}

	return nil
}

// InvalidateOwner bumps the owner generation before dropping the list, so a
// fill that started earlier fails its version check.
func (ac ArticleCache) InvalidateOwner(ctx context.Context, owner string) error {
	_, err := ac.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(owner))
		pipe.Del(ctx, articlesKey(owner))
		pipe.SRem(ctx, ownersKey, owner)

		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate owner error: %w", err)
	}

	return nil
}

func (ac ArticleCache) InvalidateAll(ctx context.Context) error {
	if err := ac.rdb.Incr(ctx, globalGenKey).Err(); err != nil {
		return fmt.Errorf("incr error: %w", err)
	}

	owners, err := ac.rdb.SMembers(ctx, ownersKey).Result()
	if err != nil {
		return fmt.Errorf("smembers error: %w", err)
	}

	keys := make([]string, 0, len(owners)+1)
	for _, o := range owners {
		keys = append(keys, articlesKey(o))
	}

	keys = append(keys, ownersKey)

	if err := ac.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("del error: %w", err)
	}

	return nil
}

func (ac ArticleCache) Shutdown(_ context.Context) error {
	if err := ac.rdb.Close(); err != nil {
		return fmt.Errorf("close redis error: %w", err)
	}

	return nil
}

type mgetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func readVersion(ctx context.Context, rdb mgetter, owner string) (string, error) {
	vals, err := rdb.MGet(ctx, globalGenKey, genKey(owner)).Result()
	if err != nil {
		return "", fmt.Errorf("mget error: %w", err)
	}

	gens := make([]string, len(vals))

	for i, v := range vals {
		gens[i] = "0"
		if s, ok := v.(string); ok {
			gens[i] = s
		}
	}

	return strings.Join(gens, ":"), nil
}

func genKey(owner string) string {
	return "gen:articles:" + owner
}

func articlesKey(owner string) string {
	return "articles:" + owner
}
