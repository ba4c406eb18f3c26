package noop

import (
	"context"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/repository/articlecache"
)

// ArticleCache is used when no redis address is configured: every read misses.
type ArticleCache struct{}

func (ArticleCache) GetArticles(context.Context, string) ([]models.HelpArticle, error) {
	return nil, articlecache.ErrCacheMiss
}

func (ArticleCache) Version(context.Context, string) (string, error) { return "", nil }

func (ArticleCache) SetArticles(context.Context, string, string, []models.HelpArticle) error {
	return nil
}

func (ArticleCache) InvalidateOwner(context.Context, string) error { return nil }

func (ArticleCache) InvalidateAll(context.Context) error { return nil }

func (ArticleCache) Shutdown(context.Context) error { return nil }
