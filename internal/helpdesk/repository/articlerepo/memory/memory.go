package memory

import (
	"context"
	"sync"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/repository/articlerepo"
)

// ArticlesMemoryRepo holds every owner's articles in insertion order.
type ArticlesMemoryRepo struct {
	mu       sync.RWMutex
	articles map[string][]models.HelpArticle
}

func New() *ArticlesMemoryRepo {
	return &ArticlesMemoryRepo{ //nolint:exhaustruct
		articles: make(map[string][]models.HelpArticle),
	}
}

func (ar *ArticlesMemoryRepo) AddArticle(_ context.Context, owner string, a models.HelpArticle) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	ar.articles[owner] = append(ar.articles[owner], a.Clone())

	return nil
}

func (ar *ArticlesMemoryRepo) UpdateArticle(_ context.Context, owner string, a models.HelpArticle) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	list := ar.articles[owner]
	for i := range list {
		if list[i].ID == a.ID {
			list[i] = a.Clone()

			return nil
		}
	}

	return articlerepo.ErrNotFound
}

func (ar *ArticlesMemoryRepo) DeleteArticle(_ context.Context, owner string, id int64) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	list := ar.articles[owner]
	kept := list[:0]

	for _, a := range list {
		if a.ID != id {
			kept = append(kept, a)
		}
	}

	if len(kept) == len(list) {
		return articlerepo.ErrNotFound
	}

	ar.articles[owner] = kept

	return nil
}

func (ar *ArticlesMemoryRepo) ListArticles(_ context.Context, owner string) ([]models.HelpArticle, error) {
	ar.mu.RLock()
	defer ar.mu.RUnlock()

	return cloneAll(ar.articles[owner]), nil
}

func (ar *ArticlesMemoryRepo) ReplaceArticles(_ context.Context, owner string, articles []models.HelpArticle) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	ar.articles[owner] = cloneAll(articles)

	return nil
}

func (ar *ArticlesMemoryRepo) DeleteOwner(_ context.Context, owner string) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	delete(ar.articles, owner)

	return nil
}

func (ar *ArticlesMemoryRepo) Shutdown(_ context.Context) error {
	return nil
}

func cloneAll(articles []models.HelpArticle) []models.HelpArticle {
	res := make([]models.HelpArticle, 0, len(articles))
	for _, a := range articles {
		res = append(res, a.Clone())
	}

	return res
}
