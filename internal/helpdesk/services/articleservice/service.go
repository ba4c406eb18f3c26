package articleservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/repository/articlecache"
	repo "github.com/Leopold1975/helpdesk/internal/helpdesk/repository/articlerepo"
	"github.com/Leopold1975/helpdesk/pkg/logger"
)

var (
	ErrNotFound     = repo.ErrNotFound
	ErrEmptyKeyword = errors.New("search keyword is empty")
	ErrEmptyTitle   = errors.New("article title is empty")
)

type ArticleService struct {
	articleRepo  Repository
	users        UserLister
	articleCache Cache
	lg           logger.Logger
	now          func() time.Time

	idMu   sync.Mutex
	lastID int64
}

type Repository interface {
	AddArticle(context.Context, string, models.HelpArticle) error
	UpdateArticle(context.Context, string, models.HelpArticle) error
	DeleteArticle(context.Context, string, int64) error
	ListArticles(context.Context, string) ([]models.HelpArticle, error)
	ReplaceArticles(context.Context, string, []models.HelpArticle) error
	DeleteOwner(context.Context, string) error
	Shutdown(context.Context) error
}

// UserLister yields owners in registration order.
type UserLister interface {
	ListUsers(context.Context) ([]models.User, error)
}

type Cache interface {
	GetArticles(ctx context.Context, owner string) ([]models.HelpArticle, error)
	Version(ctx context.Context, owner string) (string, error)
	SetArticles(ctx context.Context, owner, version string, articles []models.HelpArticle) error
	InvalidateOwner(ctx context.Context, owner string) error
	InvalidateAll(ctx context.Context) error
	Shutdown(context.Context) error
}

func New(articleRepo Repository, users UserLister, articleCache Cache, lg logger.Logger) *ArticleService {
	return &ArticleService{ //nolint:exhaustruct
		articleRepo:  articleRepo,
		users:        users,
		articleCache: articleCache,
		lg:           lg,
		now:          time.Now,
	}
}

func (as *ArticleService) CreateArticle(ctx context.Context, owner string, req ArticleRequest) (models.HelpArticle, error) {
	if strings.TrimSpace(req.Title) == "" {
		return models.HelpArticle{}, ErrEmptyTitle
	}

	a := fromRequest(as.nextID(), req)

	if err := as.articleRepo.AddArticle(ctx, owner, a); err != nil {
		return models.HelpArticle{}, fmt.Errorf("add article error: %w", err)
	}

	as.invalidate(ctx, owner)
	as.lg.Infof("article %d %q added by %s", a.ID, a.Title, owner)

	return a, nil
}

func (as *ArticleService) UpdateArticle(ctx context.Context, owner string, id int64, req ArticleRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return ErrEmptyTitle
	}

	if err := as.articleRepo.UpdateArticle(ctx, owner, fromRequest(id, req)); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}

		return fmt.Errorf("update article error: %w", err)
	}

	as.invalidate(ctx, owner)

	return nil
}

func (as *ArticleService) DeleteArticle(ctx context.Context, owner string, id int64) error {
	if err := as.articleRepo.DeleteArticle(ctx, owner, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}

		return fmt.Errorf("delete article error: %w", err)
	}

	as.invalidate(ctx, owner)
	as.lg.Infof("article %d deleted by %s", id, owner)

	return nil
}

// ListArticles treats an empty group as "all".
func (as *ArticleService) ListArticles(ctx context.Context, owner, group string) ([]models.HelpArticle, error) {
	if group == "" {
		group = models.GroupAll
	}

	articles, err := as.ownerArticles(ctx, owner)
	if err != nil {
		return nil, err
	}

	return models.FilterByGroup(articles, group), nil
}

func (as *ArticleService) SearchArticles(ctx context.Context, owner, keyword string) ([]models.HelpArticle, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}

	articles, err := as.ownerArticles(ctx, owner)
	if err != nil {
		return nil, err
	}

	return models.Search(articles, keyword), nil
}

func (as *ArticleService) DeleteOwnerArticles(ctx context.Context, owner string) error {
	if err := as.articleRepo.DeleteOwner(ctx, owner); err != nil {
		return fmt.Errorf("delete owner error: %w", err)
	}

	as.invalidate(ctx, owner)

	return nil
}

func (as *ArticleService) BackgroundRefresh(ctx context.Context, ttl time.Duration) {
	t := time.NewTicker(ttl)
	defer t.Stop()

	if err := as.refresh(ctx); err != nil {
		as.lg.Errorf("refresh error: %s", err.Error())
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := as.refresh(ctx); err != nil {
				as.lg.Errorf("refresh error: %s", err.Error())
			}
		}
	}
}

func (as *ArticleService) Shutdown(ctx context.Context) error {
	if err := as.articleCache.Shutdown(ctx); err != nil {
		as.lg.Errorf("shutdown article cache error: %s", err.Error())
	}

	if err := as.articleRepo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown article repo error: %w", err)
	}

	return nil
}

func (as *ArticleService) ownerArticles(ctx context.Context, owner string) ([]models.HelpArticle, error) {
	articles, err := as.articleCache.GetArticles(ctx, owner)
	if err == nil {
		as.lg.Debugf("cache hit for %s", owner)

		return articles, nil
	}

	if !errors.Is(err, articlecache.ErrCacheMiss) {
		as.lg.Errorf("get articles cache error: %s", err.Error())
	}

	articles, err = as.loadAndFill(ctx, owner)
	if err != nil {
		return nil, err
	}

	return articles, nil
}

// loadAndFill reads the repository and caches the result unless the owner was
// invalidated in between. The cache version is taken before the read.
func (as *ArticleService) loadAndFill(ctx context.Context, owner string) ([]models.HelpArticle, error) {
	version, verErr := as.articleCache.Version(ctx, owner)
	if verErr != nil {
		as.lg.Errorf("articles cache version error: %s", verErr.Error())
	}

	articles, err := as.articleRepo.ListArticles(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list articles error: %w", err)
	}

	if verErr != nil {
		return articles, nil
	}

	err = as.articleCache.SetArticles(ctx, owner, version, articles)

	switch {
	case errors.Is(err, articlecache.ErrStaleVersion):
		as.lg.Debugf("articles of %s changed while loading, cache not filled", owner)
	case err != nil:
		as.lg.Errorf("set articles cache error: %s", err.Error())
	}

	return articles, nil
}

func (as *ArticleService) refresh(ctx context.Context) error {
	users, err := as.users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users error: %w", err)
	}

	for _, u := range users {
		if _, err := as.loadAndFill(ctx, u.Username); err != nil {
			return fmt.Errorf("refresh %s error: %w", u.Username, err)
		}
	}

	return nil
}

func (as *ArticleService) invalidate(ctx context.Context, owner string) {
	if err := as.articleCache.InvalidateOwner(ctx, owner); err != nil {
		as.lg.Errorf("invalidate articles cache of %s error: %s", owner, err.Error())
	}
}

// nextID derives ids from the wall clock in milliseconds and keeps them
// strictly increasing when two articles land in the same millisecond.
func (as *ArticleService) nextID() int64 {
	as.idMu.Lock()
	defer as.idMu.Unlock()

	id := as.now().UnixMilli()
	if id <= as.lastID {
		id = as.lastID + 1
	}

	as.lastID = id

	return id
}

func fromRequest(id int64, req ArticleRequest) models.HelpArticle {
	return models.HelpArticle{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Keywords:    req.Keywords,
		Body:        req.Body,
		Links:       req.Links,
		Groups:      req.Groups,
		Level:       req.Level,
	}
}
