package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/api/server"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/repository/articlecache/noop"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/repository/articlecache/redis"
	articlemem "github.com/Leopold1975/helpdesk/internal/helpdesk/repository/articlerepo/memory"
	articlepg "github.com/Leopold1975/helpdesk/internal/helpdesk/repository/articlerepo/postgres"
	usermem "github.com/Leopold1975/helpdesk/internal/helpdesk/repository/userrepo/memory"
	userpg "github.com/Leopold1975/helpdesk/internal/helpdesk/repository/userrepo/postgres"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/services/articleservice"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/services/authservice"
	"github.com/Leopold1975/helpdesk/internal/pkg/config"
	"github.com/Leopold1975/helpdesk/internal/pkg/pgtools"
	"github.com/Leopold1975/helpdesk/pkg/logger"
)

type Server interface {
	Start(context.Context) error
	Shutdown(context.Context) error
}

type HelpdeskApp struct {
	s   Server
	lg  logger.Logger
	cfg config.Config

	Auth     *authservice.AuthService
	Articles *articleservice.ArticleService
}

type repositories struct {
	users    authservice.Repository
	articles articleservice.Repository
}

// New wires storage, cache and services. The server and the cache refresh
// are only started by Run, so the admin tool can reuse New.
func New(ctx context.Context, cfg config.Config) (HelpdeskApp, error) {
	lg, err := logger.New(cfg.Logger)
	if err != nil {
		return HelpdeskApp{}, fmt.Errorf("can't get logger error: %w", err)
	}

	repos, err := newRepositories(ctx, cfg)
	if err != nil {
		return HelpdeskApp{}, err
	}

	lg.Infof("storage backend: %s", cfg.Storage.Backend)

	var cache articleservice.Cache = noop.ArticleCache{}

	if cfg.RedisCache.Addr != "" {
		ac, err := redis.New(ctx, cfg.RedisCache)
		if err != nil {
			return HelpdeskApp{}, fmt.Errorf("redis article cache initializing error: %w", err)
		}

		cache = ac
	}

	articleService := articleservice.New(repos.articles, repos.users, cache, lg.With("service", "articles"))

	authService := authservice.New(repos.users, articleService, cfg.Auth, lg.With("service", "auth"))

	s := server.New(cfg.Server, articleService, authService, lg)

	return HelpdeskApp{
		s:        s,
		lg:       lg,
		cfg:      cfg,
		Auth:     authService,
		Articles: articleService,
	}, nil
}

func newRepositories(ctx context.Context, cfg config.Config) (repositories, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		if err := pgtools.ApplyMigration(cfg.PostgresDB); err != nil {
			return repositories{}, fmt.Errorf("apply migrations error: %w", err)
		}

		pool, err := pgtools.Connect(ctx, cfg.PostgresDB.ConnString())
		if err != nil {
			return repositories{}, fmt.Errorf("postgres initializing error: %w", err)
		}

		return repositories{
			users:    userpg.New(pool),
			articles: articlepg.New(pool),
		}, nil
	case config.BackendMemory:
		return repositories{
			users:    usermem.New(),
			articles: articlemem.New(),
		}, nil
	default:
		return repositories{}, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Storage.Backend)
	}
}

func (ha *HelpdeskApp) Logger() logger.Logger {
	return ha.lg
}

func (ha *HelpdeskApp) Run(ctx context.Context) {
	ha.lg.Infof("STARTED SERVER ON %s", ha.cfg.Server.Addr)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if ha.cfg.RedisCache.Addr != "" {
		go ha.Articles.BackgroundRefresh(ctx, ha.cfg.RedisCache.ExpTime)
	}

	go func() {
		if err := ha.s.Start(ctx); err != nil {
			ha.lg.Errorf("server start error: %s", err.Error())
			cancel()
		}
	}()

	<-ctx.Done()

	ctxS, cancelS := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancelS()

	if err := ha.Stop(ctxS); err != nil { //nolint:contextcheck
		ha.lg.Errorf("shutdown error: %s", err.Error())
	}
}

// Stop shuts the server down, then the storage behind it.
func (ha *HelpdeskApp) Stop(ctx context.Context) error {
	if err := ha.s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	return ha.Close(ctx)
}

// Close releases storage and cache without touching the server.
func (ha *HelpdeskApp) Close(ctx context.Context) error {
	if err := ha.Articles.Shutdown(ctx); err != nil {
		return fmt.Errorf("article service shutdown error: %w", err)
	}

	if err := ha.Auth.Shutdown(ctx); err != nil {
		return fmt.Errorf("auth service shutdown error: %w", err)
	}

	ha.lg.Info("Shutdowned successfully")

	_ = ha.lg.Sync()

	return nil
}
