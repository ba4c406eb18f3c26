package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/services/articleservice"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/services/authservice"
	"github.com/Leopold1975/helpdesk/internal/pkg/config"
	"github.com/Leopold1975/helpdesk/internal/pkg/jwtauth"
	"github.com/Leopold1975/helpdesk/pkg/logger"
)

const BaseURL = "/v1"

type Server struct {
	serv           *http.Server
	articleService ArticleService
	authService    AuthService
	lg             logger.Logger
	maxBodyBytes   int64
}

type ArticleService interface {
	CreateArticle(context.Context, string, articleservice.ArticleRequest) (models.HelpArticle, error)
	UpdateArticle(context.Context, string, int64, articleservice.ArticleRequest) error
	DeleteArticle(context.Context, string, int64) error
	ListArticles(context.Context, string, string) ([]models.HelpArticle, error)
	SearchArticles(context.Context, string, string) ([]models.HelpArticle, error)
	Backup(context.Context, io.Writer) (int, error)
	Restore(context.Context, io.Reader, bool) (articleservice.RestoreSummary, error)
}

type AuthService interface {
	Login(context.Context, string, string) (authservice.LoginResult, error)
	CompleteSetup(context.Context, string, authservice.SetupRequest) (models.Screen, error)
	CreateUser(context.Context, string, authservice.RegisterUserRequest) (models.User, error)
	DeleteUser(context.Context, string, string) error
	ResetPassword(context.Context, string, string, string) error
	ListUsers(context.Context, string) ([]models.User, error)
	FindUser(context.Context, string) (models.User, error)
	Auth(context.Context, string) (jwtauth.Claims, error)
}

func New(cfg config.Server, as ArticleService, authService AuthService, lg logger.Logger) *Server {
	var s Server

	h := Handler(&s, BaseURL, loggingMiddleware(lg))
	serv := &http.Server{ //nolint:exhaustruct
		Addr:         cfg.Addr,
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	s.serv = serv
	s.articleService = as
	s.authService = authService
	s.lg = lg

	s.maxBodyBytes = cfg.MaxBodyBytes
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = config.DefaultMaxBodyBytes
	}

	return &s
}

// Handler exposes the router, mostly for httptest.
func (s *Server) Handler() http.Handler {
	return s.serv.Handler
}

func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error)

	go func() {
		if err := s.serv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			close(errCh)
		}
	}()

	select {
	case <-ctx.Done():
		ctxS, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
		defer cancel()

		if err := s.Shutdown(ctxS); err != nil { //nolint:contextcheck
			return fmt.Errorf("context error: %w server error %w", ctxS.Err(), err)
		}

		if !errors.Is(ctx.Err(), context.Canceled) {
			return fmt.Errorf("context cancelled error: %w", ctx.Err())
		}

		return nil
	case err := <-errCh:
		return fmt.Errorf("listen and serve error: %w", err)
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctxS, cancel := context.WithTimeout(ctx, s.serv.IdleTimeout)
	defer cancel()

	if err := s.serv.Shutdown(ctxS); err != nil {
		return fmt.Errorf("shutdown server error: %w", err)
	}

	return nil
}

// Вход пользователя; первый вход в пустую систему создаёт администратора
// (POST /auth).
func (s *Server) PostAuth(w http.ResponseWriter, r *http.Request) {
	var b PostAuthJSONBody

	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	if b.Password == nil || b.Username == nil {
		handleError(w, fmt.Errorf("not enough parameters to auth user"), http.StatusBadRequest) //nolint:perfsprint

		return
	}

	res, err := s.authService.Login(r.Context(), *b.Username, *b.Password)
	if err != nil {
		handleServiceError(w, fmt.Errorf("login error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, AuthUserResponse{Token: res.Token, Next: res.Next, Role: res.User.Role})
}

// Заполнение профиля после первого входа
// (POST /setup).
func (s *Server) PostSetup(w http.ResponseWriter, r *http.Request, params TokenParams) {
	var b PostSetupJSONBody

	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	next, err := s.authService.CompleteSetup(r.Context(), token(params.Token), authservice.SetupRequest{
		Email:         b.Email,
		FirstName:     b.FirstName,
		MiddleName:    b.MiddleName,
		LastName:      b.LastName,
		PreferredName: b.PreferredName,
		Topics:        b.Topics,
	})
	if err != nil {
		handleServiceError(w, fmt.Errorf("setup error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, SetupResponse{Next: next})
}

// (GET /me).
func (s *Server) GetMe(w http.ResponseWriter, r *http.Request, params TokenParams) {
	claims, err := s.authService.Auth(r.Context(), token(params.Token))
	if err != nil {
		handleServiceError(w, fmt.Errorf("authorization error: %w", err))

		return
	}

	u, err := s.authService.FindUser(r.Context(), claims.Username)
	if err != nil {
		handleServiceError(w, fmt.Errorf("find user error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// Список пользователей, только для администратора
// (GET /users).
func (s *Server) GetUsers(w http.ResponseWriter, r *http.Request, params TokenParams) {
	users, err := s.authService.ListUsers(r.Context(), token(params.Token))
	if err != nil {
		handleServiceError(w, fmt.Errorf("list users error: %w", err))

		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Создание пользователя администратором
// (POST /users).
func (s *Server) PostUser(w http.ResponseWriter, r *http.Request, params TokenParams) {
	var b PostUserJSONBody

	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	if b.Password == nil || b.Username == nil || b.Role == nil {
		handleError(w, fmt.Errorf("not enough parameters to call create user"), http.StatusBadRequest) //nolint:perfsprint

		return
	}

	expiry, err := b.expiry()
	if err != nil {
		handleError(w, err, http.StatusBadRequest)

		return
	}

	u, err := s.authService.CreateUser(r.Context(), token(params.Token), authservice.RegisterUserRequest{
		Username:        *b.Username,
		Password:        *b.Password,
		Role:            models.Role(*b.Role),
		OneTimePassword: b.OneTimePassword,
		OTPExpiry:       expiry,
	})
	if err != nil {
		handleServiceError(w, fmt.Errorf("create user error: %w", err))

		return
	}

	writeJSON(w, http.StatusCreated, CreateUserResponse{Username: u.Username, Role: u.Role})
}

// (DELETE /users/{username}).
func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request, username string, params TokenParams) {
	if err := s.authService.DeleteUser(r.Context(), token(params.Token), username); err != nil {
		handleServiceError(w, fmt.Errorf("delete user error: %w", err))

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Сброс пароля; одноразовый пароль при этом отключается
// (PUT /users/{username}/password).
func (s *Server) PutUserPassword(w http.ResponseWriter, r *http.Request, username string, params TokenParams) {
	var b PutPasswordJSONBody

	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	if b.Password == nil {
		handleError(w, fmt.Errorf("password required"), http.StatusBadRequest) //nolint:perfsprint

		return
	}

	if err := s.authService.ResetPassword(r.Context(), token(params.Token), username, *b.Password); err != nil {
		handleServiceError(w, fmt.Errorf("reset password error: %w", err))

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func token(t *string) string {
	if t == nil {
		return ""
	}

	return *t
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	bts, err := json.Marshal(v)
	if err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(bts) //nolint:errcheck
}
