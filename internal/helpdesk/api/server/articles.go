package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/services/articleservice"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/services/authservice"
	"github.com/Leopold1975/helpdesk/internal/pkg/jwtauth"
)

// authorize resolves the caller and, when manage is set, requires a role
// that may edit articles. It writes the error response itself.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, t *string, manage bool) (jwtauth.Claims, bool) {
	claims, err := s.authService.Auth(r.Context(), token(t))
	if err != nil {
		handleServiceError(w, fmt.Errorf("authorization error: %w", err))

		return jwtauth.Claims{}, false
	}

	if manage && !models.Role(claims.Role).CanManageArticles() {
		handleServiceError(w, fmt.Errorf("manage articles: %w", authservice.ErrNotAllowed))

		return jwtauth.Claims{}, false
	}

	return claims, true
}

// Статьи текущего пользователя с фильтром по группе
// (GET /articles).
func (s *Server) GetArticles(w http.ResponseWriter, r *http.Request, params GetArticlesParams) {
	claims, ok := s.authorize(w, r, params.Token, false)
	if !ok {
		return
	}

	group := models.GroupAll
	if params.Group != nil {
		group = *params.Group
	}

	articles, err := s.articleService.ListArticles(r.Context(), claims.Username, group)
	if err != nil {
		handleServiceError(w, fmt.Errorf("list articles error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, articles)
}

// (GET /articles/search).
func (s *Server) SearchArticles(w http.ResponseWriter, r *http.Request, params SearchArticlesParams) {
	claims, ok := s.authorize(w, r, params.Token, false)
	if !ok {
		return
	}

	keyword := ""
	if params.Keyword != nil {
		keyword = *params.Keyword
	}

	articles, err := s.articleService.SearchArticles(r.Context(), claims.Username, keyword)
	if err != nil {
		handleServiceError(w, fmt.Errorf("search articles error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, articles)
}

// (POST /articles).
func (s *Server) PostArticle(w http.ResponseWriter, r *http.Request, params TokenParams) {
	claims, ok := s.authorize(w, r, params.Token, true)
	if !ok {
		return
	}

	var b ArticleJSONBody

	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	a, err := s.articleService.CreateArticle(r.Context(), claims.Username, b.request())
	if err != nil {
		handleServiceError(w, fmt.Errorf("create article error: %w", err))

		return
	}

	writeJSON(w, http.StatusCreated, CreateArticleResponse{ArticleID: a.ID})
}

// Полная замена статьи: поля, которых нет в теле, очищаются
// (PUT /articles/{id}).
func (s *Server) PutArticle(w http.ResponseWriter, r *http.Request, id int64, params TokenParams) {
	claims, ok := s.authorize(w, r, params.Token, true)
	if !ok {
		return
	}

	var b ArticleJSONBody

	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	if err := s.articleService.UpdateArticle(r.Context(), claims.Username, id, b.request()); err != nil {
		handleServiceError(w, fmt.Errorf("update article error: %w", err))

		return
	}

	w.WriteHeader(http.StatusOK)
}

// (DELETE /articles/{id}).
func (s *Server) DeleteArticle(w http.ResponseWriter, r *http.Request, id int64, params TokenParams) {
	claims, ok := s.authorize(w, r, params.Token, true)
	if !ok {
		return
	}

	if err := s.articleService.DeleteArticle(r.Context(), claims.Username, id); err != nil {
		handleServiceError(w, fmt.Errorf("delete article error: %w", err))

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Резервная копия статей всех пользователей
// (GET /articles/backup).
func (s *Server) GetBackup(w http.ResponseWriter, r *http.Request, params TokenParams) {
	if _, ok := s.authorize(w, r, params.Token, true); !ok {
		return
	}

	var buf bytes.Buffer

	if _, err := s.articleService.Backup(r.Context(), &buf); err != nil {
		handleServiceError(w, fmt.Errorf("backup error: %w", err))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="articles-backup.json"`)
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		s.lg.Errorf("write backup error: %s", err.Error())
	}
}

// Восстановление из копии; merge по умолчанию включён
// (POST /articles/restore).
func (s *Server) PostRestore(w http.ResponseWriter, r *http.Request, params RestoreArticlesParams) {
	if _, ok := s.authorize(w, r, params.Token, true); !ok {
		return
	}

	merge := true
	if params.Merge != nil {
		merge = *params.Merge
	}

	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

	summary, err := s.articleService.Restore(r.Context(), body, merge)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handleError(w, fmt.Errorf("backup exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)

			return
		}

		handleServiceError(w, fmt.Errorf("restore error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, RestoreResponse(summary))
}

func (b ArticleJSONBody) request() articleservice.ArticleRequest {
	return articleservice.ArticleRequest{
		Title:       b.Title,
		Description: b.Description,
		Keywords:    b.Keywords,
		Body:        b.Body,
		Links:       b.Links,
		Groups:      b.Groups,
		Level:       b.Level,
	}
}
