package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
)

// TokenParams carries the session token header.
type TokenParams struct {
	Token *string
}

type GetArticlesParams struct {
	Token *string
	Group *string
}

type SearchArticlesParams struct {
	Token   *string
	Keyword *string
}

type RestoreArticlesParams struct {
	Token *string
	Merge *bool
}

type ServerInterface interface {
	// (POST /auth)
	PostAuth(w http.ResponseWriter, r *http.Request)
	// (POST /setup)
	PostSetup(w http.ResponseWriter, r *http.Request, params TokenParams)
	// (GET /me)
	GetMe(w http.ResponseWriter, r *http.Request, params TokenParams)
	// (GET /users)
	GetUsers(w http.ResponseWriter, r *http.Request, params TokenParams)
	// (POST /users)
	PostUser(w http.ResponseWriter, r *http.Request, params TokenParams)
	// (DELETE /users/{username})
	DeleteUser(w http.ResponseWriter, r *http.Request, username string, params TokenParams)
	// (PUT /users/{username}/password)
	PutUserPassword(w http.ResponseWriter, r *http.Request, username string, params TokenParams)
	// (GET /articles)
	GetArticles(w http.ResponseWriter, r *http.Request, params GetArticlesParams)
	// (GET /articles/search)
	SearchArticles(w http.ResponseWriter, r *http.Request, params SearchArticlesParams)
	// (POST /articles)
	PostArticle(w http.ResponseWriter, r *http.Request, params TokenParams)
	// (PUT /articles/{id})
	PutArticle(w http.ResponseWriter, r *http.Request, id int64, params TokenParams)
	// (DELETE /articles/{id})
	DeleteArticle(w http.ResponseWriter, r *http.Request, id int64, params TokenParams)
	// (GET /articles/backup)
	GetBackup(w http.ResponseWriter, r *http.Request, params TokenParams)
	// (POST /articles/restore)
	PostRestore(w http.ResponseWriter, r *http.Request, params RestoreArticlesParams)
}

type MiddlewareFunc func(http.Handler) http.Handler

// wrapper binds path, query and header parameters before calling the handler.
type wrapper struct {
	handler ServerInterface
}

func bindToken(r *http.Request) (*string, error) {
	values := r.Header.Values("token")
	if len(values) == 0 {
		return nil, nil //nolint:nilnil
	}

	if len(values) > 1 {
		return nil, fmt.Errorf("expected one value for token, got %d", len(values))
	}

	var token string

	err := runtime.BindStyledParameterWithLocation("simple", false, "token", runtime.ParamLocationHeader, values[0], &token)
	if err != nil {
		return nil, fmt.Errorf("invalid format for parameter token: %w", err)
	}

	return &token, nil
}

func bindPath[T any](r *http.Request, name string) (T, error) {
	var v T

	err := runtime.BindStyledParameterWithLocation("simple", false, name, runtime.ParamLocationPath, chi.URLParam(r, name), &v)
	if err != nil {
		return v, fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}

	return v, nil
}

func (sw wrapper) withToken(next func(http.ResponseWriter, *http.Request, TokenParams)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := bindToken(r)
		if err != nil {
			handleError(w, err, http.StatusBadRequest)

			return
		}

		next(w, r, TokenParams{Token: token})
	}
}

func (sw wrapper) usernameRoute(next func(http.ResponseWriter, *http.Request, string, TokenParams)) http.HandlerFunc {
	return sw.withToken(func(w http.ResponseWriter, r *http.Request, params TokenParams) {
		username, err := bindPath[string](r, "username")
		if err != nil {
			handleError(w, err, http.StatusBadRequest)

			return
		}

		next(w, r, username, params)
	})
}

func (sw wrapper) idRoute(next func(http.ResponseWriter, *http.Request, int64, TokenParams)) http.HandlerFunc {
	return sw.withToken(func(w http.ResponseWriter, r *http.Request, params TokenParams) {
		id, err := bindPath[int64](r, "id")
		if err != nil {
			handleError(w, err, http.StatusBadRequest)

			return
		}

		next(w, r, id, params)
	})
}

func (sw wrapper) GetArticles(w http.ResponseWriter, r *http.Request) {
	var params GetArticlesParams

	token, err := bindToken(r)
	if err != nil {
		handleError(w, err, http.StatusBadRequest)

		return
	}

	params.Token = token

	if err := runtime.BindQueryParameter("form", true, false, "group", r.URL.Query(), &params.Group); err != nil {
		handleError(w, fmt.Errorf("invalid format for parameter group: %w", err), http.StatusBadRequest)

		return
	}

	sw.handler.GetArticles(w, r, params)
}

func (sw wrapper) SearchArticles(w http.ResponseWriter, r *http.Request) {
	var params SearchArticlesParams

	token, err := bindToken(r)
	if err != nil {
		handleError(w, err, http.StatusBadRequest)

		return
	}

	params.Token = token

	if err := runtime.BindQueryParameter("form", true, false, "keyword", r.URL.Query(), &params.Keyword); err != nil {
		handleError(w, fmt.Errorf("invalid format for parameter keyword: %w", err), http.StatusBadRequest)

		return
	}

	sw.handler.SearchArticles(w, r, params)
}

func (sw wrapper) PostRestore(w http.ResponseWriter, r *http.Request) {
	var params RestoreArticlesParams

	token, err := bindToken(r)
	if err != nil {
		handleError(w, err, http.StatusBadRequest)

		return
	}

	params.Token = token

	if err := runtime.BindQueryParameter("form", true, false, "merge", r.URL.Query(), &params.Merge); err != nil {
		handleError(w, fmt.Errorf("invalid format for parameter merge: %w", err), http.StatusBadRequest)

		return
	}

	sw.handler.PostRestore(w, r, params)
}

// Handler mounts every route under baseURL on a chi router.
func Handler(si ServerInterface, baseURL string, middlewares ...MiddlewareFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	for _, m := range middlewares {
		r.Use(m)
	}

	sw := wrapper{handler: si}

	r.Route(baseURL, func(r chi.Router) {
		r.Post("/auth", si.PostAuth)
		r.Post("/setup", sw.withToken(si.PostSetup))
		r.Get("/me", sw.withToken(si.GetMe))

		r.Get("/users", sw.withToken(si.GetUsers))
		r.Post("/users", sw.withToken(si.PostUser))
		r.Delete("/users/{username}", sw.usernameRoute(si.DeleteUser))
		r.Put("/users/{username}/password", sw.usernameRoute(si.PutUserPassword))

		r.Get("/articles", sw.GetArticles)
		r.Post("/articles", sw.withToken(si.PostArticle))
		r.Get("/articles/search", sw.SearchArticles)
		r.Get("/articles/backup", sw.withToken(si.GetBackup))
		r.Post("/articles/restore", sw.PostRestore)
		r.Put("/articles/{id}", sw.idRoute(si.PutArticle))
		r.Delete("/articles/{id}", sw.idRoute(si.DeleteArticle))
	})

	return r
}
