package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"testing"
	"time"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/api/server"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/app"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
	"github.com/Leopold1975/helpdesk/internal/pkg/config"

	"github.com/stretchr/testify/suite"
)

type HelpdeskSuite struct {
	suite.Suite
	app     app.HelpdeskApp
	cancel  context.CancelFunc
	baseURL string
	client  *http.Client
}

var (
	adminUsername      = "Admin"
	adminPassword      = "1234"
	instructorUsername = "instructor"
	instructorPassword = "qwerty"
)

var articles = []map[string]interface{}{
	{
		"title":    "Installing Go",
		"keywords": "install, toolchain",
		"groups":   []string{"beginners"},
		"level":    models.LevelBeginner,
	},
	{
		"title":    "Context cancellation",
		"keywords": []string{"context", "concurrency"},
		"groups":   []string{"advanced"},
		"level":    models.LevelAdvanced,
	},
	{
		"title":  "Reading stack traces",
		"groups": "beginners, advanced",
		"level":  models.LevelIntermediate,
	},
}

func TestHelpdeskSuite(t *testing.T) {
	if os.Getenv("HELPDESK_INTEGRATION") == "" {
		t.Skip("set HELPDESK_INTEGRATION to run against docker compose")
	}

	suite.Run(t, new(HelpdeskSuite))
}

func (hs *HelpdeskSuite) SetupSuite() {
	cmd := exec.Command("docker", "compose", "-f", "./test-compose.yaml", "up", "-d", "--wait")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		hs.T().Fatalf("cannot start docker compose error: %v", err)
	}

	cfg, err := config.New("config_test.yaml")
	if err != nil {
		hs.T().Fatalf("cannot get config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	a, err := app.New(ctx, cfg)
	if err != nil {
		cancel()
		hs.T().Fatalf("cannot get app error: %v", err)
	}

	hs.app = a
	hs.cancel = cancel
	hs.baseURL = "http://" + cfg.Server.Addr + server.BaseURL
	hs.client = &http.Client{Timeout: 5 * time.Second} //nolint:exhaustruct

	go a.Run(ctx)
	time.Sleep(time.Second * 2) // Время для запуска сервера.

	// Первый вход в пустую систему создаёт администратора
	admin := hs.login(adminUsername, adminPassword)
	hs.Require().Equal(models.RoleAdmin, admin.Role)

	resp := hs.do(http.MethodPost, "/users", admin.Token, map[string]interface{}{
		"username": instructorUsername,
		"password": instructorPassword,
		"role":     "instructor",
	})
	hs.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func (hs *HelpdeskSuite) TearDownSuite() {
	hs.cancel()
	time.Sleep(time.Second) // Время для остановки сервера.

	cmd := exec.Command("docker", "compose", "-f", "./test-compose.yaml", "down", "-v")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		hs.T().Fatalf("cannot down docker conatainers error: %v", err)
	}
}

func (hs *HelpdeskSuite) do(method, path, token string, body interface{}) *http.Response {
	var r io.Reader

	switch b := body.(type) {
	case nil:
	case []byte:
		r = bytes.NewReader(b)
	default:
		bts, err := json.Marshal(b)
		hs.Require().NoError(err)

		r = bytes.NewReader(bts)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, hs.baseURL+path, r)
	hs.Require().NoError(err)

	if token != "" {
		req.Header.Set("token", token)
	}

	resp, err := hs.client.Do(req)
	hs.Require().NoError(err, "expected %v	actual %v", nil, err)

	return resp
}

func (hs *HelpdeskSuite) login(username, password string) server.AuthUserResponse {
	resp := hs.do(http.MethodPost, "/auth", "", map[string]string{"username": username, "password": password})
	defer resp.Body.Close()

	hs.Require().Equal(http.StatusOK, resp.StatusCode)

	var auth server.AuthUserResponse
	hs.Require().NoError(json.NewDecoder(resp.Body).Decode(&auth))

	return auth
}

func decodeBody[T any](hs *HelpdeskSuite, resp *http.Response) T {
	defer resp.Body.Close()

	var v T
	hs.Require().NoError(json.NewDecoder(resp.Body).Decode(&v))

	return v
}

func (hs *HelpdeskSuite) TestArticles() {
	instructor := hs.login(instructorUsername, instructorPassword)
	hs.Require().Equal(models.ScreenSetup, instructor.Next)

	// Преподаватель заполняет профиль
	resp := hs.do(http.MethodPost, "/setup", instructor.Token, map[string]interface{}{
		"email":  "instructor@example.com",
		"topics": map[string]string{"Topic 1": "Expert"},
	})
	hs.Require().Equal(http.StatusOK, resp.StatusCode)
	hs.Require().Equal(models.ScreenInstructor, decodeBody[server.SetupResponse](hs, resp).Next)

	// Преподаватель создает статьи
	ids := make([]int64, 0, len(articles))

	for _, a := range articles {
		resp := hs.do(http.MethodPost, "/articles", instructor.Token, a)
		hs.Require().Equal(http.StatusCreated, resp.StatusCode)

		ids = append(ids, decodeBody[server.CreateArticleResponse](hs, resp).ArticleID)
	}

	for i := 1; i < len(ids); i++ {
		hs.Require().Greater(ids[i], ids[i-1])
	}

	// Фильтр по группе
	resp = hs.do(http.MethodGet, "/articles?group=beginners", instructor.Token, nil)
	hs.Require().Equal(http.StatusOK, resp.StatusCode)
	hs.Require().Len(decodeBody[[]models.HelpArticle](hs, resp), 2)

	// Поиск по ключевому слову, второй запрос читается из кэша
	for i := 0; i < 2; i++ {
		resp = hs.do(http.MethodGet, "/articles/search?keyword=context", instructor.Token, nil)
		hs.Require().Equal(http.StatusOK, resp.StatusCode)

		found := decodeBody[[]models.HelpArticle](hs, resp)
		hs.Require().Len(found, 1)
		hs.Require().Equal(ids[1], found[0].ID)
	}

	// Изменение статьи сразу видно в списке
	resp = hs.do(http.MethodPut, "/articles/"+strconv.FormatInt(ids[2], 10), instructor.Token, map[string]interface{}{
		"title":  "Reading panics",
		"groups": []string{"advanced"},
	})
	hs.Require().Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = hs.do(http.MethodGet, "/articles?group=beginners", instructor.Token, nil)
	hs.Require().Equal(http.StatusOK, resp.StatusCode)
	hs.Require().Len(decodeBody[[]models.HelpArticle](hs, resp), 1)

	// Удаление
	resp = hs.do(http.MethodDelete, "/articles/"+strconv.FormatInt(ids[0], 10), instructor.Token, nil)
	hs.Require().Equal(http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = hs.do(http.MethodGet, "/articles", instructor.Token, nil)
	hs.Require().Equal(http.StatusOK, resp.StatusCode)
	hs.Require().Len(decodeBody[[]models.HelpArticle](hs, resp), 2)
}

func (hs *HelpdeskSuite) TestBackupRestore() {
	admin := hs.login(adminUsername, adminPassword)

	resp := hs.do(http.MethodPost, "/articles", admin.Token, map[string]interface{}{"title": "Office hours"})
	hs.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Админ делает резервную копию
	resp = hs.do(http.MethodGet, "/articles/backup", admin.Token, nil)
	hs.Require().Equal(http.StatusOK, resp.StatusCode)

	backup, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	hs.Require().NoError(err)

	// Студент не может восстанавливать статьи
	resp = hs.do(http.MethodPost, "/users", admin.Token, map[string]interface{}{
		"username": "student", "password": "pw", "role": "Student",
		"one_time_password": true, "otp_expiry": "2999-12-31 23:59",
	})
	hs.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	student := hs.login("student", "pw")

	resp = hs.do(http.MethodPost, "/articles/restore", student.Token, backup)
	hs.Require().Equal(http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Слияние раздаёт статьи всем пользователям
	resp = hs.do(http.MethodPost, "/articles/restore", admin.Token, backup)
	hs.Require().Equal(http.StatusOK, resp.StatusCode)

	summary := decodeBody[server.RestoreResponse](hs, resp)
	hs.Require().True(summary.Merge)
	hs.Require().Equal(3, summary.Users)

	resp = hs.do(http.MethodGet, "/articles", student.Token, nil)
	hs.Require().Equal(http.StatusOK, resp.StatusCode)
	hs.Require().Len(decodeBody[[]models.HelpArticle](hs, resp), summary.Restored)

	// Удаление пользователя удаляет и его статьи
	resp = hs.do(http.MethodDelete, "/users/student", admin.Token, nil)
	hs.Require().Equal(http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = hs.do(http.MethodGet, "/articles", student.Token, nil)
	hs.Require().Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
