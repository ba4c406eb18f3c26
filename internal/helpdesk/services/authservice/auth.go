package authservice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/repository/userrepo"
	"github.com/Leopold1975/helpdesk/internal/pkg/config"
	"github.com/Leopold1975/helpdesk/internal/pkg/jwtauth"
	"github.com/Leopold1975/helpdesk/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotAllowed         = errors.New("operation not allowed for this role")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrOTPExpired         = errors.New("one-time password has expired, ask an admin to reset it")
	ErrEmptyCredentials   = errors.New("username and password are required")
	ErrOTPExpiryRequired  = errors.New("one-time password requires an expiry")
	ErrAlreadyInitialized = errors.New("users already exist")
	ErrInvalidTopic       = errors.New("unknown topic")
	ErrNotFound           = userrepo.ErrNotFound
	ErrAlreadyExists      = userrepo.ErrAlreadyExists
	ErrUnauthenticated    = errors.New("token required")
)

type AuthService struct {
	userRepo Repository
	articles ArticleCleaner
	cfg      config.Auth
	lg       logger.Logger
	now      func() time.Time

	// serializes the empty-store check with the first registration.
	bootstrapMu sync.Mutex
}

type Repository interface {
	CreateUser(context.Context, models.User) error
	GetUser(context.Context, string) (models.User, error)
	UpdateUser(context.Context, models.User) error
	DeleteUser(context.Context, string) error
	ListUsers(context.Context) ([]models.User, error)
	CountUsers(context.Context) (int, error)
	Shutdown(context.Context) error
}

// ArticleCleaner drops everything a deleted user owned.
type ArticleCleaner interface {
	DeleteOwnerArticles(ctx context.Context, owner string) error
}

func New(userRepo Repository, articles ArticleCleaner, cfg config.Auth, lg logger.Logger) *AuthService {
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}

	return &AuthService{ //nolint:exhaustruct
		userRepo: userRepo,
		articles: articles,
		cfg:      cfg,
		lg:       lg,
		now:      time.Now,
	}
}

// Authenticate checks the one-time password expiry before the password itself.
func (as *AuthService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	u, err := as.userRepo.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return models.User{}, ErrInvalidCredentials
		}

		return models.User{}, fmt.Errorf("get user error: %w", err)
	}

	if u.OTPExpired(as.now()) {
		as.lg.Infof("one-time password of %s expired at %s", username, u.OTPExpiry.Format(time.RFC3339))

		return models.User{}, ErrOTPExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	return u, nil
}

// Login registers the very first user as an admin, otherwise it authenticates.
func (as *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	u, created, err := as.bootstrap(ctx, username, password)
	if err != nil {
		return LoginResult{}, err
	}

	if !created {
		u, err = as.Authenticate(ctx, username, password)
		if err != nil {
			return LoginResult{}, err
		}
	}

	token, err := jwtauth.GetToken(u, as.cfg.TTL, as.cfg.Secret)
	if err != nil {
		return LoginResult{}, fmt.Errorf("can't get token error: %w", err)
	}

	return LoginResult{
		Token: token,
		User:  u,
		Next:  models.NextScreen(u),
	}, nil
}

// InitFirstAdmin is Login's bootstrap without the login: it fails once any user exists.
func (as *AuthService) InitFirstAdmin(ctx context.Context, username, password string) (models.User, error) {
	u, created, err := as.bootstrap(ctx, username, password)
	if err != nil {
		return models.User{}, err
	}

	if !created {
		return models.User{}, ErrAlreadyInitialized
	}

	return u, nil
}

func (as *AuthService) bootstrap(ctx context.Context, username, password string) (models.User, bool, error) {
	as.bootstrapMu.Lock()
	defer as.bootstrapMu.Unlock()

	n, err := as.userRepo.CountUsers(ctx)
	if err != nil {
		return models.User{}, false, fmt.Errorf("count users error: %w", err)
	}

	if n != 0 {
		return models.User{}, false, nil
	}

	u, err := as.RegisterUser(ctx, RegisterUserRequest{ //nolint:exhaustruct
		Username: username,
		Password: password,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return models.User{}, false, err
	}

	as.lg.Infof("registered first user %s as admin", username)

	return u, true, nil
}

func (as *AuthService) RegisterUser(ctx context.Context, req RegisterUserRequest) (models.User, error) {
	if req.Username == "" || req.Password == "" {
		return models.User{}, ErrEmptyCredentials
	}

	role, err := models.ParseRole(string(req.Role))
	if err != nil {
		return models.User{}, fmt.Errorf("role %q error: %w", req.Role, err)
	}

	if req.OneTimePassword && req.OTPExpiry.IsZero() {
		return models.User{}, ErrOTPExpiryRequired
	}

	hash, err := as.hash(req.Password)
	if err != nil {
		return models.User{}, err
	}

	u := models.NewUser(req.Username, hash, role)
	u.OneTimePassword = req.OneTimePassword

	if req.OneTimePassword {
		u.OTPExpiry = req.OTPExpiry
	}

	if err := as.userRepo.CreateUser(ctx, u); err != nil {
		return models.User{}, fmt.Errorf("create user error: %w", err)
	}

	return u, nil
}

func (as *AuthService) CreateUser(ctx context.Context, token string, req RegisterUserRequest) (models.User, error) {
	if _, err := as.requireAdmin(ctx, token); err != nil {
		return models.User{}, err
	}

	u, err := as.RegisterUser(ctx, req)
	if err != nil {
		return models.User{}, err
	}

	as.lg.Infof("user %s created with role %s", u.Username, u.Role)

	return u, nil
}

func (as *AuthService) DeleteUser(ctx context.Context, token, username string) error {
	if _, err := as.requireAdmin(ctx, token); err != nil {
		return err
	}

	if err := as.userRepo.DeleteUser(ctx, username); err != nil {
		return fmt.Errorf("delete user error: %w", err)
	}

	if err := as.articles.DeleteOwnerArticles(ctx, username); err != nil {
		return fmt.Errorf("delete articles of %s error: %w", username, err)
	}

	as.lg.Infof("user %s deleted", username)

	return nil
}

// ResetPassword always turns the one-time password off.
func (as *AuthService) ResetPassword(ctx context.Context, token, username, newPassword string) error {
	if _, err := as.requireAdmin(ctx, token); err != nil {
		return err
	}

	if newPassword == "" {
		return ErrEmptyCredentials
	}

	u, err := as.userRepo.GetUser(ctx, username)
	if err != nil {
		return fmt.Errorf("get user error: %w", err)
	}

	hash, err := as.hash(newPassword)
	if err != nil {
		return err
	}

	u.PasswordHash = hash
	u.OneTimePassword = false
	u.OTPExpiry = time.Time{}

	if err := as.userRepo.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update user error: %w", err)
	}

	as.lg.Infof("password of %s reset", username)

	return nil
}

func (as *AuthService) ListUsers(ctx context.Context, token string) ([]models.User, error) {
	if _, err := as.requireAdmin(ctx, token); err != nil {
		return nil, err
	}

	users, err := as.userRepo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users error: %w", err)
	}

	return users, nil
}

func (as *AuthService) FindUser(ctx context.Context, username string) (models.User, error) {
	u, err := as.userRepo.GetUser(ctx, username)
	if err != nil {
		return models.User{}, fmt.Errorf("get user error: %w", err)
	}

	return u, nil
}

// CompleteSetup fills in the profile and returns the dashboard for the user's role.
func (as *AuthService) CompleteSetup(ctx context.Context, token string, req SetupRequest) (models.Screen, error) {
	claims, err := as.Auth(ctx, token)
	if err != nil {
		return "", err
	}

	u, err := as.userRepo.GetUser(ctx, claims.Username)
	if err != nil {
		return "", fmt.Errorf("get user error: %w", err)
	}

	for topic, level := range req.Topics {
		if _, ok := u.Topics[topic]; !ok {
			return "", fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
		}

		parsed, err := models.ParseLevel(level)
		if err != nil {
			return "", fmt.Errorf("topic %q error: %w", topic, err)
		}

		u.SetTopicProficiency(topic, parsed)
	}

	u.Email = req.Email
	u.FirstName = req.FirstName
	u.MiddleName = req.MiddleName
	u.LastName = req.LastName
	u.PreferredName = req.PreferredName
	u.SetupComplete = true

	if err := as.userRepo.UpdateUser(ctx, u); err != nil {
		return "", fmt.Errorf("update user error: %w", err)
	}

	return models.NextScreen(u), nil
}

// Auth validates the token and reloads the user, so deleted users and expired
// one-time passwords lose access and role changes apply before the token expires.
func (as *AuthService) Auth(ctx context.Context, token string) (jwtauth.Claims, error) {
	if token == "" {
		return jwtauth.Claims{}, ErrUnauthenticated
	}

	claims, err := jwtauth.ValidateToken(token, as.cfg.Secret)
	if err != nil {
		return jwtauth.Claims{}, fmt.Errorf("validate token error: %w", err)
	}

	u, err := as.userRepo.GetUser(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return jwtauth.Claims{}, fmt.Errorf("token owner error: %w", jwtauth.ErrInvalidToken)
		}

		return jwtauth.Claims{}, fmt.Errorf("get user error: %w", err)
	}

	// A session opened with a one-time password ends with it.
	if u.OTPExpired(as.now()) {
		return jwtauth.Claims{}, ErrOTPExpired
	}

	claims.Role = string(u.Role)

	return claims, nil
}

func (as *AuthService) Shutdown(ctx context.Context) error {
	if err := as.userRepo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown user repo error: %w", err)
	}

	return nil
}

func (as *AuthService) requireAdmin(ctx context.Context, token string) (jwtauth.Claims, error) {
	claims, err := as.Auth(ctx, token)
	if err != nil {
		return jwtauth.Claims{}, err
	}

	if models.Role(claims.Role) != models.RoleAdmin {
		return jwtauth.Claims{}, ErrNotAllowed
	}

	return claims, nil
}

func (as *AuthService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), as.cfg.HashCost)
	if err != nil {
		return "", fmt.Errorf("generate from password error: %w", err)
	}

	return string(hash), nil
}
