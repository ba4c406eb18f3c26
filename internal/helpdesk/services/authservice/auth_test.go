package authservice

import (
	"context"
	"testing"
	"time"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/repository/userrepo/memory"
	"github.com/Leopold1975/helpdesk/internal/pkg/config"
	"github.com/Leopold1975/helpdesk/internal/pkg/jwtauth"
	"github.com/Leopold1975/helpdesk/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type cleaner struct {
	owners []string
}

func (c *cleaner) DeleteOwnerArticles(_ context.Context, owner string) error {
	c.owners = append(c.owners, owner)

	return nil
}

var now = time.Date(2024, 10, 1, 9, 30, 0, 0, time.UTC)

func newService(t *testing.T) (*AuthService, *cleaner) {
	t.Helper()

	c := &cleaner{} //nolint:exhaustruct
	as := New(memory.New(), c, config.Auth{TTL: time.Hour, Secret: "secret", HashCost: bcrypt.MinCost}, logger.Nop())
	as.now = func() time.Time { return now }

	return as, c
}

// adminToken logs in the bootstrap admin.
func adminToken(t *testing.T, as *AuthService) string {
	t.Helper()

	res, err := as.Login(context.Background(), "root", "rootpass")
	require.NoError(t, err)

	return res.Token
}

func TestFirstLoginBootstrapsAdmin(t *testing.T) {
	as, _ := newService(t)
	ctx := context.Background()

	res, err := as.Login(ctx, "root", "rootpass")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, res.User.Role)
	assert.Equal(t, models.ScreenSetup, res.Next)
	assert.NotEmpty(t, res.Token)

	_, err = as.Login(ctx, "root", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials, "second login authenticates instead of registering")

	_, err = as.Login(ctx, "someone", "rootpass")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = as.InitFirstAdmin(ctx, "other", "pass")
	require.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestFirstLoginRequiresCredentials(t *testing.T) {
	as, _ := newService(t)

	_, err := as.Login(context.Background(), "", "")
	require.ErrorIs(t, err, ErrEmptyCredentials)
}

func TestInitFirstAdmin(t *testing.T) {
	as, _ := newService(t)
	ctx := context.Background()

	u, err := as.InitFirstAdmin(ctx, "boss", "pass")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	res, err := as.Login(ctx, "boss", "pass")
	require.NoError(t, err)
	assert.Equal(t, "boss", res.User.Username)
}

func TestOneTimePasswordExpiry(t *testing.T) {
	as, _ := newService(t)
	ctx := context.Background()
	token := adminToken(t, as)

	_, err := as.CreateUser(ctx, token, RegisterUserRequest{
		Username:        "fresh",
		Password:        "otp",
		Role:            models.RoleStudent,
		OneTimePassword: true,
		OTPExpiry:       now.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = as.CreateUser(ctx, token, RegisterUserRequest{
		Username:        "stale",
		Password:        "otp",
		Role:            models.RoleStudent,
		OneTimePassword: true,
		OTPExpiry:       now.Add(-time.Minute),
	})
	require.NoError(t, err)

	res, err := as.Login(ctx, "fresh", "otp")
	require.NoError(t, err)
	assert.Equal(t, models.ScreenSetup, res.Next)

	_, err = as.Login(ctx, "stale", "otp")
	require.ErrorIs(t, err, ErrOTPExpired)

	_, err = as.Authenticate(ctx, "stale", "wrong")
	require.ErrorIs(t, err, ErrOTPExpired, "expiry is checked before the password")

	require.NoError(t, as.ResetPassword(ctx, token, "stale", "permanent"))

	u, err := as.FindUser(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, u.OneTimePassword)
	assert.True(t, u.OTPExpiry.IsZero())

	_, err = as.Login(ctx, "stale", "otp")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = as.Login(ctx, "stale", "permanent")
	require.NoError(t, err)
}

func TestRegisterUserValidation(t *testing.T) {
	as, _ := newService(t)
	ctx := context.Background()

	_, err := as.RegisterUser(ctx, RegisterUserRequest{Username: "x", Role: models.RoleStudent}) //nolint:exhaustruct
	require.ErrorIs(t, err, ErrEmptyCredentials)

	_, err = as.RegisterUser(ctx, RegisterUserRequest{Username: "x", Password: "p", Role: "Janitor"}) //nolint:exhaustruct
	require.ErrorIs(t, err, models.ErrInvalidRole)

	_, err = as.RegisterUser(ctx, RegisterUserRequest{ //nolint:exhaustruct
		Username: "x", Password: "p", Role: models.RoleStudent, OneTimePassword: true,
	})
	require.ErrorIs(t, err, ErrOTPExpiryRequired)

	u, err := as.RegisterUser(ctx, RegisterUserRequest{Username: "x", Password: "p", Role: "student"}) //nolint:exhaustruct
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, u.Role)
	assert.NotEqual(t, "p", u.PasswordHash)

	_, err = as.RegisterUser(ctx, RegisterUserRequest{Username: "x", Password: "p", Role: models.RoleStudent}) //nolint:exhaustruct
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestAdminOnlyOperations(t *testing.T) {
	as, c := newService(t)
	ctx := context.Background()
	token := adminToken(t, as)

	_, err := as.CreateUser(ctx, token, RegisterUserRequest{ //nolint:exhaustruct
		Username: "mentor", Password: "pass", Role: models.RoleInstructor,
	})
	require.NoError(t, err)

	res, err := as.Login(ctx, "mentor", "pass")
	require.NoError(t, err)

	mentorToken := res.Token

	_, err = as.CreateUser(ctx, mentorToken, RegisterUserRequest{ //nolint:exhaustruct
		Username: "student", Password: "pass", Role: models.RoleStudent,
	})
	require.ErrorIs(t, err, ErrNotAllowed)

	_, err = as.ListUsers(ctx, mentorToken)
	require.ErrorIs(t, err, ErrNotAllowed)

	require.ErrorIs(t, as.ResetPassword(ctx, mentorToken, "root", "x"), ErrNotAllowed)
	require.ErrorIs(t, as.DeleteUser(ctx, mentorToken, "root"), ErrNotAllowed)

	_, err = as.ListUsers(ctx, "")
	require.ErrorIs(t, err, ErrUnauthenticated)

	list, err := as.ListUsers(ctx, token)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "root", list[0].Username)
	assert.Equal(t, "mentor", list[1].Username)

	require.ErrorIs(t, as.ResetPassword(ctx, token, "mentor", ""), ErrEmptyCredentials)
	require.ErrorIs(t, as.ResetPassword(ctx, token, "ghost", "x"), ErrNotFound)

	require.NoError(t, as.DeleteUser(ctx, token, "mentor"))
	assert.Equal(t, []string{"mentor"}, c.owners)
	require.ErrorIs(t, as.DeleteUser(ctx, token, "mentor"), ErrNotFound)

	_, err = as.Auth(ctx, mentorToken)
	require.ErrorIs(t, err, jwtauth.ErrInvalidToken, "tokens of deleted users stop working")
}

func TestCompleteSetup(t *testing.T) {
	as, _ := newService(t)
	ctx := context.Background()
	token := adminToken(t, as)

	_, err := as.CompleteSetup(ctx, token, SetupRequest{ //nolint:exhaustruct
		Topics: map[string]string{"Topic 9": models.LevelExpert},
	})
	require.ErrorIs(t, err, ErrInvalidTopic)

	_, err = as.CompleteSetup(ctx, token, SetupRequest{ //nolint:exhaustruct
		Topics: map[string]string{"Topic 1": "Wizard"},
	})
	require.ErrorIs(t, err, models.ErrInvalidLevel)

	next, err := as.CompleteSetup(ctx, token, SetupRequest{
		Email:         "root@example.com",
		FirstName:     "Ada",
		MiddleName:    "",
		LastName:      "Lovelace",
		PreferredName: "Ada",
		Topics:        map[string]string{"Topic 1": "expert"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ScreenAdmin, next)

	u, err := as.FindUser(ctx, "root")
	require.NoError(t, err)
	assert.True(t, u.SetupComplete)
	assert.Equal(t, "Lovelace", u.LastName)
	assert.Equal(t, models.LevelExpert, u.TopicProficiency("Topic 1"))
	assert.Equal(t, models.LevelIntermediate, u.TopicProficiency("Topic 2"))

	res, err := as.Login(ctx, "root", "rootpass")
	require.NoError(t, err)
	assert.Equal(t, models.ScreenAdmin, res.Next)
}

func TestSessionEndsWithOneTimePassword(t *testing.T) {
	as, _ := newService(t)
	ctx := context.Background()
	token := adminToken(t, as)

	_, err := as.CreateUser(ctx, token, RegisterUserRequest{
		Username:        "temp",
		Password:        "otp",
		Role:            models.RoleStudent,
		OneTimePassword: true,
		OTPExpiry:       now.Add(time.Minute),
	})
	require.NoError(t, err)

	res, err := as.Login(ctx, "temp", "otp")
	require.NoError(t, err)

	claims, err := as.Auth(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "temp", claims.Username)

	as.now = func() time.Time { return now.Add(30 * time.Minute) }

	_, err = as.Auth(ctx, res.Token)
	require.ErrorIs(t, err, ErrOTPExpired)

	_, err = as.Auth(ctx, token)
	require.NoError(t, err, "regular passwords are not affected")

	require.NoError(t, as.ResetPassword(ctx, token, "temp", "permanent"))

	_, err = as.Auth(ctx, res.Token)
	require.NoError(t, err, "a reset clears the one-time password")
}
