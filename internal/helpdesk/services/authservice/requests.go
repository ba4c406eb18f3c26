package authservice

import (
	"time"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
)

type RegisterUserRequest struct {
	Username        string
	Password        string
	Role            models.Role
	OneTimePassword bool
	OTPExpiry       time.Time
}

type SetupRequest struct {
	Email         string
	FirstName     string
	MiddleName    string
	LastName      string
	PreferredName string
	Topics        map[string]string
}

type LoginResult struct {
	Token string
	User  models.User
	Next  models.Screen
}
