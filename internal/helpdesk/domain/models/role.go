package models

import (
	"errors"
	"strings"
)

type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleInstructor Role = "Instructor"
	RoleStudent    Role = "Student"
)

var ErrInvalidRole = errors.New("invalid role")

func ParseRole(s string) (Role, error) {
	for _, r := range []Role{RoleAdmin, RoleInstructor, RoleStudent} {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, nil
		}
	}

	return "", ErrInvalidRole
}

// CanManageArticles reports whether the role may add, edit, delete, back up
// and restore articles.
func (r Role) CanManageArticles() bool {
	return r == RoleAdmin || r == RoleInstructor
}

// Screen is the view a client should show next.
type Screen string

const (
	ScreenSetup      Screen = "setup"
	ScreenAdmin      Screen = "admin"
	ScreenInstructor Screen = "instructor"
	ScreenHome       Screen = "home"
)

// Dashboard maps a role to its landing screen. Unknown roles get the
// student home page.
func (r Role) Dashboard() Screen {
	switch r {
	case RoleAdmin:
		return ScreenAdmin
	case RoleInstructor:
		return ScreenInstructor
	default:
		return ScreenHome
	}
}

func NextScreen(u User) Screen {
	if !u.SetupComplete {
		return ScreenSetup
	}

	return u.Role.Dashboard()
}
