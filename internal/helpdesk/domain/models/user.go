package models

import (
	"errors"
	"strings"
	"time"
)

const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
	LevelExpert       = "Expert"
)

var ErrInvalidLevel = errors.New("invalid proficiency level")

var defaultTopics = []string{"Topic 1", "Topic 2", "Topic 3"}

type User struct {
	Username        string            `json:"username"`
	PasswordHash    string            `json:"-"`
	Role            Role              `json:"role"`
	Email           string            `json:"email"`
	FirstName       string            `json:"first_name"`           //nolint:tagliatelle
	MiddleName      string            `json:"middle_name"`          //nolint:tagliatelle
	LastName        string            `json:"last_name"`            //nolint:tagliatelle
	PreferredName   string            `json:"preferred_name"`       //nolint:tagliatelle
	OneTimePassword bool              `json:"one_time_password"`    //nolint:tagliatelle
	OTPExpiry       time.Time         `json:"otp_expiry,omitempty"` //nolint:tagliatelle
	SetupComplete   bool              `json:"setup_complete"`       //nolint:tagliatelle
	Topics          map[string]string `json:"topics"`
}

func NewUser(username, passwordHash string, role Role) User {
	topics := make(map[string]string, len(defaultTopics))
	for _, t := range defaultTopics {
		topics[t] = LevelIntermediate
	}

	return User{ //nolint:exhaustruct
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		Topics:       topics,
	}
}

func (u User) TopicProficiency(topic string) string {
	if level, ok := u.Topics[topic]; ok {
		return level
	}

	return LevelIntermediate
}

func (u *User) SetTopicProficiency(topic, level string) {
	if u.Topics == nil {
		u.Topics = make(map[string]string)
	}

	u.Topics[topic] = level
}

// OTPExpired is false for regular passwords.
func (u User) OTPExpired(now time.Time) bool {
	return u.OneTimePassword && now.After(u.OTPExpiry)
}

// Clone returns a copy that shares no maps with u.
func (u User) Clone() User {
	c := u
	if u.Topics != nil {
		c.Topics = make(map[string]string, len(u.Topics))
		for k, v := range u.Topics {
			c.Topics[k] = v
		}
	}

	return c
}

func ParseLevel(s string) (string, error) {
	for _, l := range []string{LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert} {
		if strings.EqualFold(strings.TrimSpace(s), l) {
			return l, nil
		}
	}

	return "", ErrInvalidLevel
}
