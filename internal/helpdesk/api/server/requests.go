package server

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OTPExpiryLayout is the accepted one-time password expiry format, local time.
const OTPExpiryLayout = "2006-01-02 15:04"

type PostAuthJSONBody struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

type PostSetupJSONBody struct {
	Email         string            `json:"email"`
	FirstName     string            `json:"first_name"`     //nolint:tagliatelle
	MiddleName    string            `json:"middle_name"`    //nolint:tagliatelle
	LastName      string            `json:"last_name"`      //nolint:tagliatelle
	PreferredName string            `json:"preferred_name"` //nolint:tagliatelle
	Topics        map[string]string `json:"topics"`
}

type PostUserJSONBody struct {
	Username        *string `json:"username"`
	Password        *string `json:"password"`
	Role            *string `json:"role"`
	OneTimePassword bool    `json:"one_time_password"` //nolint:tagliatelle
	OTPExpiry       *string `json:"otp_expiry"`        //nolint:tagliatelle
}

func (b PostUserJSONBody) expiry() (time.Time, error) {
	if !b.OneTimePassword || b.OTPExpiry == nil || *b.OTPExpiry == "" {
		return time.Time{}, nil
	}

	t, err := time.ParseInLocation(OTPExpiryLayout, strings.TrimSpace(*b.OTPExpiry), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiry format, use YYYY-MM-DD HH:MM: %w", err)
	}

	return t, nil
}

type PutPasswordJSONBody struct {
	Password *string `json:"password"`
}

type ArticleJSONBody struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Keywords    ListField `json:"keywords"`
	Body        string    `json:"body"`
	Links       ListField `json:"links"`
	Groups      ListField `json:"groups"`
	Level       string    `json:"level"`
}

// ListField accepts a JSON array or a comma separated string. Items are
// trimmed and empty ones dropped.
type ListField []string

func (l *ListField) UnmarshalJSON(data []byte) error {
	var items []string

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		items = strings.Split(s, ",")
	} else if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("expected a list or a comma separated string: %w", err)
	}

	res := make([]string, 0, len(items))

	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			res = append(res, it)
		}
	}

	*l = res

	return nil
}
