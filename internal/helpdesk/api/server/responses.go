package server

import (
	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
)

type AuthUserResponse struct {
	Token string        `json:"token"`
	Next  models.Screen `json:"next"`
	Role  models.Role   `json:"role"`
}

type SetupResponse struct {
	Next models.Screen `json:"next"`
}

type UserResponse struct {
	Username        string            `json:"username"`
	Role            models.Role       `json:"role"`
	Email           string            `json:"email"`
	FirstName       string            `json:"first_name"`           //nolint:tagliatelle
	MiddleName      string            `json:"middle_name"`          //nolint:tagliatelle
	LastName        string            `json:"last_name"`            //nolint:tagliatelle
	PreferredName   string            `json:"preferred_name"`       //nolint:tagliatelle
	OneTimePassword bool              `json:"one_time_password"`    //nolint:tagliatelle
	OTPExpiry       string            `json:"otp_expiry,omitempty"` //nolint:tagliatelle
	SetupComplete   bool              `json:"setup_complete"`       //nolint:tagliatelle
	Topics          map[string]string `json:"topics"`
}

func toUserResponse(u models.User) UserResponse {
	resp := UserResponse{
		Username:        u.Username,
		Role:            u.Role,
		Email:           u.Email,
		FirstName:       u.FirstName,
		MiddleName:      u.MiddleName,
		LastName:        u.LastName,
		PreferredName:   u.PreferredName,
		OneTimePassword: u.OneTimePassword,
		OTPExpiry:       "",
		SetupComplete:   u.SetupComplete,
		Topics:          u.Topics,
	}

	if u.OneTimePassword {
		resp.OTPExpiry = u.OTPExpiry.Local().Format(OTPExpiryLayout)
	}

	return resp
}

type CreateUserResponse struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

type CreateArticleResponse struct {
	ArticleID int64 `json:"article_id"` //nolint:tagliatelle
}

type RestoreResponse struct {
	Users    int  `json:"users"`
	Restored int  `json:"restored"`
	Added    int  `json:"added"`
	Merge    bool `json:"merge"`
}
