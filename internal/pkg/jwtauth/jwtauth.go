package jwtauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
	"github.com/golang-jwt/jwt"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrUnexpectedSign = errors.New("unexpected signing method")
)

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.StandardClaims
}

func GetToken(u models.User, ttl time.Duration, secret string) (string, error) {
	now := time.Now()

	claims := Claims{
		Username: u.Username,
		Role:     string(u.Role),
		StandardClaims: jwt.StandardClaims{ //nolint:exhaustruct
			Subject:   u.Username,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token error: %w", err)
	}

	return signed, nil
}

func ValidateToken(tokenString, secret string) (Claims, error) {
	var claims Claims

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnexpectedSign
		}

		return []byte(secret), nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	if !token.Valid || claims.Username == "" {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}
