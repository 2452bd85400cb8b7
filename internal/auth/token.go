// Package auth проверяет токены, выданные подсистемой аутентификации, и
// извлекает из них пользователя.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/furniture-market/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "furniture-market"

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims - полезная нагрузка токена доступа.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens выпускает и проверяет HS256-токены.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// IssueToken выпускает токен для пользователя.
func (t *Tokens) IssueToken(actor models.Actor) (string, error) {
	if actor.ID == "" {
		return "", errors.New("user id is required")
	}
	if _, ok := models.ParseRole(string(actor.Role)); !ok {
		return "", fmt.Errorf("unknown role %q", actor.Role)
	}
	now := t.now()
	claims := &Claims{
		UserID: actor.ID,
		Role:   string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// ParseToken проверяет подпись и срок действия токена и возвращает пользователя.
func (t *Tokens) ParseToken(tokenString string) (models.Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return models.Actor{}, ErrInvalidToken
	}

	role, ok := models.ParseRole(claims.Role)
	if !ok || claims.UserID == "" {
		return models.Actor{}, ErrInvalidToken
	}
	return models.Actor{ID: claims.UserID, Role: role}, nil
}
