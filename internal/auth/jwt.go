// Package auth выпускает и проверяет access-токены вызывающих.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

var (
	// ErrInvalidToken: токен не разобран, подписан другим ключом или не содержит пользователя.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken: срок действия токена истёк.
	ErrExpiredToken = errors.New("token has expired")
)

// Claims: полезная нагрузка access-токена.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет HS256 access-токены.
type TokenManager struct {
	secretKey []byte
	accessTTL time.Duration
	now       func() time.Time
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(secretKey string, accessTTL time.Duration) *TokenManager {
	return &TokenManager{
		secretKey: []byte(secretKey),
		accessTTL: accessTTL,
		now:       time.Now,
	}
}

// AccessTTL возвращает срок жизни access-токена.
func (m *TokenManager) AccessTTL() time.Duration {
	return m.accessTTL
}

// Issue выпускает access-токен для principal.
func (m *TokenManager) Issue(principal domain.Principal) (string, time.Time, error) {
	if principal.UserID == "" || !principal.Role.Valid() {
		return "", time.Time{}, ErrInvalidToken
	}

	now := m.now()
	expiresAt := now.Add(m.accessTTL)
	claims := Claims{
		UserID: principal.UserID,
		Role:   string(principal.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   principal.UserID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse проверяет подпись и срок действия токена и возвращает вызывающего.
func (m *TokenManager) Parse(tokenString string) (domain.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Principal{}, ErrExpiredToken
		}
		return domain.Principal{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return domain.Principal{}, ErrInvalidToken
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Principal{}, ErrInvalidToken
	}
	return domain.Principal{UserID: claims.UserID, Role: role}, nil
}

type principalKey struct{}

// WithPrincipal кладёт вызывающего в контекст.
func WithPrincipal(ctx context.Context, principal domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext достаёт вызывающего, положенного auth-интерсептором.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(domain.Principal)
	return principal, ok
}
