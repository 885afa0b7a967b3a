package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	PurposePasswordSet = "password-set"

	PasswordSetTTL = 7 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

func VerifyJWT(secret, token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

func GenerateJWT(secret string, claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// NewPasswordSetToken issues the one-time token mailed to a new account.
func NewPasswordSetToken(secret, email string, now time.Time) (string, error) {
	return GenerateJWT(secret, Claims{
		Purpose: PurposePasswordSet,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(PasswordSetTTL)),
		},
	})
}

// VerifyPasswordSetToken returns the email the token was issued for.
func VerifyPasswordSetToken(secret, token string) (string, error) {
	claims, err := VerifyJWT(secret, token)
	if err != nil {
		return "", err
	}
	if claims.Purpose != PurposePasswordSet || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
