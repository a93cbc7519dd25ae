// Package auth secures the operator API with a single admin login: bcrypt
// password verification and HS256 JWT access tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)

// Claims are the JWT claims issued to the operator
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service verifies the operator password and issues/validates tokens
type Service struct {
	secret        []byte
	adminUser     string
	adminPassHash string
	tokenTTL      time.Duration
}

func NewService(jwtSecret, adminUser, adminPassHash string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		secret:        []byte(jwtSecret),
		adminUser:     adminUser,
		adminPassHash: adminPassHash,
		tokenTTL:      tokenTTL,
	}
}

// HashPassword produces a bcrypt hash for config seeding
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Login validates the operator credentials and returns a signed token
func (s *Service) Login(username, password string) (string, error) {
	if username != s.adminUser {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminPassHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "straddle-trading-bot",
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies an access token
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenTTL returns the configured token lifetime in seconds
func (s *Service) TokenTTL() int64 {
	return int64(s.tokenTTL.Seconds())
}
