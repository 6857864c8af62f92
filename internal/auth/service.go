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
	ErrLoginDisabled      = errors.New("operator login is not configured")
)

// TokenTTL is the lifetime of issued tokens.
const TokenTTL = 24 * time.Hour

// Service issues and validates operator tokens. There is a single operator
// account whose bcrypt hash comes from configuration.
type Service struct {
	jwtSecret    []byte
	user         string
	passwordHash []byte
	now          func() time.Time
}

func NewService(jwtSecret, user, passwordHash string) *Service {
	return &Service{
		jwtSecret:    []byte(jwtSecret),
		user:         user,
		passwordHash: []byte(passwordHash),
		now:          time.Now,
	}
}

type AuthResult struct {
	Token     string `json:"token"`
	User      string `json:"user"`
	ExpiresAt int64  `json:"expiresAt"`
}

// HashPassword returns a bcrypt hash suitable for the operator password
// setting.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) Login(user, password string) (*AuthResult, error) {
	if len(s.passwordHash) == 0 {
		return nil, ErrLoginDisabled
	}
	if user != s.user {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user, ExpiresAt: exp.Unix()}, nil
}

// IssueToken signs a token for subject.
func (s *Service) IssueToken(subject string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(TokenTTL)
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// ValidateToken returns the token subject.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return sub, nil
}
