package authservice

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"restaurant-fulfillment/internal/clock"
	"restaurant-fulfillment/internal/domain/users"
	"restaurant-fulfillment/internal/ports"
	"restaurant-fulfillment/internal/shared/apperr"
	"restaurant-fulfillment/internal/shared/logger"
)

// Service issues and verifies operator tokens. Credentials that do not
// match report not-found, never which half was wrong.
type Service struct {
	uow      ports.UnitOfWork
	users    ports.UserRepository
	secret   []byte
	tokenTTL time.Duration
	clock    clock.Clock
	logger   *logger.Logger
}

func New(uow ports.UnitOfWork, users ports.UserRepository, secret string, tokenTTL time.Duration, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{
		uow:      uow,
		users:    users,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		clock:    clk,
		logger:   log,
	}
}

// AuthResult is the reply shape for both login and verify.
type AuthResult struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Login checks the password against the stored bcrypt hash and issues a
// fresh token.
func (s *Service) Login(ctx context.Context, username, password string) (AuthResult, error) {
	if username == "" || password == "" {
		return AuthResult{}, apperr.Validation("username and password are required")
	}

	user, err := s.lookup(ctx, func(txCtx context.Context) (*users.User, error) {
		return s.users.GetByUsername(txCtx, username)
	})
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			return AuthResult{}, apperr.NotFound("invalid credentials")
		}
		return AuthResult{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return AuthResult{}, apperr.NotFound("invalid credentials")
	}

	token, err := s.issue(user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	s.logger.Info(ctx, "user_logged_in", "User logged in", map[string]any{"username": user.Username})
	return AuthResult{Token: token, UserID: user.ID, Username: user.Username}, nil
}

// VerifyToken validates a token, confirms its subject still exists, and
// re-issues a token with a fresh expiry.
func (s *Service) VerifyToken(ctx context.Context, raw string) (AuthResult, error) {
	if raw == "" {
		return AuthResult{}, apperr.Validation("token is required")
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Validation("unexpected token signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil || !token.Valid {
		return AuthResult{}, apperr.Validation("invalid or expired token")
	}

	user, err := s.lookup(ctx, func(txCtx context.Context) (*users.User, error) {
		return s.users.GetByID(txCtx, claims.Subject)
	})
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			return AuthResult{}, apperr.NotFound("invalid credentials")
		}
		return AuthResult{}, err
	}

	fresh, err := s.issue(user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: fresh, UserID: user.ID, Username: user.Username}, nil
}

func (s *Service) lookup(ctx context.Context, fn func(ctx context.Context) (*users.User, error)) (*users.User, error) {
	var user *users.User
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		user, err = fn(txCtx)
		return err
	})
	return user, err
}

func (s *Service) issue(userID string) (string, error) {
	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    "restaurant-fulfillment",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "signing token", err)
	}
	return signed, nil
}
