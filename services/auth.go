// Package services holds the business rules of the book review API. Services
// receive their stores explicitly and translate store errors into the
// sentinel errors declared in errors.go.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"book-review/database"
	"book-review/logging"
	"book-review/models"
	"book-review/utils"
)

// TokenIssuer mints and verifies bearer tokens.
type TokenIssuer interface {
	GenerateToken(user models.User) (string, error)
	ValidateToken(token string) (*utils.Claims, error)
}

var errPasswordTooLong = fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, utils.MaxPasswordBytes)

type AuthService struct {
	users  database.UserRepository
	tokens TokenIssuer
	log    logging.Logger

	// dummyHash is compared against when the user does not exist so that
	// unknown usernames take as long as wrong passwords.
	dummyHash string
}

func NewAuthService(users database.UserRepository, tokens TokenIssuer, log logging.Logger) *AuthService {
	dummy, err := utils.HashPassword("book-review-dummy-password")
	if err != nil {
		dummy = ""
	}
	return &AuthService{users: users, tokens: tokens, log: log, dummyHash: dummy}
}

// Signup creates a user and returns its id.
func (s *AuthService) Signup(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	if len(password) > utils.MaxPasswordBytes {
		return "", errPasswordTooLong
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return "", errPasswordTooLong
		}
		return "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, &models.User{Username: username, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return "", ErrDuplicateUser
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	s.log.Info(ctx, "user signed up", "user_id", user.ID, "username", user.Username)
	return user.ID, nil
}

// Login checks the credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.CheckPasswordHash(password, s.dummyHash)
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		s.log.Warn(ctx, "failed login", "username", username)
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(*user)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// Authenticate resolves a bearer token to the caller it was issued for.
func (s *AuthService) Authenticate(token string) (models.Caller, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Caller{}, ErrUnauthorized
	}

	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return models.Caller{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return models.Caller{UserID: claims.UserID, Username: claims.Username}, nil
}
