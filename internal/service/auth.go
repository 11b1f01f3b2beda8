package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/atinyakov/JobTracker/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// CreateUser stores a new user and fills in its ID.
	CreateUser(ctx context.Context, u *models.User) error
	// GetUserByEmail looks a user up by login email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByID looks a user up by primary key.
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	// UpdateUser applies a profile patch.
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
}

// AuthService registers users, checks credentials and issues tokens.
type AuthService struct {
	// repo performs the data-layer operations.
	repo   AuthRepository
	tokens *TokenManager
	cost   int
}

// NewAuthService constructs a new AuthService using the provided repository
// and token manager.
func NewAuthService(repo AuthRepository, tokens *TokenManager) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, cost: bcrypt.DefaultCost}
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *AuthService) hash(password string) ([]byte, error) {
	if len(password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", models.ErrValidation)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return h, nil
}

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email", models.ErrValidation)
	}
	return nil
}

// Register creates an account. A taken email or username yields
// models.ErrUserExists.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" {
		return nil, fmt.Errorf("%w: username required", models.ErrValidation)
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	h, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	u := &models.User{Username: username, Email: email, PasswordHash: h}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies the credentials and issues a bearer token. Unknown emails
// and wrong passwords both yield models.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: u}, nil
}

// Authenticate resolves a bearer token to a user id.
func (s *AuthService) Authenticate(token string) (int64, error) {
	return s.tokens.Parse(token)
}

// GetProfile returns the account of id.
func (s *AuthService) GetProfile(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// ProfileUpdate is the input of UpdateProfile. Empty fields are kept.
type ProfileUpdate struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfile changes username, email and password; the password is
// re-hashed when supplied.
func (s *AuthService) UpdateProfile(ctx context.Context, id int64, in ProfileUpdate) (*models.User, error) {
	var patch models.UserPatch
	if v := strings.TrimSpace(in.Username); v != "" {
		patch.Username = &v
	}
	if v := strings.ToLower(strings.TrimSpace(in.Email)); v != "" {
		if err := validateEmail(v); err != nil {
			return nil, err
		}
		patch.Email = &v
	}
	if strings.TrimSpace(in.Password) != "" {
		h, err := s.hash(in.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = h
	}
	return s.repo.UpdateUser(ctx, id, patch)
}
