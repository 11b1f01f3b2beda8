package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atinyakov/JobTracker/internal/models"
	"github.com/atinyakov/JobTracker/internal/service"
)

// fakeAuthService implements AuthService for testing.
type fakeAuthService struct {
	registerErr error
	loginErr    error
}

func (f *fakeAuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.User{ID: 1, Username: username, Email: email, PasswordHash: []byte("secret-hash")}, nil
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &service.LoginResult{Token: "tok", User: &models.User{ID: 1, Username: "frank", Email: email}}, nil
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		service        *fakeAuthService
		expectedCode   int
		expectedSubstr string
	}{
		{
			name:           "invalid JSON",
			body:           `not a json`,
			service:        &fakeAuthService{},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid request body",
		},
		{
			name:           "validation error",
			body:           `{"username":"","email":"a@example.com","password":"secret1"}`,
			service:        &fakeAuthService{registerErr: models.ErrValidation},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "message",
		},
		{
			name:           "User already exists",
			body:           `{"username":"bob","email":"bob@example.com","password":"secret1"}`,
			service:        &fakeAuthService{registerErr: models.ErrUserExists},
			expectedCode:   http.StatusConflict,
			expectedSubstr: "User exists",
		},
		{
			name:           "store failure",
			body:           `{"username":"carl","email":"carl@example.com","password":"secret1"}`,
			service:        &fakeAuthService{registerErr: errors.New("db error")},
			expectedCode:   http.StatusInternalServerError,
			expectedSubstr: "Server error",
		},
		{
			name:           "created",
			body:           `{"username":"dina","email":"dina@example.com","password":"secret1"}`,
			service:        &fakeAuthService{},
			expectedCode:   http.StatusCreated,
			expectedSubstr: `"username":"dina"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/auth/register", bytes.NewBufferString(tt.body))
			h := &AuthHandler{AuthService: tt.service}
			h.Register(rec, req)
			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, res.StatusCode)
			}

			buf := new(bytes.Buffer)
			if _, err := buf.ReadFrom(res.Body); err != nil {
				t.Fatalf("failed to read body: %v", err)
			}
			if !bytes.Contains(buf.Bytes(), []byte(tt.expectedSubstr)) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedSubstr, buf.String())
			}
			if bytes.Contains(buf.Bytes(), []byte("secret-hash")) {
				t.Error("password hash leaked into the response")
			}
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		service      *fakeAuthService
		expectedCode int
	}{
		{
			name:         "bad body",
			body:         `{`,
			service:      &fakeAuthService{},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "wrong password",
			body:         `{"email":"erin@example.com","password":"nope"}`,
			service:      &fakeAuthService{loginErr: models.ErrInvalidCredentials},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Successful login",
			body:         `{"email":"frank@example.com","password":"secret1"}`,
			service:      &fakeAuthService{},
			expectedCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/auth/login", bytes.NewBufferString(tt.body))

			h := &AuthHandler{AuthService: tt.service}
			h.Login(rec, req)
			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.expectedCode {
				t.Fatalf("%s: expected status %d, got %d", tt.name, tt.expectedCode, res.StatusCode)
			}

			if tt.expectedCode == http.StatusOK {
				var payload service.LoginResult
				if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
					t.Fatalf("failed to decode JSON: %v", err)
				}
				if payload.Token != "tok" || payload.User == nil || payload.User.Username != "frank" {
					t.Errorf("unexpected payload %+v", payload)
				}
			}
		})
	}
}
