package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestlist/internal/delivery/http/helpers"
	"guestlist/internal/domain"
)

// fakeUserService implements domain.UserService for handler tests.
type fakeUserService struct {
	signUpResult *domain.User
	signUpErr    error
	lastEmail    string

	loginToken string
	loginUser  *domain.User
	loginErr   error
}

func (f *fakeUserService) SignUp(ctx context.Context, email, password, name string) (*domain.User, error) {
	f.lastEmail = email
	return f.signUpResult, f.signUpErr
}

func (f *fakeUserService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	f.lastEmail = email
	return f.loginToken, f.loginUser, f.loginErr
}

func TestAuthController_SignUp(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		users := &fakeUserService{signUpResult: &domain.User{ID: "user-1", Email: "a@example.com"}}
		c := NewAuthController(testLogger, users)

		rec := postJSON(t, c.SignUp, "/auth/signup", map[string]any{
			"email": "a@example.com", "password": "correct-horse", "name": "Ana",
		})
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		c := NewAuthController(testLogger, &fakeUserService{})
		rec := postJSON(t, c.SignUp, "/auth/signup", map[string]any{"email": "a@example.com"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		users := &fakeUserService{signUpErr: domain.ErrDuplicateEmail}
		c := NewAuthController(testLogger, users)

		rec := postJSON(t, c.SignUp, "/auth/signup", map[string]any{
			"email": "a@example.com", "password": "correct-horse", "name": "Ana",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, helpers.ErrCodeConflict, env.Error.Code)
	})
}

func TestAuthController_Login(t *testing.T) {
	t.Run("success returns token and user", func(t *testing.T) {
		users := &fakeUserService{loginToken: "jwt-token", loginUser: &domain.User{ID: "user-1", Email: "a@example.com"}}
		c := NewAuthController(testLogger, users)

		rec := postJSON(t, c.Login, "/auth/login", map[string]any{
			"email": "a@example.com", "password": "correct-horse",
		})
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp LoginSuccessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Data)
		assert.Equal(t, "jwt-token", resp.Data.Token)
		assert.Equal(t, "user-1", resp.Data.User.ID)
	})

	t.Run("bad credentials", func(t *testing.T) {
		users := &fakeUserService{loginErr: domain.ErrInvalidCredentials}
		c := NewAuthController(testLogger, users)

		rec := postJSON(t, c.Login, "/auth/login", map[string]any{
			"email": "a@example.com", "password": "nope",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, helpers.ErrCodeUnauthorized, env.Error.Code)
	})
}
