package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/promptmart/promptmart-backend/api/middleware"
	"github.com/promptmart/promptmart-backend/internal/auth"
	"github.com/promptmart/promptmart-backend/internal/users"
	pkgauth "github.com/promptmart/promptmart-backend/pkg/auth"
	"github.com/promptmart/promptmart-backend/pkg/config"
	pkgerrors "github.com/promptmart/promptmart-backend/pkg/errors"
)

type fakeAuthService struct {
	registered *auth.RegisterRequest
	session    *auth.SessionResponse
	err        error
}

func (f *fakeAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.RegisterResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.registered = &req
	return &auth.RegisterResponse{UserID: uuid.New(), Message: "verification code sent"}, nil
}

func (f *fakeAuthService) VerifyRegistration(ctx context.Context, req auth.VerifyOTPRequest) (*auth.SessionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.SessionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeAuthService) ForgotPassword(ctx context.Context, req auth.ForgotPasswordRequest) (*auth.ForgotPasswordResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &auth.ForgotPasswordResponse{UserID: uuid.New(), Message: "reset code sent"}, nil
}

func (f *fakeAuthService) ResetPassword(ctx context.Context, req auth.ResetPasswordRequest) error {
	return f.err
}

func (f *fakeAuthService) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &users.UserDTO{ID: userID}, nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
}

func TestAuthRegisterReturnsCreated(t *testing.T) {
	svc := &fakeAuthService{}
	handler := AuthRegister(svc, nil)

	body := `{"name":"Pat","email":"pat@example.com","password":"supersecret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.registered)
	require.Equal(t, "pat@example.com", svc.registered.Email)
}

func TestAuthRegisterRejectsInvalidBody(t *testing.T) {
	handler := AuthRegister(&fakeAuthService{}, nil)

	body := `{"name":"Pat","email":"not-an-email","password":"supersecret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, string(pkgerrors.CodeValidation), payload.Error.Code)
}

func TestAuthLoginSetsSessionCookie(t *testing.T) {
	userID := uuid.New()
	svc := &fakeAuthService{session: &auth.SessionResponse{Token: "signed-token", User: &users.UserDTO{ID: userID}}}
	handler := AuthLogin(svc, testJWTConfig(), config.AppConfig{Env: "dev"}, nil)

	body := `{"email":"pat@example.com","password":"supersecret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, pkgauth.SessionCookieName, cookies[0].Name)
	require.Equal(t, "signed-token", cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
}

func TestAuthLoginPropagatesUnauthorized(t *testing.T) {
	svc := &fakeAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	handler := AuthLogin(svc, testJWTConfig(), config.AppConfig{Env: "dev"}, nil)

	body := `{"email":"pat@example.com","password":"wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, rec.Result().Cookies())
}

func TestAuthLogoutClearsCookie(t *testing.T) {
	handler := AuthLogout(config.AppConfig{Env: "dev"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, pkgauth.SessionCookieName, cookies[0].Name)
	require.Equal(t, -1, cookies[0].MaxAge)
}

func TestAuthMeRequiresUserContext(t *testing.T) {
	handler := AuthMe(&fakeAuthService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMeReturnsProfile(t *testing.T) {
	userID := uuid.New()
	handler := AuthMe(&fakeAuthService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), userID.String())
}
