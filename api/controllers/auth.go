package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/promptmart/promptmart-backend/api/middleware"
	"github.com/promptmart/promptmart-backend/api/responses"
	"github.com/promptmart/promptmart-backend/api/validators"
	"github.com/promptmart/promptmart-backend/internal/auth"
	pkgauth "github.com/promptmart/promptmart-backend/pkg/auth"
	"github.com/promptmart/promptmart-backend/pkg/config"
	pkgerrors "github.com/promptmart/promptmart-backend/pkg/errors"
	"github.com/promptmart/promptmart-backend/pkg/logger"
)

// AuthRegister creates an unverified account and emails a verification code.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Register(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// AuthVerifyOTP confirms a pending registration and opens a session.
func AuthVerifyOTP(svc auth.Service, jwtCfg config.JWTConfig, appCfg config.AppConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload auth.VerifyOTPRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.VerifyRegistration(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pkgauth.SetSessionCookie(w, session.Token, jwtCfg.Expiration(), !appCfg.IsDev())
		responses.WriteSuccess(w, session)
	}
}

// AuthLogin authenticates credentials and opens a session.
func AuthLogin(svc auth.Service, jwtCfg config.JWTConfig, appCfg config.AppConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Login(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pkgauth.SetSessionCookie(w, session.Token, jwtCfg.Expiration(), !appCfg.IsDev())
		responses.WriteSuccess(w, session)
	}
}

// AuthForgotPassword emails a password reset code.
func AuthForgotPassword(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload auth.ForgotPasswordRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.ForgotPassword(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}

// AuthResetPassword replaces the credential after OTP verification.
func AuthResetPassword(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload auth.ResetPasswordRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ResetPassword(r.Context(), payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"message": "password has been reset"})
	}
}

// AuthMe returns the authenticated user's profile.
func AuthMe(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Me(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, user)
	}
}

// AuthLogout clears the session cookie. Tokens are stateless, so there is
// nothing to revoke server side.
func AuthLogout(appCfg config.AppConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pkgauth.ClearSessionCookie(w, !appCfg.IsDev())
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

func authenticatedUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}
