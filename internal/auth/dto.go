package auth

import (
	"github.com/google/uuid"

	"github.com/promptmart/promptmart-backend/internal/users"
)

// RegisterRequest carries the public registration payload.
type RegisterRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=100"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
}

// RegisterResponse acknowledges that a verification code was sent.
type RegisterResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Message string    `json:"message"`
}

// VerifyOTPRequest confirms a pending registration.
type VerifyOTPRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Code   string    `json:"otp" validate:"required,len=6,numeric"`
}

// LoginRequest carries the login credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest starts the password reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPasswordResponse acknowledges that a reset code was sent.
type ForgotPasswordResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Message string    `json:"message"`
}

// ResetPasswordRequest completes the password reset flow.
type ResetPasswordRequest struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	Code        string    `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string    `json:"new_password" validate:"required,min=8,max=128"`
}

// SessionResponse couples a freshly minted token with its user.
type SessionResponse struct {
	Token string         `json:"token"`
	User  *users.UserDTO `json:"user"`
}
