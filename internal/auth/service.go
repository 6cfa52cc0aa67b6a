package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/promptmart/promptmart-backend/internal/mailer"
	"github.com/promptmart/promptmart-backend/internal/users"
	pkgauth "github.com/promptmart/promptmart-backend/pkg/auth"
	"github.com/promptmart/promptmart-backend/pkg/config"
	"github.com/promptmart/promptmart-backend/pkg/db"
	"github.com/promptmart/promptmart-backend/pkg/db/models"
	pkgerrors "github.com/promptmart/promptmart-backend/pkg/errors"
	"github.com/promptmart/promptmart-backend/pkg/logger"
	"github.com/promptmart/promptmart-backend/pkg/otp"
	"github.com/promptmart/promptmart-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	invalidCodeMessage        = "invalid or expired verification code"
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	VerifyRegistration(ctx context.Context, req VerifyOTPRequest) (*SessionResponse, error)
	Login(ctx context.Context, req LoginRequest) (*SessionResponse, error)
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (*ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
}

type service struct {
	users       userRepository
	mail        mailer.Mailer
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetOTP(ctx context.Context, id uuid.UUID, codeHash string, expiresAt time.Time) error
	ClearOTP(ctx context.Context, id uuid.UUID) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	Mailer         mailer.Mailer
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
	Now            func() time.Time
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:       params.UserRepo,
		mail:        params.Mailer,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// Register creates an unverified account, issues a code, and emails it. When
// delivery fails the account is removed so the email stays claimable.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	email := normalizeEmail(req.Email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already exists with this email")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking existing user")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	now := s.now()
	code, stored, err := otp.Generate(now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating verification code")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Name:         req.Name,
		Email:        email,
		Phone:        req.Phone,
		PasswordHash: hash,
		OTPCodeHash:  stored.CodeHash,
		OTPExpiresAt: stored.ExpiresAt,
	})
	if err != nil {
		// A concurrent registration can slip past the FindByEmail check and
		// land on the unique email index instead.
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already exists with this email")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating user")
	}

	body := mailer.VerificationBody(user.Name, code)
	if err := s.mail.Deliver(ctx, user.Email, mailer.SubjectVerification, body); err != nil {
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil && s.logg != nil {
			s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "rolling back unverified user", delErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "email could not be sent, registration failed")
	}

	return &RegisterResponse{
		UserID:  user.ID,
		Message: "verification code sent to your email",
	}, nil
}

// VerifyRegistration consumes the pending code and logs the user in.
func (s *service) VerifyRegistration(ctx context.Context, req VerifyOTPRequest) (*SessionResponse, error) {
	user, err := s.loadUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	if user.IsVerified {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user is already verified")
	}

	if !s.verifyStoredOTP(user, req.Code) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeMessage)
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking user verified")
	}
	user.IsVerified = true

	return s.mintSession(user)
}

// Login validates credentials for a verified account.
func (s *service) Login(ctx context.Context, req LoginRequest) (*SessionResponse, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}

	if !user.IsVerified {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "please verify your email first")
	}

	ok, err := security.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	return s.mintSession(user)
}

// ForgotPassword issues a reset code for an existing account. A delivery
// failure clears the pending code but keeps the account intact.
func (s *service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (*ForgotPasswordResponse, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "there is no user with that email")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}

	now := s.now()
	code, stored, err := otp.Generate(now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating reset code")
	}

	if err := s.users.SetOTP(ctx, user.ID, stored.CodeHash, stored.ExpiresAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing reset code")
	}

	body := mailer.PasswordResetBody(user.Name, code)
	if err := s.mail.Deliver(ctx, user.Email, mailer.SubjectPasswordReset, body); err != nil {
		if clearErr := s.users.ClearOTP(ctx, user.ID); clearErr != nil && s.logg != nil {
			s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "clearing undeliverable reset code", clearErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "email could not be sent")
	}

	return &ForgotPasswordResponse{
		UserID:  user.ID,
		Message: "reset code sent to your email",
	}, nil
}

// ResetPassword consumes the pending reset code and replaces the password.
// It does not mint a session; the user logs in with the new password.
func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	user, err := s.loadUser(ctx, req.UserID)
	if err != nil {
		return err
	}

	if !s.verifyStoredOTP(user, req.Code) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeMessage)
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating password")
	}
	return nil
}

// Me returns the authenticated user's profile.
func (s *service) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return users.FromModel(user), nil
}

func (s *service) loadUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	return user, nil
}

func (s *service) verifyStoredOTP(user *models.User, code string) bool {
	if user.OTPCodeHash == nil || user.OTPExpiresAt == nil {
		return false
	}
	stored := otp.Stored{
		CodeHash:  *user.OTPCodeHash,
		ExpiresAt: *user.OTPExpiresAt,
	}
	return otp.Verify(&stored, code, s.now())
}

func (s *service) mintSession(user *models.User) (*SessionResponse, error) {
	token, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}
	return &SessionResponse{
		Token: token,
		User:  users.FromModel(user),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
