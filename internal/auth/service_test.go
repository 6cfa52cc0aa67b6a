package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/promptmart/promptmart-backend/internal/users"
	"github.com/promptmart/promptmart-backend/pkg/config"
	"github.com/promptmart/promptmart-backend/pkg/db/models"
	pkgerrors "github.com/promptmart/promptmart-backend/pkg/errors"
	"github.com/promptmart/promptmart-backend/pkg/otp"
	"github.com/promptmart/promptmart-backend/pkg/security"
)

type fakeUserRepo struct {
	byID    map[uuid.UUID]*models.User
	byEmail map[string]uuid.UUID
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    map[uuid.UUID]*models.User{},
		byEmail: map[string]uuid.UUID{},
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if _, exists := f.byEmail[dto.Email]; exists {
		return nil, errors.New("duplicate key value violates unique constraint")
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	f.byID[user.ID] = user
	f.byEmail[user.Email] = user.ID
	return user, nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	id, ok := f.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.byID[id]
	return &copied, nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) SetOTP(ctx context.Context, id uuid.UUID, codeHash string, expiresAt time.Time) error {
	u, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.OTPCodeHash = &codeHash
	u.OTPExpiresAt = &expiresAt
	return nil
}

func (f *fakeUserRepo) ClearOTP(ctx context.Context, id uuid.UUID) error {
	u, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.OTPCodeHash = nil
	u.OTPExpiresAt = nil
	return nil
}

func (f *fakeUserRepo) MarkVerified(ctx context.Context, id uuid.UUID) error {
	u, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsVerified = true
	u.OTPCodeHash = nil
	u.OTPExpiresAt = nil
	return nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	u, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = passwordHash
	u.OTPCodeHash = nil
	u.OTPExpiresAt = nil
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	u, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.byEmail, u.Email)
	delete(f.byID, id)
	return nil
}

type fakeMailer struct {
	delivered []deliveredMail
	fail      bool
}

type deliveredMail struct {
	to      string
	subject string
	html    string
}

func (f *fakeMailer) Deliver(ctx context.Context, to, subject, html string) error {
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.delivered = append(f.delivered, deliveredMail{to: to, subject: subject, html: html})
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "promptmart",
		ExpirationMinutes: 60,
	}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
}

type testEnv struct {
	svc    Service
	repo   *fakeUserRepo
	mail   *fakeMailer
	nowRef *time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newFakeUserRepo()
	mail := &fakeMailer{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		Mailer:         mail,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: testPasswordConfig(),
		Now:            func() time.Time { return now },
	})
	require.NoError(t, err)
	return &testEnv{svc: svc, repo: repo, mail: mail, nowRef: &now}
}

func (e *testEnv) register(t *testing.T) (uuid.UUID, string) {
	t.Helper()
	resp, err := e.svc.Register(context.Background(), RegisterRequest{
		Name:     "Pat",
		Email:    "Pat@Example.com",
		Password: "super-secret-pw",
	})
	require.NoError(t, err)
	require.Len(t, e.mail.delivered, 1)

	user := e.repo.byID[resp.UserID]
	require.NotNil(t, user)
	require.NotNil(t, user.OTPCodeHash)

	code := extractCode(t, e.mail.delivered[len(e.mail.delivered)-1].html, *user.OTPCodeHash)
	return resp.UserID, code
}

// extractCode scans the mail body for the six digit sequence matching the stored hash.
func extractCode(t *testing.T, html, wantHash string) string {
	t.Helper()
	for i := 0; i+6 <= len(html); i++ {
		candidate := html[i : i+6]
		if !allDigits(candidate) {
			continue
		}
		if otp.HashCode(candidate) == wantHash {
			return candidate
		}
	}
	t.Fatal("verification code not found in email body")
	return ""
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func TestRegisterNormalizesEmailAndSendsCode(t *testing.T) {
	env := newTestEnv(t)
	id, _ := env.register(t)

	user := env.repo.byID[id]
	require.Equal(t, "pat@example.com", user.Email)
	require.False(t, user.IsVerified)
	require.Equal(t, env.nowRef.Add(otp.TTL), *user.OTPExpiresAt)
	require.Equal(t, mailerSubjectVerification(env.mail), "Email Verification OTP")
}

func mailerSubjectVerification(m *fakeMailer) string {
	return m.delivered[0].subject
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.register(t)

	_, err := env.svc.Register(context.Background(), RegisterRequest{
		Name:     "Other",
		Email:    "pat@example.com",
		Password: "another-pw-123",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestRegisterRollsBackWhenDeliveryFails(t *testing.T) {
	env := newTestEnv(t)
	env.mail.fail = true

	_, err := env.svc.Register(context.Background(), RegisterRequest{
		Name:     "Pat",
		Email:    "pat@example.com",
		Password: "super-secret-pw",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())

	// The email must stay claimable.
	env.mail.fail = false
	_, err = env.svc.Register(context.Background(), RegisterRequest{
		Name:     "Pat",
		Email:    "pat@example.com",
		Password: "super-secret-pw",
	})
	require.NoError(t, err)
}

func TestVerifyRegistrationMintsSession(t *testing.T) {
	env := newTestEnv(t)
	id, code := env.register(t)

	resp, err := env.svc.VerifyRegistration(context.Background(), VerifyOTPRequest{
		UserID: id,
		Code:   code,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.True(t, resp.User.IsVerified)

	user := env.repo.byID[id]
	require.True(t, user.IsVerified)
	require.Nil(t, user.OTPCodeHash)
}

func TestVerifyRegistrationAlreadyVerified(t *testing.T) {
	env := newTestEnv(t)
	id, code := env.register(t)

	_, err := env.svc.VerifyRegistration(context.Background(), VerifyOTPRequest{UserID: id, Code: code})
	require.NoError(t, err)

	_, err = env.svc.VerifyRegistration(context.Background(), VerifyOTPRequest{UserID: id, Code: code})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestVerifyRegistrationRejectsExpiredCode(t *testing.T) {
	env := newTestEnv(t)
	id, code := env.register(t)

	*env.nowRef = env.nowRef.Add(otp.TTL)

	_, err := env.svc.VerifyRegistration(context.Background(), VerifyOTPRequest{UserID: id, Code: code})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())

	require.False(t, env.repo.byID[id].IsVerified)
}

func TestVerifyRegistrationRejectsWrongCode(t *testing.T) {
	env := newTestEnv(t)
	id, code := env.register(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, err := env.svc.VerifyRegistration(context.Background(), VerifyOTPRequest{UserID: id, Code: wrong})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestVerifyRegistrationUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.VerifyRegistration(context.Background(), VerifyOTPRequest{
		UserID: uuid.New(),
		Code:   "123456",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestLoginHappyPath(t *testing.T) {
	env := newTestEnv(t)
	id, code := env.register(t)
	_, err := env.svc.VerifyRegistration(context.Background(), VerifyOTPRequest{UserID: id, Code: code})
	require.NoError(t, err)

	resp, err := env.svc.Login(context.Background(), LoginRequest{
		Email:    "pat@example.com",
		Password: "super-secret-pw",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, id, resp.User.ID)
}

func TestLoginDoesNotRevealWhichFieldFailed(t *testing.T) {
	env := newTestEnv(t)
	id, code := env.register(t)
	_, err := env.svc.VerifyRegistration(context.Background(), VerifyOTPRequest{UserID: id, Code: code})
	require.NoError(t, err)

	_, unknownErr := env.svc.Login(context.Background(), LoginRequest{
		Email:    "someone-else@example.com",
		Password: "super-secret-pw",
	})
	_, wrongPwErr := env.svc.Login(context.Background(), LoginRequest{
		Email:    "pat@example.com",
		Password: "wrong-password-1",
	})

	unknown := pkgerrors.As(unknownErr)
	wrongPw := pkgerrors.As(wrongPwErr)
	require.NotNil(t, unknown)
	require.NotNil(t, wrongPw)
	require.Equal(t, pkgerrors.CodeUnauthorized, unknown.Code())
	require.Equal(t, unknown.Message(), wrongPw.Message())
}

func TestLoginBlocksUnverifiedAccount(t *testing.T) {
	env := newTestEnv(t)
	env.register(t)

	_, err := env.svc.Login(context.Background(), LoginRequest{
		Email:    "pat@example.com",
		Password: "super-secret-pw",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
	require.Contains(t, typed.Message(), "verify")
}

func TestLoginRequiresBothFields(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Login(context.Background(), LoginRequest{Email: "pat@example.com"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.ForgotPassword(context.Background(), ForgotPasswordRequest{Email: "nobody@example.com"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestForgotPasswordOverwritesPendingCode(t *testing.T) {
	env := newTestEnv(t)
	id, code := env.register(t)
	_, err := env.svc.VerifyRegistration(context.Background(), VerifyOTPRequest{UserID: id, Code: code})
	require.NoError(t, err)

	resp, err := env.svc.ForgotPassword(context.Background(), ForgotPasswordRequest{Email: "pat@example.com"})
	require.NoError(t, err)
	require.Equal(t, id, resp.UserID)
	firstHash := *env.repo.byID[id].OTPCodeHash

	_, err = env.svc.ForgotPassword(context.Background(), ForgotPasswordRequest{Email: "pat@example.com"})
	require.NoError(t, err)
	secondHash := *env.repo.byID[id].OTPCodeHash

	if firstHash == secondHash {
		t.Skip("generated identical codes, cannot distinguish overwrite")
	}

	firstCode := extractCode(t, env.mail.delivered[1].html, firstHash)
	err = env.svc.ResetPassword(context.Background(), ResetPasswordRequest{
		UserID:      id,
		Code:        firstCode,
		NewPassword: "brand-new-pw-99",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestForgotPasswordDeliveryFailureClearsCodeOnly(t *testing.T) {
	env := newTestEnv(t)
	id, code := env.register(t)
	_, err := env.svc.VerifyRegistration(context.Background(), VerifyOTPRequest{UserID: id, Code: code})
	require.NoError(t, err)

	env.mail.fail = true
	_, err = env.svc.ForgotPassword(context.Background(), ForgotPasswordRequest{Email: "pat@example.com"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())

	user := env.repo.byID[id]
	require.NotNil(t, user)
	require.Nil(t, user.OTPCodeHash)

	// Account still works.
	env.mail.fail = false
	_, err = env.svc.Login(context.Background(), LoginRequest{
		Email:    "pat@example.com",
		Password: "super-secret-pw",
	})
	require.NoError(t, err)
}

func TestResetPasswordReplacesCredential(t *testing.T) {
	env := newTestEnv(t)
	id, code := env.register(t)
	_, err := env.svc.VerifyRegistration(context.Background(), VerifyOTPRequest{UserID: id, Code: code})
	require.NoError(t, err)

	_, err = env.svc.ForgotPassword(context.Background(), ForgotPasswordRequest{Email: "pat@example.com"})
	require.NoError(t, err)
	resetCode := extractCode(t, env.mail.delivered[1].html, *env.repo.byID[id].OTPCodeHash)

	err = env.svc.ResetPassword(context.Background(), ResetPasswordRequest{
		UserID:      id,
		Code:        resetCode,
		NewPassword: "brand-new-pw-99",
	})
	require.NoError(t, err)
	require.Nil(t, env.repo.byID[id].OTPCodeHash)

	_, err = env.svc.Login(context.Background(), LoginRequest{
		Email:    "pat@example.com",
		Password: "super-secret-pw",
	})
	require.Error(t, err)

	_, err = env.svc.Login(context.Background(), LoginRequest{
		Email:    "pat@example.com",
		Password: "brand-new-pw-99",
	})
	require.NoError(t, err)

	ok, err := security.VerifyPassword("brand-new-pw-99", env.repo.byID[id].PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestResetPasswordRejectsBadCode(t *testing.T) {
	env := newTestEnv(t)
	id, code := env.register(t)
	_, err := env.svc.VerifyRegistration(context.Background(), VerifyOTPRequest{UserID: id, Code: code})
	require.NoError(t, err)

	err = env.svc.ResetPassword(context.Background(), ResetPasswordRequest{
		UserID:      id,
		Code:        "999999",
		NewPassword: "brand-new-pw-99",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	id, code := env.register(t)
	_, err := env.svc.VerifyRegistration(context.Background(), VerifyOTPRequest{UserID: id, Code: code})
	require.NoError(t, err)

	dto, err := env.svc.Me(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "pat@example.com", dto.Email)

	_, err = env.svc.Me(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
