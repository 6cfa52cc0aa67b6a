package mailer

import "fmt"

const (
	// SubjectVerification is sent with the registration code.
	SubjectVerification = "Email Verification OTP"
	// SubjectPasswordReset is sent with the password reset code.
	SubjectPasswordReset = "Password Reset OTP"
)

// VerificationBody renders the registration verification email.
func VerificationBody(name, code string) string {
	return fmt.Sprintf(`
    <div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
      <h2 style="color: #333;">Verify Your Email</h2>
      <p>Hello %s,</p>
      <p>Your OTP for email verification is:</p>
      <div style="background: #f4f4f4; padding: 10px; text-align: center; font-size: 24px; letter-spacing: 5px; margin: 20px 0;">
        <strong>%s</strong>
      </div>
      <p>This OTP will expire in 10 minutes.</p>
      <p>If you didn't request this, please ignore this email.</p>
    </div>
  `, name, code)
}

// PasswordResetBody renders the password reset email.
func PasswordResetBody(name, code string) string {
	return fmt.Sprintf(`
    <div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
      <h2 style="color: #333;">Password Reset Request</h2>
      <p>Hello %s,</p>
      <p>You are receiving this email because you requested a password reset.</p>
      <p>Your OTP for password reset is:</p>
      <div style="background: #f4f4f4; padding: 10px; text-align: center; font-size: 24px; letter-spacing: 5px; margin: 20px 0;">
        <strong>%s</strong>
      </div>
      <p>This OTP will expire in 10 minutes.</p>
      <p>If you didn't request this, please ignore this email.</p>
    </div>
  `, name, code)
}
