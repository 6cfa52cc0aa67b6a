package models

import (
	"time"

	dbtypes "github.com/promptmart/promptmart-backend/pkg/db/types"
	"github.com/promptmart/promptmart-backend/pkg/enums"
	"github.com/google/uuid"
)

// User represents the canonical identity entity. The OTP pair is populated
// only while a verification or password-reset flow is pending.
type User struct {
	ID           uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string            `gorm:"column:name;not null"`
	Email        string            `gorm:"type:text;not null;uniqueIndex"`
	Phone        *string           `gorm:"column:phone"`
	PasswordHash string            `gorm:"column:password_hash;not null"`
	Role         enums.UserRole    `gorm:"column:role;not null;default:user"`
	IsVerified   bool              `gorm:"column:is_verified;not null;default:false"`
	OTPCodeHash  *string           `gorm:"column:otp_code_hash"`
	OTPExpiresAt *time.Time        `gorm:"column:otp_expires_at"`
	ProfilePic   *dbtypes.ImageRef `gorm:"column:profile_pic;type:jsonb"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
