package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/promptmart/promptmart-backend/pkg/db/models"
	dbtypes "github.com/promptmart/promptmart-backend/pkg/db/types"
	"github.com/promptmart/promptmart-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Phone      *string           `json:"phone,omitempty"`
	Role       enums.UserRole    `json:"role"`
	IsVerified bool              `json:"is_verified"`
	ProfilePic *dbtypes.ImageRef `json:"profile_pic,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        string
	Phone        *string
	PasswordHash string
	Role         enums.UserRole
	OTPCodeHash  string
	OTPExpiresAt time.Time
}

// UpdateProfileDTO carries the mutable profile fields. Nil means unchanged.
type UpdateProfileDTO struct {
	Name  *string
	Phone *string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Phone:      u.Phone,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		ProfilePic: u.ProfilePic,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleUser
	}

	hash := c.OTPCodeHash
	expires := c.OTPExpiresAt
	return &models.User{
		Name:         c.Name,
		Email:        c.Email,
		Phone:        c.Phone,
		PasswordHash: c.PasswordHash,
		Role:         role,
		IsVerified:   false,
		OTPCodeHash:  &hash,
		OTPExpiresAt: &expires,
	}
}
