package users

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/promptmart/promptmart-backend/pkg/db/models"
	dbtypes "github.com/promptmart/promptmart-backend/pkg/db/types"
	pkgerrors "github.com/promptmart/promptmart-backend/pkg/errors"
	"github.com/promptmart/promptmart-backend/pkg/logger"
)

// Service defines the behavior needed by the users controller.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserDTO, error)
	UpdateProfilePicture(ctx context.Context, userID uuid.UUID, upload PictureUpload) (*UserDTO, error)
}

// UpdateProfileRequest carries the mutable profile fields from the API.
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// PictureUpload is one incoming image file.
type PictureUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type service struct {
	users   userRepository
	objects objectStore
	logg    *logger.Logger
}

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, dto UpdateProfileDTO) error
	UpdateProfilePic(ctx context.Context, id uuid.UUID, pic *dbtypes.ImageRef) error
}

type objectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	UserRepo    userRepository
	ObjectStore objectStore
	Logger      *logger.Logger
}

// NewService constructs a users service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.ObjectStore == nil {
		return nil, fmt.Errorf("object store is required")
	}
	return &service{
		users:   params.UserRepo,
		objects: params.ObjectStore,
		logg:    params.Logger,
	}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserDTO, error) {
	if _, err := s.loadUser(ctx, userID); err != nil {
		return nil, err
	}

	dto := UpdateProfileDTO{Name: req.Name, Phone: req.Phone}
	if err := s.users.UpdateProfile(ctx, userID, dto); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating profile")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfilePicture(ctx context.Context, userID uuid.UUID, upload PictureUpload) (*UserDTO, error) {
	if upload.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image file is required")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := profilePicKey(userID, upload.Filename)
	url, err := s.objects.Upload(ctx, key, upload.ContentType, upload.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "uploading profile picture")
	}

	newPic := &dbtypes.ImageRef{StorageKey: key, URL: url}
	if err := s.users.UpdateProfilePic(ctx, userID, newPic); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing profile picture")
	}

	// Best effort removal of the replaced object.
	if old := user.ProfilePic; old != nil && old.StorageKey != "" {
		if delErr := s.objects.Delete(ctx, old.StorageKey); delErr != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "storage_key", old.StorageKey), "failed to delete replaced profile picture")
		}
	}

	user, err = s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	return user, nil
}

func profilePicKey(userID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("profiles/%s/%s%s", userID, uuid.NewString(), ext)
}
