package users

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/promptmart/promptmart-backend/pkg/db/models"
	dbtypes "github.com/promptmart/promptmart-backend/pkg/db/types"
	pkgerrors "github.com/promptmart/promptmart-backend/pkg/errors"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*models.User
}

func newFakeUserRepo(seed ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[uuid.UUID]*models.User{}}
	for _, u := range seed {
		repo.users[u.ID] = u
	}
	return repo
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, dto UpdateProfileDTO) error {
	u, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if dto.Name != nil {
		u.Name = *dto.Name
	}
	if dto.Phone != nil {
		u.Phone = dto.Phone
	}
	return nil
}

func (f *fakeUserRepo) UpdateProfilePic(ctx context.Context, id uuid.UUID, pic *dbtypes.ImageRef) error {
	u, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.ProfilePic = pic
	return nil
}

type fakeObjectStore struct {
	uploaded []string
	deleted  []string
	failNext bool
}

func (f *fakeObjectStore) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if f.failNext {
		return "", io.ErrUnexpectedEOF
	}
	f.uploaded = append(f.uploaded, key)
	return "https://storage.googleapis.com/bucket/" + key, nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func seedUser() *models.User {
	return &models.User{
		ID:         uuid.New(),
		Name:       "Pat",
		Email:      "pat@example.com",
		IsVerified: true,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

func TestGetProfile(t *testing.T) {
	user := seedUser()
	svc, err := NewService(ServiceParams{
		UserRepo:    newFakeUserRepo(user),
		ObjectStore: &fakeObjectStore{},
	})
	require.NoError(t, err)

	dto, err := svc.GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, dto.Email)

	_, err = svc.GetProfile(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateProfile(t *testing.T) {
	user := seedUser()
	repo := newFakeUserRepo(user)
	svc, err := NewService(ServiceParams{
		UserRepo:    repo,
		ObjectStore: &fakeObjectStore{},
	})
	require.NoError(t, err)

	name := "Patricia"
	phone := "+15551234567"
	dto, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileRequest{
		Name:  &name,
		Phone: &phone,
	})
	require.NoError(t, err)
	require.Equal(t, "Patricia", dto.Name)
	require.NotNil(t, dto.Phone)
	require.Equal(t, phone, *dto.Phone)
}

func TestUpdateProfilePictureReplacesOldObject(t *testing.T) {
	user := seedUser()
	user.ProfilePic = &dbtypes.ImageRef{
		StorageKey: "profiles/old.png",
		URL:        "https://storage.googleapis.com/bucket/profiles/old.png",
	}
	repo := newFakeUserRepo(user)
	store := &fakeObjectStore{}
	svc, err := NewService(ServiceParams{
		UserRepo:    repo,
		ObjectStore: store,
	})
	require.NoError(t, err)

	dto, err := svc.UpdateProfilePicture(context.Background(), user.ID, PictureUpload{
		Filename:    "me.png",
		ContentType: "image/png",
		Body:        strings.NewReader("img-bytes"),
	})
	require.NoError(t, err)
	require.NotNil(t, dto.ProfilePic)
	require.NotEqual(t, "profiles/old.png", dto.ProfilePic.StorageKey)
	require.Contains(t, dto.ProfilePic.StorageKey, "profiles/"+user.ID.String())
	require.Equal(t, []string{"profiles/old.png"}, store.deleted)
}

func TestUpdateProfilePictureUploadFailure(t *testing.T) {
	user := seedUser()
	store := &fakeObjectStore{failNext: true}
	svc, err := NewService(ServiceParams{
		UserRepo:    newFakeUserRepo(user),
		ObjectStore: store,
	})
	require.NoError(t, err)

	_, err = svc.UpdateProfilePicture(context.Background(), user.ID, PictureUpload{
		Filename:    "me.png",
		ContentType: "image/png",
		Body:        strings.NewReader("img-bytes"),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())
	require.Empty(t, store.deleted)
}

func TestUpdateProfilePictureRequiresBody(t *testing.T) {
	user := seedUser()
	svc, err := NewService(ServiceParams{
		UserRepo:    newFakeUserRepo(user),
		ObjectStore: &fakeObjectStore{},
	})
	require.NoError(t, err)

	_, err = svc.UpdateProfilePicture(context.Background(), user.ID, PictureUpload{})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
