package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/promptmart/promptmart-backend/api/responses"
	"github.com/promptmart/promptmart-backend/api/validators"
	"github.com/promptmart/promptmart-backend/internal/users"
	"github.com/promptmart/promptmart-backend/pkg/config"
	pkgerrors "github.com/promptmart/promptmart-backend/pkg/errors"
	"github.com/promptmart/promptmart-backend/pkg/logger"
)

// UserProfileGet returns the caller's profile.
func UserProfileGet(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.GetProfile(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}

// UserProfileUpdate applies partial profile changes.
func UserProfileUpdate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload users.UpdateProfileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.UpdateProfile(r.Context(), userID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}

// UserProfilePicture replaces the caller's profile picture. The image is
// sent as a multipart field named "image".
func UserProfilePicture(svc users.Service, uploads config.UploadsConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		file, header, err := singleImageFile(w, r, "image", uploads)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer file.Close()

		profile, err := svc.UpdateProfilePicture(r.Context(), userID, users.PictureUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}

func singleImageFile(w http.ResponseWriter, r *http.Request, field string, uploads config.UploadsConfig) (multipart.File, *multipart.FileHeader, error) {
	maxBytes := imageByteLimit(uploads)
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "image file is required")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading image file")
	}

	if header.Size > maxBytes {
		file.Close()
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("image exceeds %d MB limit", uploads.MaxImageMB))
	}

	return file, header, nil
}

func imageByteLimit(uploads config.UploadsConfig) int64 {
	mb := uploads.MaxImageMB
	if mb <= 0 {
		mb = 10
	}
	return int64(mb) << 20
}
