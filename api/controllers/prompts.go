package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/promptmart/promptmart-backend/api/middleware"
	"github.com/promptmart/promptmart-backend/api/responses"
	"github.com/promptmart/promptmart-backend/api/validators"
	"github.com/promptmart/promptmart-backend/internal/prompts"
	"github.com/promptmart/promptmart-backend/pkg/config"
	"github.com/promptmart/promptmart-backend/pkg/enums"
	pkgerrors "github.com/promptmart/promptmart-backend/pkg/errors"
	"github.com/promptmart/promptmart-backend/pkg/logger"
	"github.com/promptmart/promptmart-backend/pkg/types"
)

const promptImagesField = "images"

// PromptsList returns one page of active listings.
func PromptsList(svc prompts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, err := parseListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.List(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}

// PromptsGet returns a single listing by id.
func PromptsGet(svc prompts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := promptIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// PromptsCreate stores a new listing. Multipart bodies may attach image
// files under the "images" field; JSON bodies create a listing without
// images.
func PromptsCreate(svc prompts.Service, uploads config.UploadsConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := promptActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req, images, cleanup, err := decodeCreateRequest(w, r, uploads)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer cleanup()

		dto, err := svc.Create(r.Context(), actor, req, images)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// PromptsUpdate applies partial changes to a listing the caller owns. New
// multipart images are appended to the existing set.
func PromptsUpdate(svc prompts.Service, uploads config.UploadsConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := promptActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := promptIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req, images, cleanup, err := decodeUpdateRequest(w, r, uploads)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer cleanup()

		dto, err := svc.Update(r.Context(), actor, id, req, images)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// PromptsDelete removes a listing the caller owns.
func PromptsDelete(svc prompts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := promptActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := promptIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"message": "prompt deleted"})
	}
}

// PromptsRate folds a 1..5 rating into the listing aggregate.
func PromptsRate(svc prompts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := promptIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload prompts.RateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Rate(r.Context(), id, payload.Rating)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

func promptActor(r *http.Request) (prompts.Actor, error) {
	userID, err := authenticatedUserID(r)
	if err != nil {
		return prompts.Actor{}, err
	}
	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return prompts.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "role context missing")
	}
	return prompts.Actor{ID: userID, Role: role}, nil
}

func promptIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid prompt id")
	}
	return id, nil
}

func parseListQuery(r *http.Request) (prompts.ListQuery, error) {
	params, err := validators.ParsePagination(r)
	if err != nil {
		return prompts.ListQuery{}, err
	}
	minPrice, err := validators.ParseQueryDecimal(r, "min_price")
	if err != nil {
		return prompts.ListQuery{}, err
	}
	maxPrice, err := validators.ParseQueryDecimal(r, "max_price")
	if err != nil {
		return prompts.ListQuery{}, err
	}
	return prompts.ListQuery{
		Search:     strings.TrimSpace(r.URL.Query().Get("search")),
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		Pagination: params,
	}, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func decodeCreateRequest(w http.ResponseWriter, r *http.Request, uploads config.UploadsConfig) (prompts.CreateRequest, []prompts.ImageUpload, func(), error) {
	noop := func() {}

	if !isMultipart(r) {
		var req prompts.CreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return prompts.CreateRequest{}, nil, noop, err
		}
		return req, nil, noop, nil
	}

	if err := parseMultipart(w, r, uploads); err != nil {
		return prompts.CreateRequest{}, nil, noop, err
	}

	req := prompts.CreateRequest{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}

	if raw, ok := formLookup(r, "tags"); ok {
		tags, err := parseTags(raw)
		if err != nil {
			return prompts.CreateRequest{}, nil, noop, err
		}
		req.Tags = tags
	}
	if raw, ok := formLookup(r, "status"); ok {
		status, err := enums.ParsePromptStatus(raw)
		if err != nil {
			return prompts.CreateRequest{}, nil, noop, pkgerrors.New(pkgerrors.CodeValidation, "invalid prompt status")
		}
		req.Status = &status
	}

	price, err := parsePriceForm(r, true)
	if err != nil {
		return prompts.CreateRequest{}, nil, noop, err
	}
	req.Price = *price

	if err := validators.ValidateStruct(&req); err != nil {
		return prompts.CreateRequest{}, nil, noop, err
	}

	images, cleanup, err := openImageFiles(r, uploads)
	if err != nil {
		return prompts.CreateRequest{}, nil, noop, err
	}
	return req, images, cleanup, nil
}

func decodeUpdateRequest(w http.ResponseWriter, r *http.Request, uploads config.UploadsConfig) (prompts.UpdateRequest, []prompts.ImageUpload, func(), error) {
	noop := func() {}

	if !isMultipart(r) {
		var req prompts.UpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return prompts.UpdateRequest{}, nil, noop, err
		}
		return req, nil, noop, nil
	}

	if err := parseMultipart(w, r, uploads); err != nil {
		return prompts.UpdateRequest{}, nil, noop, err
	}

	var req prompts.UpdateRequest
	if raw, ok := formLookup(r, "name"); ok {
		name := strings.TrimSpace(raw)
		req.Name = &name
	}
	if raw, ok := formLookup(r, "description"); ok {
		description := strings.TrimSpace(raw)
		req.Description = &description
	}
	if raw, ok := formLookup(r, "tags"); ok {
		tags, err := parseTags(raw)
		if err != nil {
			return prompts.UpdateRequest{}, nil, noop, err
		}
		req.Tags = &tags
	}
	if raw, ok := formLookup(r, "status"); ok {
		status, err := enums.ParsePromptStatus(raw)
		if err != nil {
			return prompts.UpdateRequest{}, nil, noop, pkgerrors.New(pkgerrors.CodeValidation, "invalid prompt status")
		}
		req.Status = &status
	}

	price, err := parsePriceForm(r, false)
	if err != nil {
		return prompts.UpdateRequest{}, nil, noop, err
	}
	req.Price = price

	if err := validators.ValidateStruct(&req); err != nil {
		return prompts.UpdateRequest{}, nil, noop, err
	}

	images, cleanup, err := openImageFiles(r, uploads)
	if err != nil {
		return prompts.UpdateRequest{}, nil, noop, err
	}
	return req, images, cleanup, nil
}

func parseMultipart(w http.ResponseWriter, r *http.Request, uploads config.UploadsConfig) error {
	maxFiles := uploads.MaxPromptFiles
	if maxFiles <= 0 {
		maxFiles = 10
	}
	limit := imageByteLimit(uploads)*int64(maxFiles) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(imageByteLimit(uploads)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	return nil
}

func formLookup(r *http.Request, key string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func parseTags(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}
	if strings.HasPrefix(raw, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tags must be a JSON array of strings")
		}
		return tags, nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags, nil
}

func parsePriceForm(r *http.Request, required bool) (*types.Price, error) {
	regularRaw, hasRegular := formLookup(r, "price_regular")
	offerRaw, hasOffer := formLookup(r, "price_offer")

	if !hasRegular && !hasOffer {
		if required {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_regular is required")
		}
		return nil, nil
	}
	if !hasRegular {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_regular is required when setting a price")
	}

	regular, err := decimal.NewFromString(strings.TrimSpace(regularRaw))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_regular must be a decimal")
	}
	price := &types.Price{Regular: regular}

	if hasOffer && strings.TrimSpace(offerRaw) != "" {
		offer, err := decimal.NewFromString(strings.TrimSpace(offerRaw))
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_offer must be a decimal")
		}
		price.Offer = &offer
	}
	return price, nil
}

func openImageFiles(r *http.Request, uploads config.UploadsConfig) ([]prompts.ImageUpload, func(), error) {
	noop := func() {}
	if r.MultipartForm == nil {
		return nil, noop, nil
	}
	headers := r.MultipartForm.File[promptImagesField]
	if len(headers) == 0 {
		return nil, noop, nil
	}

	maxBytes := imageByteLimit(uploads)
	images := make([]prompts.ImageUpload, 0, len(headers))
	closers := make([]func() error, 0, len(headers))
	cleanup := func() {
		for _, closeFn := range closers {
			_ = closeFn()
		}
	}

	for _, header := range headers {
		if header.Size > maxBytes {
			cleanup()
			return nil, noop, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("image exceeds %d MB limit", uploads.MaxImageMB))
		}
		file, err := header.Open()
		if err != nil {
			cleanup()
			return nil, noop, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading image file")
		}
		closers = append(closers, file.Close)
		images = append(images, prompts.ImageUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		})
	}

	return images, cleanup, nil
}
