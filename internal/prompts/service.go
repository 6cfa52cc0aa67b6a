package prompts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/promptmart/promptmart-backend/pkg/config"
	"github.com/promptmart/promptmart-backend/pkg/db/models"
	dbtypes "github.com/promptmart/promptmart-backend/pkg/db/types"
	"github.com/promptmart/promptmart-backend/pkg/enums"
	pkgerrors "github.com/promptmart/promptmart-backend/pkg/errors"
	"github.com/promptmart/promptmart-backend/pkg/logger"
	"github.com/promptmart/promptmart-backend/pkg/pagination"
	"github.com/promptmart/promptmart-backend/pkg/types"
)

// Actor identifies the authenticated caller for ownership checks.
type Actor struct {
	ID   uuid.UUID
	Role enums.UserRole
}

// CanModify reports whether the actor owns the prompt or is an admin.
func (a Actor) CanModify(p *models.Prompt) bool {
	return p.CreatedBy == a.ID || a.Role == enums.UserRoleAdmin
}

// Service defines the behavior needed by the prompts controller.
type Service interface {
	List(ctx context.Context, query ListQuery) (*ListResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*PromptDTO, error)
	Create(ctx context.Context, actor Actor, req CreateRequest, images []ImageUpload) (*PromptDTO, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, req UpdateRequest, images []ImageUpload) (*PromptDTO, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	Rate(ctx context.Context, id uuid.UUID, rating int) (*types.RatingSummary, error)
}

type service struct {
	prompts promptRepository
	objects objectStore
	cleanup imageCleanup
	uploads config.UploadsConfig
	logg    *logger.Logger
}

type promptRepository interface {
	Create(ctx context.Context, prompt *models.Prompt) (*models.Prompt, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Prompt, error)
	Save(ctx context.Context, prompt *models.Prompt) (*models.Prompt, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, query ListQuery) ([]models.Prompt, int64, error)
	Creators(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]CreatorSummary, error)
	UpdateRatingCAS(ctx context.Context, id uuid.UUID, expectedTotal int64, next types.RatingSummary) (bool, error)
}

type objectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

type imageCleanup interface {
	EnqueueImageDeletions(ctx context.Context, keys []string) error
}

// ServiceParams bundles the dependencies required to build a prompts service.
type ServiceParams struct {
	PromptRepo  promptRepository
	ObjectStore objectStore
	Cleanup     imageCleanup
	Uploads     config.UploadsConfig
	Logger      *logger.Logger
}

// NewService constructs a prompts service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.PromptRepo == nil {
		return nil, fmt.Errorf("prompt repository is required")
	}
	if params.ObjectStore == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if params.Cleanup == nil {
		return nil, fmt.Errorf("image cleanup is required")
	}
	return &service{
		prompts: params.PromptRepo,
		objects: params.ObjectStore,
		cleanup: params.Cleanup,
		uploads: params.Uploads,
		logg:    params.Logger,
	}, nil
}

// List returns one page of active prompts with creator summaries.
func (s *service) List(ctx context.Context, query ListQuery) (*ListResponse, error) {
	if query.MinPrice != nil && query.MaxPrice != nil && query.MinPrice.GreaterThan(*query.MaxPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min price cannot exceed max price")
	}

	rows, total, err := s.prompts.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing prompts")
	}

	creatorIDs := make([]uuid.UUID, 0, len(rows))
	seen := map[uuid.UUID]bool{}
	for i := range rows {
		if !seen[rows[i].CreatedBy] {
			seen[rows[i].CreatedBy] = true
			creatorIDs = append(creatorIDs, rows[i].CreatedBy)
		}
	}
	creators, err := s.prompts.Creators(ctx, creatorIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading creators")
	}

	items := make([]PromptDTO, 0, len(rows))
	for i := range rows {
		var creator *CreatorSummary
		if c, ok := creators[rows[i].CreatedBy]; ok {
			summary := c
			creator = &summary
		}
		items = append(items, FromModel(&rows[i], creator))
	}

	return &ListResponse{
		Items:      items,
		Count:      len(items),
		Pagination: pagination.NewResult(total, query.Pagination),
	}, nil
}

// Get returns one prompt regardless of status.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*PromptDTO, error) {
	prompt, err := s.loadPrompt(ctx, id)
	if err != nil {
		return nil, err
	}

	creators, err := s.prompts.Creators(ctx, []uuid.UUID{prompt.CreatedBy})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading creator")
	}
	var creator *CreatorSummary
	if c, ok := creators[prompt.CreatedBy]; ok {
		summary := c
		creator = &summary
	}

	dto := FromModel(prompt, creator)
	return &dto, nil
}

// Create persists a new listing owned by the actor. Uploaded objects are
// enqueued for deletion when the insert fails.
func (s *service) Create(ctx context.Context, actor Actor, req CreateRequest, images []ImageUpload) (*PromptDTO, error) {
	if err := req.Price.Validate(); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	status := enums.PromptStatusActive
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid prompt status")
		}
		status = *req.Status
	}
	if len(images) > s.maxFiles() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d images are allowed", s.maxFiles()))
	}

	refs, err := s.uploadImages(ctx, images)
	if err != nil {
		return nil, err
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	prompt := &models.Prompt{
		Name:         req.Name,
		Description:  req.Description,
		Tags:         pq.StringArray(tags),
		Images:       refs,
		Status:       status,
		PriceRegular: req.Price.Regular,
		PriceOffer:   req.Price.Offer,
		CreatedBy:    actor.ID,
	}

	created, err := s.prompts.Create(ctx, prompt)
	if err != nil {
		s.enqueueCleanup(ctx, refs)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating prompt")
	}

	dto := FromModel(created, nil)
	return &dto, nil
}

// Update applies partial changes; new images are appended after the
// existing ones.
func (s *service) Update(ctx context.Context, actor Actor, id uuid.UUID, req UpdateRequest, images []ImageUpload) (*PromptDTO, error) {
	prompt, err := s.loadPrompt(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(prompt) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not authorized to update this prompt")
	}

	if req.Name != nil {
		prompt.Name = *req.Name
	}
	if req.Description != nil {
		prompt.Description = *req.Description
	}
	if req.Tags != nil {
		prompt.Tags = pq.StringArray(*req.Tags)
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid prompt status")
		}
		prompt.Status = *req.Status
	}
	if req.Price != nil {
		if err := req.Price.Validate(); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		prompt.PriceRegular = req.Price.Regular
		prompt.PriceOffer = req.Price.Offer
	}

	if len(prompt.Images)+len(images) > s.maxFiles() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d images are allowed", s.maxFiles()))
	}

	refs, err := s.uploadImages(ctx, images)
	if err != nil {
		return nil, err
	}
	prompt.Images = append(prompt.Images, refs...)

	saved, err := s.prompts.Save(ctx, prompt)
	if err != nil {
		s.enqueueCleanup(ctx, refs)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating prompt")
	}

	dto := FromModel(saved, nil)
	return &dto, nil
}

// Delete removes the listing and enqueues its stored images for cleanup.
func (s *service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	prompt, err := s.loadPrompt(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanModify(prompt) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not authorized to delete this prompt")
	}

	if err := s.prompts.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting prompt")
	}

	s.enqueueCleanup(ctx, prompt.Images)
	return nil
}

// Rate folds one rating into the aggregate using a compare-and-swap loop so
// concurrent submissions never lose a vote.
func (s *service) Rate(ctx context.Context, id uuid.UUID, rating int) (*types.RatingSummary, error) {
	if rating < MinRating || rating > MaxRating {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rating prompt")
		}

		prompt, err := s.loadPrompt(ctx, id)
		if err != nil {
			return nil, err
		}

		next := applyRating(prompt.Rating, rating)
		ok, err := s.prompts.UpdateRatingCAS(ctx, id, prompt.Rating.TotalRatings, next)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing rating")
		}
		if ok {
			return &next, nil
		}
		// Lost the race; reload and retry.
	}
}

func (s *service) loadPrompt(ctx context.Context, id uuid.UUID) (*models.Prompt, error) {
	prompt, err := s.prompts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "prompt not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading prompt")
	}
	return prompt, nil
}

func (s *service) uploadImages(ctx context.Context, images []ImageUpload) (dbtypes.ImageRefList, error) {
	refs := make(dbtypes.ImageRefList, 0, len(images))
	batch := uuid.NewString()
	for _, img := range images {
		if img.Body == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "image file is required")
		}
		key := promptImageKey(batch, img.Filename)
		url, err := s.objects.Upload(ctx, key, img.ContentType, img.Body)
		if err != nil {
			s.enqueueCleanup(ctx, refs)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "uploading prompt image")
		}
		refs = append(refs, dbtypes.ImageRef{StorageKey: key, URL: url})
	}
	return refs, nil
}

func (s *service) enqueueCleanup(ctx context.Context, refs dbtypes.ImageRefList) {
	if len(refs) == 0 {
		return
	}
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.StorageKey != "" {
			keys = append(keys, ref.StorageKey)
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cleanup.EnqueueImageDeletions(ctx, keys); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "keys", keys), "failed to enqueue image cleanup")
	}
}

func (s *service) maxFiles() int {
	if s.uploads.MaxPromptFiles > 0 {
		return s.uploads.MaxPromptFiles
	}
	return 10
}

func promptImageKey(batch, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("prompts/%s/%s%s", batch, uuid.NewString(), ext)
}
