package prompts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/promptmart/promptmart-backend/pkg/db/models"
	"github.com/promptmart/promptmart-backend/pkg/enums"
	"github.com/promptmart/promptmart-backend/pkg/types"
)

// Repository exposes prompt persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a prompts repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new prompt row.
func (r *Repository) Create(ctx context.Context, prompt *models.Prompt) (*models.Prompt, error) {
	if err := r.db.WithContext(ctx).Create(prompt).Error; err != nil {
		return nil, err
	}
	return prompt, nil
}

// FindByID loads a prompt by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Prompt, error) {
	var prompt models.Prompt
	if err := r.db.WithContext(ctx).First(&prompt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &prompt, nil
}

// Save persists all columns of an existing prompt row.
func (r *Repository) Save(ctx context.Context, prompt *models.Prompt) (*models.Prompt, error) {
	if err := r.db.WithContext(ctx).Save(prompt).Error; err != nil {
		return nil, err
	}
	return prompt, nil
}

// Delete removes the prompt row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Prompt{}, "id = ?", id).Error
}

// List returns one page of active prompts matching the query, newest first,
// along with the total match count.
func (r *Repository) List(ctx context.Context, query ListQuery) ([]models.Prompt, int64, error) {
	base := r.db.WithContext(ctx).
		Model(&models.Prompt{}).
		Where("status = ?", enums.PromptStatusActive)

	if query.Search != "" {
		pattern := "%" + query.Search + "%"
		base = base.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	if query.MinPrice != nil {
		base = base.Where("price_regular >= ?", *query.MinPrice)
	}
	if query.MaxPrice != nil {
		base = base.Where("price_regular <= ?", *query.MaxPrice)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params := query.Pagination.Normalize()
	var rows []models.Prompt
	if err := base.
		Order("created_at DESC").
		Offset(query.Pagination.Offset()).
		Limit(params.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

// Creators loads the public creator slice for a set of user ids.
func (r *Repository) Creators(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]CreatorSummary, error) {
	result := map[uuid.UUID]CreatorSummary{}
	if len(ids) == 0 {
		return result, nil
	}

	var rows []models.User
	if err := r.db.WithContext(ctx).
		Select("id", "name", "profile_pic").
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	for i := range rows {
		result[rows[i].ID] = CreatorSummary{
			ID:         rows[i].ID,
			Name:       rows[i].Name,
			ProfilePic: rows[i].ProfilePic,
		}
	}
	return result, nil
}

// UpdateRatingCAS writes the new aggregate only if the stored total still
// matches the value the caller computed from. It reports whether the write
// landed.
func (r *Repository) UpdateRatingCAS(ctx context.Context, id uuid.UUID, expectedTotal int64, next types.RatingSummary) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Prompt{}).
		Where("id = ? AND rating_total_ratings = ?", id, expectedTotal).
		UpdateColumns(map[string]any{
			"rating_total_ratings": next.TotalRatings,
			"rating_average":       next.Average,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
