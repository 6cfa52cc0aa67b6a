package prompts

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/promptmart/promptmart-backend/pkg/db/models"
	dbtypes "github.com/promptmart/promptmart-backend/pkg/db/types"
	"github.com/promptmart/promptmart-backend/pkg/enums"
	"github.com/promptmart/promptmart-backend/pkg/pagination"
	"github.com/promptmart/promptmart-backend/pkg/types"
)

// PromptDTO is the transport shape of one listing.
type PromptDTO struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Tags        []string            `json:"tags"`
	Images      []dbtypes.ImageRef  `json:"images"`
	Status      enums.PromptStatus  `json:"status"`
	Price       types.Price         `json:"price"`
	Rating      types.RatingSummary `json:"rating"`
	CreatedBy   uuid.UUID           `json:"created_by"`
	Creator     *CreatorSummary     `json:"creator,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// CreatorSummary is the public slice of the owning user.
type CreatorSummary struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	ProfilePic *dbtypes.ImageRef `json:"profile_pic,omitempty"`
}

// CreateRequest carries the payload for a new listing.
type CreateRequest struct {
	Name        string              `json:"name" validate:"required,min=1,max=100"`
	Description string              `json:"description" validate:"required,min=1,max=1000"`
	Tags        []string            `json:"tags" validate:"omitempty,dive,min=1,max=50"`
	Status      *enums.PromptStatus `json:"status,omitempty"`
	Price       types.Price         `json:"price"`
}

// UpdateRequest carries partial listing updates. Nil means unchanged.
type UpdateRequest struct {
	Name        *string             `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string             `json:"description,omitempty" validate:"omitempty,min=1,max=1000"`
	Tags        *[]string           `json:"tags,omitempty" validate:"omitempty,dive,min=1,max=50"`
	Status      *enums.PromptStatus `json:"status,omitempty"`
	Price       *types.Price        `json:"price,omitempty"`
}

// RateRequest carries one rating submission.
type RateRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

// ImageUpload is one incoming listing image.
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// ListQuery captures the public listing filters.
type ListQuery struct {
	Search     string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Pagination pagination.Params
}

// ListResponse is one page of listings plus metadata.
type ListResponse struct {
	Items      []PromptDTO       `json:"data"`
	Count      int               `json:"count"`
	Pagination pagination.Result `json:"pagination"`
}

// FromModel converts the persisted row into the transport shape.
func FromModel(p *models.Prompt, creator *CreatorSummary) PromptDTO {
	tags := make([]string, len(p.Tags))
	copy(tags, p.Tags)

	images := make([]dbtypes.ImageRef, len(p.Images))
	copy(images, p.Images)

	var offer *decimal.Decimal
	if p.PriceOffer != nil {
		o := *p.PriceOffer
		offer = &o
	}

	return PromptDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Tags:        tags,
		Images:      images,
		Status:      p.Status,
		Price:       types.Price{Regular: p.PriceRegular, Offer: offer},
		Rating:      p.Rating,
		CreatedBy:   p.CreatedBy,
		Creator:     creator,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
