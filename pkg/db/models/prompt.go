package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	dbtypes "github.com/promptmart/promptmart-backend/pkg/db/types"
	"github.com/promptmart/promptmart-backend/pkg/enums"
	"github.com/promptmart/promptmart-backend/pkg/types"
)

// Prompt represents a sellable listing owned by a user.
type Prompt struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string               `gorm:"column:name;not null"`
	Description  string               `gorm:"column:description;not null"`
	Tags         pq.StringArray       `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	Images       dbtypes.ImageRefList `gorm:"column:images;type:jsonb;not null;default:'[]'"`
	Status       enums.PromptStatus   `gorm:"column:status;not null;default:active"`
	PriceRegular decimal.Decimal      `gorm:"column:price_regular;type:numeric(10,2);not null"`
	PriceOffer   *decimal.Decimal     `gorm:"column:price_offer;type:numeric(10,2)"`
	Rating       types.RatingSummary  `gorm:"embedded;embeddedPrefix:rating_"`
	CreatedBy    uuid.UUID            `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
