package prompts

import (
	"math"

	"github.com/promptmart/promptmart-backend/pkg/types"
)

// MinRating and MaxRating bound the accepted rating values.
const (
	MinRating = 1
	MaxRating = 5
)

// applyRating folds one new rating into the running aggregate. The average
// is kept to one decimal, rounding half away from zero.
func applyRating(current types.RatingSummary, rating int) types.RatingSummary {
	total := current.TotalRatings + 1
	avg := (current.Average*float64(current.TotalRatings) + float64(rating)) / float64(total)
	return types.RatingSummary{
		TotalRatings: total,
		Average:      math.Round(avg*10) / 10,
	}
}
