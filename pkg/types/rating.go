package types

// RatingSummary is the running aggregate persisted per listing. TotalRatings
// only ever grows; Average is the one-decimal rounding of the true mean of
// every rating submitted so far.
type RatingSummary struct {
	TotalRatings int64   `json:"total_ratings" gorm:"column:total_ratings;not null;default:0"`
	Average      float64 `json:"average" gorm:"column:average;not null;default:0"`
}
