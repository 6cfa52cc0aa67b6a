package prompts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/promptmart/promptmart-backend/pkg/types"
)

func TestApplyRatingFirstRating(t *testing.T) {
	got := applyRating(types.RatingSummary{}, 3)
	require.Equal(t, types.RatingSummary{TotalRatings: 1, Average: 3.0}, got)
}

func TestApplyRatingSequence(t *testing.T) {
	summary := types.RatingSummary{}
	for _, r := range []int{5, 5, 5, 1} {
		summary = applyRating(summary, r)
	}
	require.Equal(t, int64(4), summary.TotalRatings)
	require.Equal(t, 4.0, summary.Average)
}

func TestApplyRatingRoundsToOneDecimal(t *testing.T) {
	summary := types.RatingSummary{}
	summary = applyRating(summary, 4)
	summary = applyRating(summary, 5)
	summary = applyRating(summary, 5)
	// (4+5+5)/3 = 4.666... rounds to 4.7
	require.Equal(t, 4.7, summary.Average)

	summary = types.RatingSummary{TotalRatings: 2, Average: 4.0}
	summary = applyRating(summary, 5)
	// (8+5)/3 = 4.333... rounds to 4.3
	require.Equal(t, 4.3, summary.Average)
}

func TestApplyRatingOrderIndependentTotals(t *testing.T) {
	a := types.RatingSummary{}
	for _, r := range []int{1, 5, 3} {
		a = applyRating(a, r)
	}
	b := types.RatingSummary{}
	for _, r := range []int{3, 1, 5} {
		b = applyRating(b, r)
	}
	require.Equal(t, a.TotalRatings, b.TotalRatings)
	require.Equal(t, a.Average, b.Average)
}
