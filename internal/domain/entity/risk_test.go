package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryFromScore(t *testing.T) {
	tests := []struct {
		score int
		want  RiskCategory
	}{
		{0, RiskLow},
		{1, RiskLow},
		{2, RiskMedium},
		{3, RiskHigh},
		{5, RiskHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CategoryFromScore(tt.score), "score %d", tt.score)
	}
}

func TestTopLabel(t *testing.T) {
	_, ok := TopLabel(nil)
	require.False(t, ok)

	label, ok := TopLabel([]Prediction{{Label: "crack", Score: 0.731}, {Label: "wall", Score: 0.2}})
	require.True(t, ok)
	require.Equal(t, "crack", label.Label)
	require.Equal(t, "crack (0.73)", label.String())
}
