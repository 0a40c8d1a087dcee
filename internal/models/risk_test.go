package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRiskScore(t *testing.T) {
	tests := []struct {
		name        string
		probability RiskRating
		impact      RiskRating
		want        int
	}{
		{"very low both", RiskVeryLow, RiskVeryLow, 1},
		{"very high both", RiskVeryHigh, RiskVeryHigh, 25},
		{"medium x high", RiskMedium, RiskHigh, 12},
		{"low x very high", RiskLow, RiskVeryHigh, 10},
		{"empty probability", "", RiskHigh, 0},
		{"unknown impact", RiskHigh, "extreme", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, RiskScore(tt.probability, tt.impact))
		})
	}
}

func TestRecomputeScores(t *testing.T) {
	r := Risk{Probability: RiskHigh, Impact: RiskMedium}
	r.RecomputeScores()
	require.Equal(t, 12, r.RiskScore)
	require.Equal(t, 0, r.ResidualScore)

	// Residual score appears only once both residual ratings are set.
	r.ResidualProbability = RiskLow
	r.RecomputeScores()
	require.Equal(t, 0, r.ResidualScore)

	r.ResidualImpact = RiskLow
	r.RecomputeScores()
	require.Equal(t, 4, r.ResidualScore)
}

func TestValidRiskRating(t *testing.T) {
	require.True(t, ValidRiskRating("very_low"))
	require.True(t, ValidRiskRating("very_high"))
	require.False(t, ValidRiskRating(""))
	require.False(t, ValidRiskRating("critical"))
}
