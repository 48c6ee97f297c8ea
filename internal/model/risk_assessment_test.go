package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRiskLevelFor(t *testing.T) {
	cases := []struct {
		score string
		want  RiskLevel
	}{
		{"100", RiskLevelCritical},
		{"75", RiskLevelCritical},
		{"74.99", RiskLevelHigh},
		{"60", RiskLevelHigh},
		{"59.99", RiskLevelMedium},
		{"25", RiskLevelMedium},
		{"24.99", RiskLevelLow},
		{"0", RiskLevelLow},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, RiskLevelFor(decimal.RequireFromString(c.score)), c.score)
	}
}

func TestNewRiskAssessmentClampsScore(t *testing.T) {
	ra := NewRiskAssessment("LC1", "LC", decimal.NewFromInt(140), "{}", "", "", "risk1", testNow)
	assert.True(t, ra.RiskScore.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, RiskLevelCritical, ra.RiskLevel)

	ra = NewRiskAssessment("LC1", "LC", decimal.NewFromInt(-3), "{}", "", "", "risk1", testNow)
	assert.True(t, ra.RiskScore.IsZero())
	assert.Equal(t, RiskLevelLow, ra.RiskLevel)
}

func TestRiskAssessmentNewerThan(t *testing.T) {
	a := &RiskAssessment{ID: 1, AssessmentDate: testNow}
	b := &RiskAssessment{ID: 2, AssessmentDate: testNow}
	c := &RiskAssessment{ID: 3, AssessmentDate: testNow.Add(-time.Hour)}
	assert.True(t, b.NewerThan(a))
	assert.False(t, c.NewerThan(a))
	assert.True(t, a.NewerThan(nil))
}
