package service

import (
	"context"
	"testing"

	"tfms/internal/apperr"
	"tfms/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskScorer_LC(t *testing.T) {
	expiry := testNow.AddDate(0, 0, 90)
	lc, err := model.NewLetterOfCredit("LC1", "alice", model.LCTerms{
		BeneficiaryName: "Bob",
		Amount:          decimal.NewFromInt(150000),
		Currency:        "USD",
		ExpiryDate:      &expiry,
	}, testNow)
	require.NoError(t, err)

	got := RiskScorer{}.Score(lc, testNow)
	assert.True(t, decimal.NewFromInt(35).Equal(got.Score), got.Score.String())
	assert.Equal(t, model.RiskLevelMedium, model.RiskLevelFor(got.Score))
	assert.JSONEq(t, `{"amountRisk":2,"durationRisk":1,"currencyRisk":1,"documentationRisk":1,"counterpartyRisk":2}`, got.Factors)
	assert.Equal(t, defaultRecommendation, got.Recommendations)

	far := testNow.AddDate(2, 0, 0)
	lc.Amount = decimal.NewFromInt(2000000)
	lc.Currency = "JPY"
	lc.ExpiryDate = far
	got = RiskScorer{}.Score(lc, testNow)
	assert.True(t, decimal.NewFromInt(70).Equal(got.Score), got.Score.String())
	assert.Equal(t, "Enhanced due diligence required; Periodic review recommended; Consider currency hedging; ", got.Recommendations)
}

func TestRiskScorer_BG(t *testing.T) {
	bg, err := model.RequestGuarantee("BG1", "alice", model.BGTerms{
		BeneficiaryName: "Bob",
		GuaranteeAmount: decimal.NewFromInt(600000),
		Currency:        "USD",
		GuaranteeType:   "Financial",
		ValidityPeriod:  testNow.AddDate(0, 0, 200),
	}, testNow)
	require.NoError(t, err)

	got := RiskScorer{}.Score(bg, testNow)
	// 25 + 20 + 10 + 10
	assert.True(t, decimal.NewFromInt(65).Equal(got.Score), got.Score.String())
	assert.Equal(t, model.RiskLevelHigh, model.RiskLevelFor(got.Score))

	bg.GuaranteeType = ""
	got = RiskScorer{}.Score(bg, testNow)
	assert.True(t, decimal.NewFromInt(45).Equal(got.Score), got.Score.String())
}

func TestRiskScorer_MissingAndGeneral(t *testing.T) {
	var lc *model.LetterOfCredit
	got := RiskScorer{}.Score(lc, testNow)
	assert.True(t, missingScore.Equal(got.Score))
	assert.Equal(t, missingRecommendation, got.Recommendations)

	got = RiskScorer{}.Score(nil, testNow)
	assert.True(t, missingScore.Equal(got.Score))

	got = RiskScorer{}.General()
	assert.True(t, generalScore.Equal(got.Score))
	assert.Equal(t, transactionRiskFactors, got.Factors)
}

func TestRiskAssess_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lc := f.createLC(t, 150000, 90)
	_, err := f.lcs.Submit(ctx, alice, lc.ID)
	require.NoError(t, err)
	_, err = f.lcs.SendToRisk(ctx, officer, lc.ID)
	require.NoError(t, err)

	req := &AssessRequest{TransactionReference: lc.ReferenceNumber, TransactionType: "LC"}
	first, err := f.risks.Assess(ctx, analyst, req)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(35).Equal(first.RiskScore))

	second, err := f.risks.Assess(ctx, analyst, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := f.lcs.Get(ctx, officer, lc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LCStatusUnderVerification, got.Status)

	history, err := f.store.Audit().ListByReference(ctx, lc.ReferenceNumber)
	require.NoError(t, err)
	assert.Len(t, history, 4)

	latest, err := f.risks.Latest(ctx, analyst, lc.ReferenceNumber)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestRiskAssess_UnknownTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ra, err := f.risks.Assess(ctx, analyst, &AssessRequest{TransactionReference: "LC404"})
	require.NoError(t, err)
	assert.True(t, missingScore.Equal(ra.RiskScore))
	assert.Equal(t, model.RiskLevelMedium, ra.RiskLevel)

	ra, err = f.risks.Assess(ctx, analyst, &AssessRequest{TransactionReference: "TRX-1"})
	require.NoError(t, err)
	assert.True(t, generalScore.Equal(ra.RiskScore))
}

func TestRiskAssess_ManualScoreIsClamped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	score := decimal.NewFromInt(140)

	ra, err := f.risks.Assess(ctx, analyst, &AssessRequest{
		TransactionReference: "TRX-9",
		RiskFactors:          `{"sanctions":3}`,
		RiskScore:            &score,
		Remarks:              "sanctions hit",
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(ra.RiskScore))
	assert.Equal(t, model.RiskLevelCritical, ra.RiskLevel)
	assert.Equal(t, "sanctions hit", ra.Recommendations)

	high, err := f.risks.ListHighRisk(ctx, analyst)
	require.NoError(t, err)
	assert.Len(t, high, 1)
}

func TestRiskAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.risks.Assess(ctx, alice, &AssessRequest{TransactionReference: "LC1"})
	assert.True(t, apperr.IsUnauthorized(err))
	_, err = f.risks.List(ctx, alice)
	assert.True(t, apperr.IsUnauthorized(err))

	_, err = f.risks.Assess(ctx, officer, &AssessRequest{TransactionReference: "TRX-1"})
	require.NoError(t, err)
}

func TestRiskSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lc := f.createLC(t, 1000, 30)
	_, err := f.lcs.SendToRisk(ctx, officer, lc.ID)
	require.True(t, apperr.IsInvalidState(err))
	_, err = f.lcs.Submit(ctx, alice, lc.ID)
	require.NoError(t, err)
	_, err = f.lcs.SendToRisk(ctx, officer, lc.ID)
	require.NoError(t, err)

	low, high := decimal.NewFromInt(10), decimal.NewFromInt(80)
	_, err = f.risks.Assess(ctx, analyst, &AssessRequest{TransactionReference: "TRX-1", RiskFactors: "{}", RiskScore: &low})
	require.NoError(t, err)
	_, err = f.risks.Assess(ctx, analyst, &AssessRequest{TransactionReference: "TRX-2", RiskFactors: "{}", RiskScore: &high})
	require.NoError(t, err)

	sum, err := f.risks.Summary(ctx, analyst)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(45).Equal(sum.AverageScore))
	assert.Equal(t, int64(1), sum.CountByLevel[model.RiskLevelLow])
	assert.Equal(t, int64(1), sum.CountByLevel[model.RiskLevelCritical])
	assert.Equal(t, 1, sum.LCsSentToRisk)
	assert.Equal(t, 0, sum.BGsSentToRisk)
}
