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

func TestComplianceEvaluate_NoDocuments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lc := f.createLC(t, 150000, 90)

	c, err := f.compliance.Evaluate(ctx, officer, lc.ReferenceNumber)
	require.NoError(t, err)
	assert.Equal(t, model.ComplianceStatusNonCompliant, c.ComplianceStatus)
	assert.Contains(t, c.Remarks, "No trade documents found for this transaction.")
	assert.False(t, c.DocumentsValidated)
	assert.True(t, c.PartyCheckPassed)
	assert.True(t, c.RiskCheckPassed)
	assert.True(t, c.CountryCheckPassed)
	assert.Equal(t, "LC", c.TransactionType)
	assert.Equal(t, model.AutomatedReviewer, c.ReviewedBy)
}

func TestComplianceEvaluate_AllChecksPass(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lc := f.createLC(t, 150000, 90)
	f.upload(t, alice, lc.ReferenceNumber, "Commercial Invoice")
	f.upload(t, bob, lc.ReferenceNumber, "Bill of Lading")

	c, err := f.compliance.Evaluate(ctx, officer, lc.ReferenceNumber)
	require.NoError(t, err)
	assert.Equal(t, model.ComplianceStatusCompliant, c.ComplianceStatus)
	assert.Equal(t, "Required documents present. No risk assessment found. Country check passed. All checks passed.", c.Remarks)
}

func TestComplianceEvaluate_MissingBillOfLading(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lc := f.createLC(t, 150000, 90)
	f.upload(t, alice, lc.ReferenceNumber, "INVOICE")

	c, err := f.compliance.Evaluate(ctx, officer, lc.ReferenceNumber)
	require.NoError(t, err)
	assert.Equal(t, model.ComplianceStatusNonCompliant, c.ComplianceStatus)
	assert.Contains(t, c.Remarks, "Bill of Lading is missing.")
}

func TestComplianceEvaluate_HighRiskEscalates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lc := f.createLC(t, 150000, 90)
	f.upload(t, alice, lc.ReferenceNumber, "Invoice")
	f.upload(t, alice, lc.ReferenceNumber, "BOL")

	score := decimal.NewFromFloat(72.5)
	_, err := f.risks.Assess(ctx, analyst, &AssessRequest{
		TransactionReference: lc.ReferenceNumber,
		RiskFactors:          "{}",
		RiskScore:            &score,
	})
	require.NoError(t, err)

	c, err := f.compliance.Evaluate(ctx, officer, lc.ReferenceNumber)
	require.NoError(t, err)
	assert.Equal(t, model.ComplianceStatusNonCompliant, c.ComplianceStatus)
	assert.False(t, c.RiskCheckPassed)
	assert.Contains(t, c.Remarks, "High risk score detected (72.50). Requires escalation.")
}

func TestComplianceEvaluate_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bg, err := f.bgs.Request(ctx, alice, bgRequest(1000, day(30)))
	require.NoError(t, err)

	first, err := f.compliance.Evaluate(ctx, officer, bg.ReferenceNumber)
	require.NoError(t, err)
	second, err := f.compliance.Evaluate(ctx, officer, bg.ReferenceNumber)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ComplianceStatus, second.ComplianceStatus)
	assert.Equal(t, first.Remarks, second.Remarks)

	all, err := f.compliance.List(ctx, officer)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestComplianceEvaluate_UnknownReference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	c, err := f.compliance.Evaluate(ctx, officer, "LC404")
	require.NoError(t, err)
	assert.Equal(t, model.ComplianceStatusNonCompliant, c.ComplianceStatus)
	assert.Equal(t, "Transaction not found.", c.Remarks)
	assert.False(t, c.PartyCheckPassed)
}

func TestComplianceEvaluate_RestrictedCountry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.compliance.countries = fixedCountry("Syria")
	lc := f.createLC(t, 1000, 30)

	c, err := f.compliance.Evaluate(ctx, officer, lc.ReferenceNumber)
	require.NoError(t, err)
	assert.False(t, c.CountryCheckPassed)
	assert.Contains(t, c.Remarks, "Beneficiary country is in restricted list.")
}

func TestComplianceSubmitReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lc := f.createLC(t, 1000, 30)
	c, err := f.compliance.Evaluate(ctx, officer, lc.ReferenceNumber)
	require.NoError(t, err)

	_, err = f.compliance.SubmitReview(ctx, alice, c.ID)
	assert.True(t, apperr.IsUnauthorized(err))

	reviewed, err := f.compliance.SubmitReview(ctx, officer, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "officer1", reviewed.ReviewedBy)

	// 再次自动检查不覆盖人工审核人
	again, err := f.compliance.Evaluate(ctx, officer, lc.ReferenceNumber)
	require.NoError(t, err)
	assert.Equal(t, "officer1", again.ReviewedBy)
}

type fixedCountry string

func (c fixedCountry) Country(context.Context, model.Instrument) string { return string(c) }
