package model

import (
	"strings"
	"testing"
	"time"

	"tfms/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBG(t *testing.T) *BankGuarantee {
	t.Helper()
	bg, err := RequestGuarantee("BG2026031009300000000001", "carol", BGTerms{
		ApplicantName:   "Carol Construction",
		BeneficiaryName: "City Council",
		GuaranteeAmount: decimal.NewFromInt(250000),
		Currency:        "EUR",
		GuaranteeType:   "Performance",
		ValidityPeriod:  testNow.AddDate(1, 0, 0),
		Purpose:         "Bridge works",
	}, testNow)
	require.NoError(t, err)
	return bg
}

func TestRequestGuarantee(t *testing.T) {
	bg := newTestBG(t)
	assert.Equal(t, BGStatusDraft, bg.Status)
	assert.Equal(t, "carol", bg.CreatedBy)

	_, err := RequestGuarantee("BG1", "carol", BGTerms{GuaranteeAmount: decimal.NewFromInt(-1)}, testNow)
	assert.True(t, apperr.IsValidation(err))
}

func TestBGSendToRiskGuard(t *testing.T) {
	allowed := map[GuaranteeStatus]bool{BGStatusSubmitted: true, BGStatusUnderReview: true, BGStatusPending: true}
	for _, st := range []GuaranteeStatus{
		BGStatusDraft, BGStatusPending, BGStatusSubmitted, BGStatusUnderReview, BGStatusSentToRisk,
		BGStatusIssued, BGStatusActive, BGStatusExpired, BGStatusCancelled, BGStatusClaimed,
	} {
		bg := newTestBG(t)
		bg.Status = st
		err := bg.SendToRiskTeam(testNow)
		if allowed[st] {
			assert.NoError(t, err, st)
			assert.Equal(t, BGStatusSentToRisk, bg.Status)
			continue
		}
		assert.True(t, apperr.IsInvalidState(err), st)
		assert.Equal(t, st, bg.Status)
	}
}

func TestBGReturnToOfficer(t *testing.T) {
	bg := newTestBG(t)
	err := bg.ReturnToOfficer(testNow)
	require.Error(t, err)
	assert.Equal(t, "Cannot return to officer BankGuarantee in DRAFT state", err.Error())

	bg.Status = BGStatusSentToRisk
	require.NoError(t, bg.ReturnToOfficer(testNow))
	assert.Equal(t, BGStatusUnderReview, bg.Status)
}

func TestBGCancelFromActive(t *testing.T) {
	bg := newTestBG(t)
	require.NoError(t, bg.Issue(testNow))
	require.NoError(t, bg.Activate(testNow))

	require.NoError(t, bg.Cancel("breach of contract", testNow))
	assert.Equal(t, BGStatusCancelled, bg.Status)
	assert.True(t, strings.HasSuffix(bg.Purpose, " | Cancellation Reason: breach of contract"))
}

func TestBGTerminalStatesAreNotLocked(t *testing.T) {
	bg := newTestBG(t)
	require.NoError(t, bg.Cancel("x", testNow))
	require.NoError(t, bg.Activate(testNow))
	require.NoError(t, bg.Claim(testNow))
	require.NoError(t, bg.SubmitForReview(testNow))
	assert.Equal(t, BGStatusSubmitted, bg.Status)
}

func TestBGIssueStampsDate(t *testing.T) {
	bg := newTestBG(t)
	require.NoError(t, bg.Issue(testNow))
	require.NotNil(t, bg.IssueDate)
	assert.Equal(t, Date(testNow), *bg.IssueDate)
}

func TestBGUpdateKeepsStatus(t *testing.T) {
	bg := newTestBG(t)
	bg.Status = BGStatusIssued
	require.NoError(t, bg.Update(BGTerms{
		ApplicantName:   "Carol Construction",
		BeneficiaryName: "County Council",
		GuaranteeAmount: decimal.NewFromInt(300000),
		Currency:        "EUR",
		GuaranteeType:   "Bid",
		ValidityPeriod:  testNow.AddDate(2, 0, 0),
		Purpose:         "Tunnel",
	}, testNow.Add(time.Minute)))
	assert.Equal(t, BGStatusIssued, bg.Status)
	assert.Equal(t, "County Council", bg.BeneficiaryName)
	assert.Equal(t, testNow.Add(time.Minute), bg.UpdatedAt)
}

func TestBGExpire(t *testing.T) {
	bg := newTestBG(t)
	bg.Status = BGStatusActive
	assert.True(t, apperr.IsValidation(bg.Expire(testNow)))
	assert.Equal(t, BGStatusActive, bg.Status)

	require.NoError(t, bg.Expire(testNow.AddDate(1, 0, 1)))
	assert.Equal(t, BGStatusExpired, bg.Status)
}
