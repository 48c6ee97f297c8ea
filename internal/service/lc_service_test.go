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

func TestLCLifecycle_RiskRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	lc := f.createLC(t, 150000, 90)
	assert.Equal(t, model.LCStatusDraft, lc.Status)
	assert.Equal(t, "alice", lc.CreatedBy)

	lc, err := f.lcs.Submit(ctx, alice, lc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LCStatusSubmitted, lc.Status)

	lc, err = f.lcs.SendToRisk(ctx, officer, lc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LCStatusSentToRisk, lc.Status)

	score := decimal.NewFromInt(35)
	ra, err := f.risks.Assess(ctx, analyst, &AssessRequest{
		TransactionReference: lc.ReferenceNumber,
		TransactionType:      "LC",
		RiskFactors:          `{"amountRisk":2}`,
		RiskScore:            &score,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RiskLevelMedium, ra.RiskLevel)
	assert.Equal(t, manualRecommendation, ra.Recommendations)

	got, err := f.lcs.Get(ctx, officer, lc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LCStatusUnderVerification, got.Status)

	history, err := f.store.Audit().ListByReference(ctx, lc.ReferenceNumber)
	require.NoError(t, err)
	actions := make([]string, 0, len(history))
	for _, h := range history {
		actions = append(actions, h.Action)
	}
	assert.Equal(t, []string{"create", model.LCActionSubmit, model.LCActionSendToRisk, model.LCActionReturnFromRisk}, actions)

	lc, err = f.lcs.Approve(ctx, officer, lc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LCStatusApproved, lc.Status)
	require.NotNil(t, lc.IssueDate)
	assert.Equal(t, model.Date(testNow), *lc.IssueDate)

	lc, err = f.lcs.Open(ctx, officer, lc.ID)
	require.NoError(t, err)
	lc, err = f.lcs.Close(ctx, officer, lc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LCStatusClosed, lc.Status)

	_, err = f.lcs.Open(ctx, officer, lc.ID)
	assert.True(t, apperr.IsInvalidState(err))
	assert.EqualError(t, err, "Cannot open LetterOfCredit in CLOSED state")
}

func TestLCAmend_PastExpiryLeavesLCUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lc := f.createLC(t, 50000, 60)

	req := lcRequest(75000, day(-1))
	_, err := f.lcs.Amend(ctx, alice, lc.ID, req)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	got, err := f.lcs.Get(ctx, alice, lc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LCStatusDraft, got.Status)
	assert.True(t, decimal.NewFromInt(50000).Equal(got.Amount))
	assert.Equal(t, lc.ExpiryDate, got.ExpiryDate)
}

func TestLCAmend_KeepsExpiryWhenOmitted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lc := f.createLC(t, 50000, 60)

	amended, err := f.lcs.Amend(ctx, alice, lc.ID, lcRequest(80000, ""))
	require.NoError(t, err)
	assert.Equal(t, model.LCStatusAmended, amended.Status)
	assert.Equal(t, lc.ExpiryDate, amended.ExpiryDate)
	assert.True(t, decimal.NewFromInt(80000).Equal(amended.Amount))
}

func TestLCAmend_StateAndOwnershipCheckedBeforeBody(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lc := f.createLC(t, 50000, 60)

	// 非创建人提交非法请求体，应先被拒绝授权
	_, err := f.lcs.Amend(ctx, bob, lc.ID, lcRequest(0, day(30)))
	assert.True(t, apperr.IsUnauthorized(err))
	assert.False(t, apperr.IsValidation(err))

	_, err = f.lcs.Close(ctx, officer, lc.ID)
	require.NoError(t, err)

	_, err = f.lcs.Amend(ctx, alice, lc.ID, lcRequest(0, day(30)))
	assert.True(t, apperr.IsInvalidState(err))
	assert.EqualError(t, err, "Cannot amend LetterOfCredit in CLOSED state")

	got, err := f.lcs.Get(ctx, alice, lc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LCStatusClosed, got.Status)
	assert.True(t, decimal.NewFromInt(50000).Equal(got.Amount))
}

func TestLCCreate_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.lcs.Create(ctx, alice, lcRequest(0, day(30)))
	assert.True(t, apperr.IsValidation(err))

	_, err = f.lcs.Create(ctx, alice, lcRequest(1000, day(0)))
	assert.True(t, apperr.IsValidation(err))

	_, err = f.lcs.Create(ctx, alice, lcRequest(1000, ""))
	assert.True(t, apperr.IsValidation(err))

	bad := lcRequest(1000, day(30))
	bad.Currency = "DOLLARS"
	_, err = f.lcs.Create(ctx, alice, bad)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "currency")

	_, err = f.lcs.Create(ctx, analyst, lcRequest(1000, day(30)))
	assert.True(t, apperr.IsUnauthorized(err))
}

func TestLCAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lc := f.createLC(t, 1000, 30)

	// 受益人可以查看但不能提交
	_, err := f.lcs.Get(ctx, bob, lc.ID)
	require.NoError(t, err)
	_, err = f.lcs.Submit(ctx, bob, lc.ID)
	require.True(t, apperr.IsUnauthorized(err))
	assert.Contains(t, err.Error(), "submit LetterOfCredit:"+lc.ReferenceNumber)

	_, err = f.lcs.Get(ctx, stranger, lc.ID)
	assert.True(t, apperr.IsUnauthorized(err))

	// 客户不能审批自己的信用证
	_, err = f.lcs.Approve(ctx, alice, lc.ID)
	assert.True(t, apperr.IsUnauthorized(err))

	// 删除要求柜员且为创建人
	err = f.lcs.Delete(ctx, officer, lc.ID)
	assert.True(t, apperr.IsUnauthorized(err))
	err = f.lcs.Delete(ctx, alice, lc.ID)
	assert.True(t, apperr.IsUnauthorized(err))
}

func TestLCList_CustomerSeesCreatedAndBeneficiary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mine := f.createLC(t, 1000, 30)

	forAlice := lcRequest(2000, day(30))
	forAlice.BeneficiaryName = "alice@example.com"
	theirs, err := f.lcs.Create(ctx, bob, forAlice)
	require.NoError(t, err)

	_, err = f.lcs.Create(ctx, stranger, lcRequest(3000, day(30)))
	require.NoError(t, err)

	list, err := f.lcs.List(ctx, alice)
	require.NoError(t, err)
	refs := []string{}
	for _, lc := range list {
		refs = append(refs, lc.ReferenceNumber)
	}
	assert.ElementsMatch(t, []string{mine.ReferenceNumber, theirs.ReferenceNumber}, refs)

	all, err := f.lcs.List(ctx, officer)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.lcs.ListByStatus(ctx, alice, model.LCStatusDraft)
	assert.True(t, apperr.IsUnauthorized(err))
}

func TestLCReject_AppendsReason(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lc := f.createLC(t, 1000, 30)

	lc, err := f.lcs.Reject(ctx, officer, lc.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.LCStatusRejected, lc.Status)
	assert.Equal(t, "Machine parts | Rejection Reason: Rejected by officer", lc.Description)
}

func TestLCStartVerification_RequiresSubmitted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lc := f.createLC(t, 1000, 30)

	_, err := f.lcs.StartVerification(ctx, officer, lc.ID)
	require.True(t, apperr.IsInvalidState(err))
	assert.EqualError(t, err, "Cannot start verification LetterOfCredit in DRAFT state")
}
