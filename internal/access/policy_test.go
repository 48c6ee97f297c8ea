package access

import (
	"testing"

	"tfms/internal/apperr"
	"tfms/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy(nil)
	require.NoError(t, err)
	return p
}

func TestPolicyOfficerOnlyActions(t *testing.T) {
	p := newPolicy(t)
	for _, act := range []string{ActApprove, ActReject, ActVerify, ActSendToRisk, ActOpen, ActClose} {
		assert.True(t, p.Allowed(officer, ObjLC, act), act)
		assert.False(t, p.Allowed(creator, ObjLC, act), act)
		assert.False(t, p.Allowed(analyst, ObjLC, act), act)
	}
	assert.True(t, p.Allowed(officer, ObjCompliance, ActEvaluate))
	assert.False(t, p.Allowed(analyst, ObjCompliance, ActEvaluate))
	assert.False(t, p.Allowed(nil, ObjLC, ActView))
}

func TestPolicyRiskActions(t *testing.T) {
	p := newPolicy(t)
	assert.True(t, p.Allowed(analyst, ObjRisk, ActAssess))
	assert.True(t, p.Allowed(officer, ObjRisk, ActAssess))
	assert.False(t, p.Allowed(creator, ObjRisk, ActAssess))
	assert.True(t, p.Allowed(analyst, ObjBG, ActReturnToOfficer))
	assert.False(t, p.Allowed(creator, ObjBG, ActReturnToOfficer))
}

func TestAuthorizeOwnerActions(t *testing.T) {
	p := newPolicy(t)
	lc := testLC("Bob Exports")

	assert.NoError(t, p.Authorize(creator, ObjLC, ActSubmit, lc))
	assert.NoError(t, p.Authorize(byName, ObjLC, ActView, lc))

	err := p.Authorize(byName, ObjLC, ActSubmit, lc)
	require.Error(t, err)
	assert.True(t, apperr.IsUnauthorized(err))
	assert.Equal(t, "User 'bob' is not authorized to access 'submit LetterOfCredit:LC1'", err.Error())

	// 柜员删除也要求是创建人
	assert.True(t, apperr.IsUnauthorized(p.Authorize(officer, ObjLC, ActDelete, lc)))
	own := &model.LetterOfCredit{ReferenceNumber: "LC2", CreatedBy: "officer1"}
	assert.NoError(t, p.Authorize(officer, ObjLC, ActDelete, own))
	assert.NoError(t, p.Authorize(officer, ObjLC, ActApprove, lc))
}

func TestAuthorizeUpload(t *testing.T) {
	p := newPolicy(t)
	lc := testLC("Bob Exports")
	assert.NoError(t, p.AuthorizeUpload(byName, "LC1", lc))
	assert.True(t, apperr.IsUnauthorized(p.AuthorizeUpload(stranger, "LC1", lc)))
	assert.NoError(t, p.AuthorizeUpload(stranger, "", nil))
	assert.True(t, apperr.IsUnauthorized(p.AuthorizeUpload(analyst, "", nil)))
}
