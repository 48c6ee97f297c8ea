package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeDocumentLifecycle(t *testing.T) {
	doc := NewTradeDocument("DOC1", "INVOICE", " LC1 ", "Commercial invoice", "alice",
		StoredFile{FileName: "inv.pdf", FilePath: "/tmp/x.pdf", FileType: "application/pdf", FileSize: 10}, testNow)
	require.True(t, doc.Linked())
	assert.Equal(t, "LC1", doc.TradeReference())
	assert.Equal(t, DocStatusActive, doc.Status)

	doc.SubmitForReview(testNow)
	assert.Equal(t, DocStatusPendingReview, doc.Status)
	doc.Reject("blurry scan", testNow)
	assert.Equal(t, DocStatusRejected, doc.Status)
	assert.Equal(t, "Commercial invoice | Rejection: blurry scan", doc.Description)
	doc.Approve(testNow)
	doc.Archive(testNow)
	assert.Equal(t, DocStatusArchived, doc.Status)
}

func TestStandaloneDocument(t *testing.T) {
	doc := NewTradeDocument("DOC2", "OTHER", "", "", "alice", StoredFile{}, testNow)
	assert.False(t, doc.Linked())
	assert.Nil(t, doc.TradeReferenceNumber)
}

func TestComplianceReviewStamp(t *testing.T) {
	c := &Compliance{}
	c.StampAutomatedReview(testNow)
	assert.Equal(t, AutomatedReviewer, c.ReviewedBy)

	c.SubmitReview("officer1", testNow)
	c.StampAutomatedReview(testNow.AddDate(0, 0, 3))
	assert.Equal(t, "officer1", c.ReviewedBy)
	assert.Equal(t, Date(testNow), *c.ReviewDate)
}

func TestNewLifecycleOutbox(t *testing.T) {
	change := NewStatusChange(EntityLC, "LC1", "DRAFT", "SUBMITTED", LCActionSubmit, "alice", "", testNow)
	msg, err := NewLifecycleOutbox("tfms.lifecycle", change)
	require.NoError(t, err)
	assert.Equal(t, "LC1", msg.MessageKey)
	assert.Equal(t, OutboxStatusPending, msg.Status)
	assert.Contains(t, msg.Payload, `"to_status":"SUBMITTED"`)
}

func TestParseRoleAndKindOf(t *testing.T) {
	assert.Equal(t, RoleOfficer, ParseRole("ROLE_OFFICER"))
	assert.Equal(t, RoleRisk, ParseRole(" risk "))
	assert.Equal(t, Role(""), ParseRole("admin"))
	assert.Equal(t, KindLC, KindOf("lc123"))
	assert.Equal(t, KindDocument, KindOf("DOC9"))
	assert.Equal(t, InstrumentKind(""), KindOf("TX1"))
}
