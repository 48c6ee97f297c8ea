package service

import (
	"bytes"
	"context"
	"io"
	"testing"

	"tfms/internal/apperr"
	"tfms/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentUpload_Standalone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	doc := f.upload(t, alice, "", "Packing List")
	assert.Equal(t, model.DocStatusActive, doc.Status)
	assert.False(t, doc.Linked())
	assert.Equal(t, int64(len("%PDF-1.4")), doc.FileSize)
	assert.Equal(t, "alice", doc.UploadedBy)

	got, rc, err := f.docs.Open(ctx, alice, doc.ID)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))
	assert.Equal(t, doc.ReferenceNumber, got.ReferenceNumber)

	_, _, err = f.docs.Open(ctx, bob, doc.ID)
	assert.True(t, apperr.IsUnauthorized(err))
}

func TestDocumentUpload_Authorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lc := f.createLC(t, 1000, 30)

	req := func(ref string) *UploadRequest {
		return &UploadRequest{DocumentType: "Invoice", TradeReferenceNumber: ref, FileName: "a.pdf"}
	}

	_, err := f.docs.Upload(ctx, analyst, req(""), bytes.NewBufferString("x"))
	require.True(t, apperr.IsUnauthorized(err))
	assert.EqualError(t, err, "User 'risk1' is not authorized to access 'upload standalone document'")

	_, err = f.docs.Upload(ctx, stranger, req(lc.ReferenceNumber), bytes.NewBufferString("x"))
	assert.True(t, apperr.IsUnauthorized(err))

	_, err = f.docs.Upload(ctx, alice, req("LC-NOPE"), bytes.NewBufferString("x"))
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.docs.Upload(ctx, alice, &UploadRequest{FileName: "a.pdf"}, bytes.NewBufferString("x"))
	assert.True(t, apperr.IsValidation(err))

	assert.Empty(t, f.files.files)
}

func TestDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lc := f.createLC(t, 1000, 30)
	doc := f.upload(t, alice, lc.ReferenceNumber, "Invoice")

	doc, err := f.docs.SubmitForReview(ctx, alice, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusPendingReview, doc.Status)

	pending, err := f.docs.ListPendingReview(ctx, officer)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	_, err = f.docs.ListPendingReview(ctx, alice)
	assert.True(t, apperr.IsUnauthorized(err))

	_, err = f.docs.Approve(ctx, alice, doc.ID)
	assert.True(t, apperr.IsUnauthorized(err))

	doc, err = f.docs.Reject(ctx, officer, doc.ID, "blurry scan")
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusRejected, doc.Status)
	assert.Equal(t, " | Rejection: blurry scan", doc.Description)

	doc, err = f.docs.Archive(ctx, officer, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusArchived, doc.Status)

	history, err := f.store.Audit().ListByReference(ctx, doc.ReferenceNumber)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestDocumentUpdateDetails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, alice, "", "Invoice")

	doc, err := f.docs.UpdateDetails(ctx, alice, doc.ID, &UpdateDocumentRequest{DocumentType: "Commercial Invoice", Description: "v2"})
	require.NoError(t, err)
	assert.Equal(t, "Commercial Invoice", doc.DocumentType)
	assert.Equal(t, model.DocStatusActive, doc.Status)

	_, err = f.docs.UpdateDetails(ctx, bob, doc.ID, &UpdateDocumentRequest{DocumentType: "X"})
	assert.True(t, apperr.IsUnauthorized(err))

	// 无权限时不暴露请求体校验结果
	_, err = f.docs.UpdateDetails(ctx, bob, doc.ID, &UpdateDocumentRequest{})
	assert.True(t, apperr.IsUnauthorized(err))

	_, err = f.docs.UpdateDetails(ctx, alice, doc.ID, &UpdateDocumentRequest{})
	assert.True(t, apperr.IsValidation(err))
}

func TestDocumentList_LinkedVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lc := f.createLC(t, 1000, 30)
	linked := f.upload(t, alice, lc.ReferenceNumber, "Invoice")
	f.upload(t, alice, "", "Memo")

	// bob 是受益人，只能看到关联单据
	docs, err := f.docs.List(ctx, bob)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, linked.ID, docs[0].ID)

	mine, err := f.docs.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	none, err := f.docs.List(ctx, stranger)
	require.NoError(t, err)
	assert.Empty(t, none)

	byRef, err := f.docs.ListByTradeReference(ctx, bob, lc.ReferenceNumber)
	require.NoError(t, err)
	assert.Len(t, byRef, 1)
	_, err = f.docs.ListByTradeReference(ctx, stranger, lc.ReferenceNumber)
	assert.True(t, apperr.IsUnauthorized(err))
}

func TestDocumentDelete_RemovesFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, alice, "", "Invoice")
	require.Len(t, f.files.files, 1)

	err := f.docs.Delete(ctx, stranger, doc.ID)
	assert.True(t, apperr.IsUnauthorized(err))

	require.NoError(t, f.docs.Delete(ctx, officer, doc.ID))
	assert.Empty(t, f.files.files)
	_, err = f.docs.Get(ctx, officer, doc.ID)
	assert.True(t, apperr.IsNotFound(err))
}
