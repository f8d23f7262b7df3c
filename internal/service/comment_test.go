package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipebook/recipebook-server/internal/domain"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/store"
)

func setupCommentTest(t *testing.T) (*CommentService, *store.Store, *recordingNotifier) {
	t.Helper()
	s := setupStore(t)
	n := &recordingNotifier{}
	return NewCommentService(s, s, n, newValidator(), nil), s, n
}

func TestComment_UpsertTwiceKeepsOneComment(t *testing.T) {
	svc, s, n := setupCommentTest(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	cook := createTestUser(t, s, "cook@example.com")
	r := createTestRecipe(t, s, owner, "Pie", domain.VisibilityPublic)

	first, err := svc.Upsert(ctx, cook, r.ID, CommentRequest{Text: "Nice", Rating: intPtr(3)})
	require.NoError(t, err)
	assert.False(t, first.Updated)
	assert.Equal(t, cook.ID, first.Comment.Author.ID)

	second, err := svc.Upsert(ctx, cook, r.ID, CommentRequest{Text: "Even better", Rating: intPtr(5)})
	require.NoError(t, err)
	assert.True(t, second.Updated)
	assert.Equal(t, first.Comment.ID, second.Comment.ID)
	assert.Equal(t, 5.0, second.AverageRating)

	stored := reloadRecipe(t, s, r.ID)
	require.Len(t, stored.Comments, 1)
	assert.Equal(t, "Even better", stored.Comments[0].Text)
	assert.Equal(t, 5, *stored.Comments[0].Rating)

	assert.Equal(t, []string{owner.ID}, n.comments, "only the first comment notifies the owner")
}

func TestComment_AverageIgnoresUnrated(t *testing.T) {
	svc, s, _ := setupCommentTest(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	r := createTestRecipe(t, s, owner, "Pie", domain.VisibilityPublic)

	ratings := []*int{intPtr(4), intPtr(2), nil}
	var last *CommentResult
	for i, rating := range ratings {
		u := createTestUser(t, s, string(rune('a'+i))+"@example.com")
		var err error
		last, err = svc.Upsert(ctx, u, r.ID, CommentRequest{Text: "hi", Rating: rating})
		require.NoError(t, err)
	}
	assert.Equal(t, 3.0, last.AverageRating)
	assert.Len(t, last.Comments, 3)
}

func TestComment_OwnerCommentDoesNotNotify(t *testing.T) {
	svc, s, n := setupCommentTest(t)
	owner := createTestUser(t, s, "owner@example.com")
	r := createTestRecipe(t, s, owner, "Pie", domain.VisibilityPrivate)

	_, err := svc.Upsert(context.Background(), owner, r.ID, CommentRequest{Text: "note to self"})
	require.NoError(t, err)
	assert.Empty(t, n.comments)
}

func TestComment_Rejections(t *testing.T) {
	svc, s, _ := setupCommentTest(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	stranger := createTestUser(t, s, "stranger@example.com")
	private := createTestRecipe(t, s, owner, "Secret", domain.VisibilityPrivate)
	public := createTestRecipe(t, s, owner, "Pie", domain.VisibilityPublic)

	_, err := svc.Upsert(ctx, stranger, private.ID, CommentRequest{Text: "let me in"})
	requireCode(t, err, domainerrors.CodeForbidden)

	_, err = svc.Upsert(ctx, stranger, public.ID, CommentRequest{Text: "hi", Rating: intPtr(0)})
	requireCode(t, err, domainerrors.CodeValidation)

	_, err = svc.Upsert(ctx, stranger, public.ID, CommentRequest{Text: "hi", Rating: intPtr(6)})
	requireCode(t, err, domainerrors.CodeValidation)

	_, err = svc.Upsert(ctx, stranger, public.ID, CommentRequest{})
	requireCode(t, err, domainerrors.CodeValidation)
}

func TestComment_Delete(t *testing.T) {
	svc, s, _ := setupCommentTest(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	author := createTestUser(t, s, "author@example.com")
	other := createTestUser(t, s, "other@example.com")
	r := createTestRecipe(t, s, owner, "Pie", domain.VisibilityPublic)

	res, err := svc.Upsert(ctx, author, r.ID, CommentRequest{Text: "hello"})
	require.NoError(t, err)
	commentID := res.Comment.ID

	err = svc.Delete(ctx, other, r.ID, commentID)
	requireCode(t, err, domainerrors.CodeForbidden)

	err = svc.Delete(ctx, owner, r.ID, "missing")
	requireCode(t, err, domainerrors.CodeNotFound)

	require.NoError(t, svc.Delete(ctx, owner, r.ID, commentID))
	assert.Empty(t, reloadRecipe(t, s, r.ID).Comments)

	list, err := svc.List(ctx, other, r.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
