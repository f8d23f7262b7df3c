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

func setupSocialTest(t *testing.T) (*SocialService, *store.Store, *recordingNotifier) {
	t.Helper()
	s := setupStore(t)
	n := &recordingNotifier{}
	return NewSocialService(s, s, n, nil), s, n
}

func setUsername(t *testing.T, s *store.Store, u *domain.User, username, name string) *domain.User {
	t.Helper()
	updated, err := s.MutateUser(context.Background(), u.ID, func(u *domain.User) error {
		u.Username = username
		if name != "" {
			u.Name = name
		}
		return nil
	})
	require.NoError(t, err)
	return updated
}

func TestSocial_FollowIsIdempotent(t *testing.T) {
	svc, s, n := setupSocialTest(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice@example.com")
	bob := createTestUser(t, s, "bob@example.com")

	st, err := svc.Follow(ctx, alice, bob.ID)
	require.NoError(t, err)
	assert.True(t, st.IsFollowing)
	assert.Equal(t, 1, st.FollowerCount)

	st, err = svc.Follow(ctx, alice, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.FollowerCount)

	assert.Equal(t, []string{bob.ID}, reload(t, s, alice).Following)
	assert.Equal(t, []string{alice.ID}, reload(t, s, bob).Followers)
	assert.Equal(t, []string{bob.ID}, n.followers, "a repeated follow does not notify")

	st, err = svc.Unfollow(ctx, alice, bob.ID)
	require.NoError(t, err)
	assert.False(t, st.IsFollowing)
	assert.Zero(t, st.FollowerCount)
	assert.Empty(t, reload(t, s, alice).Following)
	assert.Empty(t, reload(t, s, bob).Followers)

	_, err = svc.Unfollow(ctx, alice, bob.ID)
	require.NoError(t, err)
}

func TestSocial_FollowRejections(t *testing.T) {
	svc, s, _ := setupSocialTest(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice@example.com")
	gone := createTestUser(t, s, "gone@example.com")
	_, err := s.MutateUser(ctx, gone.ID, func(u *domain.User) error {
		u.Status = domain.AccountSuspended
		return nil
	})
	require.NoError(t, err)

	_, err = svc.Follow(ctx, alice, alice.ID)
	requireCode(t, err, domainerrors.CodeInvalidState)

	_, err = svc.Follow(ctx, alice, "usr-missing")
	requireCode(t, err, domainerrors.CodeNotFound)

	_, err = svc.Follow(ctx, alice, gone.ID)
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestSocial_FollowMirrorRepairedByStatus(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice@example.com")
	bob := createTestUser(t, s, "bob@example.com")

	flaky := NewSocialService(&flakyUsers{Store: s, failFor: bob.ID}, s, nil, nil)
	st, err := flaky.Follow(ctx, alice, bob.ID)
	require.NoError(t, err, "mirror failure is not an error")
	assert.True(t, st.IsFollowing)
	assert.Equal(t, 1, st.FollowerCount)
	assert.Empty(t, reload(t, s, bob).Followers)

	st, err = NewSocialService(s, s, nil, nil).Status(ctx, alice, bob.ID)
	require.NoError(t, err)
	assert.True(t, st.IsFollowing)
	assert.Equal(t, 1, st.FollowerCount)
	assert.Equal(t, []string{alice.ID}, reload(t, s, bob).Followers)
}

func TestSocial_FollowersAndFollowing(t *testing.T) {
	svc, s, _ := setupSocialTest(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice@example.com")
	bob := createTestUser(t, s, "bob@example.com")
	carol := createTestUser(t, s, "carol@example.com")

	_, err := svc.Follow(ctx, alice, carol.ID)
	require.NoError(t, err)
	_, err = svc.Follow(ctx, bob, carol.ID)
	require.NoError(t, err)

	followers, err := svc.Followers(ctx, carol.ID)
	require.NoError(t, err)
	assert.Len(t, followers, 2)

	following, err := svc.Following(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, carol.ID, following[0].ID)
}

func TestSocial_SearchUsers(t *testing.T) {
	svc, s, _ := setupSocialTest(t)
	ctx := context.Background()
	me := createTestUser(t, s, "me@example.com")
	me = setUsername(t, s, me, "chef.me", "Chef Me")
	julia := setUsername(t, s, createTestUser(t, s, "julia@example.com"), "julia", "Julia Child")
	setUsername(t, s, createTestUser(t, s, "gordon@example.com"), "gordon", "Gordon Chef")
	hidden := setUsername(t, s, createTestUser(t, s, "hidden@example.com"), "chef.hidden", "Hidden Chef")
	_, err := s.MutateUser(ctx, hidden.ID, func(u *domain.User) error {
		u.Status = domain.AccountSuspended
		return nil
	})
	require.NoError(t, err)

	_, err = svc.Follow(ctx, me, julia.ID)
	require.NoError(t, err)
	me = reload(t, s, me)

	_, err = svc.SearchUsers(ctx, me, " c ")
	requireCode(t, err, domainerrors.CodeValidation)

	res, err := svc.SearchUsers(ctx, me, "CHEF")
	require.NoError(t, err)
	require.Len(t, res, 1, "self and inactive users are excluded")
	assert.Equal(t, "gordon", res[0].Username)

	res, err = svc.SearchUsers(ctx, me, "julia@")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.True(t, res[0].IsFollowing)
}

func TestSocial_PublicProfile(t *testing.T) {
	svc, s, _ := setupSocialTest(t)
	ctx := context.Background()
	cook := setUsername(t, s, createTestUser(t, s, "cook@example.com"), "cook", "")
	fan := createTestUser(t, s, "fan@example.com")
	createTestRecipe(t, s, cook, "Public Pie", domain.VisibilityPublic)
	createTestRecipe(t, s, cook, "Secret Stew", domain.VisibilityPrivate)
	_, err := s.MutateUser(ctx, cook.ID, func(u *domain.User) error {
		u.Profile.Bio = "I bake"
		u.Collections = append(u.Collections,
			domain.Collection{ID: "col-1", Name: "Open", IsPublic: true},
			domain.Collection{ID: "col-2", Name: "Closed"},
		)
		return nil
	})
	require.NoError(t, err)
	_, err = svc.Follow(ctx, fan, cook.ID)
	require.NoError(t, err)

	p, err := svc.PublicProfile(ctx, reload(t, s, fan), "cook")
	require.NoError(t, err)
	assert.Equal(t, "I bake", p.Bio)
	require.Len(t, p.Recipes, 1)
	assert.Equal(t, "Public Pie", p.Recipes[0].Title)
	require.Len(t, p.Collections, 1)
	assert.Equal(t, "Open", p.Collections[0].Name)
	assert.Equal(t, 1, p.Counts.PublicRecipes)
	assert.Equal(t, 1, p.Counts.Followers)
	assert.True(t, p.IsFollowing)

	anon, err := svc.PublicProfile(ctx, nil, "cook")
	require.NoError(t, err)
	assert.False(t, anon.IsFollowing)

	_, err = svc.PublicProfile(ctx, nil, "nobody")
	requireCode(t, err, domainerrors.CodeNotFound)
}
