package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/recipebook/recipebook-server/internal/domain"
	"github.com/recipebook/recipebook-server/internal/dualwrite"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/logger"
	"github.com/recipebook/recipebook-server/internal/store"
)

const (
	minUserQueryLength = 2
	maxUserResults     = 10
	profileRecipeLimit = 12
)

// SocialService manages follows, user search and public profiles.
//
// A follow is stored twice: the follower's Following list is authoritative
// and the target's Followers list mirrors it.
type SocialService struct {
	users    UserStore
	recipes  RecipeStore
	notifier Notifier
	logger   *slog.Logger
}

// NewSocialService creates a new social service.
func NewSocialService(users UserStore, recipes RecipeStore, notifier Notifier, log *slog.Logger) *SocialService {
	return &SocialService{
		users:    users,
		recipes:  recipes,
		notifier: orNoopNotifier(notifier),
		logger:   logger.OrDiscard(log),
	}
}

// FollowStatus describes the relationship between the requester and a user.
type FollowStatus struct {
	UserID         string `json:"user_id"`
	IsFollowing    bool   `json:"is_following"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
}

func (s *SocialService) loadTarget(ctx context.Context, requester *domain.User, targetID string) (*domain.User, error) {
	if targetID == requester.ID {
		return nil, domainerrors.InvalidState("you cannot follow yourself")
	}
	target, err := s.users.GetUser(ctx, targetID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if !target.IsActive() {
		return nil, domainerrors.NotFound("user not found")
	}
	return target, nil
}

// Follow makes the requester follow targetID. Following someone already
// followed changes nothing.
func (s *SocialService) Follow(ctx context.Context, requester *domain.User, targetID string) (*FollowStatus, error) {
	return s.setFollow(ctx, requester, targetID, true)
}

// Unfollow removes the follow if present.
func (s *SocialService) Unfollow(ctx context.Context, requester *domain.User, targetID string) (*FollowStatus, error) {
	return s.setFollow(ctx, requester, targetID, false)
}

func (s *SocialService) setFollow(ctx context.Context, requester *domain.User, targetID string, follow bool) (*FollowStatus, error) {
	target, err := s.loadTarget(ctx, requester, targetID)
	if err != nil {
		return nil, err
	}

	var (
		changed   bool
		follower  *domain.User
		followers = target.Followers
	)
	pair := dualwrite.Pair{
		Name: "follow",
		Primary: func(ctx context.Context) error {
			var err error
			follower, err = s.users.MutateUser(ctx, requester.ID, func(u *domain.User) error {
				changed = setMember(&u.Following, targetID, follow)
				return nil
			})
			return storeErr(err, "user")
		},
		Secondary: func(ctx context.Context) error {
			updated, err := s.users.MutateUser(ctx, targetID, func(u *domain.User) error {
				setMember(&u.Followers, requester.ID, follow)
				return nil
			})
			if err != nil {
				return err
			}
			followers = updated.Followers
			return nil
		},
	}
	res, err := pair.Do(ctx, s.logger)
	if err != nil {
		return nil, err
	}
	if !res.Consistent() {
		followers = slices.Clone(followers)
		setMember(&followers, requester.ID, follow)
	}

	if changed && follow && target.Preferences.EmailNotifications.NewFollower {
		s.notifier.SendNewFollower(target, follower)
	}
	if changed {
		s.logger.Info("follow changed", "user_id", requester.ID, "target_id", targetID, "following", follow)
	}

	return &FollowStatus{
		UserID:         targetID,
		IsFollowing:    follow,
		FollowerCount:  len(followers),
		FollowingCount: len(target.Following),
	}, nil
}

func setMember(list *[]string, value string, present bool) bool {
	if present {
		return domain.AddString(list, value)
	}
	return domain.RemoveString(list, value)
}

// Status reports whether the requester follows targetID, repairing the
// target's Followers mirror when it disagrees.
func (s *SocialService) Status(ctx context.Context, requester *domain.User, targetID string) (*FollowStatus, error) {
	me, err := s.users.GetUser(ctx, requester.ID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	target, err := s.users.GetUser(ctx, targetID)
	if err != nil {
		return nil, storeErr(err, "user")
	}

	following := me.IsFollowing(targetID)
	mirrored := slices.Contains(target.Followers, me.ID)
	if dualwrite.Repair(ctx, s.logger, "follow", following == mirrored, func(ctx context.Context) error {
		updated, err := s.users.MutateUser(ctx, targetID, func(u *domain.User) error {
			setMember(&u.Followers, me.ID, following)
			return nil
		})
		if err == nil {
			target = updated
		}
		return err
	}) {
		s.logger.Debug("follower mirror repaired", "user_id", me.ID, "target_id", targetID)
	}

	return &FollowStatus{
		UserID:         targetID,
		IsFollowing:    following,
		FollowerCount:  len(target.Followers),
		FollowingCount: len(target.Following),
	}, nil
}

// Followers lists the users following userID.
func (s *SocialService) Followers(ctx context.Context, userID string) ([]UserSummary, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return s.summaries(ctx, u.Followers)
}

// Following lists the users userID follows.
func (s *SocialService) Following(ctx context.Context, userID string) ([]UserSummary, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return s.summaries(ctx, u.Following)
}

func (s *SocialService) summaries(ctx context.Context, ids []string) ([]UserSummary, error) {
	list, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	out := make([]UserSummary, 0, len(list))
	for _, u := range list {
		if u.IsActive() {
			out = append(out, SummarizeUser(u))
		}
	}
	return out, nil
}

// UserSearchResult is one hit of SearchUsers.
type UserSearchResult struct {
	UserSummary
	IsFollowing bool `json:"is_following"`
}

// SearchUsers finds active users whose name, username or email contains q.
// The requester is excluded.
func (s *SocialService) SearchUsers(ctx context.Context, requester *domain.User, q string) ([]UserSearchResult, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if len([]rune(q)) < minUserQueryLength {
		return nil, domainerrors.ValidationWithDetails("search query must be at least 2 characters",
			map[string]string{"q": "must be at least 2 characters"})
	}

	active, err := s.users.ListUsersByStatus(ctx, domain.AccountActive)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	slices.SortFunc(active, func(a, b *domain.User) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	out := make([]UserSearchResult, 0, maxUserResults)
	for _, u := range active {
		if u.ID == requester.ID || !matchesUser(u, q) {
			continue
		}
		out = append(out, UserSearchResult{
			UserSummary: SummarizeUser(u),
			IsFollowing: requester.IsFollowing(u.ID),
		})
		if len(out) == maxUserResults {
			break
		}
	}
	return out, nil
}

func matchesUser(u *domain.User, q string) bool {
	return strings.Contains(strings.ToLower(u.Name), q) ||
		strings.Contains(strings.ToLower(u.Username), q) ||
		strings.Contains(strings.ToLower(u.Email), q)
}

// PublicProfile is what anyone may see about a user.
type PublicProfile struct {
	User        UserSummary         `json:"user"`
	Bio         string              `json:"bio,omitempty"`
	Location    string              `json:"location,omitempty"`
	Website     string              `json:"website,omitempty"`
	CoverPhoto  string              `json:"cover_photo,omitempty"`
	Cooking     domain.CookingLevel `json:"cooking_level,omitempty"`
	Cuisines    []string            `json:"favorite_cuisines"`
	Recipes     []RecipeCard        `json:"recipes"`
	Collections []domain.Collection `json:"collections"`
	Counts      ProfileCounts       `json:"counts"`
	IsFollowing bool                `json:"is_following"`
	JoinedAt    string              `json:"joined_at"`
}

// ProfileCounts are the public counters on a profile.
type ProfileCounts struct {
	PublicRecipes int `json:"public_recipes"`
	Followers     int `json:"followers"`
	Following     int `json:"following"`
}

// PublicProfile returns the profile of an active user by username with
// their newest public recipes and public collections. requester may be nil.
func (s *SocialService) PublicProfile(ctx context.Context, requester *domain.User, username string) (*PublicProfile, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("lookup username: %w", err)
	}
	if !u.IsActive() {
		return nil, domainerrors.NotFound("user not found")
	}

	owned, err := s.recipes.ListRecipesByOwner(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	public := slices.DeleteFunc(owned, func(r *domain.Recipe) bool {
		return r.Visibility != domain.VisibilityPublic
	})

	recent := recentFirst(public, profileRecipeLimit)
	cs := make([]RecipeCard, len(recent))
	for i, r := range recent {
		cs[i] = Card(r, u)
	}

	collections := make([]domain.Collection, 0)
	for _, c := range u.Collections {
		if c.IsPublic {
			collections = append(collections, c)
		}
	}

	p := &PublicProfile{
		User:        SummarizeUser(u),
		Bio:         u.Profile.Bio,
		Location:    u.Profile.Location,
		Website:     u.Profile.Website,
		CoverPhoto:  u.Profile.CoverPhoto,
		Cooking:     u.Profile.CookingLevel,
		Cuisines:    u.Profile.FavoriteCuisines,
		Recipes:     cs,
		Collections: collections,
		Counts: ProfileCounts{
			PublicRecipes: len(public),
			Followers:     len(u.Followers),
			Following:     len(u.Following),
		},
		JoinedAt: u.CreatedAt.Format("2006-01-02"),
	}
	if p.Cuisines == nil {
		p.Cuisines = []string{}
	}
	if requester != nil {
		p.IsFollowing = requester.IsFollowing(u.ID)
	}
	return p, nil
}
