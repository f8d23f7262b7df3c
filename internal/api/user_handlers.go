package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/recipebook/recipebook-server/internal/domain"
	"github.com/recipebook/recipebook-server/internal/service"
)

func (s *Server) registerUserRoutes() {
	bearer := []map[string][]string{{"bearer": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID: "getProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/profile",
		Summary:     "Get own profile",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleGetProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProfile",
		Method:      http.MethodPut,
		Path:        "/api/v1/users/profile",
		Summary:     "Update own profile",
		Description: "Updates the given profile fields. Usernames are unique.",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleUpdateProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePreferences",
		Method:      http.MethodPut,
		Path:        "/api/v1/users/preferences",
		Summary:     "Update preferences",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleUpdatePreferences)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUserStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/stats",
		Summary:     "Recipe statistics",
		Description: "Counts, breakdowns, average rating, recent and popular recipes of the caller",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleUserStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUserFavorites",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/favorites",
		Summary:     "List favorites",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleListFavorites)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchUsers",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/search",
		Summary:     "Search users",
		Description: "Finds active users by name, username or email",
		Tags:        []string{"Social"},
		Security:    bearer,
	}, s.handleSearchUsers)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPublicProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/public/{username}",
		Summary:     "Public profile",
		Description: "Returns an active user's public profile, newest public recipes and public collections",
		Tags:        []string{"Social"},
	}, s.handlePublicProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "followUser",
		Method:      http.MethodPost,
		Path:        "/api/v1/users/{id}/follow",
		Summary:     "Follow user",
		Tags:        []string{"Social"},
		Security:    bearer,
	}, s.handleFollow)

	huma.Register(s.api, huma.Operation{
		OperationID: "unfollowUser",
		Method:      http.MethodDelete,
		Path:        "/api/v1/users/{id}/follow",
		Summary:     "Unfollow user",
		Tags:        []string{"Social"},
		Security:    bearer,
	}, s.handleUnfollow)

	huma.Register(s.api, huma.Operation{
		OperationID: "followStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/follow-status",
		Summary:     "Follow status",
		Tags:        []string{"Social"},
		Security:    bearer,
	}, s.handleFollowStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "listFollowers",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/followers",
		Summary:     "List followers",
		Tags:        []string{"Social"},
	}, s.handleFollowers)

	huma.Register(s.api, huma.Operation{
		OperationID: "listFollowing",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/following",
		Summary:     "List following",
		Tags:        []string{"Social"},
	}, s.handleFollowing)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteAccount",
		Method:      http.MethodDelete,
		Path:        "/api/v1/users/account",
		Summary:     "Delete account",
		Description: "Deletes the caller's account and everything tied to it. Requires the confirmation phrase " +
			service.DeleteConfirmation + " and, for local accounts, the password.",
		Tags:     []string{"Users"},
		Security: bearer,
	}, s.handleDeleteAccount)

	s.registerCollectionRoutes(bearer)
}

// === DTOs ===

// UpdateProfileInput wraps a profile update for Huma.
type UpdateProfileInput struct {
	Body service.UpdateProfileRequest
}

// PreferencesInput wraps a preferences update for Huma.
type PreferencesInput struct {
	Body service.PreferencesRequest
}

// PreferencesOutput wraps preferences for Huma.
type PreferencesOutput struct {
	Body *domain.Preferences
}

// UserStatsOutput wraps user statistics for Huma.
type UserStatsOutput struct {
	Body *service.UserStats
}

// SearchUsersInput contains the user search query.
type SearchUsersInput struct {
	Q string `query:"q" maxLength:"100" doc:"Search text, at least 2 characters"`
}

// UserSearchOutput wraps user search results for Huma.
type UserSearchOutput struct {
	Body []service.UserSearchResult
}

// UsernameInput identifies a user by username.
type UsernameInput struct {
	Username string `path:"username" doc:"Username"`
}

// PublicProfileOutput wraps a public profile for Huma.
type PublicProfileOutput struct {
	Body *service.PublicProfile
}

// UserIDInput identifies a user in the path.
type UserIDInput struct {
	ID string `path:"id" doc:"User ID"`
}

// FollowOutput wraps a follow status for Huma.
type FollowOutput struct {
	Body *service.FollowStatus
}

// UserSummariesOutput wraps a list of users for Huma.
type UserSummariesOutput struct {
	Body []service.UserSummary
}

// DeleteAccountInput wraps the account deletion request for Huma.
type DeleteAccountInput struct {
	Body service.DeleteAccountRequest
}

// === Handlers ===

func (s *Server) handleGetProfile(ctx context.Context, _ *struct{}) (*MeOutput, error) {
	return s.handleMe(ctx, nil)
}

func (s *Server) handleUpdateProfile(ctx context.Context, input *UpdateProfileInput) (*UserOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := s.services.Profile.UpdateProfile(ctx, user, input.Body)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: updated}, nil
}

func (s *Server) handleUpdatePreferences(ctx context.Context, input *PreferencesInput) (*PreferencesOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	prefs, err := s.services.Profile.UpdatePreferences(ctx, user, input.Body)
	if err != nil {
		return nil, err
	}
	return &PreferencesOutput{Body: prefs}, nil
}

func (s *Server) handleUserStats(ctx context.Context, _ *struct{}) (*UserStatsOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.services.Profile.Stats(ctx, user)
	if err != nil {
		return nil, err
	}
	return &UserStatsOutput{Body: stats}, nil
}

func (s *Server) handleSearchUsers(ctx context.Context, input *SearchUsersInput) (*UserSearchOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	results, err := s.services.Social.SearchUsers(ctx, user, input.Q)
	if err != nil {
		return nil, err
	}
	return &UserSearchOutput{Body: results}, nil
}

func (s *Server) handlePublicProfile(ctx context.Context, input *UsernameInput) (*PublicProfileOutput, error) {
	profile, err := s.services.Social.PublicProfile(ctx, CurrentUser(ctx), input.Username)
	if err != nil {
		return nil, err
	}
	return &PublicProfileOutput{Body: profile}, nil
}

func (s *Server) handleFollow(ctx context.Context, input *UserIDInput) (*FollowOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	status, err := s.services.Social.Follow(ctx, user, input.ID)
	if err != nil {
		return nil, err
	}
	return &FollowOutput{Body: status}, nil
}

func (s *Server) handleUnfollow(ctx context.Context, input *UserIDInput) (*FollowOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	status, err := s.services.Social.Unfollow(ctx, user, input.ID)
	if err != nil {
		return nil, err
	}
	return &FollowOutput{Body: status}, nil
}

func (s *Server) handleFollowStatus(ctx context.Context, input *UserIDInput) (*FollowOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	status, err := s.services.Social.Status(ctx, user, input.ID)
	if err != nil {
		return nil, err
	}
	return &FollowOutput{Body: status}, nil
}

func (s *Server) handleFollowers(ctx context.Context, input *UserIDInput) (*UserSummariesOutput, error) {
	users, err := s.services.Social.Followers(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &UserSummariesOutput{Body: users}, nil
}

func (s *Server) handleFollowing(ctx context.Context, input *UserIDInput) (*UserSummariesOutput, error) {
	users, err := s.services.Social.Following(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &UserSummariesOutput{Body: users}, nil
}

func (s *Server) handleDeleteAccount(ctx context.Context, input *DeleteAccountInput) (*MessageOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Profile.DeleteAccount(ctx, user, input.Body); err != nil {
		return nil, err
	}
	return message("Account deleted"), nil
}
