package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/recipebook/recipebook-server/internal/domain"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/id"
	"github.com/recipebook/recipebook-server/internal/logger"
	"github.com/recipebook/recipebook-server/internal/store"
	"github.com/recipebook/recipebook-server/internal/store/sqlite"
)

const (
	adminDefaultLimit = 20
	adminMaxLimit     = 100
	adminRecentLimit  = 10
)

// AdminService handles moderation: account status and roles, recipe
// takedowns and the audit log. Every state change writes an audit row.
type AdminService struct {
	users   UserStore
	recipes RecipeStore
	audit   AuditLog
	logger  *slog.Logger
}

// NewAdminService creates a new admin service. audit may be nil, in which
// case actions are only logged.
func NewAdminService(users UserStore, recipes RecipeStore, audit AuditLog, log *slog.Logger) *AdminService {
	return &AdminService{
		users:   users,
		recipes: recipes,
		audit:   audit,
		logger:  logger.OrDiscard(log),
	}
}

// Pagination is the page metadata returned by admin listings.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	Total       int  `json:"total"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// Listing is one page of an admin listing.
type Listing[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

func listingOf[T any](p store.Page[T]) *Listing[T] {
	return &Listing[T]{
		Items: p.Items,
		Pagination: Pagination{
			CurrentPage: p.Page,
			TotalPages:  p.Pages,
			Total:       p.Total,
			HasNext:     p.HasNext(),
			HasPrev:     p.HasPrev(),
		},
	}
}

// AdminStats is the moderation dashboard.
type AdminStats struct {
	Users         map[domain.AccountStatus]int `json:"users"`
	TotalUsers    int                          `json:"total_users"`
	Recipes       map[domain.Visibility]int    `json:"recipes"`
	TotalRecipes  int                          `json:"total_recipes"`
	RecentUsers   []AdminUser                  `json:"recent_users"`
	RecentRecipes []RecipeCard                 `json:"recent_recipes"`
}

// Stats counts users by status and recipes by visibility and lists the
// newest of each.
func (s *AdminService) Stats(ctx context.Context) (*AdminStats, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	recipes, err := s.recipes.ListRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}

	st := &AdminStats{
		Users:        map[domain.AccountStatus]int{domain.AccountActive: 0, domain.AccountSuspended: 0, domain.AccountDeleted: 0},
		TotalUsers:   len(users),
		Recipes:      map[domain.Visibility]int{domain.VisibilityPrivate: 0, domain.VisibilityShared: 0, domain.VisibilityPublic: 0},
		TotalRecipes: len(recipes),
	}
	for _, u := range users {
		st.Users[statusOf(u)]++
	}
	for _, r := range recipes {
		st.Recipes[r.Visibility]++
	}

	slices.SortStableFunc(users, func(a, b *domain.User) int { return b.CreatedAt.Compare(a.CreatedAt) })
	for _, u := range users[:min(len(users), adminRecentLimit)] {
		st.RecentUsers = append(st.RecentUsers, adminUser(u))
	}
	st.RecentRecipes, err = cards(ctx, s.users, recentFirst(recipes, adminRecentLimit))
	if err != nil {
		return nil, err
	}
	if st.RecentUsers == nil {
		st.RecentUsers = []AdminUser{}
	}
	return st, nil
}

func statusOf(u *domain.User) domain.AccountStatus {
	if u.Status == "" {
		return domain.AccountActive
	}
	return u.Status
}

// AdminUser is the moderation view of an account.
type AdminUser struct {
	ID            string               `json:"id"`
	Email         string               `json:"email"`
	Name          string               `json:"name"`
	Username      string               `json:"username,omitempty"`
	Role          domain.Role          `json:"role"`
	Status        domain.AccountStatus `json:"status"`
	AuthMethod    domain.AuthMethod    `json:"auth_method"`
	EmailVerified bool                 `json:"email_verified"`
	RecipeCount   int                  `json:"recipe_count"`
	CreatedAt     time.Time            `json:"created_at"`
	LastLoginAt   time.Time            `json:"last_login_at,omitzero"`
}

func adminUser(u *domain.User) AdminUser {
	return AdminUser{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Username:      u.Username,
		Role:          u.Role,
		Status:        statusOf(u),
		AuthMethod:    u.AuthMethod,
		EmailVerified: u.EmailVerified,
		RecipeCount:   len(u.Recipes),
		CreatedAt:     u.CreatedAt,
		LastLoginAt:   u.LastLoginAt,
	}
}

// UserListParams filters and orders the admin user listing.
type UserListParams struct {
	store.PageParams
	Search    string
	Status    domain.AccountStatus
	SortBy    string // createdAt, name, email or lastLogin
	SortOrder string // asc or desc (default)
}

// ListUsers returns one page of accounts.
func (s *AdminService) ListUsers(ctx context.Context, p UserListParams) (*Listing[AdminUser], error) {
	if p.Status != "" && !p.Status.IsValid() {
		return nil, domainerrors.Validationf("invalid status %q", p.Status)
	}
	p.Normalize(adminDefaultLimit, adminMaxLimit)

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	q := strings.ToLower(strings.TrimSpace(p.Search))
	users = slices.DeleteFunc(users, func(u *domain.User) bool {
		if p.Status != "" && statusOf(u) != p.Status {
			return true
		}
		return q != "" && !matchesUser(u, q)
	})

	var compare func(a, b *domain.User) int
	switch p.SortBy {
	case "name":
		compare = func(a, b *domain.User) int { return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) }
	case "email":
		compare = func(a, b *domain.User) int { return cmp.Compare(a.Email, b.Email) }
	case "lastLogin":
		compare = func(a, b *domain.User) int { return a.LastLoginAt.Compare(b.LastLoginAt) }
	default:
		compare = func(a, b *domain.User) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}
	desc := p.SortOrder != "asc"
	slices.SortStableFunc(users, func(a, b *domain.User) int {
		if desc {
			return compare(b, a)
		}
		return compare(a, b)
	})

	page := store.Paginate(users, p.PageParams)
	out := store.Page[AdminUser]{Items: make([]AdminUser, len(page.Items)), Total: page.Total, Page: page.Page, Limit: page.Limit, Pages: page.Pages}
	for i, u := range page.Items {
		out.Items[i] = adminUser(u)
	}
	return listingOf(out), nil
}

// GetUser returns one account with its owned recipe count.
func (s *AdminService) GetUser(ctx context.Context, userID string) (*AdminUser, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	view := adminUser(u)
	if owned, err := s.recipes.ListRecipesByOwner(ctx, userID); err == nil {
		view.RecipeCount = len(owned)
	}
	return &view, nil
}

// StatusRequest changes an account's status.
type StatusRequest struct {
	Status domain.AccountStatus `json:"status"`
	Reason string               `json:"reason,omitempty"`
}

// SetUserStatus suspends, tombstones or reactivates an account. Admins
// cannot take their own account out of the active state.
func (s *AdminService) SetUserStatus(ctx context.Context, admin *domain.User, userID string, req StatusRequest) (*AdminUser, error) {
	if !req.Status.IsValid() {
		return nil, domainerrors.Validationf("invalid status %q", req.Status)
	}
	if userID == admin.ID && req.Status != domain.AccountActive {
		return nil, domainerrors.InvalidState("you cannot change your own account status")
	}

	var previous domain.AccountStatus
	updated, err := s.users.MutateUser(ctx, userID, func(u *domain.User) error {
		previous = statusOf(u)
		u.Status = req.Status
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "user")
	}

	s.record(ctx, admin, domain.AuditUserStatus, domain.AuditTargetUser, userID, req.Reason,
		string(previous)+"->"+string(req.Status))
	view := adminUser(updated)
	return &view, nil
}

// Promote grants the admin role.
func (s *AdminService) Promote(ctx context.Context, admin *domain.User, userID string) (*AdminUser, error) {
	return s.setRole(ctx, admin, userID, domain.RoleAdmin, domain.AuditUserPromote)
}

// Demote revokes the admin role. Admins cannot demote themselves.
func (s *AdminService) Demote(ctx context.Context, admin *domain.User, userID string) (*AdminUser, error) {
	if userID == admin.ID {
		return nil, domainerrors.InvalidState("you cannot demote yourself")
	}
	return s.setRole(ctx, admin, userID, domain.RoleUser, domain.AuditUserDemote)
}

func (s *AdminService) setRole(ctx context.Context, admin *domain.User, userID string, role domain.Role, action domain.AuditAction) (*AdminUser, error) {
	updated, err := s.users.MutateUser(ctx, userID, func(u *domain.User) error {
		u.Role = role
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "user")
	}
	s.record(ctx, admin, action, domain.AuditTargetUser, userID, "", string(role))
	view := adminUser(updated)
	return &view, nil
}

// RecipeListParams filters the admin recipe listing.
type RecipeListParams struct {
	store.PageParams
	Search     string
	Visibility domain.Visibility
	Category   domain.Category
}

// ListRecipes returns one page of recipes of any visibility, newest first.
func (s *AdminService) ListRecipes(ctx context.Context, p RecipeListParams) (*Listing[RecipeCard], error) {
	p.Normalize(adminDefaultLimit, adminMaxLimit)

	recipes, err := s.recipes.ListRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	filter := RecipeFilter{Category: p.Category, Visibility: p.Visibility, Search: p.Search}
	recipes = slices.DeleteFunc(recipes, func(r *domain.Recipe) bool { return !filter.Match(r) })
	sortRecipes(recipes, "")

	page := store.Paginate(recipes, p.PageParams)
	cs, err := cards(ctx, s.users, page.Items)
	if err != nil {
		return nil, err
	}
	return listingOf(store.Page[RecipeCard]{Items: cs, Total: page.Total, Page: page.Page, Limit: page.Limit, Pages: page.Pages}), nil
}

// DeleteRecipe takes a recipe down.
func (s *AdminService) DeleteRecipe(ctx context.Context, admin *domain.User, recipeID, reason string) error {
	r, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return storeErr(err, "recipe")
	}
	if err := deleteRecipe(ctx, s.users, s.recipes, s.logger, r); err != nil {
		return err
	}
	s.record(ctx, admin, domain.AuditRecipeDelete, domain.AuditTargetRecipe, recipeID, reason, r.OwnerID)
	return nil
}

// RecipeVisibilityRequest overrides a recipe's visibility.
type RecipeVisibilityRequest struct {
	Visibility domain.Visibility `json:"visibility"`
	Reason     string            `json:"reason,omitempty"`
}

// SetRecipeVisibility overrides a recipe's visibility. Forcing a recipe
// private clears its share list.
func (s *AdminService) SetRecipeVisibility(ctx context.Context, admin *domain.User, recipeID string, req RecipeVisibilityRequest) (*domain.Recipe, error) {
	if !req.Visibility.IsValid() {
		return nil, domainerrors.InvalidStatef("invalid visibility %q", req.Visibility)
	}
	var previous domain.Visibility
	updated, err := s.recipes.MutateRecipe(ctx, recipeID, true, func(r *domain.Recipe) error {
		previous = r.Visibility
		r.SetVisibility(req.Visibility)
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "recipe")
	}
	s.record(ctx, admin, domain.AuditRecipeVisibility, domain.AuditTargetRecipe, recipeID, req.Reason,
		string(previous)+"->"+string(req.Visibility))
	return updated, nil
}

// AuditParams filters the moderation log.
type AuditParams struct {
	store.PageParams
	ActorID    string
	TargetType domain.AuditTarget
	TargetID   string
}

// Audit returns moderation log entries, newest first.
func (s *AdminService) Audit(ctx context.Context, p AuditParams) (*Listing[*domain.AuditEntry], error) {
	p.Normalize(adminDefaultLimit, adminMaxLimit)
	if s.audit == nil {
		return listingOf(store.Page[*domain.AuditEntry]{Items: []*domain.AuditEntry{}, Page: p.Page, Limit: p.Limit}), nil
	}

	entries, total, err := s.audit.ListActions(ctx, sqlite.AuditFilter{
		ActorID:    p.ActorID,
		TargetType: p.TargetType,
		TargetID:   p.TargetID,
		Limit:      p.Limit,
		Offset:     p.Offset(),
	})
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	if entries == nil {
		entries = []*domain.AuditEntry{}
	}
	return listingOf(store.Page[*domain.AuditEntry]{
		Items: entries,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
		Pages: store.Pages(total, p.Limit),
	}), nil
}

// record writes an audit row. The action has already happened, so a
// failure here is logged and not returned.
func (s *AdminService) record(ctx context.Context, admin *domain.User, action domain.AuditAction, target domain.AuditTarget, targetID, reason, detail string) {
	s.logger.Info("moderation action",
		"admin_id", admin.ID,
		"action", action,
		"target_id", targetID,
		"detail", detail,
	)
	if s.audit == nil {
		return
	}
	entryID, err := id.Generate(id.PrefixAudit)
	if err != nil {
		s.logger.Error("audit entry not recorded", "action", action, "error", err)
		return
	}
	if err := s.audit.RecordAction(ctx, &domain.AuditEntry{
		ID:         entryID,
		ActorID:    admin.ID,
		Action:     action,
		TargetType: target,
		TargetID:   targetID,
		Reason:     strings.TrimSpace(reason),
		Detail:     detail,
		CreatedAt:  time.Now(),
	}); err != nil {
		s.logger.Error("audit entry not recorded", "action", action, "target_id", targetID, "error", err)
	}
}
