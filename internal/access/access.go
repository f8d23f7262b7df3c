// Package access resolves what a requester may do with a recipe.
//
// Resolution is a pure function of the recipe document and the requester's
// identity; it never touches the store.
package access

import (
	"github.com/recipebook/recipebook-server/internal/domain"
)

// Level is the outcome of resolving a requester against a recipe.
type Level string

const (
	LevelOwner      Level = "owner"
	LevelEdit       Level = "edit"
	LevelCopy       Level = "copy"
	LevelView       Level = "view"
	LevelPublicView Level = "public-view"
	LevelDenied     Level = "denied"
)

// Requester identifies the caller. Either field may be empty; an anonymous
// requester has both empty.
type Requester struct {
	ID    string
	Email string
}

// RequesterFor builds a Requester from a user record.
func RequesterFor(u *domain.User) Requester {
	if u == nil {
		return Requester{}
	}
	return Requester{ID: u.ID, Email: u.Email}
}

// Grant is the resolved access of one requester to one recipe.
type Grant struct {
	Level Level
	// Public is true when the recipe was public at resolution time.
	Public bool
}

// CanRead reports whether the recipe may be fetched.
func (g Grant) CanRead() bool {
	return g.Level != LevelDenied && g.Level != ""
}

// CanCopy reports whether the requester may clone the recipe. A view-only
// share blocks copying unless the recipe is public.
func (g Grant) CanCopy() bool {
	switch g.Level {
	case LevelOwner, LevelEdit, LevelCopy, LevelPublicView:
		return true
	case LevelView:
		return g.Public
	}
	return false
}

// CanEdit reports whether recipe content may be modified.
func (g Grant) CanEdit() bool {
	return g.Level == LevelOwner || g.Level == LevelEdit
}

// CanManage reports whether visibility and sharing may be changed.
func (g Grant) CanManage() bool {
	return g.Level == LevelOwner
}

// CanComment reports whether the requester may comment and rate.
func (g Grant) CanComment() bool {
	return g.CanRead()
}

// CanFavorite reports whether the requester may favorite the recipe.
func (g Grant) CanFavorite() bool {
	return g.CanRead()
}

// Resolve returns the requester's grant on r.
//
// Order: ownership, then visibility. On a public recipe every non-owner
// gets LevelPublicView unless an edit share lifts them to LevelEdit; view and
// copy shares grant nothing beyond public access. On a shared recipe the
// matching entry decides (an id match beats an email-only match). Anything
// else is denied.
func Resolve(r *domain.Recipe, req Requester) Grant {
	public := r.Visibility == domain.VisibilityPublic
	if r.IsOwnedBy(req.ID) {
		return Grant{Level: LevelOwner, Public: public}
	}

	switch r.Visibility {
	case domain.VisibilityPublic:
		if entry, ok := MatchShare(r.SharedWith, req); ok && entry.Permission == domain.PermissionEdit {
			return Grant{Level: LevelEdit, Public: true}
		}
		return Grant{Level: LevelPublicView, Public: true}
	case domain.VisibilityShared:
		if entry, ok := MatchShare(r.SharedWith, req); ok {
			return Grant{Level: levelFor(entry.Permission)}
		}
	}
	return Grant{Level: LevelDenied, Public: public}
}

// MatchShare finds the share entry for req. Both keys are compared
// independently, and an entry keyed by the requester's id takes precedence
// over one keyed by their email.
func MatchShare(entries []domain.ShareEntry, req Requester) (domain.ShareEntry, bool) {
	emailIdx := -1
	for i, entry := range entries {
		if entry.Identity.MatchesUser(req.ID) {
			return entry, true
		}
		if emailIdx == -1 && entry.Identity.MatchesEmail(req.Email) {
			emailIdx = i
		}
	}
	if emailIdx >= 0 {
		return entries[emailIdx], true
	}
	return domain.ShareEntry{}, false
}

func levelFor(p domain.Permission) Level {
	switch p {
	case domain.PermissionEdit:
		return LevelEdit
	case domain.PermissionCopy:
		return LevelCopy
	default:
		return LevelView
	}
}
