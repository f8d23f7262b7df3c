package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Permission is the tier granted by a share entry.
type Permission string

const (
	// PermissionView allows reading the recipe.
	PermissionView Permission = "view"
	// PermissionCopy allows reading and cloning the recipe.
	PermissionCopy Permission = "copy"
	// PermissionEdit allows reading, cloning and modifying content.
	PermissionEdit Permission = "edit"
)

// IsValid reports whether p is a known permission tier.
func (p Permission) IsValid() bool {
	switch p {
	case PermissionView, PermissionCopy, PermissionEdit:
		return true
	}
	return false
}

// identityKind discriminates ShareIdentity variants.
type identityKind uint8

const (
	kindNone identityKind = iota
	kindRegistered
	kindUnregistered
)

// ShareIdentity names the recipient of a share entry. It is either a
// registered user (by id) or an unregistered address (by email), never both.
// The zero value is invalid.
type ShareIdentity struct {
	kind  identityKind
	value string
}

// Registered returns the identity of a known user.
func Registered(userID string) ShareIdentity {
	return ShareIdentity{kind: kindRegistered, value: userID}
}

// Unregistered returns the identity of an address with no account yet.
// The email is normalized to lower case.
func Unregistered(email string) ShareIdentity {
	return ShareIdentity{kind: kindUnregistered, value: NormalizeEmail(email)}
}

// IsValid reports whether the identity holds a variant.
func (i ShareIdentity) IsValid() bool {
	return i.kind != kindNone && i.value != ""
}

// UserID returns the user id of a Registered identity.
func (i ShareIdentity) UserID() (string, bool) {
	if i.kind != kindRegistered {
		return "", false
	}
	return i.value, true
}

// Email returns the address of an Unregistered identity.
func (i ShareIdentity) Email() (string, bool) {
	if i.kind != kindUnregistered {
		return "", false
	}
	return i.value, true
}

// MatchesUser reports whether the identity is Registered(userID).
func (i ShareIdentity) MatchesUser(userID string) bool {
	return userID != "" && i.kind == kindRegistered && i.value == userID
}

// MatchesEmail reports whether the identity is Unregistered(email).
func (i ShareIdentity) MatchesEmail(email string) bool {
	return email != "" && i.kind == kindUnregistered && i.value == NormalizeEmail(email)
}

// String returns a diagnostic form such as "user:usr-1" or "email:a@b.c".
func (i ShareIdentity) String() string {
	switch i.kind {
	case kindRegistered:
		return "user:" + i.value
	case kindUnregistered:
		return "email:" + i.value
	}
	return "invalid"
}

type shareIdentityJSON struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
}

// MarshalJSON encodes exactly one of user_id or email.
func (i ShareIdentity) MarshalJSON() ([]byte, error) {
	var out shareIdentityJSON
	switch i.kind {
	case kindRegistered:
		out.UserID = i.value
	case kindUnregistered:
		out.Email = i.value
	default:
		return nil, errors.New("share identity is empty")
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an identity and rejects objects carrying both or
// neither field.
func (i *ShareIdentity) UnmarshalJSON(data []byte) error {
	var in shareIdentityJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch {
	case in.UserID != "" && in.Email != "":
		return errors.New("share identity has both user_id and email")
	case in.UserID != "":
		*i = Registered(in.UserID)
	case in.Email != "":
		*i = Unregistered(in.Email)
	default:
		return errors.New("share identity has neither user_id nor email")
	}
	return nil
}

// ShareEntry grants one identity a permission tier on a recipe.
type ShareEntry struct {
	Identity   ShareIdentity `json:"identity"`
	Permission Permission    `json:"permission"`
	SharedAt   time.Time     `json:"shared_at"`
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
