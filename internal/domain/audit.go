package domain

import "time"

// AuditAction names a moderation action taken by an admin.
type AuditAction string

const (
	AuditUserStatus       AuditAction = "user.status"
	AuditUserPromote      AuditAction = "user.promote"
	AuditUserDemote       AuditAction = "user.demote"
	AuditRecipeDelete     AuditAction = "recipe.delete"
	AuditRecipeVisibility AuditAction = "recipe.visibility"
)

// AuditTarget is the kind of entity an action applied to.
type AuditTarget string

const (
	AuditTargetUser   AuditTarget = "user"
	AuditTargetRecipe AuditTarget = "recipe"
)

// AuditEntry is one row of the moderation log.
type AuditEntry struct {
	ID         string      `json:"id"`
	ActorID    string      `json:"actor_id"`
	Action     AuditAction `json:"action"`
	TargetType AuditTarget `json:"target_type"`
	TargetID   string      `json:"target_id"`
	Reason     string      `json:"reason,omitempty"`
	// Detail is a short machine-readable note, e.g. "active->suspended".
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
