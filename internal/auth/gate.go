// ABOUTME: Moderation gate for mutating catalog commands
// ABOUTME: Pure role predicate plus a guard that sends a single denial reply

package auth

import (
	"context"
	"log/slog"
)

// DenialMessage is the fixed reply sent to callers who fail the gate.
const DenialMessage = "This command is only available to moderators."

// Identity describes the invoking user as resolved for one invocation.
// Resolved is false when the invocation carried no membership context
// (for example, the room state could not be read); an unresolved
// identity never passes the gate.
type Identity struct {
	UserID   string
	Roles    []string
	Resolved bool
}

// Resolved builds an identity with a known role set.
func Resolved(userID string, roles []string) Identity {
	return Identity{UserID: userID, Roles: roles, Resolved: true}
}

// Unresolved builds an identity for an invocation with no membership
// context. It fails the gate closed.
func Unresolved(userID string) Identity {
	return Identity{UserID: userID}
}

// HasRole reports whether the identity holds the given role.
func (id Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsModerator reports whether the identity holds the configured
// moderator role. Unresolved identities are never moderators.
func IsModerator(id Identity, moderatorRole string) bool {
	return id.Resolved && id.HasRole(moderatorRole)
}

// Replier sends a reply visible only to the invoking caller. The guard
// treats the send as fire-and-forget: a failed send is logged, not
// propagated.
type Replier interface {
	ReplyPrivate(ctx context.Context, text string) error
}

// Guard wraps the moderator predicate for command handlers. The
// moderator role is process-wide configuration, fixed at startup.
type Guard struct {
	moderatorRole string
	logger        *slog.Logger
}

// NewGuard creates a guard for the configured moderator role.
func NewGuard(moderatorRole string) *Guard {
	return &Guard{
		moderatorRole: moderatorRole,
		logger:        slog.Default().With("component", "auth"),
	}
}

// Check reports whether id may run a moderator-gated command. On denial
// it sends exactly one caller-only reply through r and returns false so
// the protected operation is skipped entirely. It has no side effects
// on the allow path.
func (g *Guard) Check(ctx context.Context, id Identity, r Replier) bool {
	if IsModerator(id, g.moderatorRole) {
		return true
	}

	g.logger.Info("denied moderator command",
		"user", id.UserID,
		"resolved", id.Resolved,
	)

	if err := r.ReplyPrivate(ctx, DenialMessage); err != nil {
		g.logger.Error("failed to send denial reply", "user", id.UserID, "error", err)
	}
	return false
}
