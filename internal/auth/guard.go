package auth

import "tubeflow/internal/apierr"

// Action names a mutation the guard can authorize.
type Action string

const (
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
)

// Authorize compares the acting identity to the stored owning identity by
// value and rejects mismatches. Every mutating operation on comments,
// tweets, playlists, and videos goes through this check.
func Authorize(actorID, ownerID string, action Action) error {
	if actorID == "" {
		return apierr.Auth("authentication required")
	}
	if actorID != ownerID {
		return apierr.Forbidden("you do not have permission to %s this resource", action)
	}
	return nil
}
