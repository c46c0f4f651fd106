package auth

import (
	"testing"

	"tubeflow/internal/apierr"
)

func TestAuthorizeOwnerSucceeds(t *testing.T) {
	if err := Authorize("u1", "u1", ActionUpdate); err != nil {
		t.Fatalf("Authorize owner: %v", err)
	}
}

func TestAuthorizeRejectsNonOwner(t *testing.T) {
	err := Authorize("u2", "u1", ActionDelete)
	if !apierr.IsKind(err, apierr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAuthorizeRejectsMissingActor(t *testing.T) {
	err := Authorize("", "u1", ActionUpdate)
	if !apierr.IsKind(err, apierr.KindAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
}
