package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/creatorpulse/creatorpulse/domain"
)

// ScopePublic is the cache scope for unauthenticated lookups. Authed
// lookups use UserScope so a user's credentialed snapshot never serves a
// public request.
const ScopePublic = "public"

// UserScope returns the cache scope for an authenticated user.
func UserScope(userID string) string {
	if userID == "" {
		return ScopePublic
	}
	return "user:" + userID
}

// Key builds the cache key for one platform account in one scope.
func Key(platform, identifier, scope string) string {
	return fmt.Sprintf("%s|%s|%s", platform, identifier, scope)
}

//go:generate mockgen -source=$GOFILE -destination=../mocks/mock_$GOPACKAGE/mock_$GOFILE -package=mock_$GOPACKAGE
type SnapshotStore interface {
	Set(ctx context.Context, key string, snap *domain.PlatformSnapshot, ttl time.Duration) error
	Get(ctx context.Context, key string) (*domain.PlatformSnapshot, bool)
	// Clear drops every cached snapshot. Used by the manual-refresh path.
	Clear(ctx context.Context) error
}
