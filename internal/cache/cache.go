// Package cache stores serialized dashboard sections with a time to live.
package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Default lifetimes for the dashboard keys
const (
	DefaultDashboardTTL      = 15 * time.Minute
	DefaultActivityTTL       = 60 * time.Minute
	DefaultCompletionRateTTL = 6 * time.Hour
)

// DefaultPrefix namespaces taskboard keys in a shared Redis
const DefaultPrefix = "taskboard:"

// Store is a byte-valued key/value store with expiry. Get reports a miss with
// found == false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// DashboardKey is the key of an owner's assembled dashboard
func DashboardKey(ownerID uuid.UUID) string {
	return "dashboard_" + ownerID.String()
}

// RecentActivityKey is the key of an owner's activity feed
func RecentActivityKey(ownerID uuid.UUID) string {
	return "recent_activity_" + ownerID.String()
}

// CompletionRateKey is the key of an owner's completion trend
func CompletionRateKey(ownerID uuid.UUID) string {
	return "completion_rate_" + ownerID.String()
}

// OwnerKeys returns every key held for an owner
func OwnerKeys(ownerID uuid.UUID) []string {
	return []string{
		DashboardKey(ownerID),
		RecentActivityKey(ownerID),
		CompletionRateKey(ownerID),
	}
}
