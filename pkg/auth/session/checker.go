package session

import (
	"context"
	"fmt"
	"strings"

	redisclient "github.com/angelmondragon/packfinderz-settlement/pkg/redis"
)

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type sessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	AccessSessionKey(accessID string) string
}

// Checker verifies access tokens against the refresh sessions the marketplace
// API keeps in Redis, so a logout there also locks the ledger API out.
type Checker struct {
	store sessionStore
}

// NewChecker binds a checker to the shared Redis client.
func NewChecker(client *redisclient.Client) (*Checker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Checker{store: client}, nil
}

// HasSession reports whether the provided access ID still has an active refresh session.
func (c *Checker) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	if _, err := c.store.Get(ctx, c.store.AccessSessionKey(accessID)); err != nil {
		if redisclient.IsMissing(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
