// Package identity resolves user subscription tiers and personal context
// from the account system. The dispatcher only sees the interfaces; the
// app wires real implementations backed by its user store.
package identity

import (
	"context"

	"github.com/focusloop/aidispatch/pkg/types"
)

// TierService resolves a user's subscription tier.
type TierService interface {
	Tier(ctx context.Context, userID string) (types.Tier, error)
}

// ContextService loads the user's goals, tasks and notes for prompt
// assembly. Implementations may return an empty context.
type ContextService interface {
	Context(ctx context.Context, userID string) (*types.UserContext, error)
}

// StaticTiers is a fixed tier map. Unknown users resolve to the free
// tier.
type StaticTiers map[string]types.Tier

// Tier implements TierService.
func (s StaticTiers) Tier(_ context.Context, userID string) (types.Tier, error) {
	if t, ok := s[userID]; ok {
		return t, nil
	}
	return types.TierFree, nil
}

// EmptyContext is a ContextService that returns no personal context.
type EmptyContext struct{}

// Context implements ContextService.
func (EmptyContext) Context(context.Context, string) (*types.UserContext, error) {
	return &types.UserContext{}, nil
}
