// Package actor identifies the user or system performing stock-affecting
// actions, for audit trail attribution.
package actor

import (
	"context"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// SystemID is the sentinel user id recorded for system-initiated changes
// (allocations triggered by the order subsystem, scheduled scans).
const SystemID int64 = 0

// Actor represents the entity performing an action in the system.
type Actor struct {
	// ID is the unique identifier of the actor (user ID); 0 means system
	ID int64 `json:"id"`

	// Name is the actor's display name
	Name string `json:"name"`
}

// System returns the system actor used for non-interactive operations.
func System() *Actor {
	return &Actor{ID: SystemID, Name: "system"}
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil || a.ID == SystemID {
		return "system"
	}
	return fmt.Sprintf("%s (%d)", a.Name, a.ID)
}

// claims are the token claims the engine cares about. Token issuance and
// session handling live in the external auth collaborator.
type claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// FromToken validates a bearer token with the shared secret and extracts
// the actor identity from its claims.
func FromToken(tokenString, secret string) (*Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}

	return &Actor{ID: id, Name: c.Name}, nil
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// WithActor returns a context carrying the given actor.
func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, a)
}

// FromContext retrieves the Actor from the context.
// Returns the system actor if none is present.
func FromContext(ctx context.Context) *Actor {
	if a, ok := ctx.Value(actorContextKey).(*Actor); ok && a != nil {
		return a
	}
	return System()
}
