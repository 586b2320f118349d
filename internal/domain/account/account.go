// Package account holds the locally mirrored view of the remote account.
package account

import (
	"context"
	"time"
)

// State is the last known remote account snapshot. CurrentPoints is decremented
// locally after each successful entry and replaced wholesale on refresh.
type State struct {
	CurrentPoints int        `json:"currentPoints"`
	Username      string     `json:"username,omitempty"`
	SessionValid  bool       `json:"sessionValid"`
	SyncedAt      *time.Time `json:"syncedAt,omitempty"`
}

type Repository interface {
	Read(ctx context.Context) (State, error)
	Write(ctx context.Context, s State) error
}
