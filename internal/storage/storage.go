package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/wired-engine/pkg/state"
)

// Storage persists world snapshots. Loading a snapshot that does not exist
// returns (nil, nil).
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	SaveSnapshot(ctx context.Context, snap *state.Snapshot) error
	LoadSnapshot(ctx context.Context, id uuid.UUID) (*state.Snapshot, error)
	DeleteSnapshot(ctx context.Context, id uuid.UUID) error
	ListSnapshots(ctx context.Context) ([]uuid.UUID, error)
}
