// Package registry stores the mapping from job handles to their last
// observed status. All backends bound growth by expiring terminal entries
// after a TTL.
package registry

import (
	"context"
	"time"

	"server/internal/domain"
)

// DefaultTerminalTTL is how long a terminal job record stays readable before
// it becomes eligible for pruning.
const DefaultTerminalTTL = 24 * time.Hour

// Registry is the associative store from handle id to job record.
// Implementations must be safe for concurrent use and must apply the
// terminal-wins rule: once a terminal status is stored for a handle, a
// non-terminal Put for the same handle is discarded.
type Registry interface {
	Put(ctx context.Context, rec domain.JobRecord) error
	// Get returns domain.ErrUnknownJob for handles never stored or already
	// pruned.
	Get(ctx context.Context, handleID string) (domain.JobRecord, error)
	// List returns every stored record; the background worker uses it to
	// advance non-terminal jobs.
	List(ctx context.Context) ([]domain.JobRecord, error)
	// Prune removes expired terminal records and reports how many were
	// dropped.
	Prune(ctx context.Context) (int, error)
}
