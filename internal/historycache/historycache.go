// Package historycache stores and retrieves each tool's prior fingerprint
// so the Test Pruner's incremental analysis (§4.5) can compare a tool's
// current schema hash against the last time it was tested without
// depending on the full baseline this run is still building.
package historycache

import (
	"context"
	"fmt"

	"github.com/dotsetlabs/bellwether/internal/pruner"
)

// Store is the narrow persistence seam the incremental analyzer needs:
// look up a tool's prior fingerprint by name, and record a new one after
// the run. Keyed by tool name; the schema hash itself is part of the
// stored value so a caller can tell whether the schema changed since.
type Store interface {
	Get(ctx context.Context, toolName string) (pruner.PriorFingerprint, bool, error)
	Put(ctx context.Context, toolName string, fp pruner.PriorFingerprint) error
}

// key namespaces entries so the cache can share a Redis keyspace with
// other Bellwether state without colliding.
func key(toolName string) string {
	return fmt.Sprintf("bellwether:history:%s", toolName)
}
