package nfs

import (
	"context"

	"github.com/driftfs/driftfs/pkg/vfs"
)

// handleNull does nothing. Clients use it to probe connectivity.
// RFC 1813 Section 3.3.0
func handleNull(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	return []byte{}, nil
}
