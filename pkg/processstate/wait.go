package processstate

import (
	"context"
	"time"
)

const pollInterval = 50 * time.Millisecond

// WaitForExit polls until pid is gone or ctx ends. It is meant for
// processes this program did not spawn and therefore cannot Wait on.
func WaitForExit(ctx context.Context, pid int) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		running, err := IsProcessRunning(pid)
		if err == nil && !running {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
