// pkg/shared/vars.go

package shared

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Version is overridden at build time with -ldflags "-X ...shared.Version=".
var Version = "dev"

var syncedAlready atomic.Bool

// SafeSync flushes the global logger once per process.
func SafeSync() {
	if syncedAlready.Swap(true) {
		return
	}
	_ = zap.L().Sync()
}
