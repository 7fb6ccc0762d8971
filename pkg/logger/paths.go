/* pkg/logger/paths.go */

package logger

import (
	"os"
	"path/filepath"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/shared"
)

// PlatformLogPaths returns candidate log paths in order of priority.
func PlatformLogPaths() []string {
	paths := []string{shared.OperatorLogs}
	if state := os.Getenv("XDG_STATE_HOME"); state != "" {
		paths = append(paths, filepath.Join(state, shared.OperatorID, "operator.log"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".local", "state", shared.OperatorID, "operator.log"))
	}
	return append(paths,
		shared.OperatorLogsPWD,
		filepath.Join(os.TempDir(), shared.OperatorID, "operator.log"),
	)
}
