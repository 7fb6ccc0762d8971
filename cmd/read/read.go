// cmd/read/read.go

package read

import (
	"github.com/spf13/cobra"
)

// ReadCmd groups read-only inspection commands.
var ReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Read operator and snap state",
}

func init() {
	ReadCmd.AddCommand(readStatusCmd)
}
