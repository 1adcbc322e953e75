// pkg/bootcli/wrap.go

package bootcli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/opsforge/vaultboot/pkg/bootio"
)

// Wrap adapts a RuntimeContext-aware handler into a cobra RunE, adding
// panic recovery and the context lifecycle (span + outcome logging).
func Wrap(fn func(rc *bootio.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		rc := bootio.NewContext(context.Background(), cmd.Name())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		return fn(rc, cmd, args)
	}
}
