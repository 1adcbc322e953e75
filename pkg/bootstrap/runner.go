// pkg/bootstrap/runner.go

package bootstrap

import (
	"context"

	"github.com/opsforge/vaultboot/pkg/execute"
)

// Runner executes one external command and returns its captured stdout.
// Every phase takes its Runner explicitly so tests can script the external
// world (doctl, ssh, vault) without spawning processes.
type Runner func(ctx context.Context, opts execute.Options) (string, error)

// DefaultRunner spawns real processes via the command executor.
func DefaultRunner() Runner {
	return execute.Run
}
