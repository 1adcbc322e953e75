package bootstrap

import (
	"context"
	"testing"

	"github.com/opsforge/vaultboot/pkg/bootio"
	"github.com/opsforge/vaultboot/pkg/execute"
)

// scriptedRunner records every invocation and delegates to a handler, so
// tests can script the external world (doctl, ssh, vault) without
// spawning processes.
type scriptedRunner struct {
	calls   []execute.Options
	handler func(opts execute.Options) (string, error)
}

func newScriptedRunner(handler func(opts execute.Options) (string, error)) *scriptedRunner {
	return &scriptedRunner{handler: handler}
}

func (r *scriptedRunner) Run(ctx context.Context, opts execute.Options) (string, error) {
	r.calls = append(r.calls, opts)
	return r.handler(opts)
}

// count returns how many recorded calls ran command with the given
// argument prefix.
func (r *scriptedRunner) count(command string, prefix ...string) int {
	n := 0
	for _, c := range r.calls {
		if c.Command == command && hasArgPrefix(c.Args, prefix) {
			n++
		}
	}
	return n
}

func hasArgPrefix(args, prefix []string) bool {
	if len(args) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if args[i] != p {
			return false
		}
	}
	return true
}

func testRC(t *testing.T) *bootio.RuntimeContext {
	t.Helper()
	return bootio.NewContext(context.Background(), t.Name())
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.VaultAddr = "https://vault.example.com:8200"
	cfg.DropletTag = "vault-appliance"
	cfg.StateFile = t.TempDir() + "/state.json"
	return cfg
}
