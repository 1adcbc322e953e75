// pkg/bootstrap/status.go

package bootstrap

import (
	"encoding/json"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsforge/vaultboot/pkg/bootio"
	"github.com/opsforge/vaultboot/pkg/execute"
)

// Status is the appliance's answer to a control-API status query.
type Status struct {
	Initialized bool
	Sealed      bool
}

// statusResponse decodes fail-closed: both fields must be present.
type statusResponse struct {
	Initialized *bool `json:"initialized"`
	Sealed      *bool `json:"sealed"`
}

// FetchStatus queries `vault status` under the supplied environment. The
// vault CLI exits 2 when the server is sealed; that is a valid response
// carrying a status payload, not a command failure.
func FetchStatus(rc *bootio.RuntimeContext, run Runner, env map[string]string) (Status, error) {
	stdout, err := run(rc.Ctx, execute.Options{
		Command: "vault",
		Args:    []string{"status", "-format=json"},
		Env:     env,
	})
	if err != nil && !sealedExitStatus(err) {
		return Status{}, cerr.Wrap(err, "query vault status")
	}

	var resp statusResponse
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		return Status{}, cerr.Wrapf(ErrStatusUnreadable, "invalid JSON from vault status: %v", err)
	}
	if resp.Initialized == nil || resp.Sealed == nil {
		return Status{}, cerr.Wrap(ErrStatusUnreadable, "vault status payload missing initialized/sealed fields")
	}

	status := Status{Initialized: *resp.Initialized, Sealed: *resp.Sealed}
	otelzap.Ctx(rc.Ctx).Debug("Vault status",
		zap.Bool("initialized", status.Initialized),
		zap.Bool("sealed", status.Sealed))
	return status, nil
}

// sealedExitStatus reports whether err is the vault CLI's "sealed" exit
// code (2), as opposed to a real failure.
func sealedExitStatus(err error) bool {
	var cmdErr *execute.CommandError
	return cerr.As(err, &cmdErr) && cmdErr.Reason == execute.ReasonExit && cmdErr.ExitCode == 2
}
