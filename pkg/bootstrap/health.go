// pkg/bootstrap/health.go

package bootstrap

import (
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsforge/vaultboot/pkg/bootio"
	"github.com/opsforge/vaultboot/pkg/execute"
)

const (
	probeAttempts = 3
	probeTimeout  = 30 * time.Second
)

// probeRetryDelay is a var so tests can shorten the backoff.
var probeRetryDelay = 2 * time.Second

// VerifyApplianceService confirms the vault systemd unit reports active on
// every discovered host. The first host that fails all attempts aborts the
// whole verification; there is no partial success.
func VerifyApplianceService(rc *bootio.RuntimeContext, run Runner, addrs []string, cfg *Config) error {
	base := []string{
		"-o", "BatchMode=yes",
		"-o", "StrictHostKeyChecking=accept-new",
		"-o", "ConnectTimeout=10",
	}
	if cfg.SSHIdentity != "" {
		base = append(base, "-i", cfg.SSHIdentity)
	}

	for _, addr := range addrs {
		args := append(append([]string(nil), base...),
			cfg.SSHUser+"@"+addr, "systemctl", "is-active", "vault")
		if err := probeVaultService(rc, run, addr, args); err != nil {
			return err
		}
	}
	return nil
}

func probeVaultService(rc *bootio.RuntimeContext, run Runner, addr string, sshArgs []string) error {
	log := otelzap.Ctx(rc.Ctx)

	var lastErr error
	for attempt := 1; attempt <= probeAttempts; attempt++ {
		stdout, err := run(rc.Ctx, execute.Options{
			Command: "ssh",
			Args:    sshArgs,
			Timeout: probeTimeout,
		})
		if err != nil {
			lastErr = cerr.Mark(cerr.Wrapf(err, "probe vault service on %s", addr), ErrServiceUnavailable)
		} else if reported := strings.TrimSpace(stdout); reported == "active" {
			log.Debug("Vault service active", zap.String("address", addr), zap.Int("attempt", attempt))
			return nil
		} else {
			lastErr = cerr.Wrapf(ErrServiceUnavailable,
				"vault service on %s is not active (reported %q)", addr, reported)
		}

		log.Warn("Vault service probe failed",
			zap.String("address", addr),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
		if attempt < probeAttempts {
			time.Sleep(probeRetryDelay)
		}
	}

	if lastErr == nil {
		lastErr = cerr.Wrapf(ErrServiceUnavailable, "vault service on %s did not report as active", addr)
	}
	return lastErr
}
