// pkg/bootstrap/kv.go

package bootstrap

import (
	"encoding/json"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsforge/vaultboot/pkg/bootio"
	"github.com/opsforge/vaultboot/pkg/execute"
)

type mountInfo struct {
	Type    string `json:"type"`
	Options struct {
		Version string `json:"version"`
	} `json:"options"`
}

// EnsureKVEngine converges on a KV v2 mount at the configured path. A
// mount that already exists with a different type or version is
// ErrMountConflict: mutating it could destroy data, so drift is never
// auto-corrected.
func EnsureKVEngine(rc *bootio.RuntimeContext, run Runner, cfg *Config, env map[string]string) error {
	log := otelzap.Ctx(rc.Ctx)

	stdout, err := run(rc.Ctx, execute.Options{
		Command: "vault",
		Args:    []string{"secrets", "list", "-format=json"},
		Env:     env,
	})
	if err != nil {
		return cerr.Wrap(err, "list secrets engines")
	}

	var mounts map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stdout), &mounts); err != nil {
		return cerr.Wrapf(err, "invalid JSON from secrets list")
	}

	mountKey := strings.TrimRight(cfg.KVMountPath, "/") + "/"
	raw, exists := mounts[mountKey]
	if !exists {
		log.Info("Enabling KV v2 secrets engine", zap.String("path", cfg.KVMountPath))
		_, err := run(rc.Ctx, execute.Options{
			Command: "vault",
			Args:    []string{"secrets", "enable", "-path=" + cfg.KVMountPath, "-version=2", "kv"},
			Env:     env,
		})
		if err != nil {
			return cerr.Wrapf(err, "enable KV v2 engine at %s", cfg.KVMountPath)
		}
		return nil
	}

	var existing mountInfo
	if err := json.Unmarshal(raw, &existing); err != nil {
		return cerr.Wrapf(err, "invalid mount entry for %s", mountKey)
	}
	if existing.Type != "kv" {
		return cerr.Wrapf(ErrMountConflict, "mount at %s has type %q", mountKey, existing.Type)
	}
	if existing.Options.Version != "2" {
		return cerr.Wrapf(ErrMountConflict, "mount at %s is KV version %q", mountKey, existing.Options.Version)
	}

	log.Debug("KV v2 engine already mounted", zap.String("path", cfg.KVMountPath))
	return nil
}
