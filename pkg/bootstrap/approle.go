// pkg/bootstrap/approle.go

package bootstrap

import (
	"encoding/json"
	"os"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsforge/vaultboot/pkg/bootio"
	"github.com/opsforge/vaultboot/pkg/execute"
)

type secretIDResponse struct {
	Data struct {
		SecretID *string `json:"secret_id"`
	} `json:"data"`
}

// EnsureAppRole converges the approle auth method, policy, and role, then
// records the role id and (conditionally) a secret id into state. Every
// step is idempotent; the secret id is only rotated when RotateSecretID is
// set or no secret is recorded yet, so a re-run never silently invalidates
// a previously issued credential.
func EnsureAppRole(rc *bootio.RuntimeContext, run Runner, cfg *Config, env map[string]string, state *State) error {
	log := otelzap.Ctx(rc.Ctx)

	if err := ensureAppRoleAuthEnabled(rc, run, env); err != nil {
		return err
	}
	if err := writeAppRolePolicy(rc, run, cfg, env); err != nil {
		return err
	}
	if err := configureAppRole(rc, run, cfg, env); err != nil {
		return err
	}

	roleID, err := fetchRoleID(rc, run, cfg, env)
	if err != nil {
		return err
	}
	state.AppRoleRoleID = roleID

	if cfg.RotateSecretID || !state.HasSecretID() {
		secretID, err := generateSecretID(rc, run, cfg, env)
		if err != nil {
			return err
		}
		state.AppRoleSecretID = &secretID
		log.Info("AppRole secret id issued", zap.String("role", cfg.AppRoleName))
	} else {
		log.Debug("Retaining existing AppRole secret id", zap.String("role", cfg.AppRoleName))
	}
	return nil
}

func ensureAppRoleAuthEnabled(rc *bootio.RuntimeContext, run Runner, env map[string]string) error {
	stdout, err := run(rc.Ctx, execute.Options{
		Command: "vault",
		Args:    []string{"auth", "list", "-format=json"},
		Env:     env,
	})
	if err != nil {
		return cerr.Wrap(err, "list auth methods")
	}

	var methods map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stdout), &methods); err != nil {
		return cerr.Wrapf(err, "invalid JSON from auth list")
	}
	if _, enabled := methods["approle/"]; enabled {
		return nil
	}

	otelzap.Ctx(rc.Ctx).Info("Enabling approle auth method")
	_, err = run(rc.Ctx, execute.Options{
		Command: "vault",
		Args:    []string{"auth", "enable", "approle"},
		Env:     env,
	})
	if err != nil {
		return cerr.Wrap(err, "enable approle auth method")
	}
	return nil
}

func writeAppRolePolicy(rc *bootio.RuntimeContext, run Runner, cfg *Config, env map[string]string) error {
	policy, err := policyDocument(cfg)
	if err != nil {
		return err
	}

	_, err = run(rc.Ctx, execute.Options{
		Command: "vault",
		Args:    []string{"policy", "write", cfg.PolicyName, "-"},
		Env:     env,
		Stdin:   policy,
	})
	if err != nil {
		return cerr.Wrapf(err, "write policy %s", cfg.PolicyName)
	}
	return nil
}

func policyDocument(cfg *Config) (string, error) {
	if cfg.PolicyFile != "" {
		raw, err := os.ReadFile(cfg.PolicyFile)
		if err != nil {
			return "", cerr.Wrapf(err, "read policy file %s", cfg.PolicyFile)
		}
		return string(raw), nil
	}
	return defaultPolicy(cfg), nil
}

// defaultPolicy scopes the role to read/write under the KV mount's data
// path and read/list/delete under its metadata path.
func defaultPolicy(cfg *Config) string {
	mount := strings.TrimRight(cfg.KVMountPath, "/")
	return strings.Join([]string{
		`path "` + mount + `/data/*" {`,
		`  capabilities = ["create", "read", "update", "list"]`,
		`}`,
		``,
		`path "` + mount + `/metadata/*" {`,
		`  capabilities = ["read", "list", "delete"]`,
		`}`,
		``,
	}, "\n") + "\n"
}

func configureAppRole(rc *bootio.RuntimeContext, run Runner, cfg *Config, env map[string]string) error {
	_, err := run(rc.Ctx, execute.Options{
		Command: "vault",
		Args: []string{
			"write", "auth/approle/role/" + cfg.AppRoleName,
			"token_policies=" + cfg.PolicyName,
			"secret_id_ttl=" + cfg.SecretIDTTL,
			"token_ttl=" + cfg.TokenTTL,
			"token_max_ttl=" + cfg.TokenMaxTTL,
			"token_num_uses=0",
		},
		Env: env,
	})
	if err != nil {
		return cerr.Wrapf(err, "configure approle %s", cfg.AppRoleName)
	}
	return nil
}

func fetchRoleID(rc *bootio.RuntimeContext, run Runner, cfg *Config, env map[string]string) (*string, error) {
	stdout, err := run(rc.Ctx, execute.Options{
		Command: "vault",
		Args:    []string{"read", "-field=role_id", "auth/approle/role/" + cfg.AppRoleName + "/role-id"},
		Env:     env,
	})
	if err != nil {
		return nil, cerr.Wrapf(err, "read role id for %s", cfg.AppRoleName)
	}
	roleID := strings.TrimSpace(stdout)
	if roleID == "" {
		return nil, nil
	}
	return &roleID, nil
}

func generateSecretID(rc *bootio.RuntimeContext, run Runner, cfg *Config, env map[string]string) (string, error) {
	stdout, err := run(rc.Ctx, execute.Options{
		Command: "vault",
		Args:    []string{"write", "-force", "-format=json", "auth/approle/role/" + cfg.AppRoleName + "/secret-id"},
		Env:     env,
	})
	if err != nil {
		return "", cerr.Wrapf(err, "generate secret id for %s", cfg.AppRoleName)
	}

	var resp secretIDResponse
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		return "", cerr.Wrapf(ErrIdentityProvisioning, "invalid JSON from secret-id write: %v", err)
	}
	if resp.Data.SecretID == nil || *resp.Data.SecretID == "" {
		return "", cerr.Wrap(ErrIdentityProvisioning, "secret-id response carried no secret_id")
	}
	return *resp.Data.SecretID, nil
}
