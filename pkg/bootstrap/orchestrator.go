// pkg/bootstrap/orchestrator.go

package bootstrap

import (
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsforge/vaultboot/pkg/bootio"
)

// Bootstrap runs the full convergence sequence against one appliance:
//
//	discover -> verify -> read state -> (init)? -> (unseal)? ->
//	converge KV engine -> provision approle -> done
//
// Safe to re-run indefinitely. State is persisted immediately after
// initialization and again after identity provisioning, so each
// state-changing phase's output survives a crash in a later phase.
func Bootstrap(rc *bootio.RuntimeContext, run Runner, cfg *Config) (*State, error) {
	log := otelzap.Ctx(rc.Ctx)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	addrs, err := CollectApplianceAddrs(rc, run, cfg.DropletTag)
	if err != nil {
		return nil, err
	}
	if err := VerifyApplianceService(rc, run, addrs, cfg); err != nil {
		return nil, err
	}

	state, err := LoadState(cfg.StateFile)
	if err != nil {
		return nil, err
	}

	env := BuildVaultEnv(cfg, "")
	status, err := FetchStatus(rc, run, env)
	if err != nil {
		return nil, err
	}

	if !status.Initialized {
		state, err = Initialize(rc, run, cfg, env)
		if err != nil {
			return nil, err
		}
		// Persist before anything else: the shares and root token are
		// issued exactly once and cannot be re-fetched.
		if err := SaveState(cfg.StateFile, state); err != nil {
			return nil, err
		}
		if status, err = FetchStatus(rc, run, env); err != nil {
			return nil, err
		}
	}

	if status.Sealed {
		if len(state.UnsealKeys) == 0 {
			return nil, cerr.Wrap(ErrMissingUnsealMaterial,
				"vault is sealed but the state file records no unseal keys")
		}
		if err := Unseal(rc, run, env, state); err != nil {
			return nil, err
		}
		if status, err = FetchStatus(rc, run, env); err != nil {
			return nil, err
		}
		if status.Sealed {
			return nil, cerr.Wrap(ErrPostUnsealStillSealed, "giving up")
		}
	}

	if !state.HasRootToken() {
		return nil, cerr.New("missing root token in state; cannot continue")
	}

	tokenEnv := BuildVaultEnv(cfg, *state.RootToken)
	if err := EnsureKVEngine(rc, run, cfg, tokenEnv); err != nil {
		return nil, err
	}
	if err := EnsureAppRole(rc, run, cfg, tokenEnv, state); err != nil {
		return nil, err
	}
	if err := SaveState(cfg.StateFile, state); err != nil {
		return nil, err
	}

	log.Info("Bootstrap complete",
		zap.String("vault_addr", cfg.VaultAddr),
		zap.Int("hosts", len(addrs)),
		zap.Bool("role_id_recorded", state.AppRoleRoleID != nil))
	return state, nil
}
