// pkg/bootstrap/initunseal.go

package bootstrap

import (
	"encoding/json"
	"strconv"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsforge/vaultboot/pkg/bootio"
	"github.com/opsforge/vaultboot/pkg/execute"
)

type initResponse struct {
	UnsealKeysB64 []string `json:"unseal_keys_b64"`
	RootToken     *string  `json:"root_token"`
}

type unsealResponse struct {
	Sealed *bool `json:"sealed"`
}

// Initialize performs the one-time threshold key generation and returns a
// fresh State carrying the issued shares and root token. The caller must
// persist that state before doing anything else: the appliance never
// re-exposes this material.
func Initialize(rc *bootio.RuntimeContext, run Runner, cfg *Config, env map[string]string) (*State, error) {
	log := otelzap.Ctx(rc.Ctx)
	log.Info("Initializing vault",
		zap.Int("key_shares", cfg.KeyShares),
		zap.Int("key_threshold", cfg.KeyThreshold))

	stdout, err := run(rc.Ctx, execute.Options{
		Command: "vault",
		Args: []string{
			"operator", "init",
			"-key-shares", strconv.Itoa(cfg.KeyShares),
			"-key-threshold", strconv.Itoa(cfg.KeyThreshold),
			"-format=json",
		},
		Env: env,
	})
	if err != nil {
		return nil, cerr.Wrap(err, "vault operator init")
	}

	var resp initResponse
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		return nil, cerr.Wrapf(ErrInitializationIncomplete, "invalid JSON from operator init: %v", err)
	}
	if len(resp.UnsealKeysB64) == 0 || resp.RootToken == nil || *resp.RootToken == "" {
		return nil, cerr.Wrap(ErrInitializationIncomplete,
			"operator init did not return unseal keys and a root token")
	}

	state := &State{}
	state.SetFromInit(resp.UnsealKeysB64, *resp.RootToken)
	log.Info("Vault initialized", zap.Int("unseal_keys", len(state.UnsealKeys)))
	return state, nil
}

// Unseal applies the recorded key shares one at a time until the appliance
// reports unsealed. Applying every share without success is
// ErrUnsealExhausted: either the threshold is misconfigured or the stored
// material no longer matches the appliance.
func Unseal(rc *bootio.RuntimeContext, run Runner, env map[string]string, state *State) error {
	log := otelzap.Ctx(rc.Ctx)
	if len(state.UnsealKeys) == 0 {
		return cerr.Wrap(ErrMissingUnsealMaterial, "cannot unseal vault")
	}

	for i, key := range state.UnsealKeys {
		stdout, err := run(rc.Ctx, execute.Options{
			Command: "vault",
			Args:    []string{"operator", "unseal", "-format=json", key},
			Env:     env,
		})
		if err != nil {
			return cerr.Wrapf(err, "apply unseal key share %d", i+1)
		}

		var resp unsealResponse
		if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
			return cerr.Wrapf(ErrStatusUnreadable, "invalid JSON from operator unseal: %v", err)
		}
		if resp.Sealed != nil && !*resp.Sealed {
			log.Info("Vault unsealed", zap.Int("shares_applied", i+1))
			return nil
		}
	}
	return cerr.Wrapf(ErrUnsealExhausted, "applied %d key shares", len(state.UnsealKeys))
}
