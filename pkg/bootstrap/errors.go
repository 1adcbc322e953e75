// pkg/bootstrap/errors.go

package bootstrap

import (
	cerr "github.com/cockroachdb/errors"
)

// Failure taxonomy for the bootstrap run. Phases wrap or mark these
// sentinels so callers can classify with errors.Is; command-level failures
// surface as *execute.CommandError instead.
var (
	// ErrStateCorrupt: the persisted state file exists but failed schema
	// validation. Requires operator inspection, never auto-repaired.
	ErrStateCorrupt = cerr.New("bootstrap state failed schema validation")

	// ErrNoHostsFound: the compute provider returned no public addresses
	// for the configured tag.
	ErrNoHostsFound = cerr.New("no appliance hosts found")

	// ErrServiceUnavailable: the vault service did not report active on a
	// discovered host within the bounded probe attempts.
	ErrServiceUnavailable = cerr.New("vault service unavailable")

	// ErrStatusUnreadable: the status endpoint answered but its payload
	// could not be decoded into {initialized, sealed}.
	ErrStatusUnreadable = cerr.New("vault status unreadable")

	// ErrInitializationIncomplete: operator init did not yield both key
	// shares and a root token.
	ErrInitializationIncomplete = cerr.New("vault initialization incomplete")

	// ErrMissingUnsealMaterial: vault is sealed but the state file records
	// no key shares. Not retryable; requires manual recovery.
	ErrMissingUnsealMaterial = cerr.New("no unseal keys recorded in state")

	// ErrUnsealExhausted: every stored share was applied and vault still
	// reports sealed. Indicates a misconfigured threshold or corrupted
	// material; not retryable.
	ErrUnsealExhausted = cerr.New("vault remains sealed after applying all key shares")

	// ErrPostUnsealStillSealed: a successful unseal pass was followed by a
	// status query that still reports sealed. Not retryable.
	ErrPostUnsealStillSealed = cerr.New("vault remains sealed after unseal attempts")

	// ErrMountConflict: a mount already exists at the configured path with
	// the wrong engine type or version. Never auto-corrected.
	ErrMountConflict = cerr.New("existing mount conflicts with expected KV v2 engine")

	// ErrIdentityProvisioning: approle provisioning reached vault but the
	// response lacked the expected credential material.
	ErrIdentityProvisioning = cerr.New("approle provisioning failed")
)
