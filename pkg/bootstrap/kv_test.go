package bootstrap

import (
	"testing"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsforge/vaultboot/pkg/execute"
)

func TestEnsureKVEngine_EnablesWhenAbsent(t *testing.T) {
	cfg := testConfig(t)

	runner := newScriptedRunner(func(opts execute.Options) (string, error) {
		if hasArgPrefix(opts.Args, []string{"secrets", "list"}) {
			return `{"sys/": {"type": "system", "options": null}}`, nil
		}
		return "", nil
	})

	require.NoError(t, EnsureKVEngine(testRC(t), runner.Run, cfg, nil))
	require.Equal(t, 1, runner.count("vault", "secrets", "enable"))
	assert.Equal(t,
		[]string{"secrets", "enable", "-path=secret", "-version=2", "kv"},
		runner.calls[1].Args)
}

func TestEnsureKVEngine_ExistingKV2IsConverged(t *testing.T) {
	cfg := testConfig(t)

	runner := newScriptedRunner(func(opts execute.Options) (string, error) {
		return `{"secret/": {"type": "kv", "options": {"version": "2"}}}`, nil
	})

	require.NoError(t, EnsureKVEngine(testRC(t), runner.Run, cfg, nil))
	assert.Zero(t, runner.count("vault", "secrets", "enable"))
}

func TestEnsureKVEngine_WrongTypeIsConflict(t *testing.T) {
	cfg := testConfig(t)

	runner := newScriptedRunner(func(opts execute.Options) (string, error) {
		return `{"secret/": {"type": "generic", "options": {"version": "2"}}}`, nil
	})

	err := EnsureKVEngine(testRC(t), runner.Run, cfg, nil)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, ErrMountConflict))
	assert.Zero(t, runner.count("vault", "secrets", "enable"))
}

func TestEnsureKVEngine_WrongVersionIsConflict(t *testing.T) {
	cfg := testConfig(t)

	runner := newScriptedRunner(func(opts execute.Options) (string, error) {
		return `{"secret/": {"type": "kv", "options": {"version": "1"}}}`, nil
	})

	err := EnsureKVEngine(testRC(t), runner.Run, cfg, nil)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, ErrMountConflict))
}

func TestEnsureKVEngine_TrailingSlashNormalized(t *testing.T) {
	cfg := testConfig(t)
	cfg.KVMountPath = "apps/"

	runner := newScriptedRunner(func(opts execute.Options) (string, error) {
		return `{"apps/": {"type": "kv", "options": {"version": "2"}}}`, nil
	})

	require.NoError(t, EnsureKVEngine(testRC(t), runner.Run, cfg, nil))
	assert.Zero(t, runner.count("vault", "secrets", "enable"))
}
