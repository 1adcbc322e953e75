package bootstrap

import (
	"fmt"
	"testing"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsforge/vaultboot/pkg/execute"
)

func TestInitialize_CapturesKeysAndRootToken(t *testing.T) {
	cfg := testConfig(t)

	runner := newScriptedRunner(func(opts execute.Options) (string, error) {
		return `{"unseal_keys_b64": ["k1", "k2", "k3", "k4", "k5"], "root_token": "root"}`, nil
	})

	state, err := Initialize(testRC(t), runner.Run, cfg, BuildVaultEnv(cfg, ""))
	require.NoError(t, err)
	assert.Len(t, state.UnsealKeys, 5)
	assert.Equal(t, "root", *state.RootToken)

	require.Len(t, runner.calls, 1)
	assert.Equal(t,
		[]string{"operator", "init", "-key-shares", "5", "-key-threshold", "3", "-format=json"},
		runner.calls[0].Args)
}

func TestInitialize_MissingRootTokenIsIncomplete(t *testing.T) {
	cfg := testConfig(t)
	runner := newScriptedRunner(func(opts execute.Options) (string, error) {
		return `{"unseal_keys_b64": ["k1"]}`, nil
	})

	_, err := Initialize(testRC(t), runner.Run, cfg, nil)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, ErrInitializationIncomplete))
}

func TestInitialize_EmptyKeyListIsIncomplete(t *testing.T) {
	cfg := testConfig(t)
	runner := newScriptedRunner(func(opts execute.Options) (string, error) {
		return `{"unseal_keys_b64": [], "root_token": "root"}`, nil
	})

	_, err := Initialize(testRC(t), runner.Run, cfg, nil)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, ErrInitializationIncomplete))
}

// With a threshold of 3, the engine must stop after the third share and
// never touch the fourth.
func TestUnseal_StopsAtThreshold(t *testing.T) {
	state := &State{UnsealKeys: []string{"k1", "k2", "k3", "k4", "k5"}}

	applied := 0
	runner := newScriptedRunner(func(opts execute.Options) (string, error) {
		applied++
		return fmt.Sprintf(`{"sealed": %t}`, applied < 3), nil
	})

	require.NoError(t, Unseal(testRC(t), runner.Run, nil, state))
	assert.Equal(t, 3, applied)
	assert.Equal(t, "k3", runner.calls[2].Args[3])
}

func TestUnseal_ExhaustedSharesIsFatal(t *testing.T) {
	state := &State{UnsealKeys: []string{"k1", "k2"}}

	runner := newScriptedRunner(func(opts execute.Options) (string, error) {
		return `{"sealed": true}`, nil
	})

	err := Unseal(testRC(t), runner.Run, nil, state)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, ErrUnsealExhausted))
	assert.Len(t, runner.calls, 2)
}

func TestUnseal_NoRecordedKeys(t *testing.T) {
	runner := newScriptedRunner(func(opts execute.Options) (string, error) {
		t.Fatal("no unseal call expected")
		return "", nil
	})

	err := Unseal(testRC(t), runner.Run, nil, &State{})
	require.Error(t, err)
	assert.True(t, cerr.Is(err, ErrMissingUnsealMaterial))
}

func TestUnseal_InvalidJSONAborts(t *testing.T) {
	state := &State{UnsealKeys: []string{"k1", "k2"}}
	runner := newScriptedRunner(func(opts execute.Options) (string, error) {
		return "garbage", nil
	})

	err := Unseal(testRC(t), runner.Run, nil, state)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, ErrStatusUnreadable))
	assert.Len(t, runner.calls, 1)
}
