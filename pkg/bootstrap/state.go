// pkg/bootstrap/state.go

package bootstrap

import (
	"encoding/json"
	"os"
	"path/filepath"

	cerr "github.com/cockroachdb/errors"
)

// State holds the durable bootstrap artefacts. It is the single source of
// truth across runs: the appliance never re-exposes key shares or the root
// token after issuance, so losing this file after initialization is
// unrecoverable without a manual recovery procedure.
type State struct {
	UnsealKeys      []string `json:"unseal_keys"`
	RootToken       *string  `json:"root_token"`
	AppRoleRoleID   *string  `json:"approle_role_id"`
	AppRoleSecretID *string  `json:"approle_secret_id"`
}

// SetFromInit records the one-time initialization material.
func (s *State) SetFromInit(keys []string, rootToken string) {
	s.UnsealKeys = append([]string(nil), keys...)
	s.RootToken = &rootToken
}

func (s *State) HasRootToken() bool {
	return s.RootToken != nil && *s.RootToken != ""
}

func (s *State) HasSecretID() bool {
	return s.AppRoleSecretID != nil && *s.AppRoleSecretID != ""
}

// LoadState reads the state file, returning an empty state when the file
// does not exist. A file that exists but fails per-field schema validation
// is ErrStateCorrupt; it is never silently replaced.
func LoadState(path string) (*State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, cerr.Wrapf(err, "read state file %s", path)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, cerr.Wrapf(ErrStateCorrupt, "parse state file %s: %v", path, err)
	}

	state := &State{}
	if msg, ok := payload["unseal_keys"]; ok {
		keys, err := decodeStringList(msg)
		if err != nil {
			return nil, cerr.Wrapf(ErrStateCorrupt, "state field %q must be a list of strings", "unseal_keys")
		}
		state.UnsealKeys = keys
	}
	for field, dst := range map[string]**string{
		"root_token":        &state.RootToken,
		"approle_role_id":   &state.AppRoleRoleID,
		"approle_secret_id": &state.AppRoleSecretID,
	} {
		msg, ok := payload[field]
		if !ok {
			continue
		}
		value, err := decodeOptionalString(msg)
		if err != nil {
			return nil, cerr.Wrapf(ErrStateCorrupt, "state field %q must be a string or null", field)
		}
		*dst = value
	}
	return state, nil
}

// SaveState writes the state atomically: temp file in the same directory,
// fsync, rename, then owner-only permissions. A crash mid-write leaves the
// previous state file intact.
func SaveState(path string, state *State) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return cerr.Wrapf(err, "create state directory %s", dir)
	}

	payload, err := marshalState(state)
	if err != nil {
		return cerr.Wrap(err, "marshal bootstrap state")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return cerr.Wrap(err, "create temporary state file")
	}
	tmpPath := tmp.Name()

	if err := writeAndSync(tmp, payload); err != nil {
		_ = os.Remove(tmpPath)
		return cerr.Wrapf(err, "write temporary state file %s", tmpPath)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return cerr.Wrapf(err, "replace state file %s", path)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return cerr.Wrapf(err, "restrict state file permissions on %s", path)
	}
	return nil
}

func marshalState(state *State) ([]byte, error) {
	// Keys serialize as [] rather than null so the on-disk shape is stable.
	keys := state.UnsealKeys
	if keys == nil {
		keys = []string{}
	}
	return json.MarshalIndent(State{
		UnsealKeys:      keys,
		RootToken:       state.RootToken,
		AppRoleRoleID:   state.AppRoleRoleID,
		AppRoleSecretID: state.AppRoleSecretID,
	}, "", "  ")
}

func writeAndSync(f *os.File, payload []byte) error {
	defer f.Close()
	if err := f.Chmod(0o600); err != nil {
		return err
	}
	if _, err := f.Write(payload); err != nil {
		return err
	}
	return f.Sync()
}

func decodeStringList(msg json.RawMessage) ([]string, error) {
	var keys []string
	if err := json.Unmarshal(msg, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func decodeOptionalString(msg json.RawMessage) (*string, error) {
	var value *string
	if err := json.Unmarshal(msg, &value); err != nil {
		return nil, err
	}
	return value, nil
}
