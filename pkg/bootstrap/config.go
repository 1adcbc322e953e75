// pkg/bootstrap/config.go

package bootstrap

import (
	cerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config is the fully resolved bootstrap configuration. It is built by the
// CLI layer and treated as immutable from there on; every phase reads from
// it and none writes to it.
type Config struct {
	// VaultAddr is the appliance control-plane address (VAULT_ADDR).
	VaultAddr string `validate:"required,url"`

	// DropletTag selects the compute instances carrying the appliance.
	DropletTag string `validate:"required"`

	// StateFile is the local path holding the durable bootstrap state.
	StateFile string `validate:"required"`

	SSHUser     string `validate:"required"`
	SSHIdentity string

	// KVMountPath is where the KV v2 secrets engine must live.
	KVMountPath string `validate:"required"`

	AppRoleName string `validate:"required"`
	PolicyName  string `validate:"required"`
	// PolicyFile optionally overrides the generated default policy.
	PolicyFile string

	KeyShares    int `validate:"min=1"`
	KeyThreshold int `validate:"min=1"`

	TokenTTL    string `validate:"required"`
	TokenMaxTTL string `validate:"required"`
	SecretIDTTL string `validate:"required"`

	// RotateSecretID forces issuing a fresh approle secret even when one
	// is already recorded in state.
	RotateSecretID bool

	// CACertificate optionally points at a CA bundle for the control API.
	CACertificate string
}

// DefaultConfig returns a Config carrying the stock defaults; the CLI
// layer fills in the required fields from flags.
func DefaultConfig() *Config {
	return &Config{
		SSHUser:      "root",
		KVMountPath:  "secret",
		AppRoleName:  "doks-deployer",
		PolicyName:   "doks-deployer",
		KeyShares:    5,
		KeyThreshold: 3,
		TokenTTL:     "1h",
		TokenMaxTTL:  "4h",
		SecretIDTTL:  "4h",
	}
}

// Validate checks the config before any external call is made. The
// threshold cross-field invariant lives here rather than in a tag so the
// diagnostic names both values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return cerr.WithHint(err, "invalid bootstrap configuration")
	}
	if c.KeyThreshold > c.KeyShares {
		return cerr.Newf("key threshold %d exceeds key shares %d", c.KeyThreshold, c.KeyShares)
	}
	return nil
}
