// pkg/bootstrap/env.go

package bootstrap

// BuildVaultEnv constructs the environment overlay for vault CLI calls.
// The overlay is handed to the executor per invocation; the ambient
// process environment is never mutated.
func BuildVaultEnv(cfg *Config, token string) map[string]string {
	env := map[string]string{
		"VAULT_ADDR": cfg.VaultAddr,
	}
	if cfg.CACertificate != "" {
		env["VAULT_CACERT"] = cfg.CACertificate
	}
	if token != "" {
		env["VAULT_TOKEN"] = token
	}
	return env
}
