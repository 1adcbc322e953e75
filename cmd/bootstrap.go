// cmd/bootstrap.go

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/opsforge/vaultboot/pkg/bootcli"
	"github.com/opsforge/vaultboot/pkg/bootio"
	"github.com/opsforge/vaultboot/pkg/bootstrap"
)

// newBootstrapCmd builds the bootstrap subcommand. The flag set mirrors
// the Config fields one to one; everything past flag parsing lives in
// pkg/bootstrap.
func newBootstrapCmd() *cobra.Command {
	cfg := bootstrap.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Converge the Vault appliance into a bootstrapped state",
		RunE: bootcli.Wrap(func(rc *bootio.RuntimeContext, cmd *cobra.Command, args []string) error {
			_, err := bootstrap.Bootstrap(rc, bootstrap.DefaultRunner(), cfg)
			return err
		}),
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.VaultAddr, "vault-addr", "", "Vault control-plane address (required)")
	flags.StringVar(&cfg.DropletTag, "droplet-tag", "", "compute tag selecting the appliance hosts (required)")
	flags.StringVar(&cfg.StateFile, "state-file", "", "path of the durable bootstrap state file (required)")
	flags.StringVar(&cfg.SSHUser, "ssh-user", cfg.SSHUser, "user for the service health probe")
	flags.StringVar(&cfg.SSHIdentity, "ssh-identity", "", "SSH identity file for the health probe")
	flags.StringVar(&cfg.KVMountPath, "kv-mount", cfg.KVMountPath, "KV v2 secrets engine mount path")
	flags.StringVar(&cfg.AppRoleName, "approle-name", cfg.AppRoleName, "AppRole role name")
	flags.StringVar(&cfg.PolicyName, "approle-policy-name", cfg.PolicyName, "AppRole policy name")
	flags.StringVar(&cfg.PolicyFile, "approle-policy-file", "", "policy document overriding the generated default")
	flags.IntVar(&cfg.KeyShares, "key-shares", cfg.KeyShares, "number of unseal key shares to generate")
	flags.IntVar(&cfg.KeyThreshold, "key-threshold", cfg.KeyThreshold, "shares required to unseal")
	flags.StringVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "AppRole token TTL")
	flags.StringVar(&cfg.TokenMaxTTL, "token-max-ttl", cfg.TokenMaxTTL, "AppRole token max TTL")
	flags.StringVar(&cfg.SecretIDTTL, "secret-id-ttl", cfg.SecretIDTTL, "AppRole secret id TTL")
	flags.BoolVar(&cfg.RotateSecretID, "rotate-secret-id", false, "force issuing a fresh AppRole secret id")
	flags.StringVar(&cfg.CACertificate, "ca-certificate", "", "CA bundle for the control API")

	_ = cmd.MarkFlagRequired("vault-addr")
	_ = cmd.MarkFlagRequired("droplet-tag")
	_ = cmd.MarkFlagRequired("state-file")

	return cmd
}
