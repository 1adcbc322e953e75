// cmd/root.go

package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opsforge/vaultboot/pkg/logger"
)

// RootCmd is the base command for vaultboot.
var RootCmd = &cobra.Command{
	Use:   "vaultboot",
	Short: "Idempotent bootstrap for a Vault appliance",
	Long: `vaultboot converges a freshly provisioned Vault appliance into a usable
state: it discovers the appliance hosts, verifies the service, initializes
and unseals Vault, ensures the KV v2 secrets engine, and provisions an
AppRole identity. Safe to re-run at any time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits non-zero with a single diagnostic line on
// failure. Partial progress already persisted to the state file remains
// usable on the next invocation.
func Execute() {
	RootCmd.AddCommand(newBootstrapCmd())

	if err := RootCmd.Execute(); err != nil {
		logger.L().Error("vaultboot failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}
