// main.go

package main

import (
	"github.com/opsforge/vaultboot/cmd"
	"github.com/opsforge/vaultboot/pkg/logger"
	"github.com/opsforge/vaultboot/pkg/telemetry"
)

func main() {
	logger.InitializeWithFallback()
	if err := telemetry.Init("vaultboot"); err != nil {
		logger.L().Warn("telemetry disabled: " + err.Error())
	}

	cmd.Execute()
}
