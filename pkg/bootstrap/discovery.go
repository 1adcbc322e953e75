// pkg/bootstrap/discovery.go

package bootstrap

import (
	"encoding/json"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsforge/vaultboot/pkg/bootio"
	"github.com/opsforge/vaultboot/pkg/execute"
)

// droplet mirrors the slice of the provider's instance listing we consume:
// only the v4 network interfaces and their visibility type.
type droplet struct {
	Networks struct {
		V4 []struct {
			Type      string `json:"type"`
			IPAddress string `json:"ip_address"`
		} `json:"v4"`
	} `json:"networks"`
}

// CollectApplianceAddrs resolves the public IPv4 addresses of every
// instance carrying the configured tag, deduplicated in first-seen order.
// A listing that parses but yields no public addresses is ErrNoHostsFound.
func CollectApplianceAddrs(rc *bootio.RuntimeContext, run Runner, tag string) ([]string, error) {
	log := otelzap.Ctx(rc.Ctx)

	stdout, err := run(rc.Ctx, execute.Options{
		Command: "doctl",
		Args:    []string{"compute", "droplet", "list", "--tag-name", tag, "--output", "json"},
	})
	if err != nil {
		return nil, cerr.Wrapf(err, "list droplets tagged %q", tag)
	}

	var droplets []droplet
	if err := json.Unmarshal([]byte(stdout), &droplets); err != nil {
		return nil, cerr.Wrapf(err, "doctl returned invalid JSON for tag %q", tag)
	}

	addrs := publicIPv4(droplets)
	if len(addrs) == 0 {
		return nil, cerr.Wrapf(ErrNoHostsFound, "no public IPv4 addresses for droplets tagged %q", tag)
	}

	log.Info("Discovered appliance hosts",
		zap.String("tag", tag),
		zap.Int("droplets", len(droplets)),
		zap.Strings("addresses", addrs))
	return addrs, nil
}

func publicIPv4(droplets []droplet) []string {
	seen := make(map[string]struct{})
	var addrs []string
	for _, d := range droplets {
		for _, iface := range d.Networks.V4 {
			if iface.Type != "public" || iface.IPAddress == "" {
				continue
			}
			if _, dup := seen[iface.IPAddress]; dup {
				continue
			}
			seen[iface.IPAddress] = struct{}{}
			addrs = append(addrs, iface.IPAddress)
		}
	}
	return addrs
}
