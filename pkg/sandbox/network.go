package sandbox

import (
	"net"
	"strings"

	"github.com/forgeflow/evocore/pkg/contracts"
)

// CheckNetwork enforces a NetworkPolicy against a single host access
// attempt. Private/loopback addresses are always denied regardless of
// an integration_test profile's allowlist contents (§4.2).
func CheckNetwork(host string, policy contracts.NetworkPolicy) *NetworkViolation {
	if isPrivateOrLoopback(host) {
		return &NetworkViolation{Host: host, Reason: "private/loopback addresses are always denied"}
	}
	if policy.Blocked {
		return &NetworkViolation{Host: host, Reason: "network access blocked by policy"}
	}
	for _, allow := range policy.Allowlist {
		if host == allow || strings.HasSuffix(host, "."+allow) {
			return nil
		}
	}
	return &NetworkViolation{Host: host, Reason: "host not in network allowlist"}
}

func isPrivateOrLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		// Not a literal IP; resolution happens at the enforcement
		// boundary in production (container/OS level per §4.2), so a
		// bare hostname is judged on the allowlist alone here.
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
