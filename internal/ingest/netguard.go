// internal/ingest/netguard.go
package ingest

import (
	"fmt"
	"net"
)

// isPrivateIP returns true if the IP is in a private, loopback,
// link-local or reserved range.
func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	privateCIDRs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	}
	for _, cidr := range privateCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err == nil && network.Contains(ip) {
			return true
		}
	}
	return false
}

// checkDestination resolves a host and rejects private/reserved ranges.
// Loopback is allowed so tests can point adapters at local servers.
func checkDestination(host string) error {
	if host == "" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) && !ip.IsLoopback() {
			return fmt.Errorf("destination resolves to private/reserved address")
		}
		return nil
	}
	addrs, err := net.LookupIP(host)
	if err != nil {
		return nil
	}
	for _, a := range addrs {
		if isPrivateIP(a) && !a.IsLoopback() {
			return fmt.Errorf("destination resolves to private/reserved address")
		}
	}
	return nil
}
