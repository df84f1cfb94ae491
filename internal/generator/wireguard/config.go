package wireguard

import (
	"fmt"
	"strings"

	"github.com/lanrat/wireguard-warp-generator/internal/generator/keys"
	"github.com/lanrat/wireguard-warp-generator/internal/generator/warp"
)

// Options are the user-supplied tunnel settings. Zero ListenPort or
// PersistentKeepalive means "not set".
type Options struct {
	DNS                 []string
	MTU                 int
	AllowedIPs          []string
	ListenPort          int
	PersistentKeepalive int
}

// TunnelConfig is a complete wg-quick configuration. It is immutable once
// built; ListenPort and PersistentKeepalive are nil when absent.
type TunnelConfig struct {
	PrivateKey          string
	Addresses           []string
	DNS                 []string
	MTU                 int
	ListenPort          *int
	PeerPublicKey       string
	Endpoint            string
	AllowedIPs          []string
	PersistentKeepalive *int
}

// Build combines local key material, the registration fields and options
// into a TunnelConfig. It performs no validation of DNS, MTU or allowed IPs.
func Build(kp keys.KeyPair, f *warp.Fields, opts Options) *TunnelConfig {
	addresses := []string{f.IPv4 + "/32"}
	if f.HasIPv6() {
		addresses = append(addresses, f.IPv6+"/128")
	}

	return &TunnelConfig{
		PrivateKey:          kp.PrivateKey,
		Addresses:           addresses,
		DNS:                 clone(opts.DNS),
		MTU:                 opts.MTU,
		ListenPort:          optional(opts.ListenPort),
		PeerPublicKey:       f.PeerPublicKey,
		Endpoint:            f.Endpoint,
		AllowedIPs:          clone(opts.AllowedIPs),
		PersistentKeepalive: optional(opts.PersistentKeepalive),
	}
}

// String renders the configuration in wg-quick format. The output is
// byte-stable for equal inputs.
func (c *TunnelConfig) String() string {
	var b strings.Builder

	b.WriteString("[Interface]\n")
	fmt.Fprintf(&b, "PrivateKey = %s\n", c.PrivateKey)
	fmt.Fprintf(&b, "Address = %s\n", strings.Join(c.Addresses, ", "))
	fmt.Fprintf(&b, "DNS = %s\n", strings.Join(c.DNS, ", "))
	fmt.Fprintf(&b, "MTU = %d\n", c.MTU)
	if c.ListenPort != nil {
		fmt.Fprintf(&b, "ListenPort = %d\n", *c.ListenPort)
	}

	b.WriteString("\n[Peer]\n")
	fmt.Fprintf(&b, "PublicKey = %s\n", c.PeerPublicKey)
	fmt.Fprintf(&b, "AllowedIPs = %s\n", strings.Join(c.AllowedIPs, ", "))
	fmt.Fprintf(&b, "Endpoint = %s\n", c.Endpoint)
	if c.PersistentKeepalive != nil {
		fmt.Fprintf(&b, "PersistentKeepalive = %d\n", *c.PersistentKeepalive)
	}

	return b.String()
}

// optional maps the "0 means unset" configuration convention to an absent value.
func optional(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func clone(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
