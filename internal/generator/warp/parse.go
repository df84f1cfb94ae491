package warp

import (
	"errors"

	"github.com/lanrat/wireguard-warp-generator/pkg/api"
	domainerrors "github.com/lanrat/wireguard-warp-generator/pkg/errors"
)

// JSON paths of the fields a tunnel configuration cannot be built without.
const (
	FieldIPv4          = "config.interface.addresses.v4"
	FieldPeerPublicKey = "config.peers[0].public_key"
	FieldEndpointHost  = "config.peers[0].endpoint.host"
)

// Placeholder is shown for account details the provider did not return.
const Placeholder = "-"

// Fields are the values extracted from a registration response.
type Fields struct {
	IPv4          string
	IPv6          string // empty when the provider assigned none
	PeerPublicKey string
	Endpoint      string // verbatim "host:port"
	Account       AccountInfo
}

// HasIPv6 reports whether an IPv6 address was assigned.
func (f *Fields) HasIPv6() bool {
	return f.IPv6 != ""
}

// AccountInfo is display-only metadata; every field is always populated.
type AccountInfo struct {
	AccountID string
	DeviceID  string
	Plan      string
	License   string
	Created   string
	Expires   string
}

// Parse extracts the tunnel fields from resp. The IPv4 address is checked
// first; the peer key and endpoint are then both checked and reported
// together. Account metadata never causes a failure.
func Parse(resp *api.RegisterResponse) (*Fields, error) {
	if resp == nil {
		resp = &api.RegisterResponse{}
	}

	var iface *api.InterfaceConfig
	var peer *api.PeerConfig
	if resp.Config != nil {
		iface = resp.Config.Interface
		if len(resp.Config.Peers) > 0 {
			peer = &resp.Config.Peers[0]
		}
	}

	var addrs *api.Addresses
	if iface != nil {
		addrs = iface.Addresses
	}

	var v4, v6 *string
	if addrs != nil {
		v4, v6 = addrs.V4, addrs.V6
	}
	if value(v4) == "" {
		return nil, domainerrors.NewMissingFieldError(FieldIPv4)
	}

	var publicKey, host *string
	if peer != nil {
		publicKey = peer.PublicKey
		if peer.Endpoint != nil {
			host = peer.Endpoint.Host
		}
	}

	var errs []error
	if value(publicKey) == "" {
		errs = append(errs, domainerrors.NewMissingFieldError(FieldPeerPublicKey))
	}
	if value(host) == "" {
		errs = append(errs, domainerrors.NewMissingFieldError(FieldEndpointHost))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &Fields{
		IPv4:          *v4,
		IPv6:          value(v6),
		PeerPublicKey: *publicKey,
		Endpoint:      *host,
		Account:       parseAccount(resp),
	}, nil
}

func parseAccount(resp *api.RegisterResponse) AccountInfo {
	acct := resp.Account
	if acct == nil {
		acct = &api.Account{}
	}

	return AccountInfo{
		AccountID: orPlaceholder(acct.ID),
		DeviceID:  orPlaceholder(resp.ID),
		Plan:      planLabel(acct),
		License:   orPlaceholder(acct.License),
		Created:   orPlaceholder(resp.Created),
		Expires:   orPlaceholder(acct.TTL),
	}
}

// planLabel combines the account type (default "free") with the plus flag.
func planLabel(acct *api.Account) string {
	accountType := value(acct.AccountType)
	if accountType == "" {
		accountType = "free"
	}
	if acct.WarpPlus != nil && *acct.WarpPlus {
		return "plus (" + accountType + ")"
	}
	return accountType
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orPlaceholder(s *string) string {
	if v := value(s); v != "" {
		return v
	}
	return Placeholder
}
