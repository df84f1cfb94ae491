package api

// RegisterResponse is the provider's answer to a RegisterRequest.
// Every field that may be absent or null is a pointer so that the parser
// can tell "missing" apart from a zero value.
type RegisterResponse struct {
	ID      *string       `json:"id,omitempty"`      // Device ID
	Created *string       `json:"created,omitempty"` // Device creation timestamp
	Account *Account      `json:"account,omitempty"`
	Config  *DeviceConfig `json:"config,omitempty"`
}

// Account is the optional account metadata attached to a registration
type Account struct {
	ID          *string `json:"id,omitempty"`
	WarpPlus    *bool   `json:"warp_plus,omitempty"`
	AccountType *string `json:"account_type,omitempty"`
	License     *string `json:"license,omitempty"`
	TTL         *string `json:"ttl,omitempty"`
}

// DeviceConfig carries the tunnel parameters assigned to the device
type DeviceConfig struct {
	Interface *InterfaceConfig `json:"interface,omitempty"`
	Peers     []PeerConfig     `json:"peers,omitempty"`
}

// InterfaceConfig holds the local interface parameters
type InterfaceConfig struct {
	Addresses *Addresses `json:"addresses,omitempty"`
}

// Addresses are bare IPs without prefix length
type Addresses struct {
	V4 *string `json:"v4,omitempty"`
	V6 *string `json:"v6,omitempty"`
}

// PeerConfig describes the remote tunnel server
type PeerConfig struct {
	PublicKey *string   `json:"public_key,omitempty"`
	Endpoint  *Endpoint `json:"endpoint,omitempty"`
}

// Endpoint of the peer. Host is a combined "host:port" string.
type Endpoint struct {
	Host *string `json:"host,omitempty"`
}
