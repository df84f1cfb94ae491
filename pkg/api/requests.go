package api

// RegisterRequest is the body POSTed to the registration endpoint
type RegisterRequest struct {
	Key         string `json:"key"`          // Device WireGuard public key
	InstallID   string `json:"install_id"`   // Empty for fresh installs
	WarpEnabled bool   `json:"warp_enabled"` // Always true
	TOS         string `json:"tos"`          // Terms of service acceptance timestamp
	Type        string `json:"type"`         // Device type, e.g. "Linux"
	Locale      string `json:"locale"`
}
