package keys

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/crypto/curve25519"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/lanrat/wireguard-warp-generator/pkg/errors"
	"github.com/lanrat/wireguard-warp-generator/pkg/logger"
)

// Generator names accepted in configuration.
const (
	GeneratorNative = "native"
	GeneratorWG     = "wg"
)

// KeyPair is a WireGuard key pair, both halves base64 encoded.
type KeyPair struct {
	PrivateKey string
	PublicKey  string
}

// Provider produces a fresh key pair for one run.
type Provider interface {
	Generate(ctx context.Context) (*KeyPair, error)
}

// NewProvider returns the provider registered under name.
func NewProvider(name string, log *logger.Logger) (Provider, error) {
	switch name {
	case GeneratorNative, "":
		return &NativeProvider{logger: log}, nil
	case GeneratorWG:
		return NewCommandProvider("wg", log), nil
	default:
		return nil, errors.NewDependencyError("key_generator", fmt.Sprintf("unknown key generator %q (must be %s or %s)", name, GeneratorNative, GeneratorWG), nil)
	}
}

// NativeProvider generates keys in-process with curve25519.
type NativeProvider struct {
	logger *logger.Logger
}

// NewNativeProvider creates an in-process key provider.
func NewNativeProvider(log *logger.Logger) *NativeProvider {
	return &NativeProvider{logger: log}
}

// Generate creates a new clamped curve25519 key pair.
func (p *NativeProvider) Generate(ctx context.Context) (*KeyPair, error) {
	privateKeyBytes := make([]byte, 32)
	if _, err := rand.Read(privateKeyBytes); err != nil {
		return nil, errors.NewKeyGenerationError("failed to read random bytes for private key", err)
	}
	clampPrivateKey(privateKeyBytes)

	publicKeyBytes, err := curve25519.X25519(privateKeyBytes, curve25519.Basepoint)
	if err != nil {
		return nil, errors.NewKeyGenerationError("failed to derive public key", err)
	}

	kp := &KeyPair{
		PrivateKey: base64.StdEncoding.EncodeToString(privateKeyBytes),
		PublicKey:  base64.StdEncoding.EncodeToString(publicKeyBytes),
	}
	if err := Validate(kp); err != nil {
		return nil, err
	}

	if p.logger != nil {
		p.logger.DebugContext(ctx, "generated key pair", "generator", GeneratorNative)
	}
	return kp, nil
}

// clampPrivateKey applies the curve25519 clamping WireGuard expects.
func clampPrivateKey(key []byte) {
	key[0] &= 248
	key[31] &= 127
	key[31] |= 64
}

// CommandRunner runs a command with the given stdin and returns its stdout.
type CommandRunner func(ctx context.Context, stdin string, name string, args ...string) (string, error)

// CommandProvider shells out to `wg genkey` and `wg pubkey`.
type CommandProvider struct {
	Binary string
	run    CommandRunner
	logger *logger.Logger
}

// NewCommandProvider creates a provider backed by the wg binary.
func NewCommandProvider(binary string, log *logger.Logger) *CommandProvider {
	return &CommandProvider{Binary: binary, run: execRunner, logger: log}
}

// Generate asks the wg tool for a private key and derives its public half.
func (p *CommandProvider) Generate(ctx context.Context) (*KeyPair, error) {
	priv, err := p.run(ctx, "", p.Binary, "genkey")
	if err != nil {
		return nil, errors.NewKeyGenerationError(fmt.Sprintf("%s genkey failed", p.Binary), err)
	}
	priv = strings.TrimSpace(priv)

	pub, err := p.run(ctx, priv+"\n", p.Binary, "pubkey")
	if err != nil {
		return nil, errors.NewKeyGenerationError(fmt.Sprintf("%s pubkey failed", p.Binary), err)
	}

	kp := &KeyPair{PrivateKey: priv, PublicKey: strings.TrimSpace(pub)}
	if err := Validate(kp); err != nil {
		return nil, err
	}

	if p.logger != nil {
		p.logger.DebugContext(ctx, "generated key pair", "generator", p.Binary)
	}
	return kp, nil
}

func execRunner(ctx context.Context, stdin string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}

// Validate checks that both halves are present, are well-formed WireGuard
// keys, and belong together.
func Validate(kp *KeyPair) error {
	if kp == nil || kp.PrivateKey == "" {
		return errors.NewKeyGenerationError("private key is empty", nil)
	}
	if kp.PublicKey == "" {
		return errors.NewKeyGenerationError("public key is empty", nil)
	}

	priv, err := wgtypes.ParseKey(kp.PrivateKey)
	if err != nil {
		return errors.NewKeyGenerationError("private key is malformed", err)
	}
	pub, err := wgtypes.ParseKey(kp.PublicKey)
	if err != nil {
		return errors.NewKeyGenerationError("public key is malformed", err)
	}
	if priv.PublicKey() != pub {
		return errors.NewKeyGenerationError("public key does not match private key", nil)
	}
	return nil
}
