package keys

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/lanrat/wireguard-warp-generator/pkg/errors"
	"github.com/lanrat/wireguard-warp-generator/pkg/logger"
)

func TestNativeProvider_Generate(t *testing.T) {
	p := NewNativeProvider(logger.NewNop())

	kp, err := p.Generate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, kp)

	privBytes, err := base64.StdEncoding.DecodeString(kp.PrivateKey)
	require.NoError(t, err)
	assert.Len(t, privBytes, 32)
	assert.Equal(t, byte(0), privBytes[0]&7, "private key must be clamped")

	pubBytes, err := base64.StdEncoding.DecodeString(kp.PublicKey)
	require.NoError(t, err)
	assert.Len(t, pubBytes, 32)

	other, err := p.Generate(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, kp.PrivateKey, other.PrivateKey, "each run must get a fresh key")
}

func TestCommandProvider_Generate(t *testing.T) {
	ref, err := NewNativeProvider(nil).Generate(context.Background())
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		var calls [][]string
		p := NewCommandProvider("wg", logger.NewNop())
		p.run = func(ctx context.Context, stdin, name string, args ...string) (string, error) {
			calls = append(calls, append([]string{name}, args...))
			switch args[0] {
			case "genkey":
				return ref.PrivateKey + "\n", nil
			case "pubkey":
				assert.Equal(t, ref.PrivateKey+"\n", stdin)
				return ref.PublicKey + "\n", nil
			}
			return "", errors.New("unexpected command")
		}

		kp, err := p.Generate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, ref.PrivateKey, kp.PrivateKey)
		assert.Equal(t, ref.PublicKey, kp.PublicKey)
		assert.Equal(t, [][]string{{"wg", "genkey"}, {"wg", "pubkey"}}, calls)
	})

	t.Run("empty public key is a key generation failure", func(t *testing.T) {
		p := NewCommandProvider("wg", nil)
		p.run = func(ctx context.Context, stdin, name string, args ...string) (string, error) {
			if args[0] == "genkey" {
				return ref.PrivateKey, nil
			}
			return "\n", nil
		}

		_, err := p.Generate(context.Background())
		require.Error(t, err)
		assert.Equal(t, domainerrors.ErrCodeKeyGeneration, domainerrors.GetErrorCode(err))
		assert.Contains(t, err.Error(), "public key is empty")
	})

	t.Run("command failure", func(t *testing.T) {
		p := NewCommandProvider("wg", nil)
		p.run = func(ctx context.Context, stdin, name string, args ...string) (string, error) {
			return "", errors.New("exit status 1")
		}

		_, err := p.Generate(context.Background())
		require.Error(t, err)
		assert.Equal(t, domainerrors.DomainKeys, domainerrors.GetErrorDomain(err))
		assert.Contains(t, err.Error(), "wg genkey failed")
	})
}

func TestValidate(t *testing.T) {
	a, err := NewNativeProvider(nil).Generate(context.Background())
	require.NoError(t, err)
	b, err := NewNativeProvider(nil).Generate(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name    string
		kp      *KeyPair
		wantErr string
	}{
		{name: "valid", kp: a},
		{name: "nil", kp: nil, wantErr: "private key is empty"},
		{name: "empty private", kp: &KeyPair{PublicKey: a.PublicKey}, wantErr: "private key is empty"},
		{name: "empty public", kp: &KeyPair{PrivateKey: a.PrivateKey}, wantErr: "public key is empty"},
		{name: "malformed private", kp: &KeyPair{PrivateKey: "not-a-key", PublicKey: a.PublicKey}, wantErr: "private key is malformed"},
		{name: "malformed public", kp: &KeyPair{PrivateKey: a.PrivateKey, PublicKey: "short"}, wantErr: "public key is malformed"},
		{name: "mismatched halves", kp: &KeyPair{PrivateKey: a.PrivateKey, PublicKey: b.PublicKey}, wantErr: "does not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.kp)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, domainerrors.ErrCodeKeyGeneration, domainerrors.GetErrorCode(err))
		})
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(GeneratorNative, nil)
	require.NoError(t, err)
	assert.IsType(t, &NativeProvider{}, p)

	p, err = NewProvider(GeneratorWG, nil)
	require.NoError(t, err)
	assert.IsType(t, &CommandProvider{}, p)

	_, err = NewProvider("openssl", nil)
	require.Error(t, err)
	var dep *domainerrors.DependencyError
	require.True(t, errors.As(err, &dep))
	assert.Equal(t, "key_generator", dep.Dependency)
}
