package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanrat/wireguard-warp-generator/internal/generator/client"
	"github.com/lanrat/wireguard-warp-generator/internal/generator/config"
	"github.com/lanrat/wireguard-warp-generator/internal/generator/keys"
	"github.com/lanrat/wireguard-warp-generator/internal/generator/warp"
	"github.com/lanrat/wireguard-warp-generator/pkg/api"
	domainerrors "github.com/lanrat/wireguard-warp-generator/pkg/errors"
	"github.com/lanrat/wireguard-warp-generator/pkg/logger"
)

const ipv4Response = `{"config":{"interface":{"addresses":{"v4":"10.0.0.2"}},"peers":[{"public_key":"PEER_KEY=","endpoint":{"host":"engage.example.com:2408"}}]}}`

type fakeProvider struct {
	kp    *keys.KeyPair
	err   error
	calls int
}

func (p *fakeProvider) Generate(context.Context) (*keys.KeyPair, error) {
	p.calls++
	return p.kp, p.err
}

type fakeRegistrar struct {
	body  string
	err   error
	calls int
	key   string
	opts  client.RegistrationOptions
}

func (r *fakeRegistrar) Register(_ context.Context, publicKey string, opts client.RegistrationOptions) (*api.RegisterResponse, error) {
	r.calls++
	r.key = publicKey
	r.opts = opts
	if r.err != nil {
		return nil, r.err
	}
	var resp api.RegisterResponse
	if err := json.Unmarshal([]byte(r.body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func testConfig() *config.Config {
	return &config.Config{
		APIURL:       config.DefaultAPIURL,
		Timeout:      30,
		DNS:          "1.1.1.1, 1.0.0.1, 2606:4700:4700::1111, 2606:4700:4700::1001",
		MTU:          1280,
		AllowedIPs:   "0.0.0.0/0, ::/0",
		DeviceType:   "Linux",
		Locale:       "en_US",
		KeyGenerator: keys.GeneratorNative,
		QRRenderer:   "terminal",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

func testKeyPair(t *testing.T) *keys.KeyPair {
	t.Helper()
	kp, err := keys.NewNativeProvider(nil).Generate(context.Background())
	require.NoError(t, err)
	return kp
}

type harness struct {
	gen       *Generator
	out       *bytes.Buffer
	diag      *bytes.Buffer
	provider  *fakeProvider
	registrar *fakeRegistrar
}

func newHarness(t *testing.T, cfg *config.Config, body string, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		out:       &bytes.Buffer{},
		diag:      &bytes.Buffer{},
		provider:  &fakeProvider{kp: testKeyPair(t)},
		registrar: &fakeRegistrar{body: body},
	}
	opts = append([]Option{
		WithOutput(h.out, h.diag),
		WithKeyProvider(h.provider),
		WithRegistrar(h.registrar),
	}, opts...)
	h.gen = New(cfg, logger.NewNop(), opts...)
	return h
}

func TestGenerator_Run_IPv4Only(t *testing.T) {
	h := newHarness(t, testConfig(), ipv4Response)

	require.NoError(t, h.gen.Run(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "PrivateKey = "+h.provider.kp.PrivateKey+"\n")
	assert.Contains(t, out, "Address = 10.0.0.2/32\n")
	assert.Contains(t, out, "Endpoint = engage.example.com:2408\n")
	assert.Contains(t, out, "PublicKey = PEER_KEY=\n")
	assert.NotContains(t, out, "/128")
	assert.NotContains(t, out, "ListenPort")
	assert.NotContains(t, out, "PersistentKeepalive")
	assert.Empty(t, h.diag.String())

	assert.Equal(t, h.provider.kp.PublicKey, h.registrar.key)
	assert.Equal(t, 1, h.registrar.calls)
}

func TestGenerator_Run_DualStack(t *testing.T) {
	body := `{"config":{"interface":{"addresses":{"v4":"10.0.0.2","v6":"2606:abcd::1"}},"peers":[{"public_key":"PEER_KEY=","endpoint":{"host":"engage.example.com:2408"}}]}}`
	h := newHarness(t, testConfig(), body)

	require.NoError(t, h.gen.Run(context.Background()))
	assert.Contains(t, h.out.String(), "Address = 10.0.0.2/32, 2606:abcd::1/128\n")
}

func TestGenerator_Run_OptionalLines(t *testing.T) {
	cfg := testConfig()
	cfg.ListenPort = 51820
	cfg.PersistentKeepalive = 25
	h := newHarness(t, cfg, ipv4Response)

	require.NoError(t, h.gen.Run(context.Background()))
	assert.Contains(t, h.out.String(), "ListenPort = 51820\n")
	assert.Contains(t, h.out.String(), "PersistentKeepalive = 25\n")
}

func TestGenerator_Run_RegistrationOptions(t *testing.T) {
	cfg := testConfig()
	cfg.DeviceType = "Android"
	cfg.Locale = "de_DE"
	cfg.InstallID = "install-1"
	clock := func() time.Time {
		return time.Date(2024, 3, 1, 12, 30, 45, 123_000_000, time.FixedZone("CET", 3600))
	}
	h := newHarness(t, cfg, ipv4Response, WithClock(clock))

	require.NoError(t, h.gen.Run(context.Background()))
	assert.Equal(t, client.RegistrationOptions{
		DeviceType: "Android",
		Locale:     "de_DE",
		TOS:        "2024-03-01T11:30:45.123+00:00",
		InstallID:  "install-1",
	}, h.registrar.opts)
}

func TestGenerator_Run_MissingFieldsProduceNoOutput(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		fields []string
	}{
		{
			name:   "no ipv4",
			body:   `{"config":{"interface":{"addresses":{}},"peers":[{"public_key":"PEER_KEY=","endpoint":{"host":"engage.example.com:2408"}}]}}`,
			fields: []string{warp.FieldIPv4},
		},
		{
			name:   "no peer public key",
			body:   `{"config":{"interface":{"addresses":{"v4":"10.0.0.2"}},"peers":[{"endpoint":{"host":"engage.example.com:2408"}}]}}`,
			fields: []string{warp.FieldPeerPublicKey},
		},
		{
			name:   "no endpoint host",
			body:   `{"config":{"interface":{"addresses":{"v4":"10.0.0.2"}},"peers":[{"public_key":"PEER_KEY=","endpoint":{}}]}}`,
			fields: []string{warp.FieldEndpointHost},
		},
		{
			name:   "no peers",
			body:   `{"config":{"interface":{"addresses":{"v4":"10.0.0.2"}},"peers":[]}}`,
			fields: []string{warp.FieldPeerPublicKey, warp.FieldEndpointHost},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.ShowAccount = true
			h := newHarness(t, cfg, tt.body)

			err := h.gen.Run(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.fields, domainerrors.MissingFields(err))
			assert.Empty(t, h.out.String())
			assert.Empty(t, h.diag.String())
		})
	}
}

func TestGenerator_Run_KeyGenerationFailure(t *testing.T) {
	h := newHarness(t, testConfig(), ipv4Response)
	h.provider.kp = nil
	h.provider.err = domainerrors.NewKeyGenerationError("public key is empty", nil)

	err := h.gen.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, domainerrors.ErrCodeKeyGeneration, domainerrors.GetErrorCode(err))
	assert.Equal(t, 0, h.registrar.calls)
	assert.Empty(t, h.out.String())
}

func TestGenerator_Run_RegistrationFailure(t *testing.T) {
	h := newHarness(t, testConfig(), "")
	h.registrar.err = domainerrors.NewRegistrationError(500, []byte("boom"), "endpoint returned unexpected status 500", nil)

	err := h.gen.Run(context.Background())

	var regErr *domainerrors.RegistrationError
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, "boom", string(regErr.Body))
	assert.Equal(t, 1, h.registrar.calls)
	assert.Empty(t, h.out.String())
}

func TestGenerator_Run_PreflightAggregatesFailures(t *testing.T) {
	cfg := testConfig()
	cfg.KeyGenerator = keys.GeneratorWG
	cfg.ShowQR = true
	cfg.QRRenderer = "qrencode"
	missing := func(string) (string, error) { return "", exec.ErrNotFound }
	var out bytes.Buffer
	registrar := &fakeRegistrar{body: ipv4Response}
	gen := New(cfg, logger.NewNop(),
		WithOutput(&out, &bytes.Buffer{}),
		WithRegistrar(registrar),
		WithLookPath(missing),
	)

	err := gen.Run(context.Background())

	var preErr *domainerrors.PreflightError
	require.True(t, errors.As(err, &preErr))
	require.Len(t, preErr.Failures, 2)

	var depErr *domainerrors.DependencyError
	require.True(t, errors.As(err, &depErr))
	assert.Equal(t, "wg", depErr.Dependency)

	var presErr *domainerrors.PresentationError
	require.True(t, errors.As(err, &presErr))
	assert.Equal(t, "qrencode", presErr.Capability)

	assert.Equal(t, 0, registrar.calls)
	assert.Empty(t, out.String())
}

func TestGenerator_Run_InjectedProviderSkipsKeyGeneratorCheck(t *testing.T) {
	cfg := testConfig()
	cfg.KeyGenerator = keys.GeneratorWG
	missing := func(string) (string, error) { return "", exec.ErrNotFound }
	h := newHarness(t, cfg, ipv4Response, WithLookPath(missing))

	require.NoError(t, h.gen.Run(context.Background()))
	assert.Equal(t, 1, h.provider.calls)
	assert.Contains(t, h.out.String(), "PrivateKey = "+h.provider.kp.PrivateKey+"\n")
}

func TestGenerator_Run_InjectedProviderKeepsOtherChecks(t *testing.T) {
	cfg := testConfig()
	cfg.KeyGenerator = keys.GeneratorWG
	cfg.ShowQR = true
	cfg.QRRenderer = "qrencode"
	missing := func(string) (string, error) { return "", exec.ErrNotFound }
	h := newHarness(t, cfg, ipv4Response, WithLookPath(missing))

	err := h.gen.Run(context.Background())

	var preErr *domainerrors.PreflightError
	require.True(t, errors.As(err, &preErr))
	require.Len(t, preErr.Failures, 1)
	var presErr *domainerrors.PresentationError
	assert.True(t, errors.As(err, &presErr))
	assert.Equal(t, 0, h.provider.calls)
}

func TestGenerator_Run_AccountInfo(t *testing.T) {
	body := `{"account":{"warp_plus":true,"license":"ABC-123"},` + ipv4Response[1:]

	plain := newHarness(t, testConfig(), body)
	require.NoError(t, plain.gen.Run(context.Background()))

	cfg := testConfig()
	cfg.ShowAccount = true
	h := newHarness(t, cfg, body)
	h.provider.kp = plain.provider.kp
	require.NoError(t, h.gen.Run(context.Background()))

	assert.Contains(t, h.diag.String(), "plus")
	assert.Contains(t, h.diag.String(), "ABC-123")
	assert.NotContains(t, h.out.String(), "ABC-123")
	assert.Equal(t, plain.out.String(), h.out.String())
}

func TestGenerator_Run_QRCode(t *testing.T) {
	cfg := testConfig()
	cfg.ShowQR = true
	h := newHarness(t, cfg, ipv4Response)

	require.NoError(t, h.gen.Run(context.Background()))
	assert.NotEmpty(t, h.diag.String())
	assert.Contains(t, h.out.String(), "[Interface]\n")
	assert.NotContains(t, h.out.String(), h.diag.String())
}

func TestGenerator_Run_LateQRFailureIsNotFatal(t *testing.T) {
	falsePath, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false not available")
	}

	cfg := testConfig()
	cfg.ShowQR = true
	cfg.QRRenderer = "qrencode"
	lookPath := func(string) (string, error) { return falsePath, nil }
	h := newHarness(t, cfg, ipv4Response, WithLookPath(lookPath))

	require.NoError(t, h.gen.Run(context.Background()))
	assert.Contains(t, h.out.String(), "Address = 10.0.0.2/32\n")
}

func TestPreflight(t *testing.T) {
	found := func(file string) (string, error) { return "/usr/bin/" + file, nil }
	missing := func(string) (string, error) { return "", exec.ErrNotFound }

	tests := []struct {
		name      string
		mutate    func(*config.Config)
		lookPath  func(string) (string, error)
		wantCount int
	}{
		{name: "native without qr", mutate: func(*config.Config) {}, lookPath: missing},
		{name: "terminal qr needs nothing", mutate: func(c *config.Config) { c.ShowQR = true }, lookPath: missing},
		{name: "wg present", mutate: func(c *config.Config) { c.KeyGenerator = "wg" }, lookPath: found},
		{name: "wg missing", mutate: func(c *config.Config) { c.KeyGenerator = "wg" }, lookPath: missing, wantCount: 1},
		{name: "unknown generator", mutate: func(c *config.Config) { c.KeyGenerator = "openssl" }, lookPath: found, wantCount: 1},
		{
			name:     "qrencode missing but qr not requested",
			mutate:   func(c *config.Config) { c.QRRenderer = "qrencode" },
			lookPath: missing,
		},
		{
			name:      "unknown renderer",
			mutate:    func(c *config.Config) { c.ShowQR = true; c.QRRenderer = "sixel" },
			lookPath:  found,
			wantCount: 1,
		},
		{
			name: "everything missing",
			mutate: func(c *config.Config) {
				c.KeyGenerator = "wg"
				c.ShowQR = true
				c.QRRenderer = "qrencode"
			},
			lookPath:  missing,
			wantCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			err := Preflight(Requirements(cfg, tt.lookPath)...)
			if tt.wantCount == 0 {
				assert.NoError(t, err)
				return
			}

			var preErr *domainerrors.PreflightError
			require.True(t, errors.As(err, &preErr))
			assert.Len(t, preErr.Failures, tt.wantCount)
			assert.Equal(t, domainerrors.ErrCodePreflight, domainerrors.GetErrorCode(err))
		})
	}
}
