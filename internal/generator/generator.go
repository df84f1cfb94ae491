package generator

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/lanrat/wireguard-warp-generator/internal/generator/client"
	"github.com/lanrat/wireguard-warp-generator/internal/generator/config"
	"github.com/lanrat/wireguard-warp-generator/internal/generator/keys"
	"github.com/lanrat/wireguard-warp-generator/internal/generator/present"
	"github.com/lanrat/wireguard-warp-generator/internal/generator/warp"
	"github.com/lanrat/wireguard-warp-generator/internal/generator/wireguard"
	"github.com/lanrat/wireguard-warp-generator/pkg/api"
	"github.com/lanrat/wireguard-warp-generator/pkg/errors"
	"github.com/lanrat/wireguard-warp-generator/pkg/logger"
)

// Registrar binds a public key to a new device identity.
type Registrar interface {
	Register(ctx context.Context, publicKey string, opts client.RegistrationOptions) (*api.RegisterResponse, error)
}

// Generator runs one registration and writes the resulting tunnel
// configuration to its output.
type Generator struct {
	config    *config.Config
	keys      keys.Provider
	registrar Registrar
	out       io.Writer
	diag      io.Writer
	lookPath  present.LookPathFunc
	now       func() time.Time
	logger    *logger.Logger
}

// Option customizes a Generator.
type Option func(*Generator)

// WithOutput sets the primary (configuration) and diagnostic writers.
func WithOutput(out, diag io.Writer) Option {
	return func(g *Generator) {
		g.out = out
		g.diag = diag
	}
}

// WithKeyProvider overrides the provider selected by key_generator.
func WithKeyProvider(p keys.Provider) Option {
	return func(g *Generator) { g.keys = p }
}

// WithRegistrar overrides the HTTP registration client.
func WithRegistrar(r Registrar) Option {
	return func(g *Generator) { g.registrar = r }
}

// WithLookPath overrides how external binaries are resolved.
func WithLookPath(fn present.LookPathFunc) Option {
	return func(g *Generator) { g.lookPath = fn }
}

// WithClock overrides the clock used for the terms-of-service timestamp.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New creates a generator for cfg.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) *Generator {
	if log == nil {
		log = logger.NewDevelopment("generator")
	}

	g := &Generator{
		config: cfg,
		out:    os.Stdout,
		diag:   os.Stderr,
		now:    time.Now,
		logger: log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run executes the pipeline. Nothing is written to the primary output
// unless every step up to building the configuration succeeds.
func (g *Generator) Run(ctx context.Context) error {
	ctx = logger.WithRunID(ctx, uuid.NewString())
	ctx = logger.WithOperation(ctx, "generate")
	log := g.logger.WithContext(ctx)

	reqs := Requirements(g.config, g.lookPath)
	if g.keys != nil {
		reqs = without(reqs, RequirementKeyGenerator)
	}
	if err := Preflight(reqs...); err != nil {
		return err
	}

	provider, registrar, renderer, err := g.collaborators(log)
	if err != nil {
		return err
	}

	stage := log.StartStage(ctx, "keys", "generator", g.config.KeyGenerator)
	kp, err := provider.Generate(stage.Context())
	if err != nil {
		return stage.Fail(err)
	}
	stage.Complete()

	log.Info("registering device", "endpoint", g.config.APIURL, "device_type", g.config.DeviceType)
	stage = log.StartStage(ctx, "register")
	resp, err := registrar.Register(stage.Context(), kp.PublicKey, client.RegistrationOptions{
		DeviceType: g.config.DeviceType,
		Locale:     g.config.Locale,
		TOS:        g.config.TOSTimestamp(g.now),
		InstallID:  g.config.InstallID,
	})
	if err != nil {
		return stage.Fail(err)
	}
	stage.Complete()

	stage = log.StartStage(ctx, "parse")
	fields, err := warp.Parse(resp)
	if err != nil {
		return stage.Fail(err)
	}
	stage.Complete("ipv6", fields.HasIPv6())

	tunnel := wireguard.Build(*kp, fields, wireguard.Options{
		DNS:                 g.config.DNSServers(),
		MTU:                 g.config.MTU,
		AllowedIPs:          g.config.AllowedIPRanges(),
		ListenPort:          g.config.ListenPort,
		PersistentKeepalive: g.config.PersistentKeepalive,
	})
	text := tunnel.String()

	if _, err := io.WriteString(g.out, text); err != nil {
		return errors.NewSystemError(errors.ErrCodeOutput, "failed to write configuration", false, err)
	}
	log.Info("configuration generated",
		"addresses", tunnel.Addresses,
		"endpoint", tunnel.Endpoint,
		"ipv6", fields.HasIPv6(),
	)

	if g.config.ShowAccount {
		if err := present.AccountInfo(g.diag, fields.Account); err != nil {
			log.Warn("failed to display account information", "error", err)
		}
	}

	if renderer != nil {
		if err := renderer.Render(ctx, g.diag, text); err != nil {
			log.Warn("failed to render QR code", "renderer", renderer.Name(), "error", err)
		}
	}

	return nil
}

// collaborators resolves the key provider, registrar and optional QR
// renderer, preferring injected ones.
func (g *Generator) collaborators(log *logger.Logger) (keys.Provider, Registrar, present.QRRenderer, error) {
	provider := g.keys
	if provider == nil {
		p, err := keys.NewProvider(g.config.KeyGenerator, log)
		if err != nil {
			return nil, nil, nil, err
		}
		provider = p
	}

	registrar := g.registrar
	if registrar == nil {
		registrar = client.NewClient(g.config.APIURL, g.config.RequestTimeout(), log)
	}

	var renderer present.QRRenderer
	if g.config.ShowQR {
		r, err := present.NewQRRenderer(g.config.QRRenderer, g.lookPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to select QR renderer: %w", err)
		}
		renderer = r
	}

	return provider, registrar, renderer, nil
}
