package present

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/mdp/qrterminal/v3"

	"github.com/lanrat/wireguard-warp-generator/pkg/errors"
)

// Renderer names accepted in configuration.
const (
	RendererTerminal = "terminal"
	RendererQREncode = "qrencode"
)

// QRRenderer draws text as a scannable QR code.
type QRRenderer interface {
	Name() string
	// Available reports whether the renderer can run in this environment.
	Available() error
	Render(ctx context.Context, w io.Writer, text string) error
}

// LookPathFunc resolves an executable, like exec.LookPath.
type LookPathFunc func(file string) (string, error)

// NewQRRenderer returns the renderer registered under name.
func NewQRRenderer(name string, lookPath LookPathFunc) (QRRenderer, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	switch name {
	case RendererTerminal, "":
		return TerminalRenderer{}, nil
	case RendererQREncode:
		return &CommandRenderer{Binary: "qrencode", lookPath: lookPath}, nil
	default:
		return nil, errors.NewPresentationError("qr_renderer",
			fmt.Sprintf("unknown QR renderer %q (must be %s or %s)", name, RendererTerminal, RendererQREncode), nil)
	}
}

// TerminalRenderer draws half-block QR codes in-process.
type TerminalRenderer struct{}

func (TerminalRenderer) Name() string     { return RendererTerminal }
func (TerminalRenderer) Available() error { return nil }

func (TerminalRenderer) Render(_ context.Context, w io.Writer, text string) error {
	qrterminal.GenerateHalfBlock(text, qrterminal.L, w)
	return nil
}

// CommandRenderer pipes the text through `qrencode -t ansiutf8`.
type CommandRenderer struct {
	Binary   string
	lookPath LookPathFunc
}

func (r *CommandRenderer) Name() string { return r.Binary }

func (r *CommandRenderer) Available() error {
	if _, err := r.lookPath(r.Binary); err != nil {
		return errors.NewPresentationError(r.Binary, "not found in PATH", err)
	}
	return nil
}

func (r *CommandRenderer) Render(ctx context.Context, w io.Writer, text string) error {
	path, err := r.lookPath(r.Binary)
	if err != nil {
		return errors.NewPresentationError(r.Binary, "not found in PATH", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-t", "ansiutf8")
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = w
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errors.NewPresentationError(r.Binary, fmt.Sprintf("rendering failed: %s", strings.TrimSpace(stderr.String())), err)
	}
	return nil
}
