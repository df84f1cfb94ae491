package generator

import (
	"fmt"
	"os/exec"

	"github.com/lanrat/wireguard-warp-generator/internal/generator/config"
	"github.com/lanrat/wireguard-warp-generator/internal/generator/keys"
	"github.com/lanrat/wireguard-warp-generator/internal/generator/present"
	"github.com/lanrat/wireguard-warp-generator/pkg/errors"
)

// RequirementKeyGenerator names the check for the configured key generator.
const RequirementKeyGenerator = "key_generator"

// Requirement is a single environment check run before any network activity.
type Requirement struct {
	Name  string
	Check func() error
}

// Preflight evaluates every requirement and aggregates all failures into
// one PreflightError.
func Preflight(reqs ...Requirement) error {
	var failures []error
	for _, req := range reqs {
		if err := req.Check(); err != nil {
			failures = append(failures, err)
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return errors.NewPreflightError(failures)
}

// Requirements derives the environment checks implied by cfg.
func Requirements(cfg *config.Config, lookPath present.LookPathFunc) []Requirement {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	reqs := []Requirement{{
		Name: RequirementKeyGenerator,
		Check: func() error {
			switch cfg.KeyGenerator {
			case keys.GeneratorNative, "":
				return nil
			case keys.GeneratorWG:
				if _, err := lookPath("wg"); err != nil {
					return errors.NewDependencyError("wg", "not found in PATH (required by key_generator=wg)", err)
				}
				return nil
			default:
				return errors.NewDependencyError("key_generator",
					fmt.Sprintf("unknown key generator %q (must be %s or %s)", cfg.KeyGenerator, keys.GeneratorNative, keys.GeneratorWG), nil)
			}
		},
	}}

	if cfg.ShowQR {
		reqs = append(reqs, Requirement{
			Name: "qr_renderer",
			Check: func() error {
				r, err := present.NewQRRenderer(cfg.QRRenderer, lookPath)
				if err != nil {
					return err
				}
				return r.Available()
			},
		})
	}

	return reqs
}

// without drops the requirement called name.
func without(reqs []Requirement, name string) []Requirement {
	out := reqs[:0:0]
	for _, r := range reqs {
		if r.Name != name {
			out = append(out, r)
		}
	}
	return out
}
