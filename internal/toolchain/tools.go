package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"

	"github.com/Masterminds/semver/v3"

	"github.com/meshx/meshx-tools/internal/apperrors"
)

// BuildTools are required to configure and build firmware.
var BuildTools = []string{"cmake", "ninja", "git"}

// Tools needed to flash, erase and monitor ESP targets.
const (
	EspTool       = "esptool.py"
	Python        = "python"
	MonitorModule = "esp_idf_monitor"
)

// MinCMakeVersion is the oldest cmake the MeshX build files accept.
const MinCMakeVersion = ">= 3.16"

var versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// Checker verifies that external tools are available before any work starts.
type Checker struct {
	LookPath func(file string) (string, error)
	Runner   Runner
	Logger   *slog.Logger
}

// NewChecker returns a checker that searches PATH and probes through r.
func NewChecker(r Runner) *Checker {
	return &Checker{
		LookPath: exec.LookPath,
		Runner:   r,
		Logger:   slog.Default(),
	}
}

// RequireTools fails with *apperrors.ToolNotInstalledError for the first tool
// missing from PATH.
func (c *Checker) RequireTools(tools ...string) error {
	for _, tool := range tools {
		path, err := c.LookPath(tool)
		if err != nil {
			return apperrors.NewToolNotInstalledError(tool, err)
		}
		c.logger().Debug("found tool", "tool", tool, "path", path)
	}
	return nil
}

// RequirePythonModule checks that python can import module.
func (c *Checker) RequirePythonModule(ctx context.Context, module string) error {
	if err := c.RequireTools(Python); err != nil {
		return err
	}
	_, err := c.Runner.Output(ctx, Command{Name: Python, Args: []string{"-c", "import " + module}})
	if err != nil {
		return apperrors.NewToolNotInstalledError(module, err)
	}
	return nil
}

// RequireVersion runs `tool --version` and checks the first version number
// in its output against constraint.
func (c *Checker) RequireVersion(ctx context.Context, tool, constraint string) error {
	want, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}

	out, err := c.Runner.Output(ctx, Command{Name: tool, Args: []string{"--version"}})
	if err != nil {
		return err
	}

	got, err := ParseVersion(string(out))
	if err != nil {
		return fmt.Errorf("%s: %w", tool, err)
	}
	if !want.Check(got) {
		return apperrors.NewValidationError(tool+" version", fmt.Sprintf("%s does not satisfy %s", got, constraint))
	}
	c.logger().Debug("tool version ok", "tool", tool, "version", got.String())
	return nil
}

// ParseVersion extracts the first dotted version number from s.
func ParseVersion(s string) (*semver.Version, error) {
	raw := versionPattern.FindString(s)
	if raw == "" {
		return nil, fmt.Errorf("no version number in %q", s)
	}
	return semver.NewVersion(raw)
}

func (c *Checker) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
