// Package target drives the flashing and monitoring tools of a host platform.
package target

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/meshx/meshx-tools/internal/apperrors"
	"github.com/meshx/meshx-tools/internal/toolchain"
)

// ErrNotImplemented is returned for hosts that are recognised but have no driver yet.
var ErrNotImplemented = errors.New("not implemented yet")

// Host platform names.
const (
	HostESP = "esp"
	HostNRF = "nrf"
)

// Target is one host platform family.
type Target interface {
	// Name returns the host platform name.
	Name() string
	// CheckTools verifies the target's external tools are installed.
	CheckTools(ctx context.Context) error
	// Configure opens the interactive SDK configuration for a build directory.
	Configure(ctx context.Context, buildDir string) error
	// Flash writes the firmware built in buildDir to the device.
	Flash(ctx context.Context, buildDir string) error
	// Erase erases the device flash.
	Erase(ctx context.Context, buildDir string) error
	// Monitor attaches a serial monitor to the device.
	Monitor(ctx context.Context, buildDir string) error
}

// Options configures a Target.
type Options struct {
	Port    string
	Baud    int
	Runner  toolchain.Runner
	Checker *toolchain.Checker
	Logger  *slog.Logger
}

// New returns the Target for host.
func New(host string, opts Options) (Target, error) {
	switch host {
	case HostESP:
		return NewESP(opts), nil
	case HostNRF:
		return nil, fmt.Errorf("%s target: %w", host, ErrNotImplemented)
	default:
		return nil, apperrors.NewValidationError("host", fmt.Sprintf("unsupported target host: %s", host))
	}
}

// ESP drives esptool.py and esp_idf_monitor.
type ESP struct {
	Port    string
	Baud    int
	Runner  toolchain.Runner
	Checker *toolchain.Checker
	Logger  *slog.Logger

	// Stat reports whether a port path exists.
	Stat func(name string) (fs.FileInfo, error)
}

// NewESP returns an ESP target.
func NewESP(opts Options) *ESP {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	checker := opts.Checker
	if checker == nil {
		checker = toolchain.NewChecker(opts.Runner)
	}
	return &ESP{
		Port:    opts.Port,
		Baud:    opts.Baud,
		Runner:  opts.Runner,
		Checker: checker,
		Logger:  logger,
		Stat:    os.Stat,
	}
}

func (t *ESP) Name() string { return HostESP }

func (t *ESP) CheckTools(ctx context.Context) error {
	t.Logger.Info("checking ESP tools")
	if err := t.Checker.RequireTools(toolchain.EspTool); err != nil {
		return err
	}
	return t.Checker.RequirePythonModule(ctx, toolchain.MonitorModule)
}

func (t *ESP) Configure(ctx context.Context, buildDir string) error {
	return t.Runner.Run(ctx, toolchain.Command{Name: "ninja", Args: []string{"-C", buildDir, "menuconfig"}})
}

func (t *ESP) Flash(ctx context.Context, buildDir string) error {
	if err := t.requirePort(); err != nil {
		return err
	}
	if _, err := t.Stat(t.Port); err != nil {
		return apperrors.NewValidationError("port", fmt.Sprintf("port %s does not exist", t.Port))
	}
	t.Logger.Info("using port", "port", t.Port)
	return t.Runner.Run(ctx, t.esptool(buildDir, "write_flash", "@flash_args"))
}

func (t *ESP) Erase(ctx context.Context, buildDir string) error {
	if err := t.requirePort(); err != nil {
		return err
	}
	return t.Runner.Run(ctx, t.esptool(buildDir, "erase_flash"))
}

func (t *ESP) Monitor(ctx context.Context, buildDir string) error {
	if err := t.requirePort(); err != nil {
		return err
	}
	return t.Runner.Run(ctx, toolchain.Command{
		Name: toolchain.Python,
		Args: []string{"-m", toolchain.MonitorModule, "--port", t.Port, "--baud", strconv.Itoa(t.Baud)},
		Dir:  buildDir,
	})
}

func (t *ESP) esptool(buildDir string, op ...string) toolchain.Command {
	args := []string{
		"--chip", "auto",
		"--port", t.Port,
		"--before", "default_reset",
		"--after", "hard_reset",
	}
	return toolchain.Command{Name: toolchain.EspTool, Args: append(args, op...), Dir: buildDir}
}

func (t *ESP) requirePort() error {
	if t.Port == "" {
		return apperrors.NewValidationError("port", "please provide a port")
	}
	return nil
}
