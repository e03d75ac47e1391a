// Package builder configures and builds firmware products with cmake and ninja.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/meshx/meshx-tools/internal/toolchain"
)

// SdkconfigName is the ESP-IDF configuration regenerated on every build.
const SdkconfigName = "sdkconfig"

// Builder builds the products of one BSP and build type.
type Builder struct {
	// Root is the build root, normally "build".
	Root      string
	BSP       string
	BuildType string
	Profile   string
	// SourceDir is the project root passed to cmake -S.
	SourceDir string
	// MinCMake is a semver constraint on the cmake version; empty skips the check.
	MinCMake string
	DryRun   bool

	Runner  toolchain.Runner
	Checker *toolchain.Checker
	Out     io.Writer
	// Progress receives a progress bar across products; nil disables it.
	Progress io.Writer
	Logger   *slog.Logger
}

// Dir returns the build directory of a product: <root>/<bsp>/<type>/<prod>.
func Dir(root, bsp, buildType, prod string) string {
	return filepath.ToSlash(filepath.Join(root, bsp, buildType, prod))
}

// Dir returns the build directory of prod.
func (b *Builder) Dir(prod string) string {
	return Dir(b.Root, b.BSP, b.BuildType, prod)
}

// CheckTools fails if cmake, ninja or git is unavailable.
func (b *Builder) CheckTools(ctx context.Context) error {
	if err := b.Checker.RequireTools(toolchain.BuildTools...); err != nil {
		return err
	}
	if b.MinCMake == "" {
		return nil
	}
	return b.Checker.RequireVersion(ctx, "cmake", b.MinCMake)
}

// CMakeCommand returns the configure step for prod.
func (b *Builder) CMakeCommand(prod string) toolchain.Command {
	return toolchain.Command{
		Name: "cmake",
		Args: []string{
			"-S", b.sourceDir(), "-B", b.Dir(prod), "-G", "Ninja",
			"-DBSP=" + b.BSP,
			"-DPROD_NAME=" + prod,
			"-DMESHX_BUILD_TYPE=" + b.BuildType,
			"-DPROD_PROFILE=" + b.Profile,
			fmt.Sprintf("-DELF='meshx_build_%s'", b.BSP),
		},
	}
}

// NinjaCommand returns the build step for prod.
func (b *Builder) NinjaCommand(prod string) toolchain.Command {
	return toolchain.Command{Name: "ninja", Args: []string{"-C", b.Dir(prod)}}
}

// Build configures and builds each product in order, stopping at the first
// failure. Tools are checked before anything is written.
func (b *Builder) Build(ctx context.Context, products []string) error {
	if err := b.CheckTools(ctx); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if b.Progress != nil && len(products) > 1 {
		bar = progressbar.NewOptions(len(products),
			progressbar.OptionSetWriter(b.Progress),
			progressbar.OptionSetDescription("Building"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for _, prod := range products {
		if err := b.buildOne(ctx, prod); err != nil {
			return fmt.Errorf("build %s: %w", prod, err)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if bar != nil {
		_ = bar.Finish()
	}
	return nil
}

func (b *Builder) buildOne(ctx context.Context, prod string) error {
	dir := b.Dir(prod)
	b.logger().Debug("building product", "product", prod, "dir", dir)

	if !b.DryRun {
		sdkconfig := filepath.Join(b.sourceDir(), SdkconfigName)
		if err := os.Remove(sdkconfig); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", sdkconfig, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create build directory: %w", err)
		}
	}

	cmake := b.CMakeCommand(prod)
	_, _ = fmt.Fprintf(b.out(), "Running CMake command: %s\n", cmake)
	if err := b.Runner.Run(ctx, cmake); err != nil {
		return err
	}
	return b.Runner.Run(ctx, b.NinjaCommand(prod))
}

// Clean removes the build directory of each product.
func (b *Builder) Clean(products []string) error {
	for _, prod := range products {
		dir := b.Dir(prod)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		_, _ = fmt.Fprintf(b.out(), "Cleaning build directory: %s\n", dir)
		if b.DryRun {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to clean %s: %w", dir, err)
		}
	}
	return nil
}

func (b *Builder) sourceDir() string {
	if b.SourceDir == "" {
		return "."
	}
	return b.SourceDir
}

func (b *Builder) out() io.Writer {
	if b.Out == nil {
		return io.Discard
	}
	return b.Out
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}
