package main

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meshx/meshx-tools/internal/apperrors"
	"github.com/meshx/meshx-tools/internal/bsp"
	"github.com/meshx/meshx-tools/internal/config"
	"github.com/meshx/meshx-tools/internal/profile"
	"github.com/meshx/meshx-tools/internal/toolchain"
)

// app carries the state shared by every command of one invocation.
type app struct {
	v    *viper.Viper
	opts *config.Options

	// root is the MeshX source tree, normally the working directory.
	root     string
	runner   toolchain.Runner
	lookPath func(string) (string, error)
	// detectPort picks a serial port when --port is empty.
	detectPort func() (string, error)
	logLevel   *slog.LevelVar
}

func newApp() *app {
	return &app{
		root:       ".",
		lookPath:   exec.LookPath,
		detectPort: detectSerialPort,
		logLevel:   new(slog.LevelVar),
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "meshx",
		Short: "Build, flash and monitor MeshX firmware",
		Long: `meshx drives the MeshX firmware build: it generates the product
header and component manifest from a product profile, configures and builds
each product with cmake and ninja, and flashes, erases or monitors the board
through esptool.py and esp_idf_monitor.

Options can also be set through MESHX_* environment variables, a meshx.yaml
file or a meshx.args file (-m <dir>).`,
		PersistentPreRunE: a.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newBuildCmd(a),
		newCleanCmd(a),
		newConfigureCmd(a),
		newFlashCmd(a),
		newEraseCmd(a),
		newRunCmd(a),
		newCodegenCmd(a),
		newProductsCmd(a),
		newListBSPCmd(a),
		newPortsCmd(a),
		newSdkconfigCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// setup resolves the options of one invocation before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	if dir, _ := flags.GetString("meshx-args"); dir != "" {
		if err := config.ApplyArgsFile(flags, dir); err != nil {
			return err
		}
	}

	v, err := config.New(flags)
	if err != nil {
		return err
	}
	cfgFile, _ := flags.GetString("config")
	if err := config.ReadConfigFile(v, cfgFile); err != nil {
		return err
	}

	opts, err := config.Decode(v)
	if err != nil {
		return err
	}
	if err := opts.ApplyDefaults(a.root); err != nil {
		return err
	}
	a.v = v
	a.opts = opts

	a.setupLogging(cmd.ErrOrStderr())
	if used := v.ConfigFileUsed(); used != "" {
		slog.Debug("using config file", "file", used)
	}

	if a.runner == nil {
		r := toolchain.NewExecRunner(opts.DryRun)
		r.Stdout = cmd.OutOrStdout()
		r.Stderr = cmd.ErrOrStderr()
		a.runner = r
	}
	return nil
}

func (a *app) setupLogging(w io.Writer) {
	level := slog.LevelInfo
	if a.opts.Verbose {
		level = slog.LevelDebug
	}
	a.logLevel.Set(level)

	// Using TextHandler for CLI friendliness
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: a.logLevel,
	}))
	slog.SetDefault(logger)
}

// validate checks the options against the source tree.
func (a *app) validate() error {
	bsps, err := bsp.List(a.root)
	if err != nil {
		return err
	}
	platforms, err := bsp.Platforms(a.root)
	if err != nil {
		return err
	}
	if a.opts.BSP == "" {
		return apperrors.NewValidationError("BSP", "none given and no BSP found under "+bsp.Dir)
	}
	return a.opts.Validate(bsps, platforms)
}

func (a *app) checker() *toolchain.Checker {
	c := toolchain.NewChecker(a.runner)
	c.LookPath = a.lookPath
	return c
}

func (a *app) loadProfile() (*profile.Profile, error) {
	if a.opts.ProdProfile == "" {
		return nil, apperrors.NewValidationError("product profile", "none given and no BSP found under "+bsp.Dir)
	}
	slog.Debug("loading profile", "path", a.opts.ProdProfile)
	return profile.Load(a.opts.ProdProfile)
}

// products returns the requested products, or every product of the profile
// when none were named. Unknown names fail before any work starts.
func (a *app) products(prof *profile.Profile) ([]string, error) {
	if len(a.opts.Products) == 0 {
		names := prof.ProductNames()
		slog.Info("no product name specified, using all products from profile", "products", names)
		return names, nil
	}
	for _, name := range a.opts.Products {
		if _, err := prof.Product(name); err != nil {
			return nil, err
		}
	}
	return a.opts.Products, nil
}

// singleProduct returns the one product a target command works on.
func (a *app) singleProduct() (string, error) {
	prof, err := a.loadProfile()
	if err != nil {
		return "", err
	}
	names, err := a.products(prof)
	if err != nil {
		return "", err
	}
	if len(names) != 1 {
		return "", apperrors.NewValidationError("product name", fmt.Sprintf("please provide exactly one product name, got %d", len(names)))
	}
	return names[0], nil
}

func (a *app) logSummary() {
	slog.Info("meshx",
		"version", version,
		"build_type", a.opts.BuildType,
		"bsp", a.opts.BSP,
		"profile", a.opts.ProdProfile,
		"host", a.opts.Host,
	)
}
