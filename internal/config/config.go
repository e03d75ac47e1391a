// Package config resolves meshx options from flags, MESHX_* environment
// variables, an optional meshx.yaml file and a meshx.args file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/meshx/meshx-tools/internal/apperrors"
	"github.com/meshx/meshx-tools/internal/bsp"
)

const (
	EnvPrefix    = "MESHX"
	ConfigName   = "meshx"
	ArgsFileName = "meshx.args"

	DefaultBaud      = 115200
	DefaultBuildRoot = "build"
)

// BuildTypes are the accepted values of --build-type; the first is the default.
var BuildTypes = []string{"Debug", "Release"}

// Options are the resolved settings shared by all commands.
type Options struct {
	BSP         string   `mapstructure:"bsp"`
	Products    []string `mapstructure:"prod-name"`
	ProdProfile string   `mapstructure:"prod-profile"`
	BuildType   string   `mapstructure:"build-type"`
	BuildRoot   string   `mapstructure:"build-root"`
	Host        string   `mapstructure:"host"`
	Port        string   `mapstructure:"port"`
	Baud        int      `mapstructure:"baud"`
	DryRun      bool     `mapstructure:"dry-run"`
	Verbose     bool     `mapstructure:"verbose"`
}

// RegisterFlags adds the shared flags to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("bsp", "B", "", "BSP to use (default: first BSP under port/bsp)")
	flags.StringSliceP("prod-name", "N", nil, "product names (default: all products in the profile)")
	flags.String("prod-profile", "", "product profile (default: port/bsp/<bsp>/prod_profile.yml)")
	flags.String("build-type", BuildTypes[0], "build type: "+strings.Join(BuildTypes, " or "))
	flags.String("build-root", DefaultBuildRoot, "build output root")
	flags.StringP("host", "H", "", "target host platform (default: first platform under port/platform)")
	flags.StringP("port", "P", "", "serial port (auto-detect if not specified)")
	flags.Int("baud", DefaultBaud, "serial baud rate")
	flags.StringP("meshx-args", "m", "", "directory containing a meshx.args file")
	flags.String("config", "", "config file (default is ./meshx.yaml)")
	flags.Bool("dry-run", false, "print commands instead of running them")
	flags.BoolP("verbose", "v", false, "enable verbose output")
}

// New returns a viper instance bound to flags and the MESHX_* environment.
func New(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	return v, nil
}

// ReadConfigFile loads path into v. With an empty path ./meshx.yaml is used
// when present.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(ConfigName)
	}

	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	switch {
	case errors.As(err, &notFound):
		if path == "" {
			return nil
		}
		return apperrors.NewNotFoundError("config file", path, err)
	case errors.Is(err, fs.ErrNotExist):
		return apperrors.NewNotFoundError("config file", path, err)
	default:
		return apperrors.NewParseError(v.ConfigFileUsed(), err)
	}
}

// ReadArgsFile returns the whitespace separated arguments of dir/meshx.args.
func ReadArgsFile(dir string) ([]string, error) {
	path := filepath.Join(dir, ArgsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFoundError(ArgsFileName, path, err)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.Fields(string(data)), nil
}

// ApplyArgsFile parses the meshx.args file in dir on top of the flags
// already set on the command line.
func ApplyArgsFile(flags *pflag.FlagSet, dir string) error {
	args, err := ReadArgsFile(dir)
	if err != nil {
		return err
	}
	if err := flags.Parse(args); err != nil {
		return apperrors.NewParseError(filepath.Join(dir, ArgsFileName), err)
	}
	return nil
}

// Decode reads the options out of v.
func Decode(v *viper.Viper) (*Options, error) {
	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}
	return &opts, nil
}

// ApplyDefaults fills BSP, host and profile from the source tree at root.
func (o *Options) ApplyDefaults(root string) error {
	if o.BSP == "" {
		bsps, err := bsp.List(root)
		if err != nil {
			return err
		}
		if len(bsps) > 0 {
			o.BSP = bsps[0]
		}
	}
	if o.Host == "" {
		platforms, err := bsp.Platforms(root)
		if err != nil {
			return err
		}
		if len(platforms) > 0 {
			o.Host = platforms[0]
		}
	}
	if o.ProdProfile == "" && o.BSP != "" {
		o.ProdProfile = bsp.ProfilePath(o.BSP)
	}
	if o.BuildRoot == "" {
		o.BuildRoot = DefaultBuildRoot
	}
	return nil
}

// Validate checks the options against the BSPs and platforms found in the
// tree. Empty lists skip the membership checks.
func (o *Options) Validate(bsps, platforms []string) error {
	if !slices.Contains(BuildTypes, o.BuildType) {
		return apperrors.NewValidationError("build type", fmt.Sprintf("%q, choose from %s", o.BuildType, strings.Join(BuildTypes, ", ")))
	}
	if o.Baud <= 0 {
		return apperrors.NewValidationError("baud", fmt.Sprintf("%d, must be positive", o.Baud))
	}
	if len(bsps) > 0 && !slices.Contains(bsps, o.BSP) {
		return apperrors.NewValidationError("BSP", fmt.Sprintf("%q, choose from %s", o.BSP, strings.Join(bsps, ", ")))
	}
	if len(platforms) > 0 && o.Host != "" && !slices.Contains(platforms, o.Host) {
		return apperrors.NewValidationError("host", fmt.Sprintf("%q, choose from %s", o.Host, strings.Join(platforms, ", ")))
	}
	return nil
}
