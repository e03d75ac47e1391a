package main

import (
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/meshx/meshx-tools/internal/builder"
	"github.com/meshx/meshx-tools/internal/toolchain"
)

func newBuildCmd(a *app) *cobra.Command {
	var clean, pick bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Configure and build products",
		Long: `Configure and build each product of the profile with cmake and ninja.

Every product is built into build/<bsp>/<build-type>/<product>. The
sdkconfig in the project root is removed before each product so ESP-IDF
regenerates it for the product being built.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.validate(); err != nil {
				return err
			}
			a.logSummary()

			prof, err := a.loadProfile()
			if err != nil {
				return err
			}
			products, err := a.products(prof)
			if err != nil {
				return err
			}
			if pick {
				if products, err = pickProducts(products); err != nil {
					return err
				}
			}

			b := a.newBuilder(cmd)
			if clean {
				// nothing is removed unless the build can run
				if err := b.CheckTools(cmd.Context()); err != nil {
					return err
				}
				if err := b.Clean(products); err != nil {
					return err
				}
			}
			return b.Build(cmd.Context(), products)
		},
	}
	cmd.Flags().BoolVarP(&clean, "clean", "c", false, "clean the build directories before building")
	cmd.Flags().BoolVar(&pick, "pick", false, "choose the products to build interactively")
	return cmd
}

func newCleanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove product build directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.validate(); err != nil {
				return err
			}
			prof, err := a.loadProfile()
			if err != nil {
				return err
			}
			products, err := a.products(prof)
			if err != nil {
				return err
			}
			return a.newBuilder(cmd).Clean(products)
		},
	}
}

func newConfigureCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Open the SDK configuration menu of one product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.validate(); err != nil {
				return err
			}
			if err := a.checker().RequireTools(toolchain.BuildTools...); err != nil {
				return err
			}
			prod, err := a.singleProduct()
			if err != nil {
				return err
			}
			t, err := a.target()
			if err != nil {
				return err
			}
			if err := t.CheckTools(cmd.Context()); err != nil {
				return err
			}
			return t.Configure(cmd.Context(), a.buildDir(prod))
		},
	}
}

func (a *app) newBuilder(cmd *cobra.Command) *builder.Builder {
	return &builder.Builder{
		Root:      a.opts.BuildRoot,
		BSP:       a.opts.BSP,
		BuildType: a.opts.BuildType,
		Profile:   a.opts.ProdProfile,
		SourceDir: a.root,
		MinCMake:  toolchain.MinCMakeVersion,
		DryRun:    a.opts.DryRun,
		Runner:    a.runner,
		Checker:   a.checker(),
		Out:       cmd.OutOrStdout(),
		Progress:  cmd.ErrOrStderr(),
	}
}

func (a *app) buildDir(prod string) string {
	return builder.Dir(a.opts.BuildRoot, a.opts.BSP, a.opts.BuildType, prod)
}

func pickProducts(available []string) ([]string, error) {
	options := make([]huh.Option[string], 0, len(available))
	for _, name := range available {
		options = append(options, huh.NewOption(name, name).Selected(true))
	}

	var picked []string
	err := huh.NewMultiSelect[string]().
		Title("Select products to build").
		Options(options...).
		Value(&picked).
		Run()
	if err != nil {
		return nil, err
	}
	return picked, nil
}
