package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meshx/meshx-tools/internal/codegen"
	"github.com/meshx/meshx-tools/internal/deps"
	"github.com/meshx/meshx-tools/internal/manifest"
)

func newCodegenCmd(a *app) *cobra.Command {
	var (
		headerPath   string
		manifestPath string
		strict       bool
		printResult  bool
	)

	cmd := &cobra.Command{
		Use:   "codegen <product>",
		Short: "Generate the product header and component manifest",
		Long: `Resolve the elements of one product from the profile, write the
component manifest listing every element it depends on, and write the C
header defining the product identifiers and one macro per catalog element.

Unknown element references are skipped with a warning unless --strict is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prof, err := a.loadProfile()
			if err != nil {
				return err
			}
			prod, err := prof.Product(args[0])
			if err != nil {
				return err
			}

			res, err := deps.Expand(prof, prod, deps.Options{Strict: strict, Logger: slog.Default()})
			if err != nil {
				return err
			}

			if err := manifest.Write(manifestPath, res.Dependencies); err != nil {
				return err
			}
			text := codegen.Emit(prod, prof.Prod.CID, res.Macros)
			if err := codegen.WriteHeader(headerPath, text); err != nil {
				return err
			}
			slog.Debug("generated product files", "product", prod.Name, "header", headerPath, "manifest", manifestPath)

			out := cmd.OutOrStdout()
			if !printResult {
				fmt.Fprintf(out, "Generated %s and %s for %s\n", headerPath, manifestPath, prod.Name)
				return nil
			}
			data, err := json.MarshalIndent(res.Dependencies, "", "    ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			if err := writeMacros(out, res.Macros); err != nil {
				return err
			}
			fmt.Fprintf(out, ">> Autogen code created!\n%s\n", text)
			return nil
		},
	}
	cmd.Flags().StringVar(&headerPath, "header", codegen.DefaultHeaderPath, "generated header path")
	cmd.Flags().StringVar(&manifestPath, "manifest", manifest.DefaultPath, "component manifest path")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on references to unknown elements")
	cmd.Flags().BoolVar(&printResult, "print", false, "print the dependency map and the generated header")
	return cmd
}

// writeMacros lists every catalog macro with its value and whether the
// product reached the element.
func writeMacros(w io.Writer, macros []deps.ResolvedMacro) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "MACRO\tVALUE\tSOURCE")
	for _, m := range macros {
		source := "catalog"
		if m.Visited {
			source = "resolved"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", m.Def, m.Value.Int(), source)
	}
	return tw.Flush()
}
