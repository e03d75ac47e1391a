package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/meshx/meshx-tools/internal/apperrors"
	"github.com/meshx/meshx-tools/internal/bsp"
	"github.com/meshx/meshx-tools/internal/profile"
	"github.com/meshx/meshx-tools/internal/sdkconfig"
	"github.com/meshx/meshx-tools/internal/serial"
)

// productSummary is one row of the products listing.
type productSummary struct {
	Name            string   `json:"name" yaml:"name"`
	PID             int      `json:"pid" yaml:"pid"`
	MaxElementCount int      `json:"max_element_count" yaml:"max_element_count"`
	Elements        []string `json:"elements" yaml:"elements"`
}

func newProductsCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the products of the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prof, err := a.loadProfile()
			if err != nil {
				return err
			}
			return writeProducts(cmd.OutOrStdout(), prof, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}

func writeProducts(w io.Writer, prof *profile.Profile, format string) error {
	rows := make([]productSummary, 0, len(prof.Prod.Products))
	for i := range prof.Prod.Products {
		p := &prof.Prod.Products[i]
		names := make([]string, 0, len(p.Elements))
		for _, e := range p.Elements {
			names = append(names, fmt.Sprintf("%s:%d", e.Name, e.Value))
		}
		rows = append(rows, productSummary{Name: p.Name, PID: p.PID, MaxElementCount: p.MaxElementCount(), Elements: names})
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
		fmt.Fprintf(tw, "CID 0x%04X\n", prof.Prod.CID)
		fmt.Fprintln(tw, "NAME\tPID\tMAX ELEMENTS\tELEMENTS")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%v\n", r.Name, r.PID, r.MaxElementCount, r.Elements)
		}
		return tw.Flush()
	default:
		return apperrors.NewValidationError("output", fmt.Sprintf("%q, choose from table, json, yaml", format))
	}
}

func newListBSPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list-bsp",
		Short: "List available BSPs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bsps, err := bsp.List(a.root)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available BSPs:")
			for _, b := range bsps {
				fmt.Fprintf(out, " - %s\n", b)
			}
			return nil
		},
	}
}

func newPortsCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List available serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := serial.ListPorts()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(ports) == 0 {
				fmt.Fprintln(out, "No serial ports found")
				return nil
			}

			fmt.Fprintln(out, "Available serial ports:")
			for _, p := range ports {
				fmt.Fprintf(out, "  %s\n", p)
			}
			return nil
		},
	}
}

func newSdkconfigCmd(_ *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "sdkconfig <file>",
		Short: "Parse an ESP-IDF sdkconfig file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sdkconfig.ParseFile(args[0])
			if err != nil {
				return err
			}
			return writeSdkconfig(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}

func writeSdkconfig(w, errw io.Writer, cfg *sdkconfig.Config, format string) error {
	for _, warning := range cfg.Warnings {
		fmt.Fprintf(errw, "warning: %s\n", warning)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg.Values)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg.Values); err != nil {
			return err
		}
		return enc.Close()
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
		for _, key := range cfg.Keys {
			fmt.Fprintf(tw, "%s\t%v\n", key, cfg.Values[key])
		}
		return tw.Flush()
	default:
		return apperrors.NewValidationError("output", fmt.Sprintf("%q, choose from table, json, yaml", format))
	}
}
