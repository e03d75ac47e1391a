package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/meshx/meshx-tools/internal/serial"
	"github.com/meshx/meshx-tools/internal/target"
)

var detectSerialPort = serial.DetectPort

func newFlashCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "flash",
		Short: "Flash a built product to the device",
		Long: `Flash the firmware of one product with esptool.py.

The image list comes from the flash_args file in the product's build
directory. Without --port the single attached USB serial port is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, prod, err := a.prepareTarget(cmd.Context())
			if err != nil {
				return err
			}
			return t.Flash(cmd.Context(), a.buildDir(prod))
		},
	}
}

func newEraseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "erase",
		Short: "Erase the device flash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, prod, err := a.prepareTarget(cmd.Context())
			if err != nil {
				return err
			}
			return t.Erase(cmd.Context(), a.buildDir(prod))
		},
	}
}

func newRunCmd(a *app) *cobra.Command {
	var native bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Monitor the device serial output",
		Long: `Attach esp_idf_monitor to the device.

With --native the port is opened directly and the device output is copied
to stdout until interrupted; no python tooling is needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if native {
				return a.monitorNative(cmd)
			}
			t, prod, err := a.prepareTarget(cmd.Context())
			if err != nil {
				return err
			}
			return t.Monitor(cmd.Context(), a.buildDir(prod))
		},
	}
	cmd.Flags().BoolVar(&native, "native", false, "stream the serial port without esp_idf_monitor")
	return cmd
}

// prepareTarget validates the options, resolves the product and port, then
// checks the target's tools.
func (a *app) prepareTarget(ctx context.Context) (target.Target, string, error) {
	if err := a.validate(); err != nil {
		return nil, "", err
	}
	prod, err := a.singleProduct()
	if err != nil {
		return nil, "", err
	}
	if err := a.resolvePort(); err != nil {
		return nil, "", err
	}
	t, err := a.target()
	if err != nil {
		return nil, "", err
	}
	if err := t.CheckTools(ctx); err != nil {
		return nil, "", err
	}
	return t, prod, nil
}

func (a *app) target() (target.Target, error) {
	t, err := target.New(a.opts.Host, target.Options{
		Port:    a.opts.Port,
		Baud:    a.opts.Baud,
		Runner:  a.runner,
		Checker: a.checker(),
	})
	if err != nil {
		return nil, err
	}
	slog.Debug("using target", "host", t.Name(), "port", a.opts.Port)
	return t, nil
}

func (a *app) resolvePort() error {
	if a.opts.Port != "" {
		return nil
	}
	port, err := a.detectPort()
	if err != nil {
		return fmt.Errorf("no --port given: %w", err)
	}
	slog.Info("using auto-detected port", "port", port)
	a.opts.Port = port
	return nil
}

func (a *app) monitorNative(cmd *cobra.Command) error {
	if err := a.resolvePort(); err != nil {
		return err
	}
	port, err := serial.Open(a.opts.Port, a.opts.Baud)
	if err != nil {
		return err
	}
	defer port.Close()

	if err := port.HardReset(); err != nil {
		slog.Warn("hard reset failed", "port", a.opts.Port, "error", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "--- %s @ %d baud, Ctrl-C to exit ---\n", port.PortName(), port.BaudRate())
	return port.Monitor(cmd.Context(), cmd.OutOrStdout())
}
