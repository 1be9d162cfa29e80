package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRadioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "radio [status|on|off]",
		Short: "Show or switch the host Bluetooth radio power",
		Long: `Shows the power state of the host Bluetooth radio or switches it on or off.

Radio power is host-wide: switching it off drops every BLE link of every
application on this machine.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"status", "on", "off"},
		RunE:      runRadio,
	}
	return cmd
}

func runRadio(cmd *cobra.Command, args []string) error {
	action := "status"
	if len(args) == 1 {
		action = args[0]
	}
	if action != "status" && action != "on" && action != "off" {
		return fmt.Errorf("invalid action '%s': must be one of [status on off]", action)
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	h, err := newHandler(cfg, logger)
	if err != nil {
		return err
	}
	defer h.Close()

	ctx := cmd.Context()
	switch action {
	case "on":
		err = h.EnableBluetooth(ctx)
	case "off":
		err = h.DisableBluetooth(ctx)
	}
	if err != nil {
		return err
	}

	state := color.RedString("off")
	if h.BluetoothEnabled(ctx) {
		state = color.GreenString("on")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Bluetooth: %s\n", state)
	return nil
}
