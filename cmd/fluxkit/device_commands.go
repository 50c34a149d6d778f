package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"fluxkit/internal/drive"
)

func newDeviceCommand(ctx *commandContext) *cobra.Command {
	var sysfsRoot string

	deviceCmd := &cobra.Command{
		Use:   "device",
		Short: "Find flux controllers attached over USB",
	}
	deviceCmd.PersistentFlags().StringVar(&sysfsRoot, "sysfs", drive.DefaultSysfsRoot, "tty class directory to scan")
	_ = deviceCmd.PersistentFlags().MarkHidden("sysfs")

	deviceCmd.AddCommand(newDeviceListCommand(&sysfsRoot))
	deviceCmd.AddCommand(newDeviceWaitCommand(ctx, &sysfsRoot))
	return deviceCmd
}

func newDeviceListCommand(sysfsRoot *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List USB serial ports and how likely each is a flux controller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := drive.ListPorts(*sysfsRoot)
			if err != nil {
				return fmt.Errorf("list serial ports: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(ports) == 0 {
				fmt.Fprintln(out, "No USB serial ports found")
				return nil
			}
			rows := make([][]string, 0, len(ports))
			for _, p := range ports {
				rows = append(rows, []string{
					p.Device,
					fmt.Sprintf("%04x:%04x", p.VID, p.PID),
					p.Manufacturer,
					p.Product,
					p.Serial,
					p.Location,
					strconv.Itoa(drive.ScorePort(p, nil)),
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Device", "VID:PID", "Manufacturer", "Product", "Serial", "Location", "Score"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			fmt.Fprintln(out)
			return nil
		},
	}
}

func newDeviceWaitCommand(ctx *commandContext, sysfsRoot *string) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until a flux controller is attached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("timeout") {
				timeout = time.Duration(cfg.Drive.WaitTimeoutSeconds) * time.Second
			}
			waitCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			p, err := drive.WaitForPort(waitCtx, *sysfsRoot, logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine("Controller", statusOK, p.Device, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "How long to wait (default from config)")
	return cmd
}
