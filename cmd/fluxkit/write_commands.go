package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fluxkit/internal/diskimage"
	"fluxkit/internal/writer"
)

func newWriteCommand(ctx *commandContext) *cobra.Command {
	var flags rangeFlags

	cmd := &cobra.Command{
		Use:   "write <image.scp>",
		Short: "Write an SCP capture to disk, erasing tracks the capture lacks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			img, err := diskimage.OpenSCP(args[0])
			if err != nil {
				return err
			}
			start, end := img.Cylinders()
			rng, err := flags.resolve(cmd, cfg, writer.Range{StartCyl: start, EndCyl: end, Sides: img.Header().Sides()})
			if err != nil {
				return err
			}
			return runSession(cmd, ctx, sessionRequest{command: "write", image: img, label: args[0], rng: rng})
		},
	}
	flags.register(cmd)
	return cmd
}

func newEraseCommand(ctx *commandContext) *cobra.Command {
	var flags rangeFlags
	var blank bool
	var rpm float64

	cmd := &cobra.Command{
		Use:   "erase",
		Short: "Erase the disk with the verified reference pattern, or bulk-erase with --blank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			rng, err := flags.resolve(cmd, cfg, writer.Range{})
			if err != nil {
				return err
			}
			if rpm <= 0 {
				return fmt.Errorf("rpm must be positive")
			}
			var img diskimage.Image
			var label string
			if blank {
				img, label = diskimage.Blank{}, "blank"
			} else {
				p := diskimage.NewPattern(60 / rpm * 1e6)
				img, label = p, p.String()
			}
			return runSession(cmd, ctx, sessionRequest{command: "erase", image: img, label: label, rng: rng})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&blank, "blank", false, "Bulk erase without writing or verifying a pattern")
	cmd.Flags().Float64Var(&rpm, "rpm", 300, "Nominal drive speed the pattern is laid out for")
	return cmd
}
