package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fluxkit/internal/fileutil"
	"fluxkit/internal/flux"
	"fluxkit/internal/logging"
	"fluxkit/internal/scp"
)

func newResampleCommand(ctx *commandContext) *cobra.Command {
	var rpm float64

	cmd := &cobra.Command{
		Use:   "resample <in.scp> <out.scp>",
		Short: "Rescale every revolution of a capture to a nominal RPM",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			logger = logging.NewComponentLogger(logger, "resample")

			capture, err := readCapture(args[0])
			if err != nil {
				return err
			}
			h := capture.Header
			b, err := scp.NewBuilder(h.Revolutions, h.Heads)
			if err != nil {
				return err
			}

			var rows [][]string
			for _, n := range capture.TrackNumbers() {
				t, err := capture.Track(n, true)
				if err != nil {
					return fmt.Errorf("track %d: %w", n, err)
				}
				if t.Empty {
					continue
				}
				src, err := t.Flux()
				if err != nil {
					return err
				}
				norm, err := flux.NormaliseRPM(src, rpm)
				if err != nil {
					return fmt.Errorf("track %d: %w", n, err)
				}
				if err := b.AddTrack(n, norm); err != nil {
					return err
				}
				rows = append(rows, []string{
					strconv.Itoa(n),
					revolutionRPMs(src),
					formatCount(len(norm.Intervals)),
				})
				logger.Debug("track normalised", logging.Int("track", n), logging.Int("intervals", len(norm.Intervals)))
			}

			data, err := b.Bytes()
			if err != nil {
				return err
			}
			if err := fileutil.WriteFileVerified(args[1], data, 0o644); err != nil {
				return fmt.Errorf("write capture: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderTable(
				[]string{"Track", "Source RPM", "Intervals"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight},
			))
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Wrote %d tracks at %g RPM to %s\n", len(rows), rpm, args[1])
			return nil
		},
	}

	cmd.Flags().Float64Var(&rpm, "rpm", 300, "Nominal drive speed")
	return cmd
}

func revolutionRPMs(f *flux.Flux) string {
	parts := make([]string, len(f.IndexList))
	for i, ticks := range f.IndexList {
		parts[i] = fmt.Sprintf("%.2f", 60*f.SampleRate.Hz()/ticks)
	}
	return strings.Join(parts, " ")
}
