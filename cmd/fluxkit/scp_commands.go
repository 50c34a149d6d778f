package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fluxkit/internal/scp"
)

func newSCPCommand() *cobra.Command {
	scpCmd := &cobra.Command{
		Use:         "scp",
		Short:       "Inspect SCP flux captures",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	scpCmd.AddCommand(newSCPInfoCommand())
	scpCmd.AddCommand(newSCPDumpCommand())
	return scpCmd
}

func readCapture(path string) (*scp.Capture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capture: %w", err)
	}
	return scp.Parse(data)
}

func newSCPInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.scp>",
		Short: "Show the container header and per-track revolution summaries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			capture, err := readCapture(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			h := capture.Header

			for _, line := range renderSectionHeader("Capture", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderField("File", args[0]))
			fmt.Fprintln(out, renderField("Version", fmt.Sprintf("%d.%d", h.Version>>4, h.Version&0x0f)))
			fmt.Fprintln(out, renderField("Disk type", fmt.Sprintf("0x%02x", h.DiskType)))
			fmt.Fprintln(out, renderField("Revolutions", strconv.Itoa(h.Revolutions)))
			fmt.Fprintln(out, renderField("Tracks", fmt.Sprintf("%d-%d", h.StartTrack, h.EndTrack)))
			fmt.Fprintln(out, renderField("Sides", strconv.Itoa(h.Sides())))
			if capture.ChecksumValid() {
				fmt.Fprintln(out, renderStatusLine("Checksum", statusOK, fmt.Sprintf("0x%08x", h.Checksum), colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Checksum", statusWarn, fmt.Sprintf("0x%08x does not match the data", h.Checksum), colorize))
			}
			fmt.Fprintln(out)

			var rows [][]string
			for _, n := range capture.TrackNumbers() {
				t, err := capture.Track(n, false)
				if err != nil {
					return fmt.Errorf("track %d: %w", n, err)
				}
				if t.Empty {
					continue
				}
				durations := make([]string, len(t.Revolutions))
				samples := 0
				for i, r := range t.Revolutions {
					durations[i] = fmt.Sprintf("%.2f", r.Microseconds()/1000)
					samples += int(r.Samples)
				}
				rows = append(rows, []string{
					strconv.Itoa(n),
					fmt.Sprintf("%d.%d", n/2, n%2),
					formatCount(samples),
					strings.Join(durations, " "),
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No tracks captured")
				return nil
			}
			fmt.Fprint(out, renderTable(
				[]string{"Track", "Cyl.Head", "Samples", "Revolutions (ms)"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintln(out)
			return nil
		},
	}
}

func newSCPDumpCommand() *cobra.Command {
	var track int
	var limit int

	cmd := &cobra.Command{
		Use:   "dump <file.scp>",
		Short: "Print a track's index times and flux samples, flagging suspect intervals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read capture: %w", err)
			}
			t, err := scp.ParseCapture(data, track, true)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if t.Empty {
				fmt.Fprintf(out, "Track %d was not captured\n", track)
				return nil
			}

			for i, r := range t.Revolutions {
				fmt.Fprintf(out, "Revolution %d: index at %s, %s samples\n", i, formatMicros(t.IndexTimes[i]), formatCount(r.Samples))
			}

			us := t.Microseconds()
			shown := us
			if limit > 0 && limit < len(shown) {
				shown = shown[:limit]
			}
			for i, v := range shown {
				flag := ""
				if scp.Classify(v) == scp.Suspect {
					flag = " BAD"
				}
				fmt.Fprintf(out, "%8d %10.3f%s\n", i, v, flag)
			}

			suspect := scp.CountSuspect(us)
			pct := 0.0
			if len(us) > 0 {
				pct = float64(suspect) * 100 / float64(len(us))
			}
			fmt.Fprintf(out, "Total: %s samples, %s suspect (%.2f%%)\n", formatCount(len(us)), formatCount(suspect), pct)
			return nil
		},
	}

	cmd.Flags().IntVarP(&track, "track", "t", 0, "Track number (cylinder*2 + head)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Print at most this many samples (0 prints all)")
	return cmd
}
