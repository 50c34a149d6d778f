package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fluxkit/internal/flux"
)

func newEncodeCommand() *cobra.Command {
	encodeCmd := &cobra.Command{
		Use:         "encode",
		Short:       "Convert bit patterns to flux intervals",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	encodeCmd.AddCommand(newEncodeErasePatternCommand())
	encodeCmd.AddCommand(newEncodeHexCommand())
	return encodeCmd
}

func newEncodeErasePatternCommand() *cobra.Command {
	var rateMHz float64
	var show bool

	cmd := &cobra.Command{
		Use:   "erase-pattern",
		Short: "Encode the reference erase pattern at a sample clock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printEncoded(cmd, flux.ErasePattern(), flux.TickRate(rateMHz), show)
		},
	}
	cmd.Flags().Float64Var(&rateMHz, "rate", float64(flux.DefaultDriveRate), "Destination sample clock in MHz")
	cmd.Flags().BoolVar(&show, "show", false, "Print every interval")
	return cmd
}

func newEncodeHexCommand() *cobra.Command {
	var rateMHz float64
	var show bool

	cmd := &cobra.Command{
		Use:   "hex <bytes>",
		Short: "Encode raw bits given as hex bytes, most significant bit first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseHexBytes(args[0])
			if err != nil {
				return err
			}
			return printEncoded(cmd, flux.BitsFromBytes(data), flux.TickRate(rateMHz), show)
		},
	}
	cmd.Flags().Float64Var(&rateMHz, "rate", float64(flux.DefaultDriveRate), "Destination sample clock in MHz")
	cmd.Flags().BoolVar(&show, "show", false, "Print every interval")
	return cmd
}

// parseHexBytes accepts an optional 0x prefix and spaces between bytes.
func parseHexBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.ReplaceAll(strings.TrimSpace(s), " ", ""), "0x")
	if s == "" {
		return nil, fmt.Errorf("hex input is empty")
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("parse hex input %q: %w", s, err)
	}
	return data, nil
}

func printEncoded(cmd *cobra.Command, bits flux.Bits, rate flux.TickRate, show bool) error {
	intervals, err := flux.EncodeBits(bits)
	if err != nil {
		return err
	}
	scaled, err := flux.Rescale(intervals, flux.ReferenceRate.RatioTo(rate))
	if err != nil {
		return err
	}
	total := flux.New(nil, scaled, rate).TotalTicks()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderField("Bits", formatCount(len(bits))))
	fmt.Fprintln(out, renderField("Transitions", formatCount(bits.Ones())))
	fmt.Fprintln(out, renderField("Intervals", formatCount(len(scaled))))
	fmt.Fprintln(out, renderField("Sample clock", fmt.Sprintf("%g MHz", float64(rate))))
	fmt.Fprintln(out, renderField("Duration", fmt.Sprintf("%s ticks (%s)", formatCount(total), formatMicros(rate.Microseconds(float64(total))))))
	if !show {
		return nil
	}
	const perLine = 16
	for i := 0; i < len(scaled); i += perLine {
		end := min(i+perLine, len(scaled))
		parts := make([]string, 0, end-i)
		for _, x := range scaled[i:end] {
			parts = append(parts, strconv.FormatUint(uint64(x), 10))
		}
		fmt.Fprintln(out, strings.Join(parts, " "))
	}
	return nil
}
