// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/systolink/pkg/accel"
)

var rawReadCount int

var rawCmd = &cobra.Command{
	Use:   "raw BYTE",
	Short: "Send one arbitrary byte and dump the reply",
	Long: `Send a single byte and display whatever arrives within --read-timeout as
a hex dump, with each byte classified against the response alphabet.

BYTE is a single character (e.g. "?") or a hex value (e.g. 0x3F). Bytes
outside the command set are sent as-is; the device is expected to ignore
them.`,
	Args: cobra.ExactArgs(1),
	RunE: runRaw,
}

func init() {
	rootCmd.AddCommand(rawCmd)
	rawCmd.Flags().IntVar(&rawReadCount, "read", 1, "Maximum reply bytes to read")
}

func parseRawByte(arg string) (byte, error) {
	if len(arg) == 1 {
		return arg[0], nil
	}
	if strings.HasPrefix(arg, "0x") || strings.HasPrefix(arg, "0X") {
		v, err := strconv.ParseUint(arg[2:], 16, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid hex byte %q: %w", arg, err)
		}
		return byte(v), nil
	}
	return 0, fmt.Errorf("invalid byte %q: use one character or 0xNN", arg)
}

func runRaw(cmd *cobra.Command, args []string) error {
	b, err := parseRawByte(args[0])
	if err != nil {
		return failure("%w", err)
	}
	if rawReadCount < 1 {
		return failure("--read must be at least 1")
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	out := cmd.OutOrStdout()
	printHeader(out, "Raw", s)

	c := accel.Command(b)
	reply, err := s.Raw(c, rawReadCount)
	if err != nil {
		return connectionFailure(err)
	}

	fmt.Fprintf(out, "Sent:  %s\n", accel.FormatReply([]byte{b}))
	fmt.Fprintf(out, "Reply: %s\n", accel.FormatReply(reply))
	for i, r := range reply {
		fmt.Fprintf(out, "  [%d] %s\n", i, accel.DecodeResponse(r))
	}
	if len(reply) < rawReadCount {
		fmt.Fprintf(out, "(%d of %d bytes before timeout)\n", len(reply), rawReadCount)
	}
	return nil
}
