// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var pollCmd = &cobra.Command{
	Use:   "poll <address>",
	Short: "Check whether a pump answers at an address",
	Long: `Send a short POLL frame to one address and report whether anything
answered within the poll window. Presence only; use "status" for the
decoded state.

Examples:
  mkr5ctl poll 0x52 --port /dev/ttyS4

Exit codes:
  0 - Pump present
  1 - No answer
  2 - Connection or argument error`,
	Args: cobra.ExactArgs(1),
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, args []string) error {
	address, err := parseAddress(args[0])
	if err != nil {
		return err
	}

	s, connInfo, cleanup, err := openSession()
	if err != nil {
		return err
	}
	defer cleanup()
	fmt.Fprintf(os.Stderr, "Connected: %s\n", connInfo)

	if !s.Poll(address) {
		fmt.Printf("pump 0x%02X: no answer\n", address)
		os.Exit(1)
	}
	fmt.Printf("pump 0x%02X: present\n", address)
	return nil
}
