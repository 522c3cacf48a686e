// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fuelcore/mkr5ctl/pkg/mkr5"
)

var statusNozzle uint8

var statusCmd = &cobra.Command{
	Use:   "status <address>",
	Short: "Query the nozzle status of a pump",
	Long: `Send RETURN_STATUS to one pump and print the decoded reply.

The address may be given in hex (0x52), decimal (82), or bare hex (52).

Examples:
  mkr5ctl status 0x52 --port /dev/ttyS4
  mkr5ctl status 0x52 --nozzle 2 --url ws://bridge.local/bus

Exit codes:
  0 - Status received
  1 - Pump did not answer or the reply was unusable
  2 - Connection or argument error`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Uint8Var(&statusNozzle, "nozzle", 1, "Nozzle number (1-15)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	address, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	if err := validateNozzle(statusNozzle); err != nil {
		return err
	}

	s, connInfo, cleanup, err := openSession()
	if err != nil {
		return err
	}
	defer cleanup()
	fmt.Fprintf(os.Stderr, "Connected: %s\n", connInfo)

	st := s.GetStatus(address, statusNozzle)
	if !st.Valid {
		fmt.Printf("pump 0x%02X: no usable status reply\n", address)
		os.Exit(1)
	}

	fmt.Println(mkr5.FormatStatus(st))
	return nil
}
