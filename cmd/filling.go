// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fuelcore/mkr5ctl/pkg/mkr5"
)

var fillingNozzle uint8

var fillingCmd = &cobra.Command{
	Use:   "filling <address>",
	Short: "Query the last filling information of a pump",
	Long: `Send RETURN_FILLING_INFO to one pump and print the decoded reply:
delivered amount, delivered volume and unit price.

Volume is reported by the pump in thousandths of a litre, amount in
hundredths of the currency unit, and unit price in thousandths.

Examples:
  mkr5ctl filling 0x52 --port /dev/ttyS4

Exit codes:
  0 - Filling information received
  1 - Pump did not answer or the reply was unusable
  2 - Connection or argument error`,
	Args: cobra.ExactArgs(1),
	RunE: runFilling,
}

func init() {
	rootCmd.AddCommand(fillingCmd)
	fillingCmd.Flags().Uint8Var(&fillingNozzle, "nozzle", 1, "Nozzle number (1-15)")
}

func runFilling(cmd *cobra.Command, args []string) error {
	address, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	if err := validateNozzle(fillingNozzle); err != nil {
		return err
	}

	s, connInfo, cleanup, err := openSession()
	if err != nil {
		return err
	}
	defer cleanup()
	fmt.Fprintf(os.Stderr, "Connected: %s\n", connInfo)

	fi := s.GetFillingInfo(address, fillingNozzle)
	if !fi.Valid {
		fmt.Printf("pump 0x%02X: no usable filling reply\n", address)
		os.Exit(1)
	}

	fmt.Println(mkr5.FormatFillingInfo(fi))
	return nil
}
