// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fuelcore/mkr5ctl/pkg/mkr5"
)

var (
	scanFrom string
	scanTo   string
	scanAll  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the bus for pumps",
	Long: `Poll a range of addresses and print a line for every pump that
answers, including its decoded status. Addresses outside the valid
0x50-0x6F bus range are never polled.

Examples:
  # Scan the whole bus
  mkr5ctl scan --port /dev/ttyS4

  # Scan a sub-range
  mkr5ctl scan --from 0x50 --to 0x57 --port /dev/ttyS4

  # Print absent addresses too
  mkr5ctl scan --all --port /dev/ttyS4

Exit codes:
  0 - At least one pump found
  1 - No pumps found
  2 - Connection or argument error`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanFrom, "from", "0x50", "First address to scan")
	scanCmd.Flags().StringVar(&scanTo, "to", "0x6F", "Last address to scan")
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "Print absent addresses too")
}

func runScan(cmd *cobra.Command, args []string) error {
	low, err := parseAddress(scanFrom)
	if err != nil {
		return err
	}
	high, err := parseAddress(scanTo)
	if err != nil {
		return err
	}
	if low > high {
		return fmt.Errorf("scan range 0x%02X-0x%02X is inverted", low, high)
	}

	s, connInfo, cleanup, err := openSession()
	if err != nil {
		return err
	}
	defer cleanup()
	fmt.Fprintf(os.Stderr, "Connected: %s\n", connInfo)
	fmt.Fprintf(os.Stderr, "Scanning 0x%02X-0x%02X...\n", low, high)

	found := 0
	for res := range s.ScanRange(low, high) {
		if res.Present {
			found++
			if res.Status.Valid {
				fmt.Println(mkr5.FormatStatus(res.Status))
			} else {
				fmt.Printf("pump 0x%02X: present, status unavailable\n", res.Address)
			}
		} else if scanAll {
			fmt.Printf("pump 0x%02X: absent\n", res.Address)
		}
	}

	fmt.Fprintf(os.Stderr, "%d pump(s) found\n", found)
	if found == 0 {
		os.Exit(1)
	}
	return nil
}
