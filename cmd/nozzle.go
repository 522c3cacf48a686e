// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fuelcore/mkr5ctl/pkg/mkr5"
)

var nozzleNumber uint8

var nozzleCmd = &cobra.Command{
	Use:   "nozzle",
	Short: "Nozzle control commands",
	Long: `Send nozzle control commands to a pump: authorize, reset, pause,
resume, stop or disable a nozzle.

Each subcommand sends one command frame and prints the pump's decoded
status reply when one arrives.`,
}

func init() {
	rootCmd.AddCommand(nozzleCmd)
	nozzleCmd.PersistentFlags().Uint8VarP(&nozzleNumber, "nozzle", "n", 1, "Nozzle number (1-15)")

	for _, sub := range []struct {
		use   string
		short string
		cmd   mkr5.Command
	}{
		{"authorize <address>", "Authorize a nozzle for delivery", mkr5.CmdAuthorizeNozzle},
		{"reset <address>", "Reset a nozzle", mkr5.CmdResetNozzle},
		{"pause <address>", "Pause an ongoing delivery", mkr5.CmdPauseDelivery},
		{"resume <address>", "Resume a paused delivery", mkr5.CmdResumeDelivery},
		{"stop <address>", "Stop a nozzle", mkr5.CmdStopNozzle},
		{"disable <address>", "Disable a nozzle", mkr5.CmdDisableNozzle},
	} {
		code := sub.cmd
		nozzleCmd.AddCommand(&cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runNozzleCommand(code, args[0])
			},
		})
	}
}

func runNozzleCommand(code mkr5.Command, addrArg string) error {
	address, err := parseAddress(addrArg)
	if err != nil {
		return err
	}
	if err := validateNozzle(nozzleNumber); err != nil {
		return err
	}

	s, connInfo, cleanup, err := openSession()
	if err != nil {
		return err
	}
	defer cleanup()
	fmt.Fprintf(os.Stderr, "Connected: %s\n", connInfo)

	raw, err := s.SendCommand(address, code, nozzleNumber, nil)
	if err == mkr5.ErrNoResponse {
		fmt.Printf("pump 0x%02X: %s sent, no reply\n", address, mkr5.CommandName(code))
		os.Exit(1)
	}
	if err != nil {
		return err
	}

	f := mkr5.Decode(raw)
	fmt.Printf("pump 0x%02X: %s -> %s\n", address, mkr5.CommandName(code), mkr5.FormatFrame(f))
	if st := mkr5.ParseStatus(f); st.Valid {
		st.Address = address
		fmt.Println(mkr5.FormatStatus(st))
	}
	return nil
}
