// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fuelcore/mkr5ctl/pkg/mkr5"
)

var (
	monitorAddress string
	monitorDecode  bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Passively log bus traffic",
	Long: `Read the bus without transmitting and print every frame that
arrives, timestamped, as raw hex. With --decode each frame is also run
through the frame decoder and printed in mnemonic form.

This is a listening tap: it never writes to the bus, so it can run
alongside another master for troubleshooting.

Examples:
  mkr5ctl monitor --port /dev/ttyS4 --decode
  mkr5ctl monitor --address 0x52 --port /dev/ttyS4

Press Ctrl+C to stop.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringVar(&monitorAddress, "address", "0x50", "Address used for echo suppression")
	monitorCmd.Flags().BoolVar(&monitorDecode, "decode", false, "Decode frames instead of raw hex only")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	address, err := parseAddress(monitorAddress)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()
	fmt.Fprintf(os.Stderr, "Connected: %s\n", connInfo)
	fmt.Fprintln(os.Stderr, "Monitoring bus traffic, press Ctrl+C to stop")

	var capw *mkr5.CaptureWriter
	if captureFile != "" {
		f, err := os.OpenFile(captureFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open capture file: %v", err)
		}
		defer f.Close()
		capw = mkr5.NewCaptureWriter(f)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	asm := mkr5.NewAssembler(conn)
	frames := 0
	for {
		select {
		case <-sig:
			fmt.Fprintf(os.Stderr, "\n%d frame(s) seen\n", frames)
			return nil
		default:
		}

		raw := asm.Receive(address, 500*time.Millisecond)
		if len(raw) == 0 {
			continue
		}
		frames++

		ts := time.Now().Format("15:04:05.000")
		if monitorDecode {
			fmt.Printf("[%s] %s\n", ts, mkr5.FormatFrame(mkr5.Decode(raw)))
		} else {
			fmt.Printf("[%s] %s\n", ts, mkr5.FormatBytes(raw))
		}
		if capw != nil {
			capw.Record("rx", address, raw)
		}
	}
}
