// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore
//
// mkr5ctl - MKR5 fuel dispenser master client
//
// A CLI tool for talking to MKR5 pump controllers over serial or a
// WebSocket bridge: status queries, nozzle control, bus scanning, a live
// dashboard and an HTTP API.

package main

import (
	"os"

	"github.com/fuelcore/mkr5ctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(2)
	}
}
