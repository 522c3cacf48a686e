// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket bridge flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Diagnostics flags
	logLevel    string
	logFile     string
	captureFile string

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "mkr5ctl",
	Short: "MKR5 fuel dispenser master client",
	Long: `mkr5ctl - a master-side client for the MKR5 pump controller protocol.

Talks to fuel-dispenser pump controllers over a half-duplex serial bus,
one pump at a time. Provides status polling, filling information
retrieval, nozzle control, bus scanning, a live TUI and an HTTP API.

Connection modes:
  Serial:    --port /dev/ttyS4 [--baud 9600]
  WebSocket: --url ws://host/bridge [--username user]

The serial line must run 9600 baud, 8 data bits, 1 stop bit, odd parity;
mkr5ctl configures the port that way when it opens it. The WebSocket mode
expects a remote bridge relaying raw bus bytes in binary messages.

For WebSocket authentication, the password is read from the MKR5_PASSWORD
environment variable, or prompted interactively if not set.

Defaults for all flags can be placed in a config file (--config, or
$HOME/.mkr5ctl.yaml).`,
	Version: "1.2.0",
}

func init() {
	cobra.OnInitialize(loadConfig)

	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 9600, "Baud rate (serial only)")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket bridge URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file (rotated)")
	rootCmd.PersistentFlags().StringVar(&captureFile, "capture", "", "Append raw TX/RX exchange records to this file (CBOR)")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $HOME/.mkr5ctl.yaml)")
}

// loadConfig merges config-file values under explicitly set flags.
func loadConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".mkr5ctl")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("MKR5")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return // config file is optional
	}

	flags := rootCmd.PersistentFlags()
	if !flags.Changed("port") && viper.IsSet("port") {
		portName = viper.GetString("port")
	}
	if !flags.Changed("baud") && viper.IsSet("baud") {
		baudRate = viper.GetInt("baud")
	}
	if !flags.Changed("url") && viper.IsSet("url") {
		wsURL = viper.GetString("url")
	}
	if !flags.Changed("log-level") && viper.IsSet("logLevel") {
		logLevel = viper.GetString("logLevel")
	}
	if !flags.Changed("log-file") && viper.IsSet("logFile") {
		logFile = viper.GetString("logFile")
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
