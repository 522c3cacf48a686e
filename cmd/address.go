// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fuelcore/mkr5ctl/pkg/mkr5"
)

// parseAddress parses a pump address argument. Accepted forms:
//
//	0x52  explicit hex
//	82    decimal
//	52    bare hex, tried when the decimal reading falls outside the bus
//	      address range (pump panels label addresses in hex)
//
// The result must fall in the valid 0x50-0x6F range.
func parseAddress(arg string) (byte, error) {
	s := strings.TrimSpace(arg)

	var v uint64
	var err error
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		v, err = strconv.ParseUint(s[2:], 16, 8)
	default:
		v, err = strconv.ParseUint(s, 10, 8)
		if err != nil || v < mkr5.AddressMin || v > mkr5.AddressMax {
			if hv, herr := strconv.ParseUint(s, 16, 8); herr == nil &&
				hv >= mkr5.AddressMin && hv <= mkr5.AddressMax {
				v, err = hv, nil
			}
		}
	}
	if err != nil {
		return 0, fmt.Errorf("invalid pump address %q", arg)
	}
	if v < mkr5.AddressMin || v > mkr5.AddressMax {
		return 0, fmt.Errorf("pump address 0x%02X out of range (0x%02X-0x%02X)",
			v, mkr5.AddressMin, mkr5.AddressMax)
	}
	return byte(v), nil
}

// parseNozzle parses a nozzle number argument (1-15, 0 means "all" for
// commands that support it).
func parseNozzle(arg string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(arg), 10, 8)
	if err != nil || v > 15 {
		return 0, fmt.Errorf("invalid nozzle number %q (expected 0-15)", arg)
	}
	return uint8(v), nil
}

// validateNozzle checks a --nozzle flag value. The OPC byte only has a
// nibble for the nozzle, so anything above 15 would silently alias.
func validateNozzle(n uint8) error {
	if n < 1 || n > 15 {
		return fmt.Errorf("nozzle number %d out of range (1-15)", n)
	}
	return nil
}
