// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package mkr5

import (
	"fmt"
	"strings"
)

// FormatFrameKind returns the mnemonic for a frame kind.
func FormatFrameKind(k FrameKind) string {
	switch k {
	case FramePoll:
		return "POLL"
	case FrameAck:
		return "ACK"
	case FrameNack:
		return "NACK"
	case FrameAckPoll:
		return "ACKPOLL"
	case FrameData:
		return "DATA"
	case FrameOther:
		return "OTHER"
	default:
		return "UNPARSEABLE"
	}
}

// FormatFrame renders a decoded frame for log and console output.
func FormatFrame(f Frame) string {
	var s strings.Builder
	fmt.Fprintf(&s, "%s addr=0x%02X", FormatFrameKind(f.Kind), f.Address)
	if f.Valid {
		fmt.Fprintf(&s, " tx=%d", f.TxNumber)
	}
	if f.Kind == FrameData {
		fmt.Fprintf(&s, " resp=%d nozzle=%d len=%d", f.ResponseType(), f.Nozzle(), f.Length)
		if len(f.Payload) > 0 {
			fmt.Fprintf(&s, " payload=%s", FormatBytes(f.Payload))
		}
	}
	if !f.Valid {
		fmt.Fprintf(&s, " raw=%s", FormatBytes(f.Raw))
	}
	return s.String()
}

// FormatStatus renders a pump status record on one line.
func FormatStatus(st PumpStatus) string {
	if !st.Valid {
		return "status unavailable"
	}
	flags := make([]string, 0, 3)
	if st.NozzleOn {
		flags = append(flags, "nozzle-on")
	}
	if st.RFTagSensed {
		flags = append(flags, "rf-tag")
	}
	if st.ErrorFlag {
		flags = append(flags, "error")
	}
	line := fmt.Sprintf("pump 0x%02X nozzle %d: %s (0x%02X)",
		st.Address, st.NozzleNumber, st.Description, uint8(st.Status))
	if len(flags) > 0 {
		line += " [" + strings.Join(flags, ",") + "]"
	}
	return line
}

// FormatFillingInfo renders a filling record on one line. Volume is
// delivered in thousandths of a litre and amount in hundredths of the
// currency unit.
func FormatFillingInfo(fi FillingInfo) string {
	if !fi.Valid {
		return "filling information unavailable"
	}
	return fmt.Sprintf("pump 0x%02X: volume %.3f L, amount %.2f, unit price %.3f",
		fi.Address, float64(fi.Volume)/1000, float64(fi.Amount)/100, float64(fi.Price)/1000)
}

// FormatBytes renders a byte sequence as spaced uppercase hex.
func FormatBytes(b []byte) string {
	var s strings.Builder
	for i, v := range b {
		if i > 0 {
			s.WriteByte(' ')
		}
		fmt.Fprintf(&s, "%02X", v)
	}
	return s.String()
}
