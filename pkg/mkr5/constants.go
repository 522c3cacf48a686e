// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

// Package mkr5 implements the master side of the MKR5 poll/select serial
// protocol used by fuel-dispenser pump controllers.
//
// MKR5 is a half-duplex binary protocol: the master addresses one pump at a
// time, sends a framed command and waits for a framed reply. This package
// provides frame encoding/decoding, CRC validation, the byte-level receive
// assembler that recovers replies from a noisy echo-prone line, and a
// session type that sequences whole exchanges.
package mkr5

// Protocol framing bytes
const (
	ETX      = 0x03 // end of text, precedes the stop flag on CRC frames
	StopFlag = 0xFA // terminates every frame
)

// Pump address range on the bus
const (
	AddressMin = 0x50
	AddressMax = 0x6F
)

// Minimum length of a full DATA frame on the wire:
// addr, ctrl, lng, opc, crcLo, crcHi, ETX, SF
const MinDataFrameSize = 8

// Control codes (low nibble of the control byte)
const (
	ControlPoll    = 0x01
	ControlAck     = 0x02
	ControlNack    = 0x03
	ControlData    = 0x04
	ControlAckPoll = 0x05
)

// Control byte bit layout: bit 7 master flag, bits 6-4 transaction number,
// bits 3-0 control code.
const (
	masterFlag = 0x80
	txShift    = 4
	txMask     = 0x0F
)

// Command represents a master command code (high nibble of the OPC byte).
type Command uint8

// Master commands
const (
	CmdReturnStatus      Command = 0x00
	CmdResetNozzle       Command = 0x01
	CmdAuthorizeNozzle   Command = 0x02
	CmdPauseDelivery     Command = 0x03
	CmdResumeDelivery    Command = 0x04
	CmdReturnFillingInfo Command = 0x05
	CmdReturnTotalizer   Command = 0x06
	CmdPriceUpdate       Command = 0x07
	CmdPresetAmount      Command = 0x08
	CmdPresetVolume      Command = 0x09
	CmdDisableNozzle     Command = 0x0A
	CmdStopNozzle        Command = 0x0B
)

// Pump response types (high nibble of the OPC byte on inbound DATA frames)
const (
	RespNozzleStatus = 0x00
	RespErrorCode    = 0x01
	RespFillingInfo  = 0x02
	RespTotalizer    = 0x03
)

// NozzleStatus represents the pump status code (low nibble of the status byte).
type NozzleStatus uint8

// Nozzle status codes
const (
	StatusIdle             NozzleStatus = 0x00
	StatusReadyForDelivery NozzleStatus = 0x01
	StatusReset            NozzleStatus = 0x02
	StatusAuthorized       NozzleStatus = 0x03
	StatusFilling          NozzleStatus = 0x04
	StatusPaused           NozzleStatus = 0x05
	StatusDisabled         NozzleStatus = 0x06
	StatusStopped          NozzleStatus = 0x07
	StatusNotProgrammed    NozzleStatus = 0x08
)

// Status byte bit layout: bits 0-3 status code, bit 4 nozzle on,
// bit 5 RF tag sensed, bit 6 error flag. Bit 7 is unmapped.
const (
	statusCodeMask  = 0x0F
	statusNozzleOn  = 0x10
	statusRFTag     = 0x20
	statusErrorFlag = 0x40
)

// CommandName returns the mnemonic for a master command code.
func CommandName(c Command) string {
	switch c {
	case CmdReturnStatus:
		return "RETURN_STATUS"
	case CmdResetNozzle:
		return "RESET_NOZZLE"
	case CmdAuthorizeNozzle:
		return "AUTHORIZE_NOZZLE"
	case CmdPauseDelivery:
		return "PAUSE_DELIVERY"
	case CmdResumeDelivery:
		return "RESUME_DELIVERY"
	case CmdReturnFillingInfo:
		return "RETURN_FILLING_INFO"
	case CmdReturnTotalizer:
		return "RETURN_TOTALIZER"
	case CmdPriceUpdate:
		return "PRICE_UPDATE"
	case CmdPresetAmount:
		return "PRESET_AMOUNT"
	case CmdPresetVolume:
		return "PRESET_VOLUME"
	case CmdDisableNozzle:
		return "DISABLE_NOZZLE"
	case CmdStopNozzle:
		return "STOP_NOZZLE"
	default:
		return "UNKNOWN"
	}
}
