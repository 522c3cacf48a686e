// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package mkr5

// FrameKind classifies a decoded byte sequence.
type FrameKind int

// Frame kinds
const (
	FrameUnparseable FrameKind = iota
	FramePoll
	FrameAck
	FrameNack
	FrameAckPoll
	FrameData
	// FrameOther covers sequences whose CRC verifies but whose control
	// nibble is not a known code. Some controllers answer with the
	// master's own control byte echoed back.
	FrameOther
)

// Frame is one decoded protocol message. Decode never fails: sequences
// that cannot be classified come back as FrameUnparseable with Raw
// holding the original bytes for diagnostics.
type Frame struct {
	Raw []byte

	Kind        FrameKind
	Address     byte
	Master      bool
	TxNumber    uint8
	ControlCode uint8

	// DATA frame fields. Length counts the OPC byte plus the payload.
	Length  uint8
	OPC     byte
	Payload []byte

	// Valid is true when the frame's integrity checks out: a verifying
	// CRC residue for long frames, or intact markers for 3-byte control
	// frames. Only Valid frames are worth decoding further.
	Valid bool
}

// ResponseType returns the pump response type (high nibble of OPC).
func (f Frame) ResponseType() uint8 {
	return f.OPC >> 4
}

// Nozzle returns the nozzle number carried in the OPC byte.
func (f Frame) Nozzle() uint8 {
	return f.OPC & 0x0F
}

// TxCounter is the 4-bit transaction number threaded through every DATA
// frame a session sends. It cycles 1..15; zero is reserved and skipped.
type TxCounter struct {
	n uint8
}

// NewTxCounter returns a counter whose first Next is 1.
func NewTxCounter() *TxCounter {
	return &TxCounter{n: 1}
}

// Next returns the current transaction number and advances the counter,
// wrapping 15 back to 1.
func (t *TxCounter) Next() uint8 {
	if t.n == 0 || t.n > txMask {
		t.n = 1
	}
	n := t.n
	if t.n == txMask {
		t.n = 1
	} else {
		t.n++
	}
	return n
}

// BuildPoll builds a poll frame for the given pump address. Poll frames
// carry the master flag, transaction number zero and no CRC.
func BuildPoll(address byte) []byte {
	return []byte{address, masterFlag | ControlPoll, StopFlag}
}

// BuildAck builds a short acknowledgement frame.
func BuildAck(address byte, tx uint8) []byte {
	return []byte{address, masterFlag | (tx&txMask)<<txShift | ControlAck, StopFlag}
}

// BuildData builds a full DATA frame carrying a master command.
// The length byte counts the OPC byte plus extra, the CRC protects
// address through the last payload byte, and the caller supplies the
// transaction number (see TxCounter).
func BuildData(address byte, cmd Command, nozzle uint8, extra []byte, tx uint8) []byte {
	frame := make([]byte, 0, 4+len(extra)+4)
	frame = append(frame, address)
	frame = append(frame, masterFlag|(tx&txMask)<<txShift|ControlData)
	frame = append(frame, byte(1+len(extra)))
	frame = append(frame, byte(cmd)<<4|nozzle&0x0F)
	frame = append(frame, extra...)
	frame = appendChecksum(frame)
	return append(frame, ETX, StopFlag)
}

// Decode classifies a received byte sequence.
//
// Three-byte sequences are short control frames (POLL/ACK/NACK carry no
// CRC). Longer sequences are checked for a zero CRC residue over
// everything up to the CRC bytes; the ETX/STOP_FLAG tail is stripped
// leniently, so a frame with a mangled or missing terminator is still
// decoded if its CRC verifies. Everything else is FrameUnparseable.
func Decode(raw []byte) Frame {
	f := Frame{Raw: raw}

	if len(raw) == 3 {
		f.Address = raw[0]
		f.Master = raw[1]&masterFlag != 0
		f.TxNumber = raw[1] >> txShift & txMask
		f.ControlCode = raw[1] & 0x0F
		switch f.ControlCode {
		case ControlPoll:
			f.Kind = FramePoll
		case ControlAck:
			f.Kind = FrameAck
		case ControlNack:
			f.Kind = FrameNack
		case ControlAckPoll:
			f.Kind = FrameAckPoll
		default:
			return f
		}
		// Control frames carry no CRC; the stop flag is the only
		// integrity marker. Classification is kept for diagnostics even
		// when the marker is wrong.
		f.Valid = raw[2] == StopFlag
		return f
	}

	if len(raw) < 7 {
		return f
	}

	// Strip the terminator: ETX+SF normally, but tolerate either byte
	// missing rather than discard a recoverable payload.
	span := raw
	if n := len(span); span[n-1] == StopFlag && span[n-2] == ETX {
		span = span[:n-2]
	} else if span[n-1] == ETX {
		span = span[:n-1]
	}
	if len(span) < 5 {
		return f
	}

	// Zero residue over address..payload..crc proves integrity.
	if Checksum(span) != 0 {
		return f
	}

	f.Address = raw[0]
	f.Master = raw[1]&masterFlag != 0
	f.TxNumber = raw[1] >> txShift & txMask
	f.ControlCode = raw[1] & 0x0F
	f.Valid = true

	if f.ControlCode != ControlData {
		// CRC verifies but the control nibble is not DATA; report the
		// frame as valid without interpreting the payload bytes.
		f.Kind = FrameOther
		return f
	}

	f.Kind = FrameData
	f.Length = raw[2]
	f.OPC = raw[3]
	end := 4 + int(f.Length) - 1
	if end > len(span)-2 {
		end = len(span) - 2
	}
	if end > 4 {
		f.Payload = raw[4:end]
	}
	return f
}
