// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package mkr5

import (
	"bytes"
	"testing"
)

func TestBuildPoll(t *testing.T) {
	got := BuildPoll(0x52)
	want := []byte{0x52, 0x81, 0xFA}
	if !bytes.Equal(got, want) {
		t.Errorf("BuildPoll = % X, want % X", got, want)
	}
}

func TestBuildAck(t *testing.T) {
	got := BuildAck(0x50, 3)
	want := []byte{0x50, 0x80 | 3<<4 | ControlAck, 0xFA}
	if !bytes.Equal(got, want) {
		t.Errorf("BuildAck = % X, want % X", got, want)
	}
}

func TestBuildData_Layout(t *testing.T) {
	frame := BuildData(0x52, CmdReturnStatus, 1, nil, 1)

	if len(frame) != MinDataFrameSize {
		t.Fatalf("frame length = %d, want %d", len(frame), MinDataFrameSize)
	}
	if frame[0] != 0x52 {
		t.Errorf("address = 0x%02X, want 0x52", frame[0])
	}
	if frame[1] != 0x94 { // master | tx 1 | DATA
		t.Errorf("control = 0x%02X, want 0x94", frame[1])
	}
	if frame[2] != 0x01 {
		t.Errorf("length = 0x%02X, want 0x01", frame[2])
	}
	if frame[3] != 0x01 { // RETURN_STATUS << 4 | nozzle 1
		t.Errorf("opc = 0x%02X, want 0x01", frame[3])
	}
	if frame[6] != ETX || frame[7] != StopFlag {
		t.Errorf("terminator = %02X %02X, want 03 FA", frame[6], frame[7])
	}
	if residue := Checksum(frame[:6]); residue != 0 {
		t.Errorf("CRC residue = 0x%04X, want 0", residue)
	}
}

func TestBuildData_ExtraPayload(t *testing.T) {
	extra := []byte{0x12, 0x34}
	frame := BuildData(0x60, CmdAuthorizeNozzle, 2, extra, 7)

	if frame[2] != 3 {
		t.Errorf("length byte = %d, want 3", frame[2])
	}
	if frame[3] != 0x22 {
		t.Errorf("opc = 0x%02X, want 0x22", frame[3])
	}
	if !bytes.Equal(frame[4:6], extra) {
		t.Errorf("extra payload = % X, want % X", frame[4:6], extra)
	}
	if residue := Checksum(frame[:len(frame)-2]); residue != 0 {
		t.Errorf("CRC residue = 0x%04X, want 0", residue)
	}
}

func TestTxCounter_WrapsSkippingZero(t *testing.T) {
	tx := NewTxCounter()
	want := []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 1, 2}
	for i, w := range want {
		if got := tx.Next(); got != w {
			t.Fatalf("call %d: tx = %d, want %d", i+1, got, w)
		}
	}
}

func TestDecode_WorkedExample(t *testing.T) {
	// addr 0x52, control 0x00, payload 01 01 00, CRC 20EE low byte first.
	raw := []byte{0x52, 0x00, 0x01, 0x01, 0x00, 0xEE, 0x20, 0x03, 0xFA}
	f := Decode(raw)

	if !f.Valid {
		t.Fatal("frame should be valid")
	}
	if f.Address != 0x52 {
		t.Errorf("address = 0x%02X, want 0x52", f.Address)
	}
	if f.Kind == FrameUnparseable {
		t.Error("frame should not be unparseable")
	}
}

func TestDecode_ShortControlFrames(t *testing.T) {
	tests := []struct {
		name  string
		raw   []byte
		kind  FrameKind
		tx    uint8
		valid bool
	}{
		{"poll", []byte{0x52, 0x81, 0xFA}, FramePoll, 0, true},
		{"ack", []byte{0x52, 0xA2, 0xFA}, FrameAck, 2, true},
		{"nack", []byte{0x52, 0x93, 0xFA}, FrameNack, 1, true},
		{"ackpoll", []byte{0x52, 0x85, 0xFA}, FrameAckPoll, 0, true},
		{"unknown code", []byte{0x52, 0x8F, 0xFA}, FrameUnparseable, 0, false},
		{"poll missing stop flag", []byte{0x52, 0x81, 0x00}, FramePoll, 0, false},
		{"ack wrong marker", []byte{0x52, 0xA2, 0x03}, FrameAck, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Decode(tt.raw)
			if f.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", f.Kind, tt.kind)
			}
			if f.Valid != tt.valid {
				t.Errorf("valid = %v, want %v", f.Valid, tt.valid)
			}
			if tt.kind != FrameUnparseable && f.TxNumber != tt.tx {
				t.Errorf("tx = %d, want %d", f.TxNumber, tt.tx)
			}
		})
	}
}

func TestDecode_DataRoundTrip(t *testing.T) {
	frame := BuildData(0x55, CmdReturnStatus, 1, nil, 5)
	f := Decode(frame)

	if f.Kind != FrameData || !f.Valid {
		t.Fatalf("kind=%v valid=%v, want DATA/valid", f.Kind, f.Valid)
	}
	if f.Address != 0x55 || f.TxNumber != 5 || f.Length != 1 || f.OPC != 0x01 {
		t.Errorf("decoded fields addr=0x%02X tx=%d len=%d opc=0x%02X",
			f.Address, f.TxNumber, f.Length, f.OPC)
	}
	if !f.Master {
		t.Error("master flag should be set")
	}
}

func TestDecode_MissingStopFlag(t *testing.T) {
	// A malformed tail must not discard a recoverable payload.
	frame := BuildData(0x52, CmdReturnStatus, 1, nil, 1)
	f := Decode(frame[:len(frame)-1]) // drop SF, keep ETX
	if !f.Valid || f.Kind != FrameData {
		t.Errorf("frame without stop flag: valid=%v kind=%v, want valid DATA", f.Valid, f.Kind)
	}
}

func TestDecode_Garbage(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"too short", []byte{0x52, 0x81}},
		{"noise", []byte{0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF}},
		{"corrupted CRC", []byte{0x52, 0x94, 0x01, 0x01, 0x00, 0x00, 0x03, 0xFA}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Decode(tt.raw)
			if f.Valid {
				t.Error("garbage decoded as valid")
			}
			if f.Kind != FrameUnparseable {
				t.Errorf("kind = %v, want FrameUnparseable", f.Kind)
			}
			if !bytes.Equal(f.Raw, tt.raw) {
				t.Error("raw bytes not preserved for diagnostics")
			}
		})
	}
}
