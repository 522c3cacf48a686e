// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package mkr5

import (
	"bytes"
	"testing"
)

// statusReply is a CRC-correct NOZZLE_STATUS reply from pump 0x52,
// nozzle 1, status byte 0x64.
var statusReply = []byte{0x52, 0x14, 0x02, 0x01, 0x64, 0xE5, 0x5B, 0x03, 0xFA}

func TestParseStatus_BitLayout(t *testing.T) {
	st := ParseStatus(Decode(statusReply))

	if !st.Valid {
		t.Fatal("status should be valid")
	}
	// 0x64 = 0110 0100: code 4, nozzle off, RF tag sensed, error flag set.
	if st.Status != StatusFilling {
		t.Errorf("status = %d, want %d (filling)", st.Status, StatusFilling)
	}
	if st.NozzleOn {
		t.Error("nozzleOn should be false")
	}
	if !st.RFTagSensed {
		t.Error("rfTagSensed should be true")
	}
	if !st.ErrorFlag {
		t.Error("errorFlag should be true")
	}
	if st.NozzleNumber != 1 {
		t.Errorf("nozzle = %d, want 1", st.NozzleNumber)
	}
	if st.Description != "Filling" {
		t.Errorf("description = %q, want Filling", st.Description)
	}
}

func TestParseStatus_RejectsWrongShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"poll frame", BuildPoll(0x52)},
		{"garbage", []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}},
		{"filling info frame", fillingReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if st := ParseStatus(Decode(tt.raw)); st.Valid {
				t.Errorf("ParseStatus accepted %s", tt.name)
			}
		})
	}
}

func TestStatusDescription(t *testing.T) {
	tests := []struct {
		code NozzleStatus
		want string
	}{
		{StatusIdle, "Idle"},
		{StatusReadyForDelivery, "Ready for delivery"},
		{StatusNotProgrammed, "Not programmed"},
		{NozzleStatus(0x0F), "Unknown status"},
	}
	for _, tt := range tests {
		if got := StatusDescription(tt.code); got != tt.want {
			t.Errorf("StatusDescription(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

// fillingReply is a CRC-correct FILLING_INFO reply from pump 0x52:
// amount 12345, volume 6789, price 123 in packed BCD.
var fillingReply = []byte{
	0x52, 0x24, 0x0C, 0x21,
	0x00, 0x01, 0x23, 0x45,
	0x00, 0x00, 0x67, 0x89,
	0x00, 0x01, 0x23,
	0x97, 0xDA, 0x03, 0xFA,
}

func TestParseFillingInfo(t *testing.T) {
	fi := ParseFillingInfo(Decode(fillingReply))

	if !fi.Valid {
		t.Fatal("filling info should be valid")
	}
	if fi.Amount != 12345 {
		t.Errorf("amount = %d, want 12345", fi.Amount)
	}
	if fi.Volume != 6789 {
		t.Errorf("volume = %d, want 6789", fi.Volume)
	}
	if fi.Price != 123 {
		t.Errorf("price = %d, want 123", fi.Price)
	}
}

func TestParseFillingInfo_ShortPayload(t *testing.T) {
	if fi := ParseFillingInfo(Decode(statusReply)); fi.Valid {
		t.Error("status frame should not decode as filling info")
	}
}

func TestBCDConversion(t *testing.T) {
	tests := []struct {
		bcd   []byte
		value uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x42}, 42},
		{[]byte{0x12, 0x34}, 1234},
		{[]byte{0x00, 0x01, 0x23, 0x45}, 12345},
		{[]byte{0x99, 0x99, 0x99}, 999999},
	}

	for _, tt := range tests {
		if got := BCDToUint32(tt.bcd); got != tt.value {
			t.Errorf("BCDToUint32(% X) = %d, want %d", tt.bcd, got, tt.value)
		}
		back := Uint32ToBCD(tt.value, len(tt.bcd))
		if !bytes.Equal(back, tt.bcd) {
			t.Errorf("Uint32ToBCD(%d, %d) = % X, want % X", tt.value, len(tt.bcd), back, tt.bcd)
		}
	}
}

func TestUint32ToBCD_Truncates(t *testing.T) {
	// 1234 into a single byte keeps the low two digits.
	if got := Uint32ToBCD(1234, 1); got[0] != 0x34 {
		t.Errorf("got %02X, want 34", got[0])
	}
}
