// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package mkr5

import (
	"bytes"
	"testing"
	"time"
)

// fakeBus simulates a pump controller: every written frame is recorded
// and the next scripted reply is queued for reading, one byte at a time.
type fakeBus struct {
	writes  [][]byte
	replies [][]byte
	pending []byte
	flushes int
}

func (b *fakeBus) Write(p []byte) (int, error) {
	b.writes = append(b.writes, append([]byte(nil), p...))
	if len(b.replies) > 0 {
		b.pending = append(b.pending, b.replies[0]...)
		b.replies = b.replies[1:]
	}
	return len(p), nil
}

func (b *fakeBus) Read(p []byte) (int, error) {
	if len(b.pending) == 0 {
		return 0, nil
	}
	p[0] = b.pending[0]
	b.pending = b.pending[1:]
	return 1, nil
}

func (b *fakeBus) ResetInputBuffer() error {
	b.flushes++
	b.pending = nil
	return nil
}

func newTestSession(bus *fakeBus, opts ...Option) *Session {
	s := NewSession(bus, opts...)
	s.ResponseTimeout = 100 * time.Millisecond
	s.PollTimeout = 30 * time.Millisecond
	s.CommandDelay = 0
	s.PollDelay = 0
	s.ScanDelay = 0
	s.asm.QuietInterval = 10 * time.Millisecond
	s.asm.ConfirmDelay = 2 * time.Millisecond
	return s
}

func TestSession_GetStatus(t *testing.T) {
	bus := &fakeBus{replies: [][]byte{statusReply}}
	s := newTestSession(bus)

	st := s.GetStatus(0x52, 1)
	if !st.Valid {
		t.Fatal("expected valid status")
	}
	if st.Address != 0x52 {
		t.Errorf("address = 0x%02X, want 0x52", st.Address)
	}
	if st.Status != StatusFilling {
		t.Errorf("status = %d, want filling", st.Status)
	}

	if len(bus.writes) != 1 {
		t.Fatalf("wrote %d frames, want 1", len(bus.writes))
	}
	sent := Decode(bus.writes[0])
	if sent.Kind != FrameData || Command(sent.OPC>>4) != CmdReturnStatus {
		t.Errorf("sent frame % X is not a RETURN_STATUS data frame", bus.writes[0])
	}
	if bus.flushes == 0 {
		t.Error("input buffer should be flushed before the exchange")
	}
}

func TestSession_GetStatus_NoResponse(t *testing.T) {
	bus := &fakeBus{}
	s := newTestSession(bus)

	st := s.GetStatus(0x52, 1)
	if st.Valid {
		t.Error("silence must produce an invalid status")
	}
	if st != (PumpStatus{}) {
		t.Errorf("expected zero-valued status, got %+v", st)
	}

	// The session must remain usable for the next exchange.
	bus.replies = [][]byte{statusReply}
	if st := s.GetStatus(0x52, 1); !st.Valid {
		t.Error("session unusable after a timed-out exchange")
	}
}

func TestSession_GetStatus_GarbledResponse(t *testing.T) {
	bus := &fakeBus{replies: [][]byte{{0x13, 0x37, 0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x11}}}
	s := newTestSession(bus)

	if st := s.GetStatus(0x52, 1); st.Valid {
		t.Error("garbled response must produce an invalid status")
	}
}

func TestSession_GetFillingInfo(t *testing.T) {
	bus := &fakeBus{replies: [][]byte{fillingReply}}
	s := newTestSession(bus)

	fi := s.GetFillingInfo(0x52, 1)
	if !fi.Valid {
		t.Fatal("expected valid filling info")
	}
	if fi.Volume != 6789 || fi.Amount != 12345 {
		t.Errorf("volume=%d amount=%d, want 6789/12345", fi.Volume, fi.Amount)
	}
}

func TestSession_TransactionSequencing(t *testing.T) {
	bus := &fakeBus{}
	s := newTestSession(bus)
	s.ResponseTimeout = 5 * time.Millisecond

	// 16 data commands: tx must run 1..15 and wrap back to 1.
	want := []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 1}
	for range want {
		_, _ = s.SendCommand(0x52, CmdReturnStatus, 1, nil)
	}
	for i, frame := range bus.writes {
		tx := frame[1] >> 4 & 0x0F
		if tx != want[i] {
			t.Fatalf("frame %d: tx = %d, want %d", i, tx, want[i])
		}
	}
}

func TestSession_SendCommand_NoResponse(t *testing.T) {
	bus := &fakeBus{}
	s := newTestSession(bus)
	s.ResponseTimeout = 5 * time.Millisecond

	if _, err := s.SendCommand(0x52, CmdAuthorizeNozzle, 1, nil); err != ErrNoResponse {
		t.Errorf("err = %v, want ErrNoResponse", err)
	}
}

func TestSession_Poll(t *testing.T) {
	bus := &fakeBus{replies: [][]byte{{0x52, 0x82, 0xFA}}}
	s := newTestSession(bus)

	if !s.Poll(0x52) {
		t.Error("poll should report presence when bytes arrive")
	}
	if !bytes.Equal(bus.writes[0], []byte{0x52, 0x81, 0xFA}) {
		t.Errorf("poll frame = % X", bus.writes[0])
	}

	if s.Poll(0x53) {
		t.Error("poll should report absence on silence")
	}
}

func TestSession_ScanRange_ClampsAddresses(t *testing.T) {
	bus := &fakeBus{}
	s := newTestSession(bus)
	s.PollTimeout = 2 * time.Millisecond

	var scanned []byte
	for res := range s.ScanRange(0x40, 0xFF) {
		scanned = append(scanned, res.Address)
		if res.Present {
			t.Errorf("address 0x%02X reported present on a dead bus", res.Address)
		}
	}

	if len(scanned) != AddressMax-AddressMin+1 {
		t.Fatalf("scanned %d addresses, want %d", len(scanned), AddressMax-AddressMin+1)
	}
	if scanned[0] != AddressMin || scanned[len(scanned)-1] != AddressMax {
		t.Errorf("scan range %02X..%02X, want %02X..%02X",
			scanned[0], scanned[len(scanned)-1], AddressMin, AddressMax)
	}
	for _, frame := range bus.writes {
		if frame[0] < AddressMin || frame[0] > AddressMax {
			t.Errorf("polled out-of-range address 0x%02X", frame[0])
		}
	}
}

func TestSession_ScanRange_EarlyStop(t *testing.T) {
	bus := &fakeBus{}
	s := newTestSession(bus)
	s.PollTimeout = 2 * time.Millisecond

	count := 0
	for range s.ScanRange(0x50, 0x5F) {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Errorf("consumed %d results after break, want 3", count)
	}
}

func TestSession_AutoAck(t *testing.T) {
	bus := &fakeBus{replies: [][]byte{statusReply}}
	s := newTestSession(bus, WithAutoAck(true))

	if st := s.GetStatus(0x52, 1); !st.Valid {
		t.Fatal("expected valid status")
	}
	if len(bus.writes) != 2 {
		t.Fatalf("wrote %d frames, want command + ack", len(bus.writes))
	}
	ack := Decode(bus.writes[1])
	if ack.Kind != FrameAck {
		t.Errorf("second frame % X is not an ACK", bus.writes[1])
	}
	// The ACK echoes the reply's transaction number.
	if ack.TxNumber != 1 {
		t.Errorf("ack tx = %d, want 1", ack.TxNumber)
	}
}
