// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package mkr5

import (
	"encoding/hex"
	"io"
	"iter"
	"time"

	"go.uber.org/zap"
)

// Transport carries raw frame bytes to and from the pump bus. The serial
// line must already be configured (9600 baud, 8 data bits, 1 stop bit,
// odd parity) and should return (0, nil) from Read after a short
// hardware timeout when no byte is pending.
type Transport interface {
	io.Reader
	io.Writer
}

// inputFlusher is implemented by transports that can drop pending input.
// The OS buffer is cleared before each exchange so a stale reply is not
// mistaken for the current one.
type inputFlusher interface {
	ResetInputBuffer() error
}

// Recorder receives a copy of every frame the session sends or receives.
// Recording is observational: errors and timing never feed back into the
// protocol.
type Recorder interface {
	Record(direction string, address byte, data []byte)
}

// Session drives exchanges with pumps over a single transport. The
// protocol is strictly half-duplex; a Session must not be used from more
// than one goroutine at a time.
type Session struct {
	conn    Transport
	asm     *Assembler
	tx      *TxCounter
	log     *zap.Logger
	rec     Recorder
	autoAck bool

	// Exchange pacing and timeouts.
	ResponseTimeout time.Duration // receive window after a data command
	PollTimeout     time.Duration // receive window after a poll
	CommandDelay    time.Duration // settle delay between send and receive
	PollDelay       time.Duration // settle delay after a poll
	ScanDelay       time.Duration // pacing between scanned addresses
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the diagnostic logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithRecorder attaches an exchange recorder (see CaptureWriter).
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.rec = r }
}

// WithAutoAck makes the session acknowledge every successfully decoded
// DATA reply with a short ACK frame. Some controllers retransmit until
// acknowledged; others treat the ACK as noise, so this is opt-in.
func WithAutoAck(on bool) Option {
	return func(s *Session) { s.autoAck = on }
}

// WithResponseTimeout overrides the receive window for data commands.
func WithResponseTimeout(d time.Duration) Option {
	return func(s *Session) { s.ResponseTimeout = d }
}

// WithScanDelay overrides the pacing delay between scanned addresses.
func WithScanDelay(d time.Duration) Option {
	return func(s *Session) { s.ScanDelay = d }
}

// NewSession returns a session over conn. Timeouts default to the values
// proven against live dispensers: 1s response window, 300ms poll window,
// 100ms/50ms settle delays, 200ms scan pacing.
func NewSession(conn Transport, opts ...Option) *Session {
	s := &Session{
		conn:            conn,
		asm:             NewAssembler(conn),
		tx:              NewTxCounter(),
		log:             zap.NewNop(),
		ResponseTimeout: time.Second,
		PollTimeout:     300 * time.Millisecond,
		CommandDelay:    100 * time.Millisecond,
		PollDelay:       50 * time.Millisecond,
		ScanDelay:       200 * time.Millisecond,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Poll checks whether anything answers at the given address. It reports
// presence only: any bytes on the line within the poll window count.
func (s *Session) Poll(address byte) bool {
	if err := s.send(address, BuildPoll(address)); err != nil {
		s.log.Warn("poll send failed", zap.Uint8("address", address), zap.Error(err))
		return false
	}
	time.Sleep(s.PollDelay)
	resp := s.receive(address, s.PollTimeout)
	return len(resp) > 0
}

// GetStatus requests the nozzle status from a pump. Every failure mode
// (send error, silence, garble) comes back as a zero-valued PumpStatus
// with Valid=false; the session stays usable.
func (s *Session) GetStatus(address byte, nozzle uint8) PumpStatus {
	raw, err := s.SendCommand(address, CmdReturnStatus, nozzle, nil)
	if err != nil {
		return PumpStatus{}
	}
	f := Decode(raw)
	st := ParseStatus(f)
	if st.Valid {
		st.Address = address
		s.acknowledge(address, f)
	}
	return st
}

// acknowledge sends a short ACK for a decoded reply when auto-ack is on.
func (s *Session) acknowledge(address byte, f Frame) {
	if !s.autoAck {
		return
	}
	if err := s.send(address, BuildAck(address, f.TxNumber)); err != nil {
		s.log.Warn("ack send failed", zap.Uint8("address", address), zap.Error(err))
	}
}

// GetFillingInfo requests the last delivery's amount, volume and price.
// Same validity discipline as GetStatus.
func (s *Session) GetFillingInfo(address byte, nozzle uint8) FillingInfo {
	raw, err := s.SendCommand(address, CmdReturnFillingInfo, nozzle, nil)
	if err != nil {
		return FillingInfo{}
	}
	f := Decode(raw)
	fi := ParseFillingInfo(f)
	if fi.Valid {
		fi.Address = address
		s.acknowledge(address, f)
	}
	return fi
}

// SendCommand sends one DATA frame and returns the raw reply bytes. It
// is the generic path for nozzle control (RESET_NOZZLE, AUTHORIZE_NOZZLE,
// PAUSE/RESUME_DELIVERY, STOP_NOZZLE) whose replies are not status
// frames. The transaction number advances on every call.
func (s *Session) SendCommand(address byte, cmd Command, nozzle uint8, extra []byte) ([]byte, error) {
	frame := BuildData(address, cmd, nozzle, extra, s.tx.Next())
	if err := s.send(address, frame); err != nil {
		return nil, err
	}
	time.Sleep(s.CommandDelay)

	resp := s.receive(address, s.ResponseTimeout)
	if len(resp) == 0 {
		s.log.Debug("no response",
			zap.Uint8("address", address),
			zap.String("command", CommandName(cmd)))
		return nil, ErrNoResponse
	}
	return resp, nil
}

// ScanResult is one entry of a bus scan.
type ScanResult struct {
	Address byte
	Present bool
	Status  PumpStatus
}

// ScanRange polls every address in the inclusive range and fetches the
// status of each pump that answers. Bounds are clamped to the valid
// 0x50-0x6F address range; a poll is never issued outside it. The
// returned sequence is lazy and single-use; call ScanRange again for a
// fresh scan.
func (s *Session) ScanRange(low, high byte) iter.Seq[ScanResult] {
	if low < AddressMin {
		low = AddressMin
	}
	if high > AddressMax {
		high = AddressMax
	}
	return func(yield func(ScanResult) bool) {
		for addr := low; addr <= high; addr++ {
			res := ScanResult{Address: addr}
			if s.Poll(addr) {
				res.Present = true
				res.Status = s.GetStatus(addr, 1)
			}
			if !yield(res) {
				return
			}
			if addr < high {
				time.Sleep(s.ScanDelay)
			}
		}
	}
}

func (s *Session) send(address byte, frame []byte) error {
	if s.conn == nil {
		return ErrTransportUnavailable
	}
	if f, ok := s.conn.(inputFlusher); ok {
		_ = f.ResetInputBuffer()
	}

	n, err := s.conn.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return ErrWriteFailure
	}

	s.log.Debug("tx",
		zap.Uint8("address", address),
		zap.String("frame", hex.EncodeToString(frame)))
	if s.rec != nil {
		s.rec.Record("tx", address, frame)
	}
	return nil
}

func (s *Session) receive(address byte, total time.Duration) []byte {
	resp := s.asm.Receive(address, total)
	if len(resp) > 0 {
		s.log.Debug("rx",
			zap.Uint8("address", address),
			zap.String("frame", hex.EncodeToString(resp)))
		if s.rec != nil {
			s.rec.Record("rx", address, resp)
		}
	}
	return resp
}
