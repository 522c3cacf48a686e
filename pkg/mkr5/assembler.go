// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package mkr5

import (
	"io"
	"time"
)

// Receive timing defaults. The transport is expected to be configured
// with a short hardware read timeout so single-byte reads return (0, nil)
// when the line is quiet instead of blocking.
const (
	DefaultQuietInterval = 50 * time.Millisecond
	DefaultConfirmDelay  = 10 * time.Millisecond
	defaultIdleSleep     = time.Millisecond
)

// Assembler recovers one reply frame from the raw byte stream. MKR5 has
// no escape or length-prefix discipline that survives line noise and
// self-echo, so this is a best-effort heuristic framer: it delimits on
// silence, on a plausible stop flag, and collapses the repeating echo
// pattern a polled bus produces. Implementations talking to real
// dispensers must keep these rules as they are.
type Assembler struct {
	r io.Reader

	// QuietInterval ends the frame after this much silence once at
	// least one byte has arrived.
	QuietInterval time.Duration
	// ConfirmDelay is the shorter silence that confirms a frame end
	// when the buffer already looks complete (stop flag at a data-frame
	// length).
	ConfirmDelay time.Duration
}

// NewAssembler returns an assembler reading from r with default timing.
func NewAssembler(r io.Reader) *Assembler {
	return &Assembler{
		r:             r,
		QuietInterval: DefaultQuietInterval,
		ConfirmDelay:  DefaultConfirmDelay,
	}
}

// Receive accumulates bytes until one of the termination rules fires and
// returns whatever was collected, possibly empty or partial. address is
// the pump being addressed; it parameterises the echo pattern.
func (a *Assembler) Receive(address byte, total time.Duration) []byte {
	buf := make([]byte, 0, 128)
	start := time.Now()
	last := start
	var one [1]byte

	for {
		if time.Since(start) > total {
			return buf
		}

		n, err := a.r.Read(one[:])
		if err != nil {
			return buf
		}
		if n == 0 {
			if len(buf) > 0 {
				quiet := time.Since(last)
				if a.likelyComplete(buf) && quiet > a.ConfirmDelay {
					return buf
				}
				if quiet > a.QuietInterval {
					return buf
				}
			}
			time.Sleep(defaultIdleSleep)
			continue
		}

		buf = append(buf, one[0])
		last = time.Now()

		if collapsed, ok := collapseEcho(buf, address); ok {
			return collapsed
		}
	}
}

// likelyComplete reports whether the buffer plausibly holds a whole data
// frame: at least the minimum wire size and ending on the stop flag.
func (a *Assembler) likelyComplete(buf []byte) bool {
	return len(buf) >= MinDataFrameSize && buf[len(buf)-1] == StopFlag
}

// collapseEcho detects three or more consecutive repeats of the 3-byte
// pattern SF, address, 0x81 - the shape a self-echoed poll takes when it
// circulates on the bus indefinitely. Without this rule the buffer would
// grow until the total timeout. The buffer is truncated to end at the
// first occurrence, or to the first three bytes when the pattern starts
// the buffer.
func collapseEcho(buf []byte, address byte) ([]byte, bool) {
	pattern := [3]byte{StopFlag, address, masterFlag | ControlPoll}
	for k := 0; k+9 <= len(buf); k++ {
		if matchAt(buf, k, pattern) && matchAt(buf, k+3, pattern) && matchAt(buf, k+6, pattern) {
			if k == 0 {
				return buf[:3], true
			}
			return buf[:k], true
		}
	}
	return nil, false
}

func matchAt(buf []byte, i int, p [3]byte) bool {
	return buf[i] == p[0] && buf[i+1] == p[1] && buf[i+2] == p[2]
}
