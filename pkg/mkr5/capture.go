// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package mkr5

import (
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ExchangeRecord is one captured frame, either direction. Records are
// written as a plain CBOR sequence so a capture file can be streamed
// back without loading it whole.
type ExchangeRecord struct {
	Time      time.Time `cbor:"1,keyasint"`
	Direction string    `cbor:"2,keyasint"` // "tx" or "rx"
	Address   byte      `cbor:"3,keyasint"`
	Data      []byte    `cbor:"4,keyasint"`
}

// CaptureWriter persists exchange records to a writer as CBOR. It
// implements Recorder; encoding errors are swallowed because capture is
// diagnostic and must never disturb the exchange itself.
type CaptureWriter struct {
	enc *cbor.Encoder
}

// NewCaptureWriter returns a capture writer appending to w.
func NewCaptureWriter(w io.Writer) *CaptureWriter {
	return &CaptureWriter{enc: cbor.NewEncoder(w)}
}

// Record implements Recorder.
func (c *CaptureWriter) Record(direction string, address byte, data []byte) {
	rec := ExchangeRecord{
		Time:      time.Now(),
		Direction: direction,
		Address:   address,
		Data:      append([]byte(nil), data...),
	}
	_ = c.enc.Encode(rec)
}

// ReadCapture decodes all exchange records from a capture stream.
func ReadCapture(r io.Reader) ([]ExchangeRecord, error) {
	dec := cbor.NewDecoder(r)
	var out []ExchangeRecord
	for {
		var rec ExchangeRecord
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, err
		}
		out = append(out, rec)
	}
}
