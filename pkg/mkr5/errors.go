// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package mkr5

import "errors"

// Exchange failures. GetStatus and GetFillingInfo absorb all of these
// into invalid results; SendCommand surfaces them so callers of the
// generic path can distinguish a dead bus from a garbled reply.
var (
	ErrTransportUnavailable = errors.New("mkr5: transport not available")
	ErrWriteFailure         = errors.New("mkr5: short write to transport")
	ErrNoResponse           = errors.New("mkr5: no response before timeout")
	ErrMalformedFrame       = errors.New("mkr5: malformed or CRC-failing frame")
	ErrUnsupportedResponse  = errors.New("mkr5: response type not supported")
)
