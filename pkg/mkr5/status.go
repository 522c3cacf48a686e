// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package mkr5

// PumpStatus is the decoded result of a RETURN_STATUS exchange. The zero
// value is the canonical "no usable answer" result: Valid stays false
// unless a CRC-verified NOZZLE_STATUS frame was decoded.
type PumpStatus struct {
	Address      byte
	NozzleNumber uint8
	Status       NozzleStatus
	NozzleOn     bool
	RFTagSensed  bool
	ErrorFlag    bool
	Description  string
	Valid        bool
}

// FillingInfo is the decoded result of a RETURN_FILLING_INFO exchange.
// Amount and volume are whole decimal numbers as delivered by the pump;
// scaling to litres/currency is a display concern.
type FillingInfo struct {
	Address byte
	Amount  uint32
	Volume  uint32
	Price   uint32
	Valid   bool
}

var statusDescriptions = map[NozzleStatus]string{
	StatusIdle:             "Idle",
	StatusReadyForDelivery: "Ready for delivery",
	StatusReset:            "Reset",
	StatusAuthorized:       "Authorized",
	StatusFilling:          "Filling",
	StatusPaused:           "Paused",
	StatusDisabled:         "Nozzle disabled",
	StatusStopped:          "Nozzle stopped",
	StatusNotProgrammed:    "Not programmed",
}

// StatusDescription returns the label for a status code.
func StatusDescription(s NozzleStatus) string {
	if d, ok := statusDescriptions[s]; ok {
		return d
	}
	return "Unknown status"
}

// ParseStatus decodes a pump status record out of a frame. Only a valid
// DATA frame with response type NOZZLE_STATUS and a status byte present
// produces a Valid result.
func ParseStatus(f Frame) PumpStatus {
	var st PumpStatus
	if !f.Valid || f.Kind != FrameData {
		return st
	}
	if f.ResponseType() != RespNozzleStatus || f.Length < 2 || len(f.Payload) < 1 {
		return st
	}

	b := f.Payload[0]
	st.Address = f.Address
	st.NozzleNumber = f.Nozzle()
	st.Status = NozzleStatus(b & statusCodeMask)
	st.NozzleOn = b&statusNozzleOn != 0
	st.RFTagSensed = b&statusRFTag != 0
	st.ErrorFlag = b&statusErrorFlag != 0
	st.Description = StatusDescription(st.Status)
	st.Valid = true
	return st
}

// ParseFillingInfo decodes amount/volume/price out of a FILLING_INFO
// frame. The payload is packed BCD, most significant byte first: four
// bytes amount, four bytes volume, then three bytes unit price when the
// pump includes it.
func ParseFillingInfo(f Frame) FillingInfo {
	var fi FillingInfo
	if !f.Valid || f.Kind != FrameData {
		return fi
	}
	if f.ResponseType() != RespFillingInfo || len(f.Payload) < 8 {
		return fi
	}

	fi.Address = f.Address
	fi.Amount = BCDToUint32(f.Payload[0:4])
	fi.Volume = BCDToUint32(f.Payload[4:8])
	if len(f.Payload) >= 11 {
		fi.Price = BCDToUint32(f.Payload[8:11])
	}
	fi.Valid = true
	return fi
}

// BCDToUint32 converts packed BCD (two decimal digits per byte, most
// significant byte first) to a decimal value.
func BCDToUint32(bcd []byte) uint32 {
	var v uint32
	for _, b := range bcd {
		v = v*100 + uint32(b>>4)*10 + uint32(b&0x0F)
	}
	return v
}

// Uint32ToBCD converts a decimal value to packed BCD of the given byte
// width, most significant byte first. Values that do not fit are
// truncated to the low digits, matching pump behaviour.
func Uint32ToBCD(v uint32, width int) []byte {
	out := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		lo := byte(v % 10)
		v /= 10
		hi := byte(v % 10)
		v /= 10
		out[i] = hi<<4 | lo
	}
	return out
}
