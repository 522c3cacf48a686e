// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Fuelcore

package mkr5

// CRC-16 configuration: bit-reversed CCITT polynomial, zero init,
// LSB-first per-byte processing (CRC-16/KERMIT).
const (
	crcPolynomial = 0x8408
	crcInitial    = 0x0000
)

// Checksum computes the CRC-16 used by MKR5 frames.
//
// The CRC is transmitted low byte first. Appending it that way gives the
// verification property used throughout this package: Checksum over the
// protected span plus the two transmitted CRC bytes yields a zero residue.
func Checksum(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ crcPolynomial
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// appendChecksum appends the CRC of data to data, low byte first.
func appendChecksum(data []byte) []byte {
	crc := Checksum(data)
	return append(data, byte(crc&0xFF), byte(crc>>8))
}
