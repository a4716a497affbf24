// internal/modbus/values.go
package modbus

import (
	"math"
	"strings"
)

// Uint reads an n-byte (1, 2 or 4) big-endian unsigned value at off.
// Out-of-range reads and unsupported widths yield 0.
func Uint(b []byte, off, n int) uint32 {
	if off < 0 || off+n > len(b) {
		return 0
	}
	switch n {
	case 1:
		return uint32(b[off])
	case 2:
		return uint32(b[off])<<8 | uint32(b[off+1])
	case 4:
		return uint32(b[off])<<24 | uint32(b[off+1])<<16 | uint32(b[off+2])<<8 | uint32(b[off+3])
	default:
		return 0
	}
}

// Int reads an n-byte big-endian two's-complement value at off.
func Int(b []byte, off, n int) int32 {
	v := Uint(b, off, n)
	switch n {
	case 1:
		return int32(int8(v))
	case 2:
		return int32(int16(v))
	default:
		return int32(v)
	}
}

// Round3 rounds to 3 decimal places.
func Round3(v float64) float64 {
	return Round(v, 3)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// Scaled reads an unsigned value and applies scale.
func Scaled(b []byte, off, n int, scale float64) float64 {
	return Round3(float64(Uint(b, off, n)) * scale)
}

// ScaledSigned reads a signed value and applies scale.
func ScaledSigned(b []byte, off, n int, scale float64) float64 {
	return Round3(float64(Int(b, off, n)) * scale)
}

// ASCII extracts printable characters (0x20-0x7E) from b[off:off+n].
// Other bytes are dropped. The result is trimmed.
func ASCII(b []byte, off, n int) string {
	if off < 0 || off+n > len(b) {
		return ""
	}
	var sb strings.Builder
	for _, c := range b[off : off+n] {
		if c >= 0x20 && c <= 0x7E {
			sb.WriteByte(c)
		}
	}
	return strings.TrimSpace(sb.String())
}

// Temperature decodes a sign-magnitude byte: bit 7 set means negative.
func Temperature(raw uint32) int {
	if raw > 127 {
		return -int(raw - 128)
	}
	return int(raw)
}
