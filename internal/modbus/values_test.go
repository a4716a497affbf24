// internal/modbus/values_test.go
package modbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUintInt(t *testing.T) {
	b := []byte{0xFF, 0xFE, 0x00, 0xF0, 0x80, 0x00, 0x00, 0x01}

	cases := []struct {
		name     string
		off, n   int
		unsigned uint32
		signed   int32
	}{
		{"one byte", 0, 1, 0xFF, -1},
		{"two bytes", 0, 2, 0xFFFE, -2},
		{"two bytes positive", 2, 2, 240, 240},
		{"four bytes", 4, 4, 0x80000001, -2147483647},
		{"out of range", 7, 2, 0, 0},
		{"unsupported width", 0, 3, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.unsigned, Uint(b, tc.off, tc.n))
			assert.Equal(t, tc.signed, Int(b, tc.off, tc.n))
		})
	}
}

func TestScaled(t *testing.T) {
	b := []byte{0x00, 0xF0, 0xFF, 0x38}

	assert.Equal(t, 24.0, Scaled(b, 0, 2, 0.1))
	assert.Equal(t, 2.4, Scaled(b, 0, 2, 0.01))
	assert.Equal(t, -2.0, ScaledSigned(b, 2, 2, 0.01))
	assert.Equal(t, 0.333, Round3(1.0/3.0))
}

func TestASCII(t *testing.T) {
	b := []byte{' ', 'R', 'N', 'G', 0x00, '-', 'C', 'T', 'R', 'L', 0x01, ' ', 0x7F}
	assert.Equal(t, "RNG-CTRL", ASCII(b, 0, len(b)))
	assert.Equal(t, "", ASCII(b, 10, 10))
}

func TestTemperature(t *testing.T) {
	assert.Equal(t, 25, Temperature(25))
	assert.Equal(t, 0, Temperature(128))
	assert.Equal(t, -10, Temperature(138))
	assert.Equal(t, 127, Temperature(127))
}
