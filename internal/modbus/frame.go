// internal/modbus/frame.go
package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/goburrow/modbus"
	"github.com/sigurn/crc16"
)

// FuncReadHolding is the only function code the bridge issues.
const FuncReadHolding = modbus.FuncCodeReadHoldingRegisters

// MinFrameLen is the smallest reply that can carry an id, a function code,
// one more byte and a CRC.
const MinFrameLen = 5

var (
	ErrShortFrame = errors.New("modbus: frame too short")
	ErrIncomplete = errors.New("modbus: frame shorter than byte count")
	ErrCRC        = errors.New("modbus: crc mismatch")
)

// CRC-16/MODBUS: poly 0x8005 reflected (0xA001), init 0xFFFF.
var crcTable = crc16.MakeTable(crc16.Params{
	Poly:   0x8005,
	Init:   0xFFFF,
	RefIn:  true,
	RefOut: true,
	XorOut: 0x0000,
})

// CRC returns the frame checksum of b.
func CRC(b []byte) uint16 {
	return crc16.Checksum(b, crcTable)
}

// appendCRC appends the checksum low byte first.
func appendCRC(b []byte) []byte {
	return binary.LittleEndian.AppendUint16(b, CRC(b))
}

// BuildReadRequest builds a read request frame:
//
//	id(1) fc(1) register(2, BE) count(2, BE) crc(2, LE)
func BuildReadRequest(deviceID, fc byte, register, count uint16) []byte {
	frame := make([]byte, 6, 8)
	frame[0] = deviceID
	frame[1] = fc
	binary.BigEndian.PutUint16(frame[2:4], register)
	binary.BigEndian.PutUint16(frame[4:6], count)
	return appendCRC(frame)
}

// Check validates a response frame and returns the first problem found.
// Exception replies come back as *modbus.ModbusError.
func Check(frame []byte) error {
	if len(frame) < MinFrameLen {
		return fmt.Errorf("%w: got %d bytes", ErrShortFrame, len(frame))
	}

	if frame[1]&0x80 != 0 {
		return &modbus.ModbusError{
			FunctionCode:  frame[1],
			ExceptionCode: frame[2],
		}
	}

	want := 3 + int(frame[2]) + 2
	if len(frame) < want {
		return fmt.Errorf("%w: got %d, expected %d", ErrIncomplete, len(frame), want)
	}

	got := binary.LittleEndian.Uint16(frame[want-2 : want])
	calc := CRC(frame[:want-2])
	if got != calc {
		return fmt.Errorf("%w: received=0x%04x calculated=0x%04x", ErrCRC, got, calc)
	}

	return nil
}

// ValidateResponse reports whether frame passes Check.
func ValidateResponse(frame []byte) bool {
	return Check(frame) == nil
}

// Payload returns the data section of a checked frame (after the byte count).
func Payload(frame []byte) []byte {
	if len(frame) < 3 {
		return nil
	}
	end := 3 + int(frame[2])
	if end > len(frame) {
		end = len(frame)
	}
	return frame[3:end]
}
