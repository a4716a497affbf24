// internal/poller/errors.go
package poller

import (
	"errors"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/renogy-bridge/internal/link"
	mb "github.com/tamzrod/renogy-bridge/internal/modbus"
)

// ErrNoData is returned when no register group produced any field.
var ErrNoData = errors.New("poller: no data")

// Error codes reported in status snapshots and metrics.
const (
	CodeOK           uint16 = 0
	CodeGeneric      uint16 = 1
	CodeNotConnected uint16 = 2
	CodeTimeout      uint16 = 3
	CodeShortReply   uint16 = 4
	CodeBadFrame     uint16 = 5
	CodeNoData       uint16 = 6

	// CodeException is added to the Modbus exception code.
	CodeException uint16 = 0x100
)

// ErrorCode extracts a best-effort uint16 code from an error.
// If the error does not expose a code, returns CodeGeneric.
func ErrorCode(err error) uint16 {
	if err == nil {
		return CodeOK
	}

	var mbErr *modbus.ModbusError
	if errors.As(err, &mbErr) {
		return CodeException + uint16(mbErr.ExceptionCode)
	}

	switch {
	case errors.Is(err, link.ErrNotConnected):
		return CodeNotConnected
	case errors.Is(err, link.ErrTimeout):
		return CodeTimeout
	case errors.Is(err, link.ErrShortReply):
		return CodeShortReply
	case errors.Is(err, mb.ErrShortFrame), errors.Is(err, mb.ErrIncomplete), errors.Is(err, mb.ErrCRC):
		return CodeBadFrame
	case errors.Is(err, ErrNoData):
		return CodeNoData
	}

	type coder interface{ Code() uint16 }
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}

	return CodeGeneric
}
