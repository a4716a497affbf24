// internal/modbus/handler.go
package modbus

import (
	"fmt"

	"github.com/goburrow/modbus"
)

// Packager frames PDUs for one device id on a byte link that carries
// RTU-style frames (id + pdu + crc) without any serial timing.
type Packager struct {
	SlaveID byte
}

// Encode builds id + function + data + crc.
func (p *Packager) Encode(pdu *modbus.ProtocolDataUnit) ([]byte, error) {
	if len(pdu.Data) > 252 {
		return nil, fmt.Errorf("modbus: pdu data length %d exceeds 252", len(pdu.Data))
	}
	adu := make([]byte, 0, len(pdu.Data)+4)
	adu = append(adu, p.SlaveID, pdu.FunctionCode)
	adu = append(adu, pdu.Data...)
	return appendCRC(adu), nil
}

// Verify runs the frame checks on the reply. The reply id is not compared:
// requests addressed to the broadcast id are answered with the real id.
func (p *Packager) Verify(_ []byte, aduResponse []byte) error {
	return Check(aduResponse)
}

// Decode extracts the PDU. Data keeps the byte-count prefix, which is what
// the goburrow client expects for read functions.
func (p *Packager) Decode(adu []byte) (*modbus.ProtocolDataUnit, error) {
	if len(adu) < 3 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrShortFrame, len(adu))
	}

	pdu := &modbus.ProtocolDataUnit{FunctionCode: adu[1]}
	if adu[1]&0x80 != 0 {
		pdu.Data = adu[2:3]
		return pdu, nil
	}

	end := 3 + int(adu[2])
	if end > len(adu) {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrIncomplete, len(adu), end+2)
	}
	pdu.Data = adu[2:end]
	return pdu, nil
}

// Handler joins a Packager with a Transporter so it can back modbus.NewClient.
type Handler struct {
	*Packager
	modbus.Transporter
}

// NewHandler returns a client handler addressing deviceID over t.
func NewHandler(deviceID byte, t modbus.Transporter) *Handler {
	return &Handler{
		Packager:    &Packager{SlaveID: deviceID},
		Transporter: t,
	}
}

// NewClient returns a goburrow client for deviceID over t.
func NewClient(deviceID byte, t modbus.Transporter) modbus.Client {
	return modbus.NewClient(NewHandler(deviceID, t))
}
