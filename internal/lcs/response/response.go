// Package response interprets decoded LCS frames into typed response values.
package response

import (
	"strings"
	"time"

	"github.com/lumenbus/lcs-gateway/internal/lcs/frame"
)

const (
	OpLampBrightness   uint16 = 0x1600
	OpColorTemperature uint16 = 0x1606
	OpLampControlAck   uint16 = 0x1000
	OpDeviceName       uint16 = 0x2205
)

// SourceDevice identifies which physical bus segment a response came from.
type SourceDevice struct {
	DeviceType byte
	Master     byte
	CU         byte
}

// Typed is the common envelope every interpreted response carries.
type Typed struct {
	Source    SourceDevice
	Opcode    uint16
	Timestamp time.Time
	Value     Value
}

// Value is implemented by each concrete response payload.
type Value interface {
	isValue()
}

type LampBrightness struct{ Values []uint8 }
type ColorTemperature struct{ Values []uint8 }
type LampControlAck struct{ OK bool }
type DeviceName struct{ Name string }
type Unknown struct {
	Opcode uint16
	Data   []byte
}

func (LampBrightness) isValue()   {}
func (ColorTemperature) isValue() {}
func (LampControlAck) isValue()   {}
func (DeviceName) isValue()       {}
func (Unknown) isValue()          {}

// Interpret maps a decoded frame's opcode and payload to a Typed response.
func Interpret(f *frame.Frame, now time.Time) *Typed {
	src := SourceDevice{
		DeviceType: f.SrcAddr.DeviceType(),
		Master:     f.SrcAddr.Master(),
		CU:         f.SrcAddr.CU(),
	}
	opcode := f.Opcode()

	var v Value
	switch opcode {
	case OpLampBrightness:
		v = LampBrightness{Values: cloneBytes(f.Data)}
	case OpColorTemperature:
		v = ColorTemperature{Values: cloneBytes(f.Data)}
	case OpLampControlAck:
		ok := len(f.Data) > 0 && f.Data[0] == 0x00
		v = LampControlAck{OK: ok}
	case OpDeviceName:
		v = DeviceName{Name: strings.Trim(string(f.Data), "\x00")}
	default:
		v = Unknown{Opcode: opcode, Data: cloneBytes(f.Data)}
	}

	return &Typed{Source: src, Opcode: opcode, Timestamp: now, Value: v}
}

func cloneBytes(b []byte) []uint8 {
	if len(b) == 0 {
		return nil
	}
	out := make([]uint8, len(b))
	copy(out, b)
	return out
}
