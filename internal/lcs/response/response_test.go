package response

import (
	"testing"
	"time"

	"github.com/lumenbus/lcs-gateway/internal/lcs/frame"
)

func TestInterpretLampBrightness(t *testing.T) {
	f := &frame.Frame{
		SrcAddr: frame.NewAddr(frame.DeviceLCS, 1, 1),
		OP1:     0x16, OP2: 0x00,
		Data: []byte{10, 20, 30},
	}
	typed := Interpret(f, time.Now())
	lb, ok := typed.Value.(LampBrightness)
	if !ok {
		t.Fatalf("expected LampBrightness, got %T", typed.Value)
	}
	if len(lb.Values) != 3 || lb.Values[1] != 20 {
		t.Fatalf("unexpected values: %v", lb.Values)
	}
	if typed.Source.Master != 1 || typed.Source.CU != 1 {
		t.Fatalf("unexpected source: %+v", typed.Source)
	}
}

func TestInterpretLampControlAck(t *testing.T) {
	ok := &frame.Frame{OP1: 0x10, OP2: 0x00, Data: []byte{0x00}}
	fail := &frame.Frame{OP1: 0x10, OP2: 0x00, Data: []byte{0x01}}

	if v := Interpret(ok, time.Now()).Value.(LampControlAck); !v.OK {
		t.Fatal("expected ack OK=true for data 0x00")
	}
	if v := Interpret(fail, time.Now()).Value.(LampControlAck); v.OK {
		t.Fatal("expected ack OK=false for data 0x01")
	}
}

func TestInterpretDeviceNameTrimsNulPadding(t *testing.T) {
	f := &frame.Frame{OP1: 0x22, OP2: 0x05, Data: []byte("hall-1\x00\x00\x00")}
	name := Interpret(f, time.Now()).Value.(DeviceName)
	if name.Name != "hall-1" {
		t.Fatalf("expected trimmed name, got %q", name.Name)
	}
}

func TestInterpretUnknownOpcode(t *testing.T) {
	f := &frame.Frame{OP1: 0xFF, OP2: 0xFF, Data: []byte{1, 2}}
	u, ok := Interpret(f, time.Now()).Value.(Unknown)
	if !ok {
		t.Fatalf("expected Unknown, got different type")
	}
	if u.Opcode != 0xFFFF {
		t.Fatalf("unexpected opcode 0x%04X", u.Opcode)
	}
}
