package command

import (
	"testing"

	"github.com/lumenbus/lcs-gateway/internal/lcs/frame"
)

func TestDimLampRejectsOutOfRangeBrightness(t *testing.T) {
	_, err := DimLamp(1, 1, 5, 150)
	if err == nil {
		t.Fatal("expected InvalidArgumentError")
	}
	ia, ok := err.(*InvalidArgumentError)
	if !ok {
		t.Fatalf("expected *InvalidArgumentError, got %T", err)
	}
	if ia.Field != "brightness" || ia.Value != 150 {
		t.Fatalf("unexpected error fields: %+v", ia)
	}
	if ia.Code() != "InvalidArgument" {
		t.Fatalf("unexpected code %q", ia.Code())
	}
}

func TestDimLampRejectsOutOfRangeLampNo(t *testing.T) {
	if _, err := DimLamp(1, 1, 0, 50); err == nil {
		t.Fatal("expected error for lampNo=0")
	}
	if _, err := DimLamp(1, 1, 65, 50); err == nil {
		t.Fatal("expected error for lampNo=65")
	}
}

func TestDimLampBuildsExpectedOpcodeAndData(t *testing.T) {
	f, err := DimLamp(1, 1, 5, 80)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := frame.TryDecode(f)
	if !res.Complete || res.Corrupt {
		t.Fatalf("built frame did not decode cleanly: %+v", res)
	}
	if res.Frame.Data[0] != 1 || res.Frame.Data[1] != 5 || res.Frame.Data[3] != 80 {
		t.Fatalf("unexpected data payload: %v", res.Frame.Data)
	}
	if op1, op2 := f[13], f[14]; op1 != 0x92 || op2 != 0x00 {
		t.Fatalf("unexpected opcode bytes %02X %02X", op1, op2)
	}
}

func TestDimLampRejectsOutOfRangeMasterOrCU(t *testing.T) {
	if _, err := DimLamp(0, 1, 5, 50); err == nil {
		t.Fatal("expected error for master=0")
	}
	if _, err := DimLamp(1, 0, 5, 50); err == nil {
		t.Fatal("expected error for cu=0")
	}
}

func TestBlockLampControlRejectsEmptyLampList(t *testing.T) {
	if _, err := BlockLampControl(1, 1, nil, 50); err == nil {
		t.Fatal("expected error for empty lamp list")
	}
}

func TestExecuteSceneRangeValidation(t *testing.T) {
	if _, err := ExecuteScene(1, 1, 256, 0); err == nil {
		t.Fatal("expected error for sceneNo out of range")
	}
	if _, err := ExecuteScene(1, 1, 3, 256); err == nil {
		t.Fatal("expected error for fadeTime out of range")
	}
	f, err := ExecuteScene(1, 1, 3, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f) == 0 {
		t.Fatal("expected non-empty frame")
	}
}

func TestValidateMasterCU(t *testing.T) {
	if err := ValidateMasterCU(0, 1); err == nil {
		t.Fatal("expected error for master=0")
	}
	if err := ValidateMasterCU(1, 0); err == nil {
		t.Fatal("expected error for cu=0")
	}
	if err := ValidateMasterCU(1, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetDeviceNameIsBroadcast(t *testing.T) {
	f := GetDeviceName()
	res := frame.TryDecode(f)
	if !res.Complete || res.Corrupt {
		t.Fatalf("frame did not decode: %+v", res)
	}
	if res.Frame.DestAddr.Master() != 0 || res.Frame.DestAddr.CU() != 0 {
		t.Fatalf("expected broadcast address, got master=%d cu=%d", res.Frame.DestAddr.Master(), res.Frame.DestAddr.CU())
	}
}
