// Package command builds typed LCS frames from lighting intents, validating
// arguments before any bytes are encoded.
package command

import (
	"fmt"

	"github.com/lumenbus/lcs-gateway/internal/lcs/frame"
)

// InvalidArgumentError reports an out-of-range builder argument.
type InvalidArgumentError struct {
	Field string
	Value int
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s=%d", e.Field, e.Value)
}

func (e *InvalidArgumentError) Code() string { return "InvalidArgument" }

func checkRange(field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return &InvalidArgumentError{Field: field, Value: v}
	}
	return nil
}

// GetLampBrightness builds `get lamp brightness` for the given device type.
func GetLampBrightness(deviceType byte, master, cu byte) ([]byte, error) {
	if err := ValidateMasterCU(int(master), int(cu)); err != nil {
		return nil, err
	}
	dest := frame.NewAddr(deviceType, master, cu)
	return frame.Encode(dest, frame.HostAddr, 0x96, 0x00, nil), nil
}

// GetColorTemperature builds `get color temperature`.
func GetColorTemperature(master, cu byte) ([]byte, error) {
	if err := ValidateMasterCU(int(master), int(cu)); err != nil {
		return nil, err
	}
	dest := frame.NewAddr(frame.DeviceLCS, master, cu)
	return frame.Encode(dest, frame.HostAddr, 0x96, 0x06, nil), nil
}

// DimLamp builds `dim single lamp`. brightness in [0,100], lampNo in [1,64].
func DimLamp(master, cu byte, lampNo, brightness int) ([]byte, error) {
	if err := ValidateMasterCU(int(master), int(cu)); err != nil {
		return nil, err
	}
	if err := checkRange("lampNo", lampNo, 1, 64); err != nil {
		return nil, err
	}
	if err := checkRange("brightness", brightness, 0, 100); err != nil {
		return nil, err
	}
	dest := frame.NewAddr(frame.DeviceLCS, master, cu)
	data := []byte{cu, byte(lampNo), 0x00, byte(brightness)}
	return frame.Encode(dest, frame.HostAddr, 0x92, 0x00, data), nil
}

// BlockLampControl builds `block lamp control` for a list of lamps sharing one brightness.
func BlockLampControl(master, cu byte, lamps []int, brightness int) ([]byte, error) {
	if err := ValidateMasterCU(int(master), int(cu)); err != nil {
		return nil, err
	}
	if err := checkRange("brightness", brightness, 0, 100); err != nil {
		return nil, err
	}
	data, err := encodeLampBlock(cu, lamps)
	if err != nil {
		return nil, err
	}
	data = append(data, byte(brightness))
	dest := frame.NewAddr(frame.DeviceLCS, master, cu)
	return frame.Encode(dest, frame.HostAddr, 0x90, 0x00, data), nil
}

// BlockColorTemp builds `block color-temp` for a list of lamps sharing one color temperature.
func BlockColorTemp(master, cu byte, lamps []int, colorTemp int) ([]byte, error) {
	if err := ValidateMasterCU(int(master), int(cu)); err != nil {
		return nil, err
	}
	if err := checkRange("colorTemp", colorTemp, 0, 100); err != nil {
		return nil, err
	}
	data, err := encodeLampBlock(cu, lamps)
	if err != nil {
		return nil, err
	}
	data = append(data, byte(colorTemp))
	dest := frame.NewAddr(frame.DeviceLCS, master, cu)
	return frame.Encode(dest, frame.HostAddr, 0x90, 0x05, data), nil
}

func encodeLampBlock(cu byte, lamps []int) ([]byte, error) {
	if err := checkRange("lampCount", len(lamps), 1, 64); err != nil {
		return nil, err
	}
	data := make([]byte, 0, 2+len(lamps))
	data = append(data, cu, byte(len(lamps)))
	for _, l := range lamps {
		if err := checkRange("lampNo", l, 1, 64); err != nil {
			return nil, err
		}
		data = append(data, byte(l))
	}
	return data, nil
}

// ExecuteScene builds `execute scene`. fadeTime is in seconds, [0,255].
func ExecuteScene(master, cu byte, sceneNo, fadeTime int) ([]byte, error) {
	if err := ValidateMasterCU(int(master), int(cu)); err != nil {
		return nil, err
	}
	if err := checkRange("sceneNo", sceneNo, 0, 255); err != nil {
		return nil, err
	}
	if err := checkRange("fadeTime", fadeTime, 0, 255); err != nil {
		return nil, err
	}
	dest := frame.NewAddr(frame.DeviceLCS, master, cu)
	data := []byte{cu, byte(sceneNo), byte(fadeTime)}
	return frame.Encode(dest, frame.HostAddr, 0x91, 0x00, data), nil
}

// AllLamps builds `all lamps`, setting every lamp on a CU to one brightness.
func AllLamps(master, cu byte, brightness int) ([]byte, error) {
	if err := ValidateMasterCU(int(master), int(cu)); err != nil {
		return nil, err
	}
	if err := checkRange("brightness", brightness, 0, 100); err != nil {
		return nil, err
	}
	dest := frame.NewAddr(frame.DeviceLCS, master, cu)
	data := []byte{cu, byte(brightness)}
	return frame.Encode(dest, frame.HostAddr, 0x90, 0x02, data), nil
}

// GetDeviceName builds `get device name`, addressed as a broadcast (master=cu=0).
func GetDeviceName() []byte {
	dest := frame.NewAddr(frame.DeviceLCS, 0, 0)
	return frame.Encode(dest, frame.HostAddr, 0xA2, 0x05, nil)
}

// ValidateMasterCU checks the two-level bus address used by every operation
// that targets a specific master/CU pair (all but the GetDeviceName broadcast).
func ValidateMasterCU(master, cu int) error {
	if err := checkRange("masterAddr", master, 1, 255); err != nil {
		return err
	}
	if err := checkRange("cuAddr", cu, 1, 255); err != nil {
		return err
	}
	return nil
}
