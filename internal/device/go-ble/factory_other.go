//go:build !darwin && !linux

package goble

import (
	"fmt"
	"runtime"

	"github.com/srg/blelink/internal/device"
)

func newPlatformDevice() (Device, error) {
	return nil, fmt.Errorf("%w: BLE is not available on %s", device.ErrUnsupported, runtime.GOOS)
}
