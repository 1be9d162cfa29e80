package gatt

import (
	"context"
	"fmt"

	"github.com/srg/blelink/internal/device"
)

// WriteTo writes data to c and reports whether the adapter returned success.
//
// Arguments are validated before any I/O: a nil characteristic fails with
// device.ErrInvalidArgument and a characteristic without write capability with
// device.ErrUnsupported. Characteristics that support a plain write are written
// with response; all others without.
func WriteTo(ctx context.Context, data []byte, c device.Characteristic) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("%w: characteristic is nil", device.ErrInvalidArgument)
	}
	if !CanWrite(c) {
		return false, fmt.Errorf("%w: characteristic %s is not writable (%s)", device.ErrUnsupported, c.UUID(), c.Properties())
	}

	withResponse := c.Properties().Has(device.PropWrite)
	status, err := c.Write(ctx, data, withResponse)
	if err != nil {
		return false, fmt.Errorf("write to %s: %w", c.UUID(), err)
	}
	return status == device.StatusSuccess, nil
}
