package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/session"
)

// ErrConnectionLost indicates the link dropped while a command still needed it.
var ErrConnectionLost = errors.New("connection lost")

// FormatUserError turns an error chain into a one-line message with a hint
// for the failure classes a user can act on.
func FormatUserError(err error) string {
	var nf *device.NotFoundError
	switch {
	case errors.As(err, &nf):
		return fmt.Sprintf("%s (is it powered on and in range?)", nf)
	case errors.Is(err, device.ErrBluetoothOff):
		return "Bluetooth is turned off (try 'blelink radio on')"
	case errors.Is(err, device.ErrNoRadio):
		return "no Bluetooth radio found on this host"
	case errors.Is(err, device.ErrPermissionDenied):
		return fmt.Sprintf("%v (check Bluetooth permissions for this terminal)", err)
	case errors.Is(err, device.ErrAlreadyConnected):
		return "a device is already connected"
	case errors.Is(err, ErrConnectionLost):
		return "connection to the device was lost"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, device.ErrTimeout):
		return fmt.Sprintf("operation timed out: %v", err)
	case errors.Is(err, session.ErrNoWritableCharacteristic):
		return "the device has no writable characteristic (use --char to pick one)"
	}
	return err.Error()
}
