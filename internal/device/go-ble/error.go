package goble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/srg/blelink/internal/device"
)

// NormalizeError maps known go-ble error strings to the shared device errors.
// The original error stays wrapped.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch {
	case msg == "central manager has invalid state: have=4 want=5: is Bluetooth turned on?":
		return fmt.Errorf("%w: %v", device.ErrBluetoothOff, err)
	case containsIgnoreCase(msg, "bluetooth is turned off"):
		return fmt.Errorf("%w: %v", device.ErrBluetoothOff, err)
	case containsIgnoreCase(msg, "device not connected"):
		return fmt.Errorf("%w: %v", device.ErrNotConnected, err)
	case containsIgnoreCase(msg, "disconnected"):
		return fmt.Errorf("%w: %v", device.ErrNotConnected, err)
	case containsIgnoreCase(msg, "device already connected"):
		return fmt.Errorf("%w: %v", device.ErrAlreadyConnected, err)
	case containsIgnoreCase(msg, "operation not permitted"), containsIgnoreCase(msg, "permission denied"):
		return fmt.Errorf("%w: %v", device.ErrPermissionDenied, err)
	default:
		return err
	}
}

// communicationStatus turns a GATT round-trip error into the status the
// session layer understands. Errors that describe the remote answer become a
// status; anything else is returned as an error.
func communicationStatus(err error) (device.CommunicationStatus, error) {
	if err == nil {
		return device.StatusSuccess, nil
	}

	err = NormalizeError(err)
	msg := err.Error()
	switch {
	case errors.Is(err, device.ErrNotConnected):
		return device.StatusUnreachable, nil
	case containsIgnoreCase(msg, "not permitted"),
		containsIgnoreCase(msg, "insufficient authentication"),
		containsIgnoreCase(msg, "insufficient authorization"),
		containsIgnoreCase(msg, "insufficient encryption"):
		return device.StatusAccessDenied, nil
	default:
		return device.StatusProtocolError, err
	}
}

// containsIgnoreCase checks the substring case-insensitively
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
