package device

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionError(t *testing.T) {
	wrapped := fmt.Errorf("dial: %w", &ConnectionError{State: AlreadyConnected, Msg: "hci0"})

	assert.ErrorIs(t, wrapped, ErrAlreadyConnected, "ConnectionError MUST match by state")
	assert.NotErrorIs(t, wrapped, ErrNotConnected)
	assert.True(t, IsConnectionState(wrapped, AlreadyConnected))
	assert.False(t, IsConnectionState(errors.New("x"), AlreadyConnected))
	assert.Equal(t, "already_connected: hci0", errors.Unwrap(wrapped).Error())
}

func TestNotFoundError(t *testing.T) {
	assert.Equal(t, "device not found", (&NotFoundError{Resource: "device"}).Error())
	assert.Equal(t, `device "Sensor1" not found`, (&NotFoundError{Resource: "device", UUIDs: []string{"Sensor1"}}).Error())
	assert.Equal(t, `characteristic "2a37" not found in service "180d"`,
		(&NotFoundError{Resource: "characteristic", UUIDs: []string{"180d", "2a37"}}).Error())
}

func TestStatusError(t *testing.T) {
	err := fmt.Errorf("connect: %w", &StatusError{Op: "get services", Status: StatusUnreachable})

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StatusUnreachable, serr.Status)
	assert.Equal(t, "connect: get services: unreachable", err.Error())
}

func TestAddress(t *testing.T) {
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", FormatAddress(0xAABBCCDDEEFF))
	assert.Equal(t, "00:00:00:00:00:01", FormatAddress(1))

	v, err := ParseAddress("AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	assert.Equal(t, uint64(0xAABBCCDDEEFF), v)

	v, err = ParseAddress("aa-bb-cc-dd-ee-ff")
	require.NoError(t, err)
	assert.Equal(t, FormatAddress(v), "aa:bb:cc:dd:ee:ff")

	_, err = ParseAddress("aa:bb")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ParseAddress("zz:bb:cc:dd:ee:ff")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
