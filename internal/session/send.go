package session

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/gatt"
)

// Send writes data to the session's default write channel: the primary
// read-write characteristic when present, otherwise the first writable one.
// The bool reports whether the adapter acknowledged the write.
func (m *Manager) Send(ctx context.Context, data []byte) (bool, error) {
	m.mu.Lock()
	s := m.current
	var target device.Characteristic
	if s != nil {
		target = s.defaultWrite
		if target == nil {
			target = s.buckets.DefaultChannel()
		}
	}
	m.mu.Unlock()

	if s == nil {
		return false, device.ErrNotConnected
	}
	if target == nil {
		return false, ErrNoWritableCharacteristic
	}
	return m.SendTo(ctx, data, target)
}

// SendString sends the bytes of str, see Send.
func (m *Manager) SendString(ctx context.Context, str string) (bool, error) {
	return m.Send(ctx, []byte(str))
}

// SendTo writes data to c, which need not belong to the current session.
func (m *Manager) SendTo(ctx context.Context, data []byte, c device.Characteristic) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if m.opts.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.WriteTimeout)
		defer cancel()
	}

	ok, err := gatt.WriteTo(ctx, data, c)
	fields := logrus.Fields{"bytes": len(data), "ok": ok}
	if c != nil {
		fields["characteristic"] = c.UUID()
	}
	if err != nil {
		m.logger.WithFields(fields).WithError(err).Warn("Write failed")
		return false, err
	}
	m.logger.WithFields(fields).Debug("Wrote data")
	return ok, nil
}
