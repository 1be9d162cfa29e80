package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/groutine"
)

// Connect establishes a session with p: it enumerates services and
// characteristics without the adapter cache, classifies every characteristic,
// subscribes to notifications when a message handler is registered and picks
// the default write channel. A nil error means the session is up.
//
// Per-characteristic notification failures are logged and skipped. Any other
// adapter failure aborts the attempt and releases what it acquired. Disconnect
// may be called concurrently; the attempt then fails with ErrSuperseded.
func (m *Manager) Connect(ctx context.Context, p device.Peripheral) error {
	if p == nil {
		return fmt.Errorf("%w: peripheral is nil", device.ErrInvalidArgument)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.Lock()
	if m.state != Disconnected {
		if m.opts.Reconnect == RequireDisconnect {
			state := m.state
			m.mu.Unlock()
			m.logger.WithField("state", state.String()).Warn("Connection attempt while already connected")
			return device.ErrAlreadyConnected
		}
		m.mu.Unlock()
		m.logger.Debug("Releasing previous session before reconnecting")
		m.Disconnect()
		m.mu.Lock()
	}

	m.attempt++
	attempt := m.attempt
	if m.opts.ConnectTimeout > 0 {
		ctx, m.cancelConnect = context.WithTimeout(ctx, m.opts.ConnectTimeout)
	} else {
		ctx, m.cancelConnect = context.WithCancel(ctx)
	}
	cancel := m.cancelConnect
	m.state = Connecting
	m.mu.Unlock()
	defer cancel()

	log := m.logger.WithFields(logrus.Fields{
		"id":   p.ID(),
		"name": p.Name(),
	})
	log.Info("Connecting to BLE device...")

	s := &session{peripheral: p}
	err := m.establish(ctx, s, log)

	m.mu.Lock()
	superseded := m.attempt != attempt
	if err == nil && !superseded {
		m.current = s
		m.state = Connected
		m.cancelConnect = nil
		m.mu.Unlock()

		log.WithFields(logrus.Fields{
			"readable":   len(s.buckets.Readable),
			"writable":   len(s.buckets.Writable),
			"notifiable": len(s.buckets.Notifiable),
			"read_write": len(s.buckets.ReadWrite),
			"skipped":    s.skipped,
		}).Info("Connected")
		return nil
	}
	if !superseded {
		m.state = Disconnected
		m.cancelConnect = nil
	}
	m.mu.Unlock()

	if superseded && err == nil {
		err = ErrSuperseded
	}
	log.WithError(err).Warn("Connection attempt failed, releasing partial session")
	m.teardown(s, false).log(m.logger)
	return err
}

func (m *Manager) establish(ctx context.Context, s *session, log *logrus.Entry) error {
	p := s.peripheral

	services, err := p.Services(ctx, device.Uncached)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDiscoveryFailed, err)
	}
	if services.Status != device.StatusSuccess {
		return fmt.Errorf("%w: %w", ErrDiscoveryFailed, &device.StatusError{Op: "get services", Status: services.Status})
	}

	cancel, err := p.OnConnectionStatusChanged(m.onConnectionStatus(s))
	if err != nil {
		return fmt.Errorf("failed to subscribe to connection status: %w", err)
	}
	s.statusCancel = cancel

	notify := m.hasMessageListeners()
	processed := 0
	for _, svc := range services.Services {
		if err := ctx.Err(); err != nil {
			return err
		}

		chars, err := svc.Characteristics(ctx, device.Uncached)
		if err != nil {
			return fmt.Errorf("failed to enumerate characteristics of service %s: %w", svc.UUID(), err)
		}
		if chars.Status != device.StatusSuccess {
			log.WithFields(logrus.Fields{
				"service": svc.UUID(),
				"status":  chars.Status.String(),
			}).Debug("Skipping service, characteristic enumeration failed")
			continue
		}

		for _, c := range chars.Characteristics {
			if c == nil {
				continue
			}
			if s.buckets.Add(c) && notify {
				m.subscribe(ctx, s, c, log)
			}
			processed++
		}
	}

	if processed == 0 {
		return ErrNoCharacteristics
	}
	s.defaultWrite = s.buckets.DefaultChannel()
	return nil
}

// subscribe enables notifications on c and attaches the value-changed handler.
// Failures are swallowed; c then stays out of the notify bucket.
func (m *Manager) subscribe(ctx context.Context, s *session, c device.Characteristic, log *logrus.Entry) {
	uuid := c.UUID()
	err := groutine.Safe(m.logger, "subscribe "+uuid, func() error {
		status, err := c.ConfigureNotify(ctx)
		if err != nil {
			return err
		}
		if status != device.StatusSuccess {
			return &device.StatusError{Op: "configure notify", Status: status}
		}

		cancel := c.OnValueChanged(func(data []byte) {
			m.deliver(c, data)
		})
		if cancel == nil {
			return errors.New("adapter returned no subscription handle")
		}
		s.subKeys = append(s.subKeys, m.register(c, cancel))
		s.buckets.Notifiable = append(s.buckets.Notifiable, c)
		return nil
	})
	if err != nil {
		s.skipped++
		log.WithField("characteristic", uuid).WithError(err).Debug("Notification setup failed, skipping characteristic")
		return
	}
	log.WithField("characteristic", uuid).Debug("Subscribed to notifications")
}

// onConnectionStatus forwards adapter link events for s to status listeners.
func (m *Manager) onConnectionStatus(s *session) func(device.ConnectionStatus) {
	return func(status device.ConnectionStatus) {
		connected := status == device.StatusConnected
		m.logger.WithField("status", status.String()).Debug("Connection status changed")
		m.emitStatus(connected)

		if connected || !m.opts.TeardownOnDrop {
			return
		}

		m.mu.Lock()
		current := m.current == s
		m.mu.Unlock()
		if !current {
			return
		}

		// the adapter invokes us on its own goroutine, release from another one
		groutine.Go(context.Background(), "session-drop-teardown", func(context.Context) {
			m.logger.Info("Connection lost, releasing session")
			m.disconnect(s, false)
		})
	}
}
