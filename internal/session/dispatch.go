package session

import (
	"context"
	"errors"
	"time"

	"github.com/smallnest/ringbuffer"
	"github.com/srg/blelink/internal/device"
)

// deliver is the value-changed handler attached to every subscription. It runs
// on the adapter's goroutine and must not block: the payload is copied into the
// receive buffer and the dispatch queue, and message handlers run later on the
// dispatcher goroutine.
func (m *Manager) deliver(c device.Characteristic, data []byte) {
	payload := make([]byte, len(data))
	copy(payload, data)

	if _, err := m.received.Write(payload); err != nil && !errors.Is(err, ringbuffer.ErrIsFull) {
		m.logger.WithError(err).Debug("Failed to buffer received data")
	}

	msg := Message{
		UUID:           device.NormalizeUUID(c.UUID()),
		Characteristic: c,
		Data:           payload,
		Received:       time.Now(),
	}
	overwrites, err := m.queue.EnqueueM(msg)
	if err != nil {
		m.dropped.Add(1)
		m.logger.WithError(err).Warn("Dropping notification, dispatch queue rejected it")
		return
	}
	if overwrites > 0 {
		m.dropped.Add(uint64(overwrites))
		m.logger.WithField("overwritten", overwrites).Debug("Dispatch queue full, oldest notifications overwritten")
	}

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// dispatch publishes queued notifications to message handlers until ctx is done.
func (m *Manager) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.drain()
			return
		case <-m.wake:
			m.drain()
		}
	}
}

func (m *Manager) drain() {
	for !m.queue.IsEmpty() {
		msg, err := m.queue.Dequeue()
		if err != nil {
			return
		}
		m.publish(msg)
	}
}

func (m *Manager) publish(msg Message) {
	m.lmu.Lock()
	fns := make([]func(Message), 0, len(m.message))
	for _, fn := range m.message {
		fns = append(fns, fn)
	}
	m.lmu.Unlock()

	for _, fn := range fns {
		_ = m.safeCall(func() error {
			fn(msg)
			return nil
		})
	}
}

func (m *Manager) safeCall(fn func() error) error {
	defer func() {
		if r := recover(); r != nil {
			m.logger.WithField("panic", r).Error("Message handler panicked")
		}
	}()
	return fn()
}

// Read copies buffered notification payloads into p, oldest first, without
// blocking. It returns ErrNoData when nothing is buffered.
func (m *Manager) Read(p []byte) (int, error) {
	n, err := m.received.TryRead(p)
	if errors.Is(err, ringbuffer.ErrIsEmpty) {
		return 0, ErrNoData
	}
	return n, err
}

// Dropped returns the number of notifications lost to dispatch queue overflow.
func (m *Manager) Dropped() uint64 {
	return m.dropped.Load()
}
