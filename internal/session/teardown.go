package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/gatt"
	"github.com/srg/blelink/internal/groutine"
)

// TeardownFailure is a cleanup step that did not complete.
type TeardownFailure struct {
	Step   string
	Target string
	Err    error
}

// TeardownReport lists the cleanup steps that failed during a disconnect.
// Failed steps never stop the remaining ones.
type TeardownReport struct {
	Steps    int
	Failures []TeardownFailure
}

// OK reports whether every step completed.
func (r TeardownReport) OK() bool {
	return len(r.Failures) == 0
}

// Err joins the failures into one error, nil when OK.
func (r TeardownReport) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s %s: %w", f.Step, f.Target, f.Err))
	}
	return errors.Join(errs...)
}

func (r TeardownReport) String() string {
	if r.OK() {
		return fmt.Sprintf("%d steps, no failures", r.Steps)
	}
	parts := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		parts = append(parts, fmt.Sprintf("%s %s: %v", f.Step, f.Target, f.Err))
	}
	return fmt.Sprintf("%d steps, %d failed: %s", r.Steps, len(r.Failures), strings.Join(parts, "; "))
}

func (r TeardownReport) log(logger *logrus.Logger) {
	for _, f := range r.Failures {
		logger.WithFields(logrus.Fields{
			"step":   f.Step,
			"target": f.Target,
			"error":  f.Err,
		}).Warn("Teardown step failed")
	}
}

// Disconnect releases the current session: the connection status
// subscription (announcing a final disconnected event), every notification
// subscription, every service and finally the device handle. An in-flight
// Connect is cancelled. Disconnect never fails; it is safe to call at any
// time and any number of times.
func (m *Manager) Disconnect() TeardownReport {
	return m.disconnect(nil, true)
}

// disconnect releases the current session. When only is set, the current
// session is released only if it is still only.
func (m *Manager) disconnect(only *session, announce bool) TeardownReport {
	m.mu.Lock()
	if only != nil && m.current != only {
		m.mu.Unlock()
		return TeardownReport{}
	}
	if m.cancelConnect != nil {
		m.cancelConnect()
		m.cancelConnect = nil
	}
	s := m.current
	m.current = nil
	if s == nil && m.state == Disconnected {
		m.mu.Unlock()
		return TeardownReport{}
	}
	m.attempt++
	m.state = Disconnecting
	m.mu.Unlock()

	var report TeardownReport
	if s != nil {
		m.logger.WithField("id", safeString(s.peripheral.ID)).Info("Disconnecting...")
		report = m.teardown(s, announce)
		report.log(m.logger)
	}

	m.mu.Lock()
	if m.state == Disconnecting {
		m.state = Disconnected
	}
	m.mu.Unlock()

	m.logger.WithField("report", report.String()).Info("Disconnected")
	return report
}

// teardown releases everything s holds. Each step runs guarded so that a
// failure or panic in one does not prevent the next.
func (m *Manager) teardown(s *session, announce bool) TeardownReport {
	var r TeardownReport
	step := func(name, target string, fn func() error) {
		r.Steps++
		if err := groutine.Safe(m.logger, name, fn); err != nil {
			r.Failures = append(r.Failures, TeardownFailure{Step: name, Target: target, Err: err})
		}
	}

	if s.statusCancel != nil {
		step("cancel status subscription", safeString(s.peripheral.ID), func() error { return s.statusCancel() })
		s.statusCancel = nil
		if announce {
			m.emitStatus(false)
		}
	}

	for _, key := range s.subKeys {
		sub, ok := m.subs.Get(key)
		if !ok {
			continue
		}
		m.subs.Del(key)
		step("cancel value subscription", safeString(sub.char.UUID), func() error { return sub.cancel() })
	}
	s.subKeys = nil

	for _, bucket := range [][]device.Characteristic{
		s.buckets.Notifiable,
		s.buckets.Readable,
		s.buckets.Writable,
		s.buckets.ReadWrite,
	} {
		for _, c := range bucket {
			step("dispose service", safeString(c.UUID), func() error {
				svc := c.Service()
				if svc == nil || !svc.SessionActive() {
					return nil
				}
				return svc.Close()
			})
		}
	}
	s.buckets = gatt.Buckets{}
	s.defaultWrite = nil

	var cached []device.Service
	step("list services", safeString(s.peripheral.ID), func() error {
		cached = s.peripheral.CachedServices()
		return nil
	})
	for _, svc := range cached {
		if svc == nil {
			continue
		}
		step("dispose service", safeString(svc.UUID), func() error {
			if !svc.SessionActive() {
				return nil
			}
			return svc.Close()
		})
	}

	step("dispose device", safeString(s.peripheral.ID), s.peripheral.Close)
	return r
}

func safeString(fn func() string) (s string) {
	defer func() {
		if recover() != nil {
			s = "?"
		}
	}()
	return fn()
}
