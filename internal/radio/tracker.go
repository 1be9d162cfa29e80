// Package radio tracks the power state of the host Bluetooth radio.
//
// Radio power is host-wide: Enable and Disable affect every application on the
// machine.
package radio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
)

// Tracker lazily discovers the Bluetooth radio and caches its state, kept fresh
// by a state-change subscription.
type Tracker struct {
	provider device.RadioProvider
	logger   *logrus.Logger

	// scanMu serializes radio enumeration and subscription replacement.
	scanMu sync.Mutex

	mu        sync.Mutex
	scanned   bool
	radio     device.Radio
	state     device.RadioState
	unwatch   device.CancelFunc
	listeners map[int]func(enabled bool)
	nextID    int
}

var (
	sharedOnce sync.Once
	shared     *Tracker
)

// Shared returns the process-wide tracker, creating it from provider on first
// use. Later calls ignore their arguments.
func Shared(provider device.RadioProvider, logger *logrus.Logger) *Tracker {
	sharedOnce.Do(func() {
		shared = New(provider, logger)
	})
	return shared
}

// New creates a tracker over provider. The radio is not queried until first use.
func New(provider device.RadioProvider, logger *logrus.Logger) *Tracker {
	if logger == nil {
		logger = logrus.New()
	}
	return &Tracker{
		provider:  provider,
		logger:    logger,
		listeners: make(map[int]func(bool)),
	}
}

// Enabled reports whether the Bluetooth radio is powered on. It returns false
// when no radio exists or the backend cannot be queried.
func (t *Tracker) Enabled(ctx context.Context) bool {
	r, err := t.ensureRadio(ctx)
	if err != nil {
		t.logger.WithError(err).Debug("Bluetooth radio unavailable")
		return false
	}
	if r == nil {
		return false
	}

	state, err := r.State(ctx)
	if err != nil {
		t.logger.WithError(err).Debug("Failed to query radio state, using cached value")
		t.mu.Lock()
		state = t.state
		t.mu.Unlock()
	} else {
		t.mu.Lock()
		t.state = state
		t.mu.Unlock()
	}
	return state == device.RadioOn
}

// Enable powers the radio on. See SetEnabled.
func (t *Tracker) Enable(ctx context.Context) (bool, error) {
	return t.SetEnabled(ctx, true)
}

// Disable powers the radio off. See SetEnabled.
func (t *Tracker) Disable(ctx context.Context) (bool, error) {
	return t.SetEnabled(ctx, false)
}

// SetEnabled requests radio access and switches power to the requested state
// when it differs from the current one. It fails with device.ErrPermissionDenied
// when access is refused and device.ErrNoRadio when the host has no Bluetooth radio.
func (t *Tracker) SetEnabled(ctx context.Context, enable bool) (bool, error) {
	access, err := t.provider.RequestAccess(ctx)
	if err != nil {
		return false, fmt.Errorf("radio access request failed: %w", err)
	}
	if access != device.AccessAllowed {
		t.logger.WithField("access", access.String()).Warn("Radio access refused")
		return false, fmt.Errorf("%w: radio access %s", device.ErrPermissionDenied, access)
	}

	r, err := t.ensureRadio(ctx)
	if err != nil {
		return false, err
	}
	if r == nil {
		return false, device.ErrNoRadio
	}

	want := device.RadioOff
	if enable {
		want = device.RadioOn
	}

	current, err := r.State(ctx)
	if err != nil {
		t.mu.Lock()
		current = t.state
		t.mu.Unlock()
	}
	if current == want {
		t.logger.WithField("state", want.String()).Debug("Radio already in requested state")
		return true, nil
	}

	t.logger.WithFields(logrus.Fields{
		"radio": r.Name(),
		"from":  current.String(),
		"to":    want.String(),
	}).Info("Switching Bluetooth radio...")

	if err := r.SetState(ctx, want); err != nil {
		if errors.Is(err, device.ErrPermissionDenied) {
			return false, err
		}
		return false, fmt.Errorf("failed to set radio state: %w", err)
	}
	return true, nil
}

// Rescan re-queries the host radios, replaces the state-change subscription
// and emits the current state to listeners.
func (t *Tracker) Rescan(ctx context.Context) error {
	t.scanMu.Lock()
	defer t.scanMu.Unlock()
	return t.rescan(ctx)
}

func (t *Tracker) rescan(ctx context.Context) error {
	radios, err := t.provider.Radios(ctx)
	if err != nil {
		return fmt.Errorf("failed to enumerate radios: %w", err)
	}

	var bt device.Radio
	for _, r := range radios {
		if r != nil && r.Kind() == device.RadioBluetooth {
			bt = r
			break
		}
	}

	t.mu.Lock()
	old := t.unwatch
	t.unwatch = nil
	t.mu.Unlock()
	if old != nil {
		if err := old(); err != nil {
			t.logger.WithError(err).Debug("Failed to cancel previous radio subscription")
		}
	}

	state := device.RadioUnknown
	var unwatch device.CancelFunc
	if bt != nil {
		if unwatch, err = bt.OnStateChanged(t.onRadioState); err != nil {
			t.logger.WithError(err).Warn("Failed to subscribe to radio state changes")
		}
		if state, err = bt.State(ctx); err != nil {
			t.logger.WithError(err).Warn("Failed to query radio state")
			state = device.RadioUnknown
		}
		t.logger.WithFields(logrus.Fields{
			"radio": bt.Name(),
			"state": state.String(),
		}).Info("Bluetooth radio found")
	} else {
		t.logger.Warn("No Bluetooth radio found")
	}

	t.mu.Lock()
	t.radio = bt
	t.state = state
	t.unwatch = unwatch
	t.scanned = true
	t.mu.Unlock()

	t.emit(state == device.RadioOn)
	return nil
}

func (t *Tracker) ensureRadio(ctx context.Context) (device.Radio, error) {
	t.mu.Lock()
	scanned, r := t.scanned, t.radio
	t.mu.Unlock()

	if scanned {
		return r, nil
	}

	t.scanMu.Lock()
	defer t.scanMu.Unlock()

	t.mu.Lock()
	scanned = t.scanned
	t.mu.Unlock()
	if !scanned {
		if err := t.rescan(ctx); err != nil {
			return nil, err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.radio, nil
}

func (t *Tracker) onRadioState(state device.RadioState) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()

	t.logger.WithField("state", state.String()).Info("Bluetooth radio state changed")
	t.emit(state == device.RadioOn)
}

// OnStateChanged registers fn for state-changed events. The returned function
// removes the registration.
func (t *Tracker) OnStateChanged(fn func(enabled bool)) (cancel func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

func (t *Tracker) emit(enabled bool) {
	t.mu.Lock()
	fns := make([]func(bool), 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(enabled)
	}
}
