// Package watcher keeps a continuously refreshed, deduplicated set of nearby
// BLE devices on top of an adapter discovery backend.
//
// The watcher cycles Stopped → Scanning → EnumerationComplete → Stopped and
// restarts itself after every completed enumeration pass, dropping the live set
// so that stale devices disappear. A backend that stops on its own is
// restarted with exponential backoff. An explicit Stop ends the cycle and keeps
// the set as it was.
package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/ringchan"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultEventBuffer is the capacity of the Events channel.
const DefaultEventBuffer = 128

// Restart delays after the backend stopped on its own.
const (
	DefaultMinRestartDelay = 250 * time.Millisecond
	DefaultMaxRestartDelay = 30 * time.Second
)

// State is the lifecycle state of a Watcher.
type State int

const (
	Stopped State = iota
	Scanning
	EnumerationComplete
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case EnumerationComplete:
		return "enumeration-complete"
	default:
		return "stopped"
	}
}

type stopReason int

const (
	reasonNone stopReason = iota
	reasonExplicit
	reasonCompleted
)

// Watcher owns the live device set. All methods are safe for concurrent use;
// Start and Stop are still expected to come from a single controlling owner.
type Watcher struct {
	backend device.DeviceWatcher
	logger  *logrus.Logger

	mu      sync.Mutex
	state   State
	reason  stopReason
	devices *orderedmap.OrderedMap[string, device.DiscoveredDevice]
	scanned bool
	passes  int
	runCtx  context.Context

	minDelay time.Duration
	maxDelay time.Duration
	delay    time.Duration
	retry    *time.Timer

	events *ringchan.RingChannel[device.WatchEvent]
}

var (
	sharedOnce sync.Once
	shared     *Watcher
)

// Shared returns the process-wide watcher, creating it from backend on first
// use. Later calls ignore their arguments. The shared watcher is never
// destroyed; callers only start and stop it.
func Shared(backend device.DeviceWatcher, logger *logrus.Logger) *Watcher {
	sharedOnce.Do(func() {
		shared = New(backend, logger)
	})
	return shared
}

// New creates a stopped watcher over backend.
func New(backend device.DeviceWatcher, logger *logrus.Logger) *Watcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Watcher{
		backend: backend,
		logger:  logger,
		devices:  orderedmap.New[string, device.DiscoveredDevice](),
		events:   ringchan.New[device.WatchEvent](DefaultEventBuffer),
		minDelay: DefaultMinRestartDelay,
		maxDelay: DefaultMaxRestartDelay,
	}
}

// SetRestartBackoff sets the first and the maximum delay before restarting a
// backend that stopped on its own. The delay doubles on every unexpected stop
// and resets after a pass that completes or reports a device.
func (w *Watcher) SetRestartBackoff(first, limit time.Duration) {
	if first <= 0 {
		first = DefaultMinRestartDelay
	}
	if limit < first {
		limit = first
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.minDelay, w.maxDelay = first, limit
}

// Start begins scanning. It is a no-op unless the watcher is stopped. ctx
// bounds the whole scan cycle, automatic restarts included.
func (w *Watcher) Start(ctx context.Context) error {
	return w.start(ctx, false)
}

// start with auto set is a restart; it yields to an explicit Stop.
func (w *Watcher) start(ctx context.Context, auto bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	w.mu.Lock()
	if w.state != Stopped || (auto && w.reason == reasonExplicit) {
		w.mu.Unlock()
		return nil
	}
	w.cancelRetryLocked()
	w.state = Scanning
	w.reason = reasonNone
	w.runCtx = ctx
	w.passes++
	pass := w.passes
	w.mu.Unlock()

	w.logger.WithField("pass", pass).Info("Starting device watcher...")

	if err := w.backend.Start(ctx, w.handle); err != nil {
		w.mu.Lock()
		w.state = Stopped
		w.mu.Unlock()
		w.logger.WithError(err).Error("Failed to start device watcher")
		return fmt.Errorf("failed to start device watcher: %w", err)
	}
	return nil
}

// Stop ends scanning. It is a no-op when already stopped. The live set is kept
// and the watcher does not restart.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	w.cancelRetryLocked()
	if w.state == Stopped {
		w.reason = reasonExplicit
		w.mu.Unlock()
		return nil
	}
	w.state = Stopped
	w.reason = reasonExplicit
	w.mu.Unlock()

	w.logger.Info("Stopping device watcher...")
	if err := w.backend.Stop(); err != nil {
		return fmt.Errorf("failed to stop device watcher: %w", err)
	}
	return nil
}

// handle is the backend callback; it runs on the backend's goroutine.
func (w *Watcher) handle(ev device.WatchEvent) {
	switch ev.Kind {
	case device.DeviceAdded:
		if !w.add(ev.Device) {
			return
		}
	case device.DeviceRemoved:
		w.mu.Lock()
		_, present := w.devices.Delete(ev.Device.ID)
		w.mu.Unlock()
		if !present {
			return
		}
		w.logger.WithField("id", ev.Device.ID).Debug("Device removed")
	case device.EnumerationCompleted:
		w.events.Send(ev)
		w.completed()
		return
	case device.WatcherStopped:
		w.events.Send(ev)
		w.stopped()
		return
	}

	w.events.Send(ev)
}

func (w *Watcher) add(d device.DiscoveredDevice) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.scanned = true
	w.delay = 0
	if w.containsLocked(d) {
		return false
	}
	w.devices.Set(d.ID, d)

	w.logger.WithFields(logrus.Fields{
		"id":   d.ID,
		"name": d.Name,
		"rssi": d.RSSI,
	}).Info("Discovered new device")
	return true
}

// containsLocked reports whether the set already holds a device with the same
// id or the same non-empty name.
func (w *Watcher) containsLocked(d device.DiscoveredDevice) bool {
	if _, ok := w.devices.Get(d.ID); ok {
		return true
	}
	if d.Name == "" {
		return false
	}
	for pair := w.devices.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Name == d.Name {
			return true
		}
	}
	return false
}

func (w *Watcher) completed() {
	w.mu.Lock()
	if w.state != Scanning {
		w.mu.Unlock()
		return
	}
	w.state = EnumerationComplete
	w.reason = reasonCompleted
	count := w.devices.Len()
	w.mu.Unlock()

	w.logger.WithField("device_count", count).Debug("Enumeration completed, stopping watcher for restart")
	if err := w.backend.Stop(); err != nil {
		w.logger.WithError(err).Warn("Failed to stop device watcher after enumeration")
	}
}

func (w *Watcher) stopped() {
	w.mu.Lock()
	if w.reason == reasonExplicit {
		w.mu.Unlock()
		w.logger.Debug("Device watcher stopped")
		return
	}
	completed := w.reason == reasonCompleted
	w.devices = orderedmap.New[string, device.DiscoveredDevice]()
	w.scanned = false
	w.state = Stopped
	ctx := w.runCtx

	if ctx != nil && ctx.Err() != nil {
		w.mu.Unlock()
		w.logger.Debug("Device watcher context done, not restarting")
		return
	}
	if !completed {
		w.scheduleRetryLocked(ctx)
		w.mu.Unlock()
		return
	}
	w.delay = 0
	w.mu.Unlock()

	w.restart(ctx)
}

func (w *Watcher) restart(ctx context.Context) {
	if err := w.start(ctx, true); err != nil {
		w.logger.WithError(err).Warn("Failed to restart device watcher")
		w.mu.Lock()
		w.scheduleRetryLocked(ctx)
		w.mu.Unlock()
	}
}

// scheduleRetryLocked arms a delayed restart, doubling the delay up to maxDelay.
func (w *Watcher) scheduleRetryLocked(ctx context.Context) {
	if w.state != Stopped || w.reason == reasonExplicit || (ctx != nil && ctx.Err() != nil) {
		return
	}
	w.cancelRetryLocked()

	if w.delay == 0 {
		w.delay = w.minDelay
	} else {
		w.delay = min(2*w.delay, w.maxDelay)
	}
	delay := w.delay

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		w.mu.Lock()
		if w.retry != t {
			w.mu.Unlock()
			return
		}
		w.retry = nil
		w.mu.Unlock()

		if ctx != nil && ctx.Err() != nil {
			return
		}
		w.restart(ctx)
	})
	w.retry = t

	w.logger.WithField("delay", delay).Warn("Device watcher stopped unexpectedly, restarting after delay")
}

func (w *Watcher) cancelRetryLocked() {
	if w.retry != nil {
		w.retry.Stop()
		w.retry = nil
	}
}

// ----------------------------
// Queries
// ----------------------------

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Passes returns how many scan passes were started, restarts included.
func (w *Watcher) Passes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.passes
}

// IsScanned reports whether at least one device was reported in the current pass.
func (w *Watcher) IsScanned() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scanned
}

// Devices returns a snapshot of the live set in discovery order.
func (w *Watcher) Devices() []device.DiscoveredDevice {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]device.DiscoveredDevice, 0, w.devices.Len())
	for pair := w.devices.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, clone(pair.Value))
	}
	return out
}

// Device returns the device with the given id.
func (w *Watcher) Device(id string) (device.DiscoveredDevice, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	d, ok := w.devices.Get(id)
	return clone(d), ok
}

// FindByName returns the first device, in discovery order, named name.
func (w *Watcher) FindByName(name string) (device.DiscoveredDevice, bool) {
	return w.find(func(d device.DiscoveredDevice) bool { return d.Name == name })
}

// FindUnknown returns the device matching both id and name. It is used to
// resolve devices whose name is empty, where neither key alone is reliable.
func (w *Watcher) FindUnknown(id, name string) (device.DiscoveredDevice, bool) {
	return w.find(func(d device.DiscoveredDevice) bool { return d.ID == id && d.Name == name })
}

func (w *Watcher) find(match func(device.DiscoveredDevice) bool) (device.DiscoveredDevice, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for pair := w.devices.Oldest(); pair != nil; pair = pair.Next() {
		if match(pair.Value) {
			return clone(pair.Value), true
		}
	}
	return device.DiscoveredDevice{}, false
}

// Events returns the stream of accepted watcher events. Slow readers lose the
// oldest events.
func (w *Watcher) Events() <-chan device.WatchEvent {
	return w.events.C()
}

func clone(d device.DiscoveredDevice) device.DiscoveredDevice {
	d.AdvertisedServices = append([]string(nil), d.AdvertisedServices...)
	return d
}
