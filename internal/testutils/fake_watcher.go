//go:build test

package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/srg/blelink/internal/device"
)

// FakeWatcher is a scriptable device.DeviceWatcher. Events are delivered
// synchronously on the caller's goroutine, and Stop delivers WatcherStopped
// before returning, the same ordering the real backends guarantee.
type FakeWatcher struct {
	mu       sync.Mutex
	handler  func(device.WatchEvent)
	running  bool
	starts   int
	stops    int
	startErr error
}

func NewFakeWatcher() *FakeWatcher {
	return &FakeWatcher{}
}

// FailStart makes subsequent Start calls fail with err.
func (f *FakeWatcher) FailStart(err error) *FakeWatcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startErr = err
	return f
}

func (f *FakeWatcher) Start(_ context.Context, fn func(device.WatchEvent)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.startErr != nil {
		return f.startErr
	}
	if f.running {
		return errors.New("fake watcher already running")
	}
	f.running = true
	f.handler = fn
	f.starts++
	return nil
}

func (f *FakeWatcher) Stop() error {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = false
	f.stops++
	h := f.handler
	f.mu.Unlock()

	h(device.WatchEvent{Kind: device.WatcherStopped})
	return nil
}

// Drop stops the backend on its own, as a failed scan or a lost adapter would.
func (f *FakeWatcher) Drop() {
	_ = f.Stop()
}

func (f *FakeWatcher) emit(ev device.WatchEvent) {
	f.mu.Lock()
	h, running := f.handler, f.running
	f.mu.Unlock()

	if running && h != nil {
		h(ev)
	}
}

// Add reports a discovered device.
func (f *FakeWatcher) Add(id, name string) {
	f.AddDevice(device.DiscoveredDevice{ID: id, Name: name, Address: id, Connectable: true, LastSeen: time.Now()})
}

// AddDevice reports a fully described discovered device.
func (f *FakeWatcher) AddDevice(d device.DiscoveredDevice) {
	f.emit(device.WatchEvent{Kind: device.DeviceAdded, Device: d})
}

// Remove reports a device as gone.
func (f *FakeWatcher) Remove(id string) {
	f.emit(device.WatchEvent{Kind: device.DeviceRemoved, Device: device.DiscoveredDevice{ID: id}})
}

// Complete reports the end of the initial enumeration pass.
func (f *FakeWatcher) Complete() {
	f.emit(device.WatchEvent{Kind: device.EnumerationCompleted})
}

// Running reports whether the fake is between Start and Stop.
func (f *FakeWatcher) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Starts returns the number of successful Start calls.
func (f *FakeWatcher) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// Stops returns the number of effective Stop calls.
func (f *FakeWatcher) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}
