// Package goble implements the device adapter contract on top of go-ble.
package goble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
)

// Device is the part of ble.Device the adapter drives.
type Device interface {
	Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error
	Dial(ctx context.Context, a ble.Addr) (ble.Client, error)
	Stop() error
}

// DeviceFactory creates the platform ble.Device (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = func() (Device, error) {
	return newPlatformDevice()
}

// Options configures the adapter.
type Options struct {
	// ScanWindow is how long one enumeration pass lasts.
	ScanWindow time.Duration `default:"10s"`
	// StaleAfter removes devices not advertised for this long. Zero keeps them for the whole pass.
	StaleAfter time.Duration `default:"30s"`
	AllowList  []string
	BlockList  []string
	// ServiceUUIDs keeps only devices advertising at least one of these services.
	ServiceUUIDs []string
}

// DefaultOptions returns Options with every default applied.
func DefaultOptions() Options {
	opts := Options{}
	defaults.SetDefaults(&opts)
	return opts
}

// Adapter is a device.Adapter backed by a single go-ble host device.
type Adapter struct {
	opts   Options
	logger *logrus.Logger

	mu      sync.Mutex
	dev     Device
	watcher *scanWatcher

	// names remembers advertised names by id, go-ble clients rarely know them.
	names *hashmap.Map[string, string]
}

// NewAdapter creates an adapter. The host device is opened lazily on first use.
func NewAdapter(opts Options, logger *logrus.Logger) *Adapter {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.ScanWindow <= 0 {
		opts.ScanWindow = DefaultOptions().ScanWindow
	}
	return &Adapter{
		opts:   opts,
		logger: logger,
		names:  hashmap.New[string, string](),
	}
}

func (a *Adapter) device() (Device, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dev != nil {
		return a.dev, nil
	}
	dev, err := DeviceFactory()
	if err != nil {
		a.logger.WithError(err).Error("Failed to create BLE device")
		return nil, fmt.Errorf("failed to create BLE device: %w", NormalizeError(err))
	}
	a.dev = dev
	return dev, nil
}

// Watcher returns the adapter's discovery backend. Every call returns the same instance.
func (a *Adapter) Watcher() device.DeviceWatcher {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.watcher == nil {
		a.watcher = newScanWatcher(a)
	}
	return a.watcher
}

// Open dials the peripheral with the given discovery id (its address).
func (a *Adapter) Open(ctx context.Context, id string) (device.Peripheral, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: device id is empty", device.ErrInvalidArgument)
	}
	dev, err := a.device()
	if err != nil {
		return nil, err
	}

	a.logger.WithField("id", id).Debug("Dialing BLE device...")
	client, err := dev.Dial(ctx, ble.NewAddr(id))
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"id":    id,
			"error": err,
		}).Error("Failed to dial BLE device")
		return nil, fmt.Errorf("failed to connect to device %q: %w", id, NormalizeError(err))
	}

	name, _ := a.names.Get(id)
	return newPeripheral(id, name, client, a.logger), nil
}

// Close releases the host device.
func (a *Adapter) Close() error {
	a.mu.Lock()
	dev, w := a.dev, a.watcher
	a.dev = nil
	a.mu.Unlock()

	if w != nil {
		_ = w.Stop()
	}
	if dev == nil {
		return nil
	}
	return NormalizeError(dev.Stop())
}
