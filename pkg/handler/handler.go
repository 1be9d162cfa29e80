// Package handler is the application API: one Handler owns one BLE session and
// shares the process-wide discovery watcher and radio tracker.
package handler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/devicefactory"
	"github.com/srg/blelink/internal/gatt"
	"github.com/srg/blelink/internal/radio"
	"github.com/srg/blelink/internal/session"
	"github.com/srg/blelink/internal/watcher"
	"github.com/srg/blelink/pkg/config"
)

// NamedDevice is a discovered device that advertised a name.
type NamedDevice struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Handler connects to one peripheral at a time.
type Handler struct {
	cfg     *config.Config
	logger  *logrus.Logger
	adapter device.Adapter
	watcher *watcher.Watcher
	tracker *radio.Tracker
	session *session.Manager
}

// Option customises a Handler.
type Option func(*Handler)

// WithConfig sets the configuration. Defaults are used otherwise.
func WithConfig(cfg *config.Config) Option {
	return func(h *Handler) { h.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithAdapter uses adapter instead of devicefactory.AdapterFactory.
func WithAdapter(adapter device.Adapter) Option {
	return func(h *Handler) { h.adapter = adapter }
}

// WithWatcher uses w instead of the process-wide watcher.
func WithWatcher(w *watcher.Watcher) Option {
	return func(h *Handler) { h.watcher = w }
}

// WithTracker uses t instead of the process-wide radio tracker.
func WithTracker(t *radio.Tracker) Option {
	return func(h *Handler) { h.tracker = t }
}

var instance atomic.Pointer[Handler]

// Instance returns the most recently created Handler, nil before the first.
func Instance() *Handler {
	return instance.Load()
}

// New creates a Handler. The first Handler of the process creates the shared
// watcher and radio tracker, and with AutoScan set starts the watcher when it
// has never run.
func New(opts ...Option) (*Handler, error) {
	h := &Handler{}
	for _, opt := range opts {
		opt(h)
	}
	if h.cfg == nil {
		h.cfg = config.DefaultConfig()
	}
	if err := h.cfg.Validate(); err != nil {
		return nil, err
	}
	if h.logger == nil {
		h.logger = h.cfg.NewLogger()
	}

	if h.adapter == nil {
		adapter, err := devicefactory.AdapterFactory(h.cfg.AdapterOptions(), h.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create BLE adapter: %w", err)
		}
		h.adapter = adapter
	}
	if h.watcher == nil {
		h.watcher = watcher.Shared(h.adapter.Watcher(), h.logger)
	}
	if h.tracker == nil {
		provider, err := devicefactory.RadioProviderFactory(h.cfg.RadioAdapter, h.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create radio provider: %w", err)
		}
		h.tracker = radio.Shared(provider, h.logger)
	}

	if h.cfg.AutoScan && h.watcher.Passes() == 0 {
		if err := h.watcher.Start(context.Background()); err != nil {
			h.logger.WithError(err).Warn("Failed to start device watcher")
		}
	}

	h.session = session.New(h.cfg.SessionOptions(), h.logger)
	instance.Store(h)
	return h, nil
}

// Close disconnects and stops the session dispatcher. The shared watcher keeps
// its state.
func (h *Handler) Close() session.TeardownReport {
	report := h.session.Close()
	instance.CompareAndSwap(h, nil)
	return report
}

// ----------------------------
// Discovery
// ----------------------------

// StartScan starts the shared watcher; ctx bounds the scan cycle.
func (h *Handler) StartScan(ctx context.Context) error {
	return h.watcher.Start(ctx)
}

// StopScan stops the shared watcher and keeps the devices found so far.
func (h *Handler) StopScan() error {
	return h.watcher.Stop()
}

// IsScanned reports whether the current scan pass found any device.
func (h *Handler) IsScanned() bool {
	return h.watcher.IsScanned()
}

// ScanEvents streams accepted watcher events.
func (h *Handler) ScanEvents() <-chan device.WatchEvent {
	return h.watcher.Events()
}

// Devices returns the live device set in discovery order.
func (h *Handler) Devices() []device.DiscoveredDevice {
	return h.watcher.Devices()
}

// DeviceNames returns the named devices of the live set.
func (h *Handler) DeviceNames() []NamedDevice {
	var out []NamedDevice
	for _, d := range h.watcher.Devices() {
		if d.Name != "" {
			out = append(out, NamedDevice{Name: d.Name, ID: d.ID})
		}
	}
	return out
}

// UnknownDevice looks a device up by id and name together.
func (h *Handler) UnknownDevice(id, name string) (device.DiscoveredDevice, bool) {
	return h.watcher.FindUnknown(id, name)
}

// IsConnectable reports whether d can be connected, or already is.
func (h *Handler) IsConnectable(d device.DiscoveredDevice) bool {
	return d.Connectable || d.Connected
}

// ----------------------------
// Connection
// ----------------------------

// ConnectFromName connects to the first discovered device named name.
func (h *Handler) ConnectFromName(ctx context.Context, name string) error {
	d, ok := h.watcher.FindByName(name)
	if !ok {
		return &device.NotFoundError{Resource: "device", UUIDs: []string{name}}
	}
	return h.ConnectFromDevice(ctx, d)
}

// ConnectFromAddress connects to the device with the given 48-bit address.
func (h *Handler) ConnectFromAddress(ctx context.Context, addr uint64) error {
	return h.ConnectFromID(ctx, device.FormatAddress(addr))
}

// ConnectFromDevice connects to a discovered device.
func (h *Handler) ConnectFromDevice(ctx context.Context, d device.DiscoveredDevice) error {
	if !h.IsConnectable(d) {
		h.logger.WithField("id", d.ID).Debug("Device does not advertise as connectable, trying anyway")
	}
	return h.ConnectFromID(ctx, d.ID)
}

// ConnectFromID opens the device with the given adapter id and connects to it.
func (h *Handler) ConnectFromID(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: device id is empty", device.ErrInvalidArgument)
	}
	if h.cfg.ReconnectPolicy == session.RequireDisconnect && h.session.State() != session.Disconnected {
		return device.ErrAlreadyConnected
	}

	p, err := h.adapter.Open(ctx, id)
	if err != nil {
		return err
	}
	return h.Connect(ctx, p)
}

// Connect establishes the session with an already opened peripheral.
func (h *Handler) Connect(ctx context.Context, p device.Peripheral) error {
	err := h.session.Connect(ctx, p)
	if errors.Is(err, device.ErrAlreadyConnected) && p != nil {
		if cerr := p.Close(); cerr != nil {
			h.logger.WithError(cerr).Debug("Failed to release rejected device handle")
		}
	}
	return err
}

// Disconnect releases the session.
func (h *Handler) Disconnect() session.TeardownReport {
	return h.session.Disconnect()
}

// State returns the session state.
func (h *Handler) State() session.State {
	return h.session.State()
}

// ConnectedDevice returns the connected peripheral, nil when disconnected.
func (h *Handler) ConnectedDevice() device.Peripheral {
	return h.session.Device()
}

// DefaultWriteCharacteristic returns the session's default write channel.
func (h *Handler) DefaultWriteCharacteristic() device.Characteristic {
	return h.session.DefaultWriteCharacteristic()
}

// Buckets returns the session's characteristic buckets.
func (h *Handler) Buckets() gatt.Buckets {
	return h.session.Buckets()
}

// FindCharacteristic looks a characteristic of the session up by UUID.
func (h *Handler) FindCharacteristic(uuid string) (device.Characteristic, error) {
	return h.session.FindCharacteristic(uuid)
}

// ----------------------------
// Data
// ----------------------------

// Send writes data to the default write channel.
func (h *Handler) Send(ctx context.Context, data []byte) (bool, error) {
	return h.session.Send(ctx, data)
}

// SendString writes str to the default write channel.
func (h *Handler) SendString(ctx context.Context, str string) (bool, error) {
	return h.session.SendString(ctx, str)
}

// SendTo writes data to c.
func (h *Handler) SendTo(ctx context.Context, data []byte, c device.Characteristic) (bool, error) {
	return h.session.SendTo(ctx, data, c)
}

// Read drains buffered notification bytes, see session.Manager.Read.
func (h *Handler) Read(p []byte) (int, error) {
	return h.session.Read(p)
}

// ----------------------------
// Events
// ----------------------------

func (h *Handler) OnConnectionStatusChanged(fn func(connected bool)) (cancel func()) {
	return h.session.OnConnectionStatusChanged(fn)
}

func (h *Handler) OnMessageReceived(fn func(session.Message)) (cancel func()) {
	return h.session.OnMessageReceived(fn)
}

func (h *Handler) OnBluetoothStateChanged(fn func(enabled bool)) (cancel func()) {
	return h.tracker.OnStateChanged(fn)
}

// ----------------------------
// Radio
// ----------------------------

// BluetoothEnabled reports whether the host radio is on.
func (h *Handler) BluetoothEnabled(ctx context.Context) bool {
	return h.tracker.Enabled(ctx)
}

// EnableBluetooth powers the host radio on. Radio power is host-wide.
func (h *Handler) EnableBluetooth(ctx context.Context) error {
	_, err := h.tracker.Enable(ctx)
	return err
}

// DisableBluetooth powers the host radio off. Radio power is host-wide.
func (h *Handler) DisableBluetooth(ctx context.Context) error {
	_, err := h.tracker.Disable(ctx)
	return err
}
