package goble

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/groutine"
)

// Client is the part of ble.Client the peripheral uses.
type Client interface {
	Name() string
	Profile() *ble.Profile
	DiscoverProfile(force bool) (*ble.Profile, error)
	Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error
	Unsubscribe(c *ble.Characteristic, ind bool) error
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	CancelConnection() error
}

// peripheral is a device.Peripheral over a dialed go-ble client.
type peripheral struct {
	id     string
	name   string
	client Client
	logger *logrus.Logger

	mu       sync.Mutex
	status   device.ConnectionStatus
	closed   bool
	services []*service
	handlers map[int]func(device.ConnectionStatus)
	nextID   int

	monitor sync.Once
	stop    chan struct{}
}

func newPeripheral(id, name string, client Client, logger *logrus.Logger) *peripheral {
	if client.Name() != "" {
		name = client.Name()
	}
	return &peripheral{
		id:       id,
		name:     name,
		client:   client,
		logger:   logger,
		status:   device.StatusConnected,
		handlers: make(map[int]func(device.ConnectionStatus)),
		stop:     make(chan struct{}),
	}
}

func (p *peripheral) ID() string   { return p.id }
func (p *peripheral) Name() string { return p.name }

func (p *peripheral) ConnectionStatus() device.ConnectionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Services returns the GATT services. Uncached always runs a full profile
// discovery, characteristics and descriptors included.
func (p *peripheral) Services(ctx context.Context, mode device.CacheMode) (device.ServicesResult, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return device.ServicesResult{Status: device.StatusUnreachable}, device.ErrNotConnected
	}

	profile := p.client.Profile()
	if mode == device.Uncached || profile == nil {
		var err error
		profile, err = callContext(ctx, "ble-discover-profile", func() (*ble.Profile, error) {
			return p.client.DiscoverProfile(true)
		})
		if err != nil {
			p.logger.WithFields(logrus.Fields{
				"id":    p.id,
				"error": err,
			}).Error("Failed to discover profile")
			status, err := communicationStatus(err)
			if err != nil {
				return device.ServicesResult{Status: status}, fmt.Errorf("failed to discover profile: %w", err)
			}
			return device.ServicesResult{Status: status}, nil
		}
	}

	out := make([]device.Service, 0, len(profile.Services))
	p.mu.Lock()
	for _, s := range profile.Services {
		svc := &service{p: p, svc: s}
		p.services = append(p.services, svc)
		out = append(out, svc)
	}
	p.mu.Unlock()

	p.logger.WithFields(logrus.Fields{
		"id":       p.id,
		"services": len(out),
		"mode":     mode.String(),
	}).Debug("Profile discovered")
	return device.ServicesResult{Status: device.StatusSuccess, Services: out}, nil
}

func (p *peripheral) CachedServices() []device.Service {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]device.Service, 0, len(p.services))
	for _, s := range p.services {
		out = append(out, s)
	}
	return out
}

// OnConnectionStatusChanged registers fn for link changes. go-ble only reports
// the drop, through the client's Disconnected channel.
func (p *peripheral) OnConnectionStatusChanged(fn func(device.ConnectionStatus)) (device.CancelFunc, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: status handler is nil", device.ErrInvalidArgument)
	}

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = fn
	p.mu.Unlock()

	p.monitor.Do(p.startMonitor)

	var once sync.Once
	return func() error {
		once.Do(func() {
			p.mu.Lock()
			delete(p.handlers, id)
			p.mu.Unlock()
		})
		return nil
	}, nil
}

func (p *peripheral) startMonitor() {
	dc, ok := p.client.(interface{ Disconnected() <-chan struct{} })
	if !ok {
		p.logger.Debug("Client does not support Disconnected() channel, link drops will not be reported")
		return
	}

	groutine.Go(context.Background(), "ble-connection-monitor", func(context.Context) {
		select {
		case <-dc.Disconnected():
		case <-p.stop:
			return
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		p.status = device.StatusDisconnected
		handlers := make([]func(device.ConnectionStatus), 0, len(p.handlers))
		for _, h := range p.handlers {
			handlers = append(handlers, h)
		}
		p.mu.Unlock()

		p.logger.WithField("id", p.id).Warn("BLE link reported disconnection")
		for _, h := range handlers {
			h(device.StatusDisconnected)
		}
	})
}

// Close drops the link. Calling it again is a no-op.
func (p *peripheral) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.status = device.StatusDisconnected
	close(p.stop)
	p.mu.Unlock()

	if err := p.client.CancelConnection(); err != nil {
		p.logger.WithError(err).Warn("BLE device disconnected with errors")
		return NormalizeError(err)
	}
	p.logger.WithField("id", p.id).Debug("BLE device disconnected")
	return nil
}
