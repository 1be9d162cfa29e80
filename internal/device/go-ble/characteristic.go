package goble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/srg/blelink/internal/device"
)

var propertyBits = []struct {
	ble ble.Property
	dev device.Properties
}{
	{ble.CharBroadcast, device.PropBroadcast},
	{ble.CharRead, device.PropRead},
	{ble.CharWriteNR, device.PropWriteWithoutResponse},
	{ble.CharWrite, device.PropWrite},
	{ble.CharNotify, device.PropNotify},
	{ble.CharIndicate, device.PropIndicate},
	{ble.CharSignedWrite, device.PropAuthenticatedSignedWrites},
	{ble.CharExtended, device.PropExtendedProperties},
}

// NewProperties converts go-ble property flags.
func NewProperties(p ble.Property) device.Properties {
	var out device.Properties
	for _, b := range propertyBits {
		if p&b.ble != 0 {
			out |= b.dev
		}
	}
	return out
}

type characteristic struct {
	svc *service
	c   *ble.Characteristic

	mu         sync.Mutex
	subscribed bool
	handlers   map[int]func([]byte)
	nextID     int
}

func newCharacteristic(s *service, c *ble.Characteristic) *characteristic {
	return &characteristic{svc: s, c: c, handlers: make(map[int]func([]byte))}
}

func (c *characteristic) UUID() string {
	return device.NormalizeUUID(c.c.UUID.String())
}

func (c *characteristic) Properties() device.Properties {
	return NewProperties(c.c.Property)
}

func (c *characteristic) Service() device.Service {
	return c.svc
}

// indicate reports whether notifications must use indications.
func (c *characteristic) indicate() bool {
	return c.c.Property&ble.CharNotify == 0 && c.c.Property&ble.CharIndicate != 0
}

// ConfigureNotify writes the CCCD and routes incoming values to the handlers
// attached with OnValueChanged.
func (c *characteristic) ConfigureNotify(ctx context.Context) (device.CommunicationStatus, error) {
	c.mu.Lock()
	if c.subscribed {
		c.mu.Unlock()
		return device.StatusSuccess, nil
	}
	c.mu.Unlock()

	_, err := callContext(ctx, "ble-subscribe", func() (struct{}, error) {
		return struct{}{}, c.svc.p.client.Subscribe(c.c, c.indicate(), c.dispatch)
	})
	status, err := communicationStatus(err)
	if err != nil || status != device.StatusSuccess {
		return status, err
	}

	c.mu.Lock()
	c.subscribed = true
	c.mu.Unlock()
	return device.StatusSuccess, nil
}

func (c *characteristic) dispatch(data []byte) {
	c.mu.Lock()
	handlers := make([]func([]byte), 0, len(c.handlers))
	for _, h := range c.handlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(data)
	}
}

// OnValueChanged attaches fn. Cancelling the last handler disables
// notifications on the peripheral.
func (c *characteristic) OnValueChanged(fn func([]byte)) device.CancelFunc {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	var err error
	return func() error {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers, id)
			last := len(c.handlers) == 0
			c.mu.Unlock()
			if last {
				err = c.unsubscribe()
			}
		})
		return err
	}
}

func (c *characteristic) unsubscribe() error {
	c.mu.Lock()
	if !c.subscribed {
		c.mu.Unlock()
		return nil
	}
	c.subscribed = false
	c.mu.Unlock()

	if err := c.svc.p.client.Unsubscribe(c.c, c.indicate()); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", c.UUID(), NormalizeError(err))
	}
	return nil
}

// release drops every handler and the remote subscription.
func (c *characteristic) release() error {
	c.mu.Lock()
	c.handlers = make(map[int]func([]byte))
	c.mu.Unlock()
	return c.unsubscribe()
}

func (c *characteristic) Write(ctx context.Context, data []byte, withResponse bool) (device.CommunicationStatus, error) {
	_, err := callContext(ctx, "ble-write", func() (struct{}, error) {
		return struct{}{}, c.svc.p.client.WriteCharacteristic(c.c, data, !withResponse)
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return device.StatusUnreachable, fmt.Errorf("%w: write to %s: %v", device.ErrTimeout, c.UUID(), err)
	}
	return communicationStatus(err)
}
