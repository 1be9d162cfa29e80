//go:build test

package testutils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/testutils/mocks"
	"github.com/stretchr/testify/mock"
)

// CharacteristicConfig represents a GATT characteristic configuration for mocking
type CharacteristicConfig struct {
	UUID         string `json:"uuid"`
	Properties   string `json:"properties,omitempty"`    // e.g., "read,write,notify"
	NotifyStatus string `json:"notify_status,omitempty"` // CCCD write outcome, default "success"
	NotifyError  string `json:"notify_error,omitempty"`  // CCCD write fails with this error
	WriteStatus  string `json:"write_status,omitempty"`  // write outcome, default "success"
	WriteError   string `json:"write_error,omitempty"`
	CancelError  string `json:"cancel_error,omitempty"` // value-changed cancel fails with this error
}

// ServiceConfig represents a GATT service configuration for mocking
type ServiceConfig struct {
	UUID            string                 `json:"uuid"`
	Status          string                 `json:"status,omitempty"` // characteristic enumeration outcome
	Error           string                 `json:"error,omitempty"`  // characteristic enumeration fails with this error
	CloseError      string                 `json:"close_error,omitempty"`
	Inactive        bool                   `json:"inactive,omitempty"` // session already closed by the adapter
	Characteristics []CharacteristicConfig `json:"characteristics,omitempty"`
}

// PeripheralConfig represents the complete peripheral profile for mocking
type PeripheralConfig struct {
	ID          string          `json:"id"`
	Name        string          `json:"name,omitempty"`
	Status      string          `json:"status,omitempty"` // service enumeration outcome
	Error       string          `json:"error,omitempty"`  // service enumeration fails with this error
	CloseError  string          `json:"close_error,omitempty"`
	StatusError string          `json:"status_error,omitempty"` // status subscription fails with this error
	Services    []ServiceConfig `json:"services"`
}

// PeripheralBuilder builds a mocked device.Peripheral from a profile and records
// the interactions the code under test has with it.
type PeripheralBuilder struct {
	t       mock.TestingT
	profile PeripheralConfig

	mu             sync.Mutex
	peripheral     *mocks.MockPeripheral
	services       map[string]*mocks.MockService
	chars          map[string]*mocks.MockCharacteristic
	valueHandlers  map[string]map[int]func([]byte)
	statusHandlers map[int]func(device.ConnectionStatus)
	nextHandlerID  int
	writes         map[string][][]byte
	serviceCloses  map[string]int
	deviceCloses   int
}

// NewPeripheralBuilder creates a new peripheral builder
func NewPeripheralBuilder(t mock.TestingT) *PeripheralBuilder {
	return &PeripheralBuilder{
		t:       t,
		profile: PeripheralConfig{ID: "mock-device", Services: []ServiceConfig{}},
	}
}

// WithID sets the peripheral id
func (b *PeripheralBuilder) WithID(id string) *PeripheralBuilder {
	b.profile.ID = id
	return b
}

// WithName sets the peripheral name
func (b *PeripheralBuilder) WithName(name string) *PeripheralBuilder {
	b.profile.Name = name
	return b
}

// WithService adds a service to the peripheral profile
func (b *PeripheralBuilder) WithService(uuid string) *PeripheralBuilder {
	b.profile.Services = append(b.profile.Services, ServiceConfig{UUID: uuid})
	return b
}

// WithCharacteristic adds a characteristic to the last added service
func (b *PeripheralBuilder) WithCharacteristic(uuid, properties string) *PeripheralBuilder {
	if len(b.profile.Services) == 0 {
		panic("WithCharacteristic: no service added yet, call WithService first")
	}

	last := len(b.profile.Services) - 1
	b.profile.Services[last].Characteristics = append(b.profile.Services[last].Characteristics,
		CharacteristicConfig{UUID: uuid, Properties: properties})
	return b
}

// FromJSON fills the peripheral profile from JSON
func (b *PeripheralBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *PeripheralBuilder {
	jsonStr := fmt.Sprintf(jsonStrFmt, args...)

	var config PeripheralConfig
	if err := json.Unmarshal([]byte(jsonStr), &config); err != nil {
		panic(fmt.Sprintf("PeripheralBuilder.FromJSON: failed to unmarshal: %v", err))
	}
	if config.ID == "" {
		config.ID = "mock-device"
	}

	b.profile = config
	return b
}

// Profile returns the configured profile
func (b *PeripheralBuilder) Profile() PeripheralConfig {
	return b.profile
}

// Build creates the mocked peripheral. Repeated calls return the same instance.
func (b *PeripheralBuilder) Build() *mocks.MockPeripheral {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.peripheral != nil {
		return b.peripheral
	}

	b.services = map[string]*mocks.MockService{}
	b.chars = map[string]*mocks.MockCharacteristic{}
	b.valueHandlers = map[string]map[int]func([]byte){}
	b.statusHandlers = map[int]func(device.ConnectionStatus){}
	b.writes = map[string][][]byte{}
	b.serviceCloses = map[string]int{}

	p := mocks.NewMockPeripheral(b.t)
	var services []device.Service
	for _, sc := range b.profile.Services {
		services = append(services, b.buildService(sc))
	}

	p.On("ID").Return(b.profile.ID).Maybe()
	p.On("Name").Return(b.profile.Name).Maybe()
	p.On("ConnectionStatus").Return(device.StatusConnected).Maybe()
	p.On("Services", mock.Anything, mock.Anything).
		Return(device.ServicesResult{Status: parseStatus(b.profile.Status), Services: services}, asError(b.profile.Error)).
		Maybe()
	p.On("CachedServices").Return(services).Maybe()
	p.On("OnConnectionStatusChanged", mock.Anything).
		Return(func(fn func(device.ConnectionStatus)) (device.CancelFunc, error) {
			if b.profile.StatusError != "" {
				return nil, errors.New(b.profile.StatusError)
			}
			b.mu.Lock()
			id := b.nextHandlerID
			b.nextHandlerID++
			b.statusHandlers[id] = fn
			b.mu.Unlock()
			return func() error {
				b.mu.Lock()
				delete(b.statusHandlers, id)
				b.mu.Unlock()
				return nil
			}, nil
		}).Maybe()
	p.On("Close").Return(func() error {
		b.mu.Lock()
		b.deviceCloses++
		b.mu.Unlock()
		return asError(b.profile.CloseError)
	}).Maybe()

	b.peripheral = p
	return p
}

func (b *PeripheralBuilder) buildService(sc ServiceConfig) *mocks.MockService {
	key := device.NormalizeUUID(sc.UUID)
	svc := mocks.NewMockService(b.t)

	var chars []device.Characteristic
	for _, cc := range sc.Characteristics {
		chars = append(chars, b.buildCharacteristic(cc, svc))
	}

	svc.On("UUID").Return(sc.UUID).Maybe()
	svc.On("Characteristics", mock.Anything, mock.Anything).
		Return(device.CharacteristicsResult{Status: parseStatus(sc.Status), Characteristics: chars}, asError(sc.Error)).
		Maybe()
	svc.On("SessionActive").Return(func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return !sc.Inactive && b.serviceCloses[key] == 0
	}).Maybe()
	svc.On("Close").Return(func() error {
		b.mu.Lock()
		b.serviceCloses[key]++
		b.mu.Unlock()
		return asError(sc.CloseError)
	}).Maybe()

	b.services[key] = svc
	return svc
}

func (b *PeripheralBuilder) buildCharacteristic(cc CharacteristicConfig, svc *mocks.MockService) *mocks.MockCharacteristic {
	key := device.NormalizeUUID(cc.UUID)
	c := mocks.NewMockCharacteristic(b.t)

	c.On("UUID").Return(cc.UUID).Maybe()
	c.On("Properties").Return(device.ParseProperties(cc.Properties)).Maybe()
	c.On("Service").Return(svc).Maybe()
	c.On("ConfigureNotify", mock.Anything).
		Return(parseStatus(cc.NotifyStatus), asError(cc.NotifyError)).Maybe()
	c.On("OnValueChanged", mock.Anything).Return(func(fn func([]byte)) device.CancelFunc {
		b.mu.Lock()
		id := b.nextHandlerID
		b.nextHandlerID++
		if b.valueHandlers[key] == nil {
			b.valueHandlers[key] = map[int]func([]byte){}
		}
		b.valueHandlers[key][id] = fn
		b.mu.Unlock()
		return func() error {
			b.mu.Lock()
			delete(b.valueHandlers[key], id)
			b.mu.Unlock()
			return asError(cc.CancelError)
		}
	}).Maybe()
	c.On("Write", mock.Anything, mock.Anything, mock.Anything).
		Return(func(_ context.Context, data []byte, _ bool) (device.CommunicationStatus, error) {
			b.mu.Lock()
			b.writes[key] = append(b.writes[key], append([]byte(nil), data...))
			b.mu.Unlock()
			return parseStatus(cc.WriteStatus), asError(cc.WriteError)
		}).Maybe()

	b.chars[key] = c
	return c
}

// ----------------------------
// Simulation and inspection
// ----------------------------

// Notify delivers data to every value-changed handler attached to the characteristic.
func (b *PeripheralBuilder) Notify(uuid string, data []byte) {
	b.mu.Lock()
	var handlers []func([]byte)
	for _, fn := range b.valueHandlers[device.NormalizeUUID(uuid)] {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(data)
	}
}

// SetConnectionStatus delivers a connection status change to every status subscriber.
func (b *PeripheralBuilder) SetConnectionStatus(status device.ConnectionStatus) {
	b.mu.Lock()
	var handlers []func(device.ConnectionStatus)
	for _, fn := range b.statusHandlers {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(status)
	}
}

// Characteristic returns the built mock for uuid, nil when unknown.
func (b *PeripheralBuilder) Characteristic(uuid string) *mocks.MockCharacteristic {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chars[device.NormalizeUUID(uuid)]
}

// Service returns the built mock for uuid, nil when unknown.
func (b *PeripheralBuilder) Service(uuid string) *mocks.MockService {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.services[device.NormalizeUUID(uuid)]
}

// Writes returns the payloads written to the characteristic in order.
func (b *PeripheralBuilder) Writes(uuid string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.writes[device.NormalizeUUID(uuid)]...)
}

// ValueSubscribers returns the number of live value-changed handlers on the characteristic.
func (b *PeripheralBuilder) ValueSubscribers(uuid string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.valueHandlers[device.NormalizeUUID(uuid)])
}

// StatusSubscribers returns the number of live connection status handlers.
func (b *PeripheralBuilder) StatusSubscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.statusHandlers)
}

// ServiceCloses returns how many times the service was disposed.
func (b *PeripheralBuilder) ServiceCloses(uuid string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.serviceCloses[device.NormalizeUUID(uuid)]
}

// DeviceCloses returns how many times the peripheral was disposed.
func (b *PeripheralBuilder) DeviceCloses() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deviceCloses
}

func parseStatus(s string) device.CommunicationStatus {
	switch s {
	case "", "success":
		return device.StatusSuccess
	case "unreachable":
		return device.StatusUnreachable
	case "protocol_error":
		return device.StatusProtocolError
	case "access_denied":
		return device.StatusAccessDenied
	default:
		panic(fmt.Sprintf("unknown communication status %q", s))
	}
}

func asError(s string) error {
	if s == "" {
		return nil
	}
	return errors.New(s)
}
