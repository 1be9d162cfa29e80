package device

import (
	"context"
	"time"
)

// CancelFunc releases a subscription obtained from the adapter.
// Calling it more than once is allowed and returns nil after the first call.
type CancelFunc func() error

// CacheMode selects whether GATT enumeration may be answered from the adapter cache.
type CacheMode int

const (
	Cached CacheMode = iota
	Uncached
)

func (m CacheMode) String() string {
	if m == Uncached {
		return "uncached"
	}
	return "cached"
}

// CommunicationStatus is the outcome the adapter reports for a GATT round-trip.
type CommunicationStatus int

const (
	StatusSuccess CommunicationStatus = iota
	StatusUnreachable
	StatusProtocolError
	StatusAccessDenied
)

func (s CommunicationStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusUnreachable:
		return "unreachable"
	case StatusProtocolError:
		return "protocol error"
	case StatusAccessDenied:
		return "access denied"
	default:
		return "unknown"
	}
}

// ConnectionStatus is the link state of a peripheral as seen by the adapter.
type ConnectionStatus int

const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnected
)

func (s ConnectionStatus) String() string {
	if s == StatusConnected {
		return "connected"
	}
	return "disconnected"
}

// ----------------------------
// Discovery
// ----------------------------

// DiscoveredDevice is a device reported by the discovery backend.
// ID is the identity key; Name is optional and may be empty.
type DiscoveredDevice struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name,omitempty"`
	Address            string    `json:"address"`
	RSSI               int       `json:"rssi"`
	Connectable        bool      `json:"connectable"`
	Connected          bool      `json:"connected"`
	AdvertisedServices []string  `json:"services,omitempty"`
	LastSeen           time.Time `json:"last_seen"`
}

// WatchEventKind enumerates the notifications a DeviceWatcher delivers.
type WatchEventKind int

const (
	DeviceAdded WatchEventKind = iota
	DeviceRemoved
	EnumerationCompleted
	WatcherStopped
)

func (k WatchEventKind) String() string {
	switch k {
	case DeviceAdded:
		return "added"
	case DeviceRemoved:
		return "removed"
	case EnumerationCompleted:
		return "enumeration-completed"
	case WatcherStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// WatchEvent is a single discovery notification. Device is set for
// DeviceAdded; only Device.ID is meaningful for DeviceRemoved.
type WatchEvent struct {
	Kind   WatchEventKind
	Device DiscoveredDevice
}

// DeviceWatcher is the adapter's continuous discovery primitive.
// Start begins an enumeration pass and delivers events to fn on the adapter's
// own goroutine. EnumerationCompleted is delivered when the initial pass ends;
// WatcherStopped is delivered once after Stop takes effect.
type DeviceWatcher interface {
	Start(ctx context.Context, fn func(WatchEvent)) error
	Stop() error
}

// ----------------------------
// GATT
// ----------------------------

// ServicesResult is the outcome of a service enumeration.
type ServicesResult struct {
	Status   CommunicationStatus
	Services []Service
}

// CharacteristicsResult is the outcome of a characteristic enumeration.
type CharacteristicsResult struct {
	Status          CommunicationStatus
	Characteristics []Characteristic
}

// Adapter is the radio/transport stack: a discovery backend and a way to open
// a peripheral handle by its discovery id.
type Adapter interface {
	Watcher() DeviceWatcher
	Open(ctx context.Context, id string) (Peripheral, error)
}

// Peripheral is a handle to a remote GATT server.
type Peripheral interface {
	ID() string
	Name() string
	ConnectionStatus() ConnectionStatus
	Services(ctx context.Context, mode CacheMode) (ServicesResult, error)
	// CachedServices returns every service handle obtained so far.
	CachedServices() []Service
	OnConnectionStatusChanged(fn func(ConnectionStatus)) (CancelFunc, error)
	// Close disposes the handle and drops the link.
	Close() error
}

// Service is a GATT service handle.
type Service interface {
	UUID() string
	Characteristics(ctx context.Context, mode CacheMode) (CharacteristicsResult, error)
	// SessionActive reports whether the service still holds an open GATT session.
	SessionActive() bool
	Close() error
}

// Characteristic is a GATT characteristic handle.
type Characteristic interface {
	UUID() string
	Properties() Properties
	Service() Service
	// ConfigureNotify writes the client configuration descriptor to enable notifications.
	ConfigureNotify(ctx context.Context) (CommunicationStatus, error)
	// OnValueChanged attaches fn to value notifications.
	OnValueChanged(fn func([]byte)) CancelFunc
	Write(ctx context.Context, data []byte, withResponse bool) (CommunicationStatus, error)
}
