// Package session manages a single GATT session with a BLE peripheral:
// connecting, classifying characteristics, wiring notifications, sending data
// and tearing everything down again.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/hedzr/go-ringbuf/v2/mpmc"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"
	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/gatt"
	"github.com/srg/blelink/internal/groutine"
)

// State is the lifecycle state of a Manager.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	default:
		return "disconnected"
	}
}

// ReconnectPolicy decides what Connect does while a session is already established.
type ReconnectPolicy string

const (
	// DisconnectFirst tears the current session down before connecting again.
	DisconnectFirst ReconnectPolicy = "disconnect-first"
	// RequireDisconnect rejects Connect with device.ErrAlreadyConnected.
	RequireDisconnect ReconnectPolicy = "require-disconnect"
)

// Valid reports whether p is a known policy.
func (p ReconnectPolicy) Valid() bool {
	return p == DisconnectFirst || p == RequireDisconnect
}

var (
	ErrDiscoveryFailed          = errors.New("service discovery failed")
	ErrNoCharacteristics        = errors.New("no characteristics discovered")
	ErrNoWritableCharacteristic = errors.New("no writable characteristic")
	ErrSuperseded               = errors.New("connect attempt cancelled by disconnect")
	ErrNoData                   = errors.New("no data available")
)

// Options configures a Manager.
type Options struct {
	Reconnect ReconnectPolicy `default:"disconnect-first"`
	// TeardownOnDrop releases the session when the adapter reports the link lost.
	TeardownOnDrop bool          `default:"true"`
	ConnectTimeout time.Duration `default:"30s"`
	WriteTimeout   time.Duration `default:"5s"`
	DispatchBuffer uint32        `default:"128"`
	ReceiveBuffer  int           `default:"4096"`
}

// DefaultOptions returns Options with every default applied.
func DefaultOptions() Options {
	opts := Options{}
	defaults.SetDefaults(&opts)
	return opts
}

// Message is a notification received from a subscribed characteristic.
type Message struct {
	UUID           string
	Characteristic device.Characteristic
	Data           []byte
	Received       time.Time
}

// subscription is a live value-changed handler registered with the adapter.
type subscription struct {
	char   device.Characteristic
	cancel device.CancelFunc
}

// session is the state owned by one connect attempt. It becomes the Manager's
// current session only when the attempt succeeds.
type session struct {
	peripheral   device.Peripheral
	buckets      gatt.Buckets
	defaultWrite device.Characteristic
	statusCancel device.CancelFunc
	subKeys      []string
	skipped      int
}

// Manager owns at most one session at a time.
type Manager struct {
	opts   Options
	logger *logrus.Logger

	mu            sync.Mutex
	state         State
	attempt       uint64
	cancelConnect context.CancelFunc
	current       *session

	subs    *hashmap.Map[string, *subscription]
	subSeq  atomic.Uint64
	lmu     sync.Mutex
	nextID  int
	status  map[int]func(connected bool)
	message map[int]func(Message)

	queue    mpmc.RichOverlappedRingBuffer[Message]
	wake     chan struct{}
	dropped  atomic.Uint64
	received *ringbuffer.RingBuffer

	stop      context.CancelFunc
	done      <-chan struct{}
	closeOnce sync.Once
}

// New creates a disconnected Manager and starts its message dispatcher.
// Close stops the dispatcher.
func New(opts Options, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	if !opts.Reconnect.Valid() {
		opts.Reconnect = DisconnectFirst
	}
	if opts.DispatchBuffer == 0 {
		opts.DispatchBuffer = DefaultOptions().DispatchBuffer
	}
	if opts.ReceiveBuffer <= 0 {
		opts.ReceiveBuffer = DefaultOptions().ReceiveBuffer
	}

	m := &Manager{
		opts:     opts,
		logger:   logger,
		subs:     hashmap.New[string, *subscription](),
		status:   make(map[int]func(bool)),
		message:  make(map[int]func(Message)),
		queue:    mpmc.NewOverlappedRingBuffer[Message](opts.DispatchBuffer),
		wake:     make(chan struct{}, 1),
		received: ringbuffer.New(opts.ReceiveBuffer),
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.stop = cancel
	m.done = groutine.Go(ctx, "session-dispatch", m.dispatch)
	return m
}

// Close disconnects and stops the dispatcher. Queued messages are delivered first.
func (m *Manager) Close() TeardownReport {
	report := m.Disconnect()
	m.closeOnce.Do(func() {
		m.stop()
		<-m.done
	})
	return report
}

// ----------------------------
// Listeners
// ----------------------------

// OnConnectionStatusChanged registers fn for connection status events. The
// returned function removes the registration.
func (m *Manager) OnConnectionStatusChanged(fn func(connected bool)) (cancel func()) {
	m.lmu.Lock()
	defer m.lmu.Unlock()

	id := m.nextID
	m.nextID++
	m.status[id] = fn
	return func() {
		m.lmu.Lock()
		delete(m.status, id)
		m.lmu.Unlock()
	}
}

// OnMessageReceived registers fn for notifications. Notifications are only
// enabled for sessions established while at least one handler is registered.
func (m *Manager) OnMessageReceived(fn func(Message)) (cancel func()) {
	m.lmu.Lock()
	defer m.lmu.Unlock()

	id := m.nextID
	m.nextID++
	m.message[id] = fn
	return func() {
		m.lmu.Lock()
		delete(m.message, id)
		m.lmu.Unlock()
	}
}

func (m *Manager) hasMessageListeners() bool {
	m.lmu.Lock()
	defer m.lmu.Unlock()
	return len(m.message) > 0
}

func (m *Manager) emitStatus(connected bool) {
	m.lmu.Lock()
	fns := make([]func(bool), 0, len(m.status))
	for _, fn := range m.status {
		fns = append(fns, fn)
	}
	m.lmu.Unlock()

	for _, fn := range fns {
		fn(connected)
	}
}

// ----------------------------
// Accessors
// ----------------------------

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Device returns the connected peripheral, nil when disconnected.
func (m *Manager) Device() device.Peripheral {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.peripheral
}

// DefaultWriteCharacteristic returns the session's default write channel.
func (m *Manager) DefaultWriteCharacteristic() device.Characteristic {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.defaultWrite
}

// Buckets returns a copy of the session's characteristic buckets. Notifiable
// holds only the characteristics with a live subscription.
func (m *Manager) Buckets() gatt.Buckets {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return gatt.Buckets{}
	}
	return m.current.buckets.Clone()
}

// FindCharacteristic looks a characteristic of the session up by UUID.
func (m *Manager) FindCharacteristic(uuid string) (device.Characteristic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil, device.ErrNotConnected
	}
	if c := m.current.buckets.Find(uuid); c != nil {
		return c, nil
	}
	return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{uuid}}
}

// Subscriptions returns the number of live value-changed subscriptions.
func (m *Manager) Subscriptions() int {
	return m.subs.Len()
}

func (m *Manager) register(c device.Characteristic, cancel device.CancelFunc) string {
	svc := ""
	if s := c.Service(); s != nil {
		svc = device.NormalizeUUID(s.UUID())
	}
	key := fmt.Sprintf("%s/%s#%d", svc, device.NormalizeUUID(c.UUID()), m.subSeq.Add(1))
	m.subs.Set(key, &subscription{char: c, cancel: cancel})
	return key
}
