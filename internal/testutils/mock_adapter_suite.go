//go:build test

package testutils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
	goble "github.com/srg/blelink/internal/device/go-ble"
	"github.com/srg/blelink/internal/devicefactory"
	"github.com/srg/blelink/internal/radio"
	"github.com/srg/blelink/internal/testutils/mocks"
	"github.com/srg/blelink/internal/watcher"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// MockAdapterSuite replaces the platform adapter and radio provider with mocks
// for the duration of each test.
//
// Peripherals registered with WithPeripheral are returned by Adapter.Open for
// their id; any other id fails with device.ErrNotConnected, the error a real
// backend reports when the dial finds nobody. Discovery is driven through
// Backend, radio power through SetRadioState.
//
//	type ConnectSuite struct {
//	    testutils.MockAdapterSuite
//	}
//
//	func (s *ConnectSuite) TestSomething() {
//	    s.WithPeripheral(testutils.NewPeripheralBuilder(s.T()).WithID("dev-1"))
//	    s.Backend.Add("dev-1", "Sensor1")
//	    ...
//	}
type MockAdapterSuite struct {
	suite.Suite

	Helper      *TestHelper
	Logger      *logrus.Logger
	TestTimeout time.Duration

	Backend  *FakeWatcher
	Adapter  *mocks.MockAdapter
	Provider *mocks.MockRadioProvider
	Radio    *mocks.MockRadio

	// Watcher and Tracker are per-test instances built on the mocks above.
	// The process-wide ones are never touched by the suite.
	Watcher *watcher.Watcher
	Tracker *radio.Tracker

	originalAdapterFactory func(goble.Options, *logrus.Logger) (device.Adapter, error)
	originalRadioFactory   func(string, *logrus.Logger) (device.RadioProvider, error)

	mu          sync.Mutex
	peripherals map[string]*PeripheralBuilder
	radioState  device.RadioState
	radioFn     func(device.RadioState)
}

func (s *MockAdapterSuite) SetupSuite() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
	s.TestTimeout = 5 * time.Second
}

// SetupTest installs fresh mocks into devicefactory.
func (s *MockAdapterSuite) SetupTest() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger

	s.peripherals = map[string]*PeripheralBuilder{}
	s.radioState = device.RadioOn
	s.radioFn = nil

	s.Backend = NewFakeWatcher()

	s.Adapter = mocks.NewMockAdapter(s.T())
	s.Adapter.On("Watcher").Return(s.Backend).Maybe()
	s.Adapter.On("Open", mock.Anything, mock.Anything).
		Return(func(_ context.Context, id string) (device.Peripheral, error) {
			s.mu.Lock()
			b, ok := s.peripherals[id]
			s.mu.Unlock()
			if !ok {
				return nil, fmt.Errorf("%w: no peripheral %q in range", device.ErrNotConnected, id)
			}
			return b.Build(), nil
		}).Maybe()

	s.Radio = mocks.NewMockRadio(s.T())
	s.Radio.On("Name").Return("hci0").Maybe()
	s.Radio.On("Kind").Return(device.RadioBluetooth).Maybe()
	s.Radio.On("State", mock.Anything).Return(func(context.Context) (device.RadioState, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.radioState, nil
	}).Maybe()
	s.Radio.On("SetState", mock.Anything, mock.Anything).Return(func(_ context.Context, state device.RadioState) error {
		s.SetRadioState(state)
		return nil
	}).Maybe()
	s.Radio.On("OnStateChanged", mock.Anything).Return(func(fn func(device.RadioState)) (device.CancelFunc, error) {
		s.mu.Lock()
		s.radioFn = fn
		s.mu.Unlock()
		return func() error { return nil }, nil
	}).Maybe()

	s.Provider = mocks.NewMockRadioProvider(s.T())
	s.Provider.On("Radios", mock.Anything).Return([]device.Radio{s.Radio}, nil).Maybe()
	s.Provider.On("RequestAccess", mock.Anything).Return(device.AccessAllowed, nil).Maybe()

	s.Watcher = watcher.New(s.Backend, s.Logger)
	s.Tracker = radio.New(s.Provider, s.Logger)

	s.originalAdapterFactory = devicefactory.AdapterFactory
	s.originalRadioFactory = devicefactory.RadioProviderFactory
	devicefactory.AdapterFactory = func(goble.Options, *logrus.Logger) (device.Adapter, error) {
		return s.Adapter, nil
	}
	devicefactory.RadioProviderFactory = func(string, *logrus.Logger) (device.RadioProvider, error) {
		return s.Provider, nil
	}
}

// TearDownTest restores devicefactory.
func (s *MockAdapterSuite) TearDownTest() {
	if s.originalAdapterFactory != nil {
		devicefactory.AdapterFactory = s.originalAdapterFactory
	}
	if s.originalRadioFactory != nil {
		devicefactory.RadioProviderFactory = s.originalRadioFactory
	}
	if s.Watcher != nil {
		_ = s.Watcher.Stop()
	}
}

// WithPeripheral makes b's peripheral available to Adapter.Open under its id.
func (s *MockAdapterSuite) WithPeripheral(b *PeripheralBuilder) *PeripheralBuilder {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peripherals[b.Profile().ID] = b
	return b
}

// SetRadioState changes the mocked radio power and notifies subscribers.
func (s *MockAdapterSuite) SetRadioState(state device.RadioState) {
	s.mu.Lock()
	s.radioState = state
	fn := s.radioFn
	s.mu.Unlock()

	if fn != nil {
		fn(state)
	}
}

// WaitFor waits for cond using the suite timeout.
func (s *MockAdapterSuite) WaitFor(cond func() bool, msgAndArgs ...interface{}) bool {
	return s.Suite.Eventually(cond, s.TestTimeout, 10*time.Millisecond, msgAndArgs...)
}
