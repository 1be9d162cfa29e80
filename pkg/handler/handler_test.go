//go:build test

//go:generate go run github.com/srgg/testify/depend/cmd/dependgen

package handler_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
	goble "github.com/srg/blelink/internal/device/go-ble"
	"github.com/srg/blelink/internal/devicefactory"
	"github.com/srg/blelink/internal/session"
	"github.com/srg/blelink/internal/testutils"
	"github.com/srg/blelink/internal/watcher"
	"github.com/srg/blelink/pkg/config"
	"github.com/srg/blelink/pkg/handler"
	"github.com/srgg/testify/depend"
	"github.com/stretchr/testify/mock"
)

const sensorProfile = `{
	"id": "%s",
	"name": "Sensor1",
	"services": [
		{
			"uuid": "ffe0",
			"characteristics": [
				{ "uuid": "ffe1", "properties": "read,write-without-response,notify" },
				{ "uuid": "ffe2", "properties": "write" }
			]
		}
	]
}`

type HandlerSuite struct {
	testutils.MockAdapterSuite
	handler *handler.Handler
}

func (s *HandlerSuite) SetupTest() {
	s.MockAdapterSuite.SetupTest()
	s.handler = s.newHandler(config.DefaultConfig())
}

func (s *HandlerSuite) TearDownTest() {
	if s.handler != nil {
		s.handler.Close()
	}
	s.MockAdapterSuite.TearDownTest()
}

func (s *HandlerSuite) newHandler(cfg *config.Config) *handler.Handler {
	h, err := handler.New(
		handler.WithConfig(cfg),
		handler.WithLogger(s.Logger),
		handler.WithWatcher(s.Watcher),
		handler.WithTracker(s.Tracker),
	)
	s.Require().NoError(err, "handler MUST be created from a valid config")
	return h
}

func (s *HandlerSuite) sensor(id string) *testutils.PeripheralBuilder {
	return s.WithPeripheral(testutils.CreateMockPeripheralFromJSON(s.T(), sensorProfile, id))
}

func (s *HandlerSuite) ctx() context.Context {
	return s.Helper.Context(s.TestTimeout)
}

func (s *HandlerSuite) TestScanConnectSend() {
	// GOAL: Verify the complete path from discovery to a write on the default channel
	//
	// TEST SCENARIO: start scan → Sensor1 discovered → connect by name → default channel ffe1 → SendString("hello") → bytes written → enumeration completes → live set cleared, session kept

	b := s.sensor("dev-1")

	s.Require().NoError(s.handler.StartScan(s.ctx()))
	s.Backend.Add("dev-1", "Sensor1")
	s.Backend.Add("dev-2", "")

	s.True(s.handler.IsScanned(), "a discovered device MUST mark the pass as scanned")
	s.Len(s.handler.Devices(), 2, "every discovered device MUST be listed")
	s.Equal([]handler.NamedDevice{{Name: "Sensor1", ID: "dev-1"}}, s.handler.DeviceNames(),
		"only named devices MUST be listed by name")

	s.Require().NoError(s.handler.ConnectFromName(s.ctx(), "Sensor1"))
	s.Equal(session.Connected, s.handler.State())
	s.Equal("dev-1", s.handler.ConnectedDevice().ID())

	def := s.handler.DefaultWriteCharacteristic()
	s.Require().NotNil(def, "default write characteristic MUST be selected")
	s.True(device.EqualUUID(def.UUID(), "ffe1"), "read-write characteristic MUST be the default channel")

	ok, err := s.handler.SendString(s.ctx(), "hello")
	s.Require().NoError(err)
	s.True(ok, "write MUST be reported as successful")
	s.Equal([][]byte{[]byte("hello")}, b.Writes("ffe1"), "payload MUST reach the default channel")

	s.Backend.Complete()
	s.Empty(s.handler.Devices(), "a completed pass MUST clear the live set")
	s.False(s.handler.IsScanned(), "the restarted pass MUST start unscanned")
	s.Equal(2, s.Backend.Starts(), "the watcher MUST restart after a completed pass")
	s.Equal(session.Connected, s.handler.State(), "rescanning MUST NOT affect the session")

	report := s.handler.Disconnect()
	s.True(report.OK(), "clean teardown MUST report no failures: %s", report)
	s.Equal(session.Disconnected, s.handler.State())
}

// @dependsOn TestScanConnectSend
func (s *HandlerSuite) TestConnectFromNameUnknown() {
	// GOAL: Verify connecting to an undiscovered name fails without touching the adapter
	//
	// TEST SCENARIO: empty live set → ConnectFromName → NotFoundError → adapter never opened

	err := s.handler.ConnectFromName(s.ctx(), "Ghost")

	var nf *device.NotFoundError
	s.Require().ErrorAs(err, &nf, "unknown name MUST produce NotFoundError")
	s.Equal("device", nf.Resource)
	s.Adapter.AssertNotCalled(s.T(), "Open", mock.Anything, mock.Anything)
}

// @dependsOn TestScanConnectSend
func (s *HandlerSuite) TestConnectFromIDFailure() {
	// GOAL: Verify adapter open failures surface unchanged and leave the session idle
	//
	// TEST SCENARIO: unknown id → ConnectFromID → ErrNotConnected → state disconnected; empty id → ErrInvalidArgument

	err := s.handler.ConnectFromID(s.ctx(), "nowhere")
	s.ErrorIs(err, device.ErrNotConnected, "dial failure MUST be reported")
	s.Equal(session.Disconnected, s.handler.State())

	s.ErrorIs(s.handler.ConnectFromID(s.ctx(), ""), device.ErrInvalidArgument)
}

// @dependsOn TestScanConnectSend
func (s *HandlerSuite) TestConnectFromAddress() {
	// GOAL: Verify numeric addresses resolve to the adapter id format
	//
	// TEST SCENARIO: peripheral registered under aa:bb:cc:dd:ee:ff → ConnectFromAddress(0xaabbccddeeff) → connected

	s.sensor("aa:bb:cc:dd:ee:ff")

	s.Require().NoError(s.handler.ConnectFromAddress(s.ctx(), 0xaabbccddeeff))
	s.Equal("aa:bb:cc:dd:ee:ff", s.handler.ConnectedDevice().ID())
}

// @dependsOn TestScanConnectSend
func (s *HandlerSuite) TestRequireDisconnectPolicy() {
	// GOAL: Verify the require-disconnect policy rejects a second connect before dialing
	//
	// TEST SCENARIO: require-disconnect config → connect dev-1 → ConnectFromID dev-2 → ErrAlreadyConnected → dev-2 never opened → dev-1 still connected

	s.handler.Close()
	cfg := config.DefaultConfig()
	cfg.ReconnectPolicy = session.RequireDisconnect
	s.handler = s.newHandler(cfg)

	s.sensor("dev-1")
	s.sensor("dev-2")

	s.Require().NoError(s.handler.ConnectFromID(s.ctx(), "dev-1"))

	err := s.handler.ConnectFromID(s.ctx(), "dev-2")
	s.ErrorIs(err, device.ErrAlreadyConnected, "second connect MUST be rejected")
	s.Adapter.AssertNotCalled(s.T(), "Open", mock.Anything, "dev-2")
	s.Equal("dev-1", s.handler.ConnectedDevice().ID(), "first session MUST survive")
}

// @dependsOn TestScanConnectSend
func (s *HandlerSuite) TestReconnectReplacesSession() {
	// GOAL: Verify the default policy swaps devices
	//
	// TEST SCENARIO: connect dev-1 → connect dev-2 → dev-1 closed → dev-2 connected

	first := s.sensor("dev-1")
	s.sensor("dev-2")

	s.Require().NoError(s.handler.ConnectFromID(s.ctx(), "dev-1"))
	s.Require().NoError(s.handler.ConnectFromID(s.ctx(), "dev-2"))

	s.Equal(1, first.DeviceCloses(), "previous device MUST be released")
	s.Equal("dev-2", s.handler.ConnectedDevice().ID())
}

// @dependsOn TestScanConnectSend
func (s *HandlerSuite) TestNotifications() {
	// GOAL: Verify notifications reach both handlers and the byte buffer
	//
	// TEST SCENARIO: register message handler → connect → peripheral notifies ffe1 → handler called → Read returns the bytes

	var mu sync.Mutex
	var got []session.Message
	s.handler.OnMessageReceived(func(m session.Message) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	})

	b := s.sensor("dev-1")
	s.Require().NoError(s.handler.ConnectFromID(s.ctx(), "dev-1"))

	b.Notify("ffe1", []byte("pong"))

	s.WaitFor(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, "message handler MUST be called")

	buf := make([]byte, 16)
	n, err := s.handler.Read(buf)
	s.Require().NoError(err)
	s.Equal("pong", string(buf[:n]), "Read MUST return the notified bytes")

	_, err = s.handler.Read(buf)
	s.ErrorIs(err, session.ErrNoData, "drained buffer MUST report no data")
}

// @dependsOn TestScanConnectSend
func (s *HandlerSuite) TestConnectionStatusEvents() {
	// GOAL: Verify status listeners see adapter link events and the disconnect
	//
	// TEST SCENARIO: register status handler → connect → adapter reports connected → [true] → disconnect → [true, false]

	var mu sync.Mutex
	var events []bool
	s.handler.OnConnectionStatusChanged(func(connected bool) {
		mu.Lock()
		events = append(events, connected)
		mu.Unlock()
	})

	b := s.sensor("dev-1")
	s.Require().NoError(s.handler.ConnectFromID(s.ctx(), "dev-1"))

	b.SetConnectionStatus(device.StatusConnected)
	s.WaitFor(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1
	}, "adapter link events MUST be forwarded")
	s.Equal(session.Connected, s.handler.State(), "a connected event MUST NOT tear the session down")

	s.handler.Disconnect()
	s.WaitFor(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	}, "disconnect MUST be announced")

	mu.Lock()
	defer mu.Unlock()
	s.Equal([]bool{true, false}, events)
}

func (s *HandlerSuite) TestBluetoothPower() {
	// GOAL: Verify radio control goes through the tracker and reports state changes
	//
	// TEST SCENARIO: radio on → BluetoothEnabled true → DisableBluetooth → event false → BluetoothEnabled false → EnableBluetooth → event true

	s.True(s.handler.BluetoothEnabled(s.ctx()), "powered radio MUST be reported enabled")

	var mu sync.Mutex
	var events []bool
	s.handler.OnBluetoothStateChanged(func(enabled bool) {
		mu.Lock()
		events = append(events, enabled)
		mu.Unlock()
	})

	s.Require().NoError(s.handler.DisableBluetooth(s.ctx()))
	s.False(s.handler.BluetoothEnabled(s.ctx()), "radio MUST be off after disable")

	s.Require().NoError(s.handler.EnableBluetooth(s.ctx()))
	s.True(s.handler.BluetoothEnabled(s.ctx()))

	mu.Lock()
	defer mu.Unlock()
	s.Equal([]bool{false, true}, events, "each power change MUST be announced once")
}

func (s *HandlerSuite) TestIsConnectable() {
	// GOAL: Verify connected devices count as connectable
	//
	// TEST SCENARIO: plain / connectable / connected devices → false / true / true

	s.False(s.handler.IsConnectable(device.DiscoveredDevice{ID: "a"}))
	s.True(s.handler.IsConnectable(device.DiscoveredDevice{ID: "b", Connectable: true}))
	s.True(s.handler.IsConnectable(device.DiscoveredDevice{ID: "c", Connected: true}))
}

func (s *HandlerSuite) TestUnknownDevice() {
	// GOAL: Verify lookup of nameless devices needs both keys
	//
	// TEST SCENARIO: nameless dev-9 discovered → UnknownDevice(dev-9, "") found → UnknownDevice(dev-9, "x") not found

	s.Require().NoError(s.handler.StartScan(s.ctx()))
	s.Backend.Add("dev-9", "")

	_, ok := s.handler.UnknownDevice("dev-9", "")
	s.True(ok, "id and empty name MUST match")
	_, ok = s.handler.UnknownDevice("dev-9", "x")
	s.False(ok, "mismatching name MUST NOT match")
}

func (s *HandlerSuite) TestNewFromFactories() {
	// GOAL: Verify New wires the adapter from devicefactory and reports factory failures
	//
	// TEST SCENARIO: New without adapter → factory adapter used by connect → Instance() returns it; failing radio factory → New fails

	h, err := handler.New(
		handler.WithLogger(s.Logger),
		handler.WithWatcher(s.Watcher),
		handler.WithTracker(s.Tracker),
	)
	s.Require().NoError(err)
	defer h.Close()
	s.Same(h, handler.Instance(), "Instance MUST return the newest handler")

	s.sensor("dev-1")
	s.Require().NoError(h.ConnectFromID(s.ctx(), "dev-1"))
	s.Adapter.AssertCalled(s.T(), "Open", mock.Anything, "dev-1")

	boom := errors.New("no dbus")
	devicefactory.RadioProviderFactory = func(string, *logrus.Logger) (device.RadioProvider, error) {
		return nil, boom
	}
	_, err = handler.New(handler.WithLogger(s.Logger), handler.WithWatcher(s.Watcher))
	s.ErrorIs(err, boom, "radio provider failure MUST abort New")

	devicefactory.AdapterFactory = func(goble.Options, *logrus.Logger) (device.Adapter, error) {
		return nil, boom
	}
	_, err = handler.New(handler.WithLogger(s.Logger))
	s.ErrorIs(err, boom, "adapter failure MUST abort New")
}

func (s *HandlerSuite) TestNewStartsWatcherOnce() {
	// GOAL: Verify the first handler starts the shared watcher and later ones leave it alone
	//
	// TEST SCENARIO: handler created → watcher scanning → StopScan → second handler → watcher still stopped; AutoScan off → fresh watcher never started

	s.True(s.Backend.Running(), "the first handler MUST start the watcher")
	s.Equal(watcher.Scanning, s.Watcher.State())

	s.Require().NoError(s.handler.StopScan())
	second := s.newHandler(config.DefaultConfig())
	defer second.Close()
	s.Equal(1, s.Backend.Starts(), "a later handler MUST NOT restart a stopped watcher")
	s.Equal(watcher.Stopped, s.Watcher.State())

	backend := testutils.NewFakeWatcher()
	cfg := config.DefaultConfig()
	cfg.AutoScan = false
	h, err := handler.New(
		handler.WithConfig(cfg),
		handler.WithLogger(s.Logger),
		handler.WithWatcher(watcher.New(backend, s.Logger)),
		handler.WithTracker(s.Tracker),
	)
	s.Require().NoError(err)
	defer h.Close()
	s.Equal(0, backend.Starts(), "AutoScan off MUST leave the watcher stopped")
}

func (s *HandlerSuite) TestNewRejectsInvalidConfig() {
	// GOAL: Verify configuration is validated before anything is created
	//
	// TEST SCENARIO: unknown output format → New → ErrInvalidArgument

	cfg := config.DefaultConfig()
	cfg.OutputFormat = "xml"

	_, err := handler.New(handler.WithConfig(cfg), handler.WithLogger(s.Logger))
	s.ErrorIs(err, device.ErrInvalidArgument)
}

func TestHandlerSuite(t *testing.T) {
	depend.RunSuite(t, new(HandlerSuite))
}
