//go:build test

package main

import (
	"bytes"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/testutils"
	"github.com/srg/blelink/pkg/config"
	"github.com/srg/blelink/pkg/handler"
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
		},
		{
			"uuid": "180f",
			"characteristics": [
				{ "uuid": "2a19", "properties": "read,notify" }
			]
		}
	]
}`

// CommandTestSuite extends MockAdapterSuite with command testing utilities.
// All cmd/blelink test suites embed it.
type CommandTestSuite struct {
	testutils.MockAdapterSuite
	originalNewHandler func(*config.Config, *logrus.Logger) (*handler.Handler, error)
}

func (s *CommandTestSuite) SetupTest() {
	s.MockAdapterSuite.SetupTest()

	// keep a developer's own config file out of the tests
	s.T().Setenv("XDG_CONFIG_HOME", s.T().TempDir())
	s.T().Setenv("HOME", s.T().TempDir())
	color.NoColor = true

	s.originalNewHandler = newHandler
	newHandler = func(cfg *config.Config, logger *logrus.Logger) (*handler.Handler, error) {
		return handler.New(
			handler.WithConfig(cfg),
			handler.WithLogger(logger),
			handler.WithWatcher(s.Watcher),
			handler.WithTracker(s.Tracker),
		)
	}
}

func (s *CommandTestSuite) TearDownTest() {
	if s.originalNewHandler != nil {
		newHandler = s.originalNewHandler
	}
	s.MockAdapterSuite.TearDownTest()
}

// Sensor registers the standard sensor profile under id.
func (s *CommandTestSuite) Sensor(id string) *testutils.PeripheralBuilder {
	return s.WithPeripheral(testutils.CreateMockPeripheralFromJSON(s.T(), sensorProfile, id))
}

// AdvertiseWhenScanning reports the devices once the command has started the
// watcher. The returned channel is closed after the last device was reported.
func (s *CommandTestSuite) AdvertiseWhenScanning(devices ...[2]string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(s.TestTimeout)
		for !s.Backend.Running() {
			if time.Now().After(deadline) {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		for _, d := range devices {
			s.Backend.Add(d[0], d[1])
		}
	}()
	return done
}

// ExecuteCommand runs the root command with args, returns stdout and error.
// Log output goes to stderr, which is discarded.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, error) {
	out := &syncBuffer{}
	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(&syncBuffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// syncBuffer is a bytes.Buffer safe for writes from the dispatch goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
