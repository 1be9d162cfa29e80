//go:build test

package main

import (
	"testing"

	"github.com/srg/blelink/internal/testutils"
	"github.com/stretchr/testify/suite"
)

type ScanTestSuite struct {
	CommandTestSuite
}

func (s *ScanTestSuite) TestScanCmd_Help() {
	// GOAL: Verify scan command displays help text with all flags
	//
	// TEST SCENARIO: Execute scan --help → returns success → output contains description and flag documentation

	output, err := s.ExecuteCommand("scan", "--help")
	s.Require().NoError(err, "help command MUST succeed")

	s.Contains(output, "Scan for and display Bluetooth Low Energy devices", "help MUST contain command description")
	s.Contains(output, "--duration", "help MUST document --duration flag")
	s.Contains(output, "--format", "help MUST document --format flag")
	s.Contains(output, "--watch", "help MUST document --watch flag")
}

func (s *ScanTestSuite) TestScanCmd_InvalidFormat() {
	// GOAL: Verify scan command rejects invalid format values before scanning
	//
	// TEST SCENARIO: Execute scan with invalid format → returns error → error message lists valid formats → watcher never started

	_, err := s.ExecuteCommand("scan", "--format=invalid")

	s.Require().Error(err, "invalid format MUST return error")
	s.Contains(err.Error(), "invalid format 'invalid': must be one of [table json]", "error MUST list valid formats")
	s.Equal(0, s.Backend.Starts(), "watcher MUST NOT start on invalid arguments")
}

func (s *ScanTestSuite) TestScanCmd_InvalidLogLevel() {
	// GOAL: Verify unknown log levels are rejected
	//
	// TEST SCENARIO: Execute scan --log-level=loud → returns error naming the accepted levels

	_, err := s.ExecuteCommand("scan", "--log-level=loud")

	s.Require().Error(err)
	s.Contains(err.Error(), "invalid log level: loud")
}

func (s *ScanTestSuite) TestScanCmd_JSON() {
	// GOAL: Verify discovered devices are reported once each, in discovery order
	//
	// TEST SCENARIO: scan 300ms → Sensor1, duplicate Sensor1 under another id and a nameless device advertised → JSON lists two devices → watcher stopped

	advertised := s.AdvertiseWhenScanning(
		[2]string{"dev-1", "Sensor1"},
		[2]string{"dev-1b", "Sensor1"},
		[2]string{"dev-2", ""},
	)

	output, err := s.ExecuteCommand("scan", "--duration=300ms", "--format=json")
	s.Require().NoError(err, "scan MUST succeed")
	<-advertised

	testutils.NewJSONAsserter(s.T()).
		WithOptions(testutils.WithIgnoredFields("last_seen")).
		Assert(output, `[
			{"id": "dev-1", "name": "Sensor1", "address": "dev-1", "rssi": 0, "connectable": true, "connected": false},
			{"id": "dev-2", "address": "dev-2", "rssi": 0, "connectable": true, "connected": false}
		]`)
	s.False(s.Backend.Running(), "watcher MUST be stopped when the scan ends")
}

func (s *ScanTestSuite) TestScanCmd_Table() {
	// GOAL: Verify the table output lists every discovered device
	//
	// TEST SCENARIO: scan 300ms → two devices advertised → table has header, Sensor1 and an unknown row

	advertised := s.AdvertiseWhenScanning([2]string{"dev-1", "Sensor1"}, [2]string{"dev-2", ""})

	output, err := s.ExecuteCommand("scan", "--duration=300ms")
	s.Require().NoError(err)
	<-advertised

	s.Contains(output, "NAME")
	s.Contains(output, "Sensor1")
	s.Contains(output, "(unknown)", "nameless devices MUST be shown as unknown")
	s.Contains(output, "dev-2")
}

func (s *ScanTestSuite) TestScanCmd_NoDevices() {
	// GOAL: Verify an empty scan is not an error
	//
	// TEST SCENARIO: scan 100ms with nothing advertising → "No devices discovered"

	output, err := s.ExecuteCommand("scan", "--duration=100ms")
	s.Require().NoError(err)

	testutils.NewTextAsserter(s.T()).Assert(output, "No devices discovered")
}

func TestScanTestSuite(t *testing.T) {
	suite.Run(t, new(ScanTestSuite))
}
