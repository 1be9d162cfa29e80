//go:build test

package main

import (
	"testing"

	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/testutils"
	"github.com/stretchr/testify/suite"
)

type InspectTestSuite struct {
	CommandTestSuite
}

func (s *InspectTestSuite) TestInspectCmd_Table() {
	// GOAL: Verify inspect prints the buckets and marks the default channel
	//
	// TEST SCENARIO: inspect by address → connect → table lists ffe1 as default rw channel → device disconnected afterwards

	b := s.Sensor("aa:bb:cc:dd:ee:ff")

	output, err := s.ExecuteCommand("inspect", "aa:bb:cc:dd:ee:ff")
	s.Require().NoError(err, "inspect MUST succeed")

	testutils.NewTextAsserter(s.T()).Assert(output, `
Device: Sensor1 (aa:bb:cc:dd:ee:ff)
Default channel: ffe1

CHARACTERISTIC  PROPERTIES                          BUCKETS
ffe1 *          read,write-without-response,notify  read,write,rw,notify
2a19            read,notify                         read,notify
ffe2            write                               write
`)
	s.Equal(1, b.DeviceCloses(), "device MUST be released after inspect")
}

func (s *InspectTestSuite) TestInspectCmd_JSONByName() {
	// GOAL: Verify inspect resolves names through a scan and emits JSON
	//
	// TEST SCENARIO: Sensor1 advertised as dev-1 → inspect Sensor1 --format json → report with default channel and buckets

	s.Sensor("dev-1")
	advertised := s.AdvertiseWhenScanning([2]string{"dev-1", "Sensor1"})

	output, err := s.ExecuteCommand("inspect", "Sensor1", "--format=json")
	s.Require().NoError(err)
	<-advertised

	testutils.NewJSONAsserter(s.T()).Assert(output, `{
		"id": "dev-1",
		"name": "Sensor1",
		"default_channel": "ffe1",
		"characteristics": [
			{"uuid": "ffe1", "properties": ["read", "write-without-response", "notify"], "buckets": ["read", "write", "rw", "notify"], "default": true},
			{"uuid": "2a19", "properties": ["read", "notify"], "buckets": ["read", "notify"]},
			{"uuid": "ffe2", "properties": ["write"], "buckets": ["write"]}
		]
	}`)
}

func (s *InspectTestSuite) TestInspectCmd_UnknownDevice() {
	// GOAL: Verify an address nobody answers fails cleanly
	//
	// TEST SCENARIO: inspect unregistered address → ErrNotConnected

	_, err := s.ExecuteCommand("inspect", "11:22:33:44:55:66")
	s.ErrorIs(err, device.ErrNotConnected)
}

func TestInspectTestSuite(t *testing.T) {
	suite.Run(t, new(InspectTestSuite))
}
