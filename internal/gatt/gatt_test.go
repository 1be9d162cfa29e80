//go:build test

package gatt_test

import (
	"context"
	"testing"

	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/gatt"
	"github.com/srg/blelink/internal/testutils"
	"github.com/stretchr/testify/suite"
)

type GattSuite struct {
	suite.Suite
	builder *testutils.PeripheralBuilder
}

func (s *GattSuite) SetupTest() {
	s.builder = testutils.CreateMockPeripheralFromJSON(s.T(), `{
		"id": "dev-1",
		"services": [
			{
				"uuid": "180f",
				"characteristics": [
					{ "uuid": "2a19", "properties": "read,notify" },
					{ "uuid": "2a1a", "properties": "write-without-response" }
				]
			},
			{
				"uuid": "ffe0",
				"characteristics": [
					{ "uuid": "0000ffe1-0000-1000-8000-00805f9b34fb", "properties": "notify" },
					{ "uuid": "ffe2", "properties": "reliable" },
					{ "uuid": "ffe3", "properties": "writable-auxiliaries" },
					{ "uuid": "ffe4", "properties": "indicate,broadcast" }
				]
			}
		]
	}`)
	s.builder.Build()
}

func (s *GattSuite) chars(uuids ...string) []device.Characteristic {
	var out []device.Characteristic
	for _, u := range uuids {
		out = append(out, s.builder.Characteristic(u))
	}
	return out
}

func uuidsOf(chars []device.Characteristic) []string {
	out := make([]string, 0, len(chars))
	for _, c := range chars {
		out = append(out, device.NormalizeUUID(c.UUID()))
	}
	return out
}

// TestClassify verifies bucket membership rules.
//
// GOAL: Every characteristic lands in every bucket whose capability it has
//
// TEST SCENARIO: Classify mixed characteristics → inspect buckets → membership is non-exclusive and ordered
func (s *GattSuite) TestClassify() {
	b := gatt.Classify(s.chars("2a19", "2a1a", "ffe1", "ffe2", "ffe3", "ffe4"))

	s.Equal([]string{"2a19"}, uuidsOf(b.Readable), "only read-capable characteristics MUST be readable")
	s.Equal([]string{"2a1a", "ffe2", "ffe3"}, uuidsOf(b.Writable),
		"write-without-response, reliable-write and writable-auxiliaries MUST count as writable")
	s.Equal([]string{"2a19", "ffe1"}, uuidsOf(b.Notifiable))
	s.Equal([]string{"ffe1"}, uuidsOf(b.ReadWrite), "the reserved UUID MUST be primary read-write regardless of flags")
	s.False(b.Empty())

	s.Run("characteristic without capabilities lands nowhere", func() {
		b := gatt.Classify(s.chars("ffe4"))
		s.True(b.Empty())
		s.Nil(b.DefaultChannel())
	})

	s.Run("nil characteristics are skipped", func() {
		b := gatt.Classify([]device.Characteristic{nil})
		s.True(b.Empty())
	})
}

// TestDefaultChannel verifies the default write channel tie-break.
//
// GOAL: Primary read-write beats writable; writable order is enumeration order
//
// TEST SCENARIO: Classify → DefaultChannel → expected characteristic
func (s *GattSuite) TestDefaultChannel() {
	s.Run("primary read-write wins even if it is not writable", func() {
		b := gatt.Classify(s.chars("2a1a", "ffe1"))
		s.Equal("ffe1", device.NormalizeUUID(b.DefaultChannel().UUID()))
	})

	s.Run("first writable otherwise", func() {
		b := gatt.Classify(s.chars("2a19", "ffe2", "2a1a"))
		s.Equal("ffe2", device.NormalizeUUID(b.DefaultChannel().UUID()))
	})

	s.Run("find searches every bucket", func() {
		b := gatt.Classify(s.chars("2a19", "ffe2"))
		s.NotNil(b.Find("0x2A19"))
		s.Nil(b.Find("ffe1"))
	})

	s.Run("clone does not share storage", func() {
		b := gatt.Classify(s.chars("2a19"))
		c := b.Clone()
		c.Readable[0] = nil
		s.NotNil(b.Readable[0])
	})
}

// TestWriteTo verifies argument validation and write mode selection.
//
// GOAL: Invalid targets fail before I/O; writes use response only when supported
//
// TEST SCENARIO: WriteTo nil/unwritable/writable targets → errors or adapter status
func (s *GattSuite) TestWriteTo() {
	ctx := context.Background()

	s.Run("nil characteristic is an invalid argument", func() {
		ok, err := gatt.WriteTo(ctx, []byte("x"), nil)
		s.False(ok)
		s.ErrorIs(err, device.ErrInvalidArgument)
	})

	s.Run("non writable characteristic is unsupported", func() {
		ok, err := gatt.WriteTo(ctx, []byte("x"), s.builder.Characteristic("2a19"))
		s.False(ok)
		s.ErrorIs(err, device.ErrUnsupported)
		s.Empty(s.builder.Writes("2a19"), "validation MUST happen before any write")
	})

	s.Run("write without response", func() {
		ok, err := gatt.WriteTo(ctx, []byte("hi"), s.builder.Characteristic("2a1a"))
		s.Require().NoError(err)
		s.True(ok)
		s.Equal([][]byte{[]byte("hi")}, s.builder.Writes("2a1a"))
		s.builder.Characteristic("2a1a").AssertCalled(s.T(), "Write", ctx, []byte("hi"), false)
	})
}

// TestWriteStatus verifies adapter outcomes are surfaced.
func (s *GattSuite) TestWriteStatus() {
	b := testutils.CreateMockPeripheralFromJSON(s.T(), `{
		"services": [{
			"uuid": "ffe0",
			"characteristics": [
				{ "uuid": "ffe1", "properties": "write", "write_status": "unreachable" },
				{ "uuid": "ffe2", "properties": "write", "write_error": "link lost" }
			]
		}]
	}`)
	b.Build()
	ctx := context.Background()

	ok, err := gatt.WriteTo(ctx, []byte{1}, b.Characteristic("ffe1"))
	s.NoError(err)
	s.False(ok, "a non-success status MUST be reported as false")
	b.Characteristic("ffe1").AssertCalled(s.T(), "Write", ctx, []byte{1}, true)

	ok, err = gatt.WriteTo(ctx, []byte{1}, b.Characteristic("ffe2"))
	s.False(ok)
	s.ErrorContains(err, "link lost")
}

func TestGattSuite(t *testing.T) {
	suite.Run(t, new(GattSuite))
}
