//go:build test

package main

import (
	"testing"

	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/testutils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type RadioTestSuite struct {
	CommandTestSuite
}

func (s *RadioTestSuite) TestRadioCmd_Status() {
	// GOAL: Verify status reports the radio power without changing it
	//
	// TEST SCENARIO: radio on → radio → "Bluetooth: on" → SetState never called

	output, err := s.ExecuteCommand("radio")
	s.Require().NoError(err)

	testutils.NewTextAsserter(s.T()).Assert(output, "Bluetooth: on")
	s.Radio.AssertNotCalled(s.T(), "SetState", mock.Anything, mock.Anything)
}

func (s *RadioTestSuite) TestRadioCmd_OffOn() {
	// GOAL: Verify power switching in both directions
	//
	// TEST SCENARIO: radio off → "Bluetooth: off" → radio on → "Bluetooth: on"

	output, err := s.ExecuteCommand("radio", "off")
	s.Require().NoError(err)
	s.Contains(output, "Bluetooth: off")
	s.Radio.AssertCalled(s.T(), "SetState", mock.Anything, device.RadioOff)

	output, err = s.ExecuteCommand("radio", "on")
	s.Require().NoError(err)
	s.Contains(output, "Bluetooth: on")
}

func (s *RadioTestSuite) TestRadioCmd_Denied() {
	// GOAL: Verify refused radio access surfaces as a permission error
	//
	// TEST SCENARIO: access denied by user → radio off → ErrPermissionDenied → radio untouched

	s.Provider.ExpectedCalls = nil
	s.Provider.On("Radios", mock.Anything).Return([]device.Radio{s.Radio}, nil).Maybe()
	s.Provider.On("RequestAccess", mock.Anything).Return(device.AccessDeniedByUser, nil)

	_, err := s.ExecuteCommand("radio", "off")
	s.ErrorIs(err, device.ErrPermissionDenied)
	s.Radio.AssertNotCalled(s.T(), "SetState", mock.Anything, mock.Anything)
}

func (s *RadioTestSuite) TestRadioCmd_InvalidAction() {
	// GOAL: Verify unknown actions are rejected
	//
	// TEST SCENARIO: radio toggle → error listing valid actions

	_, err := s.ExecuteCommand("radio", "toggle")
	s.Require().Error(err)
	s.Contains(err.Error(), "invalid action 'toggle'")
}

func TestRadioTestSuite(t *testing.T) {
	suite.Run(t, new(RadioTestSuite))
}
