//go:build test

// Package mocks provides testify mocks for the device adapter contract and the
// go-ble client surface.
package mocks

import (
	"context"

	"github.com/srg/blelink/internal/device"
	"github.com/stretchr/testify/mock"
)

// ----------------------------
// Adapter
// ----------------------------

type MockAdapter struct {
	mock.Mock
}

func NewMockAdapter(t mock.TestingT) *MockAdapter {
	m := &MockAdapter{}
	m.Test(t)
	return m
}

func (m *MockAdapter) Watcher() device.DeviceWatcher {
	args := m.Called()
	w, _ := args.Get(0).(device.DeviceWatcher)
	return w
}

func (m *MockAdapter) Open(ctx context.Context, id string) (device.Peripheral, error) {
	args := m.Called(ctx, id)
	if rf, ok := args.Get(0).(func(context.Context, string) (device.Peripheral, error)); ok {
		return rf(ctx, id)
	}
	p, _ := args.Get(0).(device.Peripheral)
	return p, args.Error(1)
}

// ----------------------------
// Peripheral
// ----------------------------

type MockPeripheral struct {
	mock.Mock
}

func NewMockPeripheral(t mock.TestingT) *MockPeripheral {
	m := &MockPeripheral{}
	m.Test(t)
	return m
}

func (m *MockPeripheral) ID() string {
	return m.Called().String(0)
}

func (m *MockPeripheral) Name() string {
	return m.Called().String(0)
}

func (m *MockPeripheral) ConnectionStatus() device.ConnectionStatus {
	return m.Called().Get(0).(device.ConnectionStatus)
}

func (m *MockPeripheral) Services(ctx context.Context, mode device.CacheMode) (device.ServicesResult, error) {
	args := m.Called(ctx, mode)
	if rf, ok := args.Get(0).(func(context.Context, device.CacheMode) (device.ServicesResult, error)); ok {
		return rf(ctx, mode)
	}
	r, _ := args.Get(0).(device.ServicesResult)
	return r, args.Error(1)
}

func (m *MockPeripheral) CachedServices() []device.Service {
	args := m.Called()
	s, _ := args.Get(0).([]device.Service)
	return s
}

func (m *MockPeripheral) OnConnectionStatusChanged(fn func(device.ConnectionStatus)) (device.CancelFunc, error) {
	args := m.Called(fn)
	if rf, ok := args.Get(0).(func(func(device.ConnectionStatus)) (device.CancelFunc, error)); ok {
		return rf(fn)
	}
	c, _ := args.Get(0).(device.CancelFunc)
	return c, args.Error(1)
}

func (m *MockPeripheral) Close() error {
	args := m.Called()
	if rf, ok := args.Get(0).(func() error); ok {
		return rf()
	}
	return args.Error(0)
}

// ----------------------------
// Service
// ----------------------------

type MockService struct {
	mock.Mock
}

func NewMockService(t mock.TestingT) *MockService {
	m := &MockService{}
	m.Test(t)
	return m
}

func (m *MockService) UUID() string {
	return m.Called().String(0)
}

func (m *MockService) Characteristics(ctx context.Context, mode device.CacheMode) (device.CharacteristicsResult, error) {
	args := m.Called(ctx, mode)
	r, _ := args.Get(0).(device.CharacteristicsResult)
	return r, args.Error(1)
}

func (m *MockService) SessionActive() bool {
	args := m.Called()
	if rf, ok := args.Get(0).(func() bool); ok {
		return rf()
	}
	return args.Bool(0)
}

func (m *MockService) Close() error {
	args := m.Called()
	if rf, ok := args.Get(0).(func() error); ok {
		return rf()
	}
	return args.Error(0)
}

// ----------------------------
// Characteristic
// ----------------------------

type MockCharacteristic struct {
	mock.Mock
}

func NewMockCharacteristic(t mock.TestingT) *MockCharacteristic {
	m := &MockCharacteristic{}
	m.Test(t)
	return m
}

func (m *MockCharacteristic) UUID() string {
	return m.Called().String(0)
}

func (m *MockCharacteristic) Properties() device.Properties {
	return m.Called().Get(0).(device.Properties)
}

func (m *MockCharacteristic) Service() device.Service {
	args := m.Called()
	s, _ := args.Get(0).(device.Service)
	return s
}

func (m *MockCharacteristic) ConfigureNotify(ctx context.Context) (device.CommunicationStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(device.CommunicationStatus), args.Error(1)
}

func (m *MockCharacteristic) OnValueChanged(fn func([]byte)) device.CancelFunc {
	args := m.Called(fn)
	if rf, ok := args.Get(0).(func(func([]byte)) device.CancelFunc); ok {
		return rf(fn)
	}
	c, _ := args.Get(0).(device.CancelFunc)
	return c
}

func (m *MockCharacteristic) Write(ctx context.Context, data []byte, withResponse bool) (device.CommunicationStatus, error) {
	args := m.Called(ctx, data, withResponse)
	if rf, ok := args.Get(0).(func(context.Context, []byte, bool) (device.CommunicationStatus, error)); ok {
		return rf(ctx, data, withResponse)
	}
	return args.Get(0).(device.CommunicationStatus), args.Error(1)
}

// ----------------------------
// DeviceWatcher
// ----------------------------

type MockDeviceWatcher struct {
	mock.Mock
}

func NewMockDeviceWatcher(t mock.TestingT) *MockDeviceWatcher {
	m := &MockDeviceWatcher{}
	m.Test(t)
	return m
}

func (m *MockDeviceWatcher) Start(ctx context.Context, fn func(device.WatchEvent)) error {
	args := m.Called(ctx, fn)
	if rf, ok := args.Get(0).(func(context.Context, func(device.WatchEvent)) error); ok {
		return rf(ctx, fn)
	}
	return args.Error(0)
}

func (m *MockDeviceWatcher) Stop() error {
	args := m.Called()
	if rf, ok := args.Get(0).(func() error); ok {
		return rf()
	}
	return args.Error(0)
}

// ----------------------------
// Radio
// ----------------------------

type MockRadio struct {
	mock.Mock
}

func NewMockRadio(t mock.TestingT) *MockRadio {
	m := &MockRadio{}
	m.Test(t)
	return m
}

func (m *MockRadio) Name() string {
	return m.Called().String(0)
}

func (m *MockRadio) Kind() device.RadioKind {
	return m.Called().Get(0).(device.RadioKind)
}

func (m *MockRadio) State(ctx context.Context) (device.RadioState, error) {
	args := m.Called(ctx)
	if rf, ok := args.Get(0).(func(context.Context) (device.RadioState, error)); ok {
		return rf(ctx)
	}
	return args.Get(0).(device.RadioState), args.Error(1)
}

func (m *MockRadio) SetState(ctx context.Context, state device.RadioState) error {
	args := m.Called(ctx, state)
	if rf, ok := args.Get(0).(func(context.Context, device.RadioState) error); ok {
		return rf(ctx, state)
	}
	return args.Error(0)
}

func (m *MockRadio) OnStateChanged(fn func(device.RadioState)) (device.CancelFunc, error) {
	args := m.Called(fn)
	if rf, ok := args.Get(0).(func(func(device.RadioState)) (device.CancelFunc, error)); ok {
		return rf(fn)
	}
	c, _ := args.Get(0).(device.CancelFunc)
	return c, args.Error(1)
}

type MockRadioProvider struct {
	mock.Mock
}

func NewMockRadioProvider(t mock.TestingT) *MockRadioProvider {
	m := &MockRadioProvider{}
	m.Test(t)
	return m
}

func (m *MockRadioProvider) Radios(ctx context.Context) ([]device.Radio, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).([]device.Radio)
	return r, args.Error(1)
}

func (m *MockRadioProvider) RequestAccess(ctx context.Context) (device.AccessStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(device.AccessStatus), args.Error(1)
}
