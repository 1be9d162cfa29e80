// Package devicefactory creates the platform adapter and radio provider.
// The factories are variables so that tests can swap in mocks.
package devicefactory

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
	goble "github.com/srg/blelink/internal/device/go-ble"
)

// AdapterFactory creates the BLE adapter.
var AdapterFactory = func(opts goble.Options, logger *logrus.Logger) (device.Adapter, error) {
	return goble.NewAdapter(opts, logger), nil
}

// RadioProviderFactory creates the host radio provider. adapter selects a
// controller by name where the platform supports more than one.
var RadioProviderFactory = func(adapter string, logger *logrus.Logger) (device.RadioProvider, error) {
	return newRadioProvider(adapter, logger)
}

// noRadios is the provider for platforms without radio control. The radio
// tracker reports device.ErrNoRadio for it.
type noRadios struct{}

func (noRadios) Radios(context.Context) ([]device.Radio, error) {
	return nil, nil
}

func (noRadios) RequestAccess(context.Context) (device.AccessStatus, error) {
	return device.AccessUnspecified, nil
}
