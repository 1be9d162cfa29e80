//go:build linux

package devicefactory

import (
	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/device/bluez"
)

func newRadioProvider(adapter string, logger *logrus.Logger) (device.RadioProvider, error) {
	p, err := bluez.NewProvider(adapter, logger)
	if err != nil {
		logger.WithError(err).Warn("BlueZ is not reachable, radio control disabled")
		return noRadios{}, nil
	}
	return p, nil
}
