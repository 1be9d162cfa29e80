//go:build !linux

package devicefactory

import (
	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
)

func newRadioProvider(_ string, logger *logrus.Logger) (device.RadioProvider, error) {
	logger.Debug("Radio control is not supported on this platform")
	return noRadios{}, nil
}
