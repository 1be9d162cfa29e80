package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/pkg/config"
	"github.com/srg/blelink/pkg/handler"
)

// newHandler creates the handler a command works with.
var newHandler = func(cfg *config.Config, logger *logrus.Logger) (*handler.Handler, error) {
	return handler.New(handler.WithConfig(cfg), handler.WithLogger(logger))
}

const targetHelp = `<target> is a Bluetooth address (aa:bb:cc:dd:ee:ff), an adapter device id
or an advertised device name. Ids and names are resolved by scanning first.`

// connectTarget connects h to target. Addresses are dialed directly; ids and
// names are looked up in the live device set, scanning for up to window when
// they are not there yet.
func connectTarget(ctx context.Context, h *handler.Handler, target string, window time.Duration) error {
	if addr, err := device.ParseAddress(target); err == nil {
		return h.ConnectFromAddress(ctx, addr)
	}

	d, err := findDevice(ctx, h, target, window)
	if err != nil {
		return err
	}
	return h.ConnectFromDevice(ctx, d)
}

func matchesTarget(d device.DiscoveredDevice, target string) bool {
	return d.ID == target || (d.Name != "" && d.Name == target)
}

func findDevice(ctx context.Context, h *handler.Handler, target string, window time.Duration) (device.DiscoveredDevice, error) {
	for _, d := range h.Devices() {
		if matchesTarget(d, target) {
			return d, nil
		}
	}

	scanCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	if err := h.StartScan(scanCtx); err != nil {
		return device.DiscoveredDevice{}, err
	}
	// connecting while scanning is unreliable on most controllers
	defer func() { _ = h.StopScan() }()

	events := h.ScanEvents()
	for {
		select {
		case <-scanCtx.Done():
			if err := ctx.Err(); err != nil {
				return device.DiscoveredDevice{}, err
			}
			return device.DiscoveredDevice{}, &device.NotFoundError{Resource: "device", UUIDs: []string{target}}
		case ev := <-events:
			if ev.Kind == device.DeviceAdded && matchesTarget(ev.Device, target) {
				return ev.Device, nil
			}
		}
	}
}
