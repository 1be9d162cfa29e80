package goble

import (
	"sort"
	"time"

	"github.com/go-ble/ble"
	"github.com/srg/blelink/internal/device"
)

// discovered converts an advertisement into the adapter-neutral device record.
func discovered(adv ble.Advertisement, now time.Time) device.DiscoveredDevice {
	addr := adv.Addr().String()
	services := make([]string, 0, len(adv.Services()))
	for _, u := range adv.Services() {
		services = append(services, device.NormalizeUUID(u.String()))
	}
	sort.Strings(services)

	return device.DiscoveredDevice{
		ID:                 addr,
		Name:               adv.LocalName(),
		Address:            addr,
		RSSI:               adv.RSSI(),
		Connectable:        adv.Connectable(),
		AdvertisedServices: services,
		LastSeen:           now,
	}
}

// include applies the allow, block and service filters.
func (o Options) include(d device.DiscoveredDevice) bool {
	for _, blocked := range o.BlockList {
		if equalAddress(d.Address, blocked) {
			return false
		}
	}

	if len(o.AllowList) > 0 {
		allowed := false
		for _, a := range o.AllowList {
			if equalAddress(d.Address, a) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	if len(o.ServiceUUIDs) > 0 {
		for _, required := range o.ServiceUUIDs {
			for _, advertised := range d.AdvertisedServices {
				if device.EqualUUID(required, advertised) {
					return true
				}
			}
		}
		return false
	}
	return true
}

func equalAddress(a, b string) bool {
	pa, errA := device.ParseAddress(a)
	pb, errB := device.ParseAddress(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return pa == pb
}
