package goble

import (
	"context"
	"errors"
	"sync"

	"github.com/go-ble/ble"
	"github.com/srg/blelink/internal/device"
)

type service struct {
	p   *peripheral
	svc *ble.Service

	mu     sync.Mutex
	closed bool
	chars  []*characteristic
}

func (s *service) UUID() string {
	return device.NormalizeUUID(s.svc.UUID.String())
}

// Characteristics returns the characteristics found by the profile discovery
// that produced this service. That discovery is already uncached.
func (s *service) Characteristics(_ context.Context, _ device.CacheMode) (device.CharacteristicsResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return device.CharacteristicsResult{Status: device.StatusUnreachable}, nil
	}
	if s.chars == nil {
		s.chars = make([]*characteristic, 0, len(s.svc.Characteristics))
		for _, c := range s.svc.Characteristics {
			s.chars = append(s.chars, newCharacteristic(s, c))
		}
	}

	out := make([]device.Characteristic, 0, len(s.chars))
	for _, c := range s.chars {
		out = append(out, c)
	}
	return device.CharacteristicsResult{Status: device.StatusSuccess, Characteristics: out}, nil
}

func (s *service) SessionActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Close releases the notification subscriptions of the service's characteristics.
func (s *service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	chars := s.chars
	s.mu.Unlock()

	var errs []error
	for _, c := range chars {
		if err := c.release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
