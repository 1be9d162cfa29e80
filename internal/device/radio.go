package device

import "context"

// RadioKind identifies the technology of a host radio.
type RadioKind int

const (
	RadioOther RadioKind = iota
	RadioBluetooth
	RadioWiFi
)

// RadioState is the power state of a host radio.
type RadioState int

const (
	RadioUnknown RadioState = iota
	RadioOn
	RadioOff
	RadioDisabled
)

func (s RadioState) String() string {
	switch s {
	case RadioOn:
		return "on"
	case RadioOff:
		return "off"
	case RadioDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// AccessStatus is the host's answer to a radio access request.
type AccessStatus int

const (
	AccessUnspecified AccessStatus = iota
	AccessAllowed
	AccessDeniedByUser
	AccessDeniedBySystem
)

func (s AccessStatus) String() string {
	switch s {
	case AccessAllowed:
		return "allowed"
	case AccessDeniedByUser:
		return "denied by user"
	case AccessDeniedBySystem:
		return "denied by system"
	default:
		return "unspecified"
	}
}

// Radio is a single host radio.
type Radio interface {
	Name() string
	Kind() RadioKind
	State(ctx context.Context) (RadioState, error)
	SetState(ctx context.Context, state RadioState) error
	OnStateChanged(fn func(RadioState)) (CancelFunc, error)
}

// RadioProvider enumerates host radios and arbitrates access to them.
type RadioProvider interface {
	Radios(ctx context.Context) ([]Radio, error)
	RequestAccess(ctx context.Context) (AccessStatus, error)
}
