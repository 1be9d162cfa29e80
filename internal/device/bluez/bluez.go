// Package bluez controls Bluetooth adapters on Linux through the BlueZ
// D-Bus API.
package bluez

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/groutine"
)

const (
	Service           = "org.bluez"
	AdapterInterface  = "org.bluez.Adapter1"
	propertiesIface   = "org.freedesktop.DBus.Properties"
	objectManagerCall = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
)

// Provider is a device.RadioProvider over the system bus.
type Provider struct {
	conn    *dbus.Conn
	adapter string
	logger  *logrus.Logger
}

// NewProvider connects to the system bus. adapter selects one controller by
// name ("hci0"); empty means every controller.
func NewProvider(adapter string, logger *logrus.Logger) (*Provider, error) {
	if logger == nil {
		logger = logrus.New()
	}
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system DBus: %w", err)
	}
	return &Provider{conn: conn, adapter: adapter, logger: logger}, nil
}

// Close releases the bus connection.
func (p *Provider) Close() error {
	return p.conn.Close()
}

// Radios lists the BlueZ controllers.
func (p *Provider) Radios(ctx context.Context) ([]device.Radio, error) {
	var managed map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	err := p.conn.Object(Service, "/").CallWithContext(ctx, objectManagerCall, 0).Store(&managed)
	if err != nil {
		return nil, fmt.Errorf("failed to list BlueZ objects: %w", MapError(err))
	}

	var radios []device.Radio
	for _, a := range parseAdapters(managed) {
		if p.adapter != "" && a.id != p.adapter {
			continue
		}
		radios = append(radios, &radio{conn: p.conn, info: a, logger: p.logger})
	}
	p.logger.WithField("count", len(radios)).Debug("BlueZ adapters enumerated")
	return radios, nil
}

// RequestAccess always allows. BlueZ has no per-application consent; policy
// refusals surface as device.ErrPermissionDenied from SetState.
func (p *Provider) RequestAccess(context.Context) (device.AccessStatus, error) {
	return device.AccessAllowed, nil
}

type adapterInfo struct {
	path  dbus.ObjectPath
	id    string
	alias string
}

// parseAdapters picks the Adapter1 objects out of a GetManagedObjects reply,
// sorted by object path.
func parseAdapters(managed map[dbus.ObjectPath]map[string]map[string]dbus.Variant) []adapterInfo {
	var out []adapterInfo
	for p, ifaces := range managed {
		props, ok := ifaces[AdapterInterface]
		if !ok {
			continue
		}
		a := adapterInfo{path: p, id: path.Base(string(p))}
		if v, ok := props["Alias"]; ok {
			a.alias, _ = v.Value().(string)
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out
}

// stateFromProperties derives the radio state from Adapter1 properties.
// PowerState is only published by recent BlueZ releases.
func stateFromProperties(props map[string]dbus.Variant) (device.RadioState, bool) {
	if v, ok := props["PowerState"]; ok {
		if s, ok := v.Value().(string); ok {
			switch s {
			case "on", "off-enabling":
				return device.RadioOn, true
			case "off-blocked":
				return device.RadioDisabled, true
			case "off", "on-disabling":
				return device.RadioOff, true
			}
		}
	}
	if v, ok := props["Powered"]; ok {
		if on, ok := v.Value().(bool); ok {
			if on {
				return device.RadioOn, true
			}
			return device.RadioOff, true
		}
	}
	return device.RadioUnknown, false
}

// changedState extracts the new radio state from a PropertiesChanged signal.
func changedState(sig *dbus.Signal, path dbus.ObjectPath) (device.RadioState, bool) {
	if sig == nil || sig.Path != path || len(sig.Body) < 2 {
		return device.RadioUnknown, false
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != AdapterInterface {
		return device.RadioUnknown, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return device.RadioUnknown, false
	}
	return stateFromProperties(changed)
}

// MapError translates BlueZ and bus errors into the shared device errors.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	name := ""
	var e dbus.Error
	var pe *dbus.Error
	switch {
	case errors.As(err, &e):
		name = e.Name
	case errors.As(err, &pe):
		name = pe.Name
	}

	switch {
	case name == "org.bluez.Error.NotAuthorized",
		name == "org.bluez.Error.NotPermitted",
		name == "org.freedesktop.DBus.Error.AccessDenied",
		strings.HasSuffix(name, ".AuthFailed"):
		return fmt.Errorf("%w: %v", device.ErrPermissionDenied, err)
	case name == "org.bluez.Error.NotReady":
		return fmt.Errorf("%w: %v", device.ErrBluetoothOff, err)
	case name == "org.freedesktop.DBus.Error.ServiceUnknown":
		return fmt.Errorf("%w: bluetooth daemon is not running: %v", device.ErrNoRadio, err)
	case name == "org.freedesktop.DBus.Error.NoReply", name == "org.freedesktop.DBus.Error.Timeout":
		return fmt.Errorf("%w: %v", device.ErrTimeout, err)
	default:
		return err
	}
}

// ----------------------------
// Radio
// ----------------------------

type radio struct {
	conn   *dbus.Conn
	info   adapterInfo
	logger *logrus.Logger
}

func (r *radio) Name() string {
	if r.info.alias != "" {
		return r.info.alias
	}
	return r.info.id
}

func (r *radio) Kind() device.RadioKind { return device.RadioBluetooth }

func (r *radio) State(ctx context.Context) (device.RadioState, error) {
	var props map[string]dbus.Variant
	err := r.conn.Object(Service, r.info.path).
		CallWithContext(ctx, propertiesIface+".GetAll", 0, AdapterInterface).
		Store(&props)
	if err != nil {
		return device.RadioUnknown, fmt.Errorf("failed to read adapter %s state: %w", r.info.id, MapError(err))
	}
	state, _ := stateFromProperties(props)
	return state, nil
}

func (r *radio) SetState(ctx context.Context, state device.RadioState) error {
	var powered bool
	switch state {
	case device.RadioOn:
		powered = true
	case device.RadioOff:
		powered = false
	default:
		return fmt.Errorf("%w: cannot set radio state %s", device.ErrInvalidArgument, state)
	}

	r.logger.WithFields(logrus.Fields{
		"adapter": r.info.id,
		"powered": powered,
	}).Info("Setting adapter power")

	call := r.conn.Object(Service, r.info.path).
		CallWithContext(ctx, propertiesIface+".Set", 0, AdapterInterface, "Powered", dbus.MakeVariant(powered))
	if call.Err != nil {
		return fmt.Errorf("failed to set adapter %s power: %w", r.info.id, MapError(call.Err))
	}
	return nil
}

// OnStateChanged follows PropertiesChanged signals of the adapter object.
func (r *radio) OnStateChanged(fn func(device.RadioState)) (device.CancelFunc, error) {
	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(r.info.path),
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged"),
	}
	if err := r.conn.AddMatchSignal(match...); err != nil {
		return nil, fmt.Errorf("failed to add DBus match rule: %w", MapError(err))
	}

	signals := make(chan *dbus.Signal, 16)
	r.conn.Signal(signals)

	ctx, cancel := context.WithCancel(context.Background())
	done := groutine.Go(ctx, "bluez-radio-signals", func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				if state, ok := changedState(sig, r.info.path); ok {
					fn(state)
				}
			}
		}
	})

	var once sync.Once
	var err error
	return func() error {
		once.Do(func() {
			r.conn.RemoveSignal(signals)
			cancel()
			<-done
			err = r.conn.RemoveMatchSignal(match...)
		})
		return err
	}, nil
}
