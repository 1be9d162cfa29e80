// Package device defines the contract between the session layer and the
// Bluetooth Low Energy transport stack.
//
// The package holds no behaviour of its own beyond value helpers. It declares:
//   - the adapter collaborators (Adapter, DeviceWatcher, Peripheral, Service,
//     Characteristic, RadioProvider, Radio) implemented by backend packages
//   - characteristic capability flags (Properties)
//   - UUID and address normalisation helpers
//   - the error vocabulary shared by all layers
package device
