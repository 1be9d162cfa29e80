// Package gatt classifies GATT characteristics by capability and performs
// validated characteristic writes.
package gatt

import (
	"github.com/srg/blelink/internal/device"
)

// writeCapabilities is every property bit that permits some form of write.
const writeCapabilities = device.PropWrite |
	device.PropWriteWithoutResponse |
	device.PropReliableWrites |
	device.PropWritableAuxiliaries

// CanRead reports whether c supports reads.
func CanRead(c device.Characteristic) bool {
	return c != nil && c.Properties().Has(device.PropRead)
}

// CanWrite reports whether c supports any kind of write.
func CanWrite(c device.Characteristic) bool {
	return c != nil && c.Properties().Any(writeCapabilities)
}

// CanNotify reports whether c supports notifications.
func CanNotify(c device.Characteristic) bool {
	return c != nil && c.Properties().Has(device.PropNotify)
}

// IsPrimaryReadWrite reports whether c is the reserved serial read-write
// characteristic. Declared properties are not consulted.
func IsPrimaryReadWrite(c device.Characteristic) bool {
	return c != nil && device.EqualUUID(c.UUID(), device.PrimaryReadWriteUUID)
}

// Buckets groups the characteristics of a session by capability.
// Membership is not exclusive; every slice keeps enumeration order.
type Buckets struct {
	Readable   []device.Characteristic
	Writable   []device.Characteristic
	Notifiable []device.Characteristic
	ReadWrite  []device.Characteristic
}

// Classify sorts chars into buckets. Notifiable lists every characteristic
// capable of notify; the session narrows that to the ones it subscribed.
func Classify(chars []device.Characteristic) Buckets {
	var b Buckets
	for _, c := range chars {
		if b.Add(c) {
			b.Notifiable = append(b.Notifiable, c)
		}
	}
	return b
}

// Add classifies a single characteristic into the read, write and read-write
// buckets. It returns whether the characteristic is notification capable and
// leaves Notifiable untouched.
func (b *Buckets) Add(c device.Characteristic) (notifiable bool) {
	if c == nil {
		return false
	}
	if IsPrimaryReadWrite(c) {
		b.ReadWrite = append(b.ReadWrite, c)
	}
	if CanRead(c) {
		b.Readable = append(b.Readable, c)
	}
	if CanWrite(c) {
		b.Writable = append(b.Writable, c)
	}
	return CanNotify(c)
}

// DefaultChannel returns the first primary read-write characteristic, else the
// first writable one, else nil.
func (b Buckets) DefaultChannel() device.Characteristic {
	if len(b.ReadWrite) > 0 {
		return b.ReadWrite[0]
	}
	if len(b.Writable) > 0 {
		return b.Writable[0]
	}
	return nil
}

// Clone returns a copy that shares no slice storage with b.
func (b Buckets) Clone() Buckets {
	return Buckets{
		Readable:   append([]device.Characteristic(nil), b.Readable...),
		Writable:   append([]device.Characteristic(nil), b.Writable...),
		Notifiable: append([]device.Characteristic(nil), b.Notifiable...),
		ReadWrite:  append([]device.Characteristic(nil), b.ReadWrite...),
	}
}

// Empty reports whether no bucket holds a characteristic.
func (b Buckets) Empty() bool {
	return len(b.Readable)+len(b.Writable)+len(b.Notifiable)+len(b.ReadWrite) == 0
}

// Find returns the first characteristic in any bucket whose UUID matches uuid.
func (b Buckets) Find(uuid string) device.Characteristic {
	for _, bucket := range [][]device.Characteristic{b.ReadWrite, b.Writable, b.Readable, b.Notifiable} {
		for _, c := range bucket {
			if device.EqualUUID(c.UUID(), uuid) {
				return c
			}
		}
	}
	return nil
}
