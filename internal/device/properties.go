package device

import "strings"

// Properties is the capability bitmask of a characteristic. Values follow the
// GATT characteristic properties octet, extended with the reliable-write and
// writable-auxiliaries bits from the extended properties descriptor.
type Properties uint16

const (
	PropBroadcast                 Properties = 0x0001
	PropRead                      Properties = 0x0002
	PropWriteWithoutResponse      Properties = 0x0004
	PropWrite                     Properties = 0x0008
	PropNotify                    Properties = 0x0010
	PropIndicate                  Properties = 0x0020
	PropAuthenticatedSignedWrites Properties = 0x0040
	PropExtendedProperties        Properties = 0x0080
	PropReliableWrites            Properties = 0x0100
	PropWritableAuxiliaries       Properties = 0x0200
)

var propertyNames = []struct {
	flag Properties
	name string
}{
	{PropBroadcast, "broadcast"},
	{PropRead, "read"},
	{PropWriteWithoutResponse, "write-without-response"},
	{PropWrite, "write"},
	{PropNotify, "notify"},
	{PropIndicate, "indicate"},
	{PropAuthenticatedSignedWrites, "signed-write"},
	{PropExtendedProperties, "extended"},
	{PropReliableWrites, "reliable-write"},
	{PropWritableAuxiliaries, "writable-auxiliaries"},
}

// Has reports whether all bits of flag are set.
func (p Properties) Has(flag Properties) bool {
	return p&flag == flag
}

// Any reports whether at least one bit of flags is set.
func (p Properties) Any(flags Properties) bool {
	return p&flags != 0
}

// Names returns the known names of the set bits in bit order.
func (p Properties) Names() []string {
	var names []string
	for _, pn := range propertyNames {
		if p.Has(pn.flag) {
			names = append(names, pn.name)
		}
	}
	return names
}

func (p Properties) String() string {
	return strings.Join(p.Names(), ",")
}

// ParseProperties parses a comma separated list of property names such as
// "read,write,notify". Unknown names are ignored; the short aliases
// "write-nr" and "wnr" map to write-without-response.
func ParseProperties(s string) Properties {
	var p Properties
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "write-nr", "wnr":
			p |= PropWriteWithoutResponse
			continue
		case "reliable":
			p |= PropReliableWrites
			continue
		}
		for _, pn := range propertyNames {
			if pn.name == part {
				p |= pn.flag
			}
		}
	}
	return p
}
