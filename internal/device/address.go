package device

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatAddress renders a 48-bit Bluetooth address held in the low bytes of a
// uint64 as a colon separated MAC string ("aa:bb:cc:dd:ee:ff").
func FormatAddress(addr uint64) string {
	b := make([]string, 6)
	for i := 0; i < 6; i++ {
		b[5-i] = fmt.Sprintf("%02x", byte(addr>>(8*i)))
	}
	return strings.Join(b, ":")
}

// ParseAddress is the inverse of FormatAddress. It accepts colon, dash or no
// separators.
func ParseAddress(s string) (uint64, error) {
	clean := strings.NewReplacer(":", "", "-", "").Replace(strings.TrimSpace(s))
	if len(clean) != 12 {
		return 0, fmt.Errorf("%w: bluetooth address %q must have 6 octets", ErrInvalidArgument, s)
	}
	v, err := strconv.ParseUint(clean, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bluetooth address %q: %v", ErrInvalidArgument, s, err)
	}
	return v, nil
}
