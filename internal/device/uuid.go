package device

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PrimaryReadWriteUUID is the serial data characteristic exposed by HM-10 style
// UART bridges. A characteristic with this UUID is the preferred default write
// channel regardless of its declared properties.
const PrimaryReadWriteUUID = "0000ffe1-0000-1000-8000-00805f9b34fb"

// sigBase is the Bluetooth SIG base UUID 0000xxxx-0000-1000-8000-00805f9b34fb.
var sigBase = uuid.MustParse("00000000-0000-1000-8000-00805f9b34fb")

// NormalizeUUID converts a UUID string to the internal form: lowercase hex, no dashes.
// A 0x prefix and surrounding braces are stripped. Full 128-bit UUIDs built on the
// Bluetooth SIG base collapse to their 16-bit short form ("0000180d-0000-1000-8000-00805f9b34fb"
// becomes "180d"). Returns an empty string when the input is not a UUID.
func NormalizeUUID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "0x")

	if (len(s) == 4 || len(s) == 8) && isHex(s) {
		if len(s) == 8 && strings.HasPrefix(s, "0000") {
			return s[4:]
		}
		return s
	}

	u, err := uuid.Parse(s)
	if err != nil {
		return ""
	}

	if isSIGBased(u) {
		if u[0] == 0 && u[1] == 0 {
			return hex.EncodeToString(u[2:4])
		}
		return hex.EncodeToString(u[0:4])
	}
	return hex.EncodeToString(u[:])
}

// NormalizeUUIDs normalizes a slice of UUID strings, dropping invalid entries.
func NormalizeUUIDs(uuids []string) []string {
	result := make([]string, 0, len(uuids))
	for _, u := range uuids {
		if n := NormalizeUUID(u); n != "" {
			result = append(result, n)
		}
	}
	return result
}

// ExpandUUID returns the canonical dashed 128-bit form of a UUID, expanding
// 16 and 32-bit short forms onto the SIG base.
func ExpandUUID(s string) (string, error) {
	n := NormalizeUUID(s)
	switch len(n) {
	case 0:
		return "", fmt.Errorf("%w: invalid UUID %q", ErrInvalidArgument, s)
	case 4, 8:
		b, _ := hex.DecodeString(n)
		u := sigBase
		copy(u[4-len(b):4], b)
		return u.String(), nil
	default:
		u, err := uuid.Parse(n)
		if err != nil {
			return "", fmt.Errorf("%w: invalid UUID %q", ErrInvalidArgument, s)
		}
		return u.String(), nil
	}
}

// EqualUUID reports whether two UUID strings denote the same UUID in any accepted form.
func EqualUUID(a, b string) bool {
	na, nb := NormalizeUUID(a), NormalizeUUID(b)
	return na != "" && na == nb
}

// ShortenUUID returns a truncated version of a UUID for display purposes.
// Returns the first eight characters for long UUIDs and short UUIDs by themselves.
func ShortenUUID(uuid string) string {
	if len(uuid) > 8 {
		return uuid[:8]
	}
	return uuid
}

// ValidateUUID validates that UUID strings are non-empty and well-formed.
// Returns normalized UUID strings or an error.
func ValidateUUID(uuids ...string) ([]string, error) {
	if len(uuids) == 0 {
		return nil, fmt.Errorf("%w: at least one UUID is required", ErrInvalidArgument)
	}

	result := make([]string, 0, len(uuids))
	for i, u := range uuids {
		if u == "" {
			return nil, fmt.Errorf("%w: UUID at index %d cannot be empty", ErrInvalidArgument, i)
		}
		normalized := NormalizeUUID(u)
		if normalized == "" {
			return nil, fmt.Errorf("%w: invalid UUID format at index %d: %s", ErrInvalidArgument, i, u)
		}
		result = append(result, normalized)
	}
	return result, nil
}

func isSIGBased(u uuid.UUID) bool {
	for i := 4; i < 16; i++ {
		if u[i] != sigBase[i] {
			return false
		}
	}
	return true
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}
