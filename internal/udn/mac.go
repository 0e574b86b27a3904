package udn

import (
	"fmt"
	"strings"
)

// NormalizeMAC converts a MAC address in colon, dash or bare form into
// lowercase colon-separated pairs (aa:bb:cc:dd:ee:ff).
func NormalizeMAC(mac string) (string, error) {
	clean := strings.NewReplacer(":", "", "-", "").Replace(mac)
	if len(clean) != 12 {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, mac)
	}

	clean = strings.ToLower(clean)
	for _, c := range clean {
		if !(c >= '0' && c <= '9') && !(c >= 'a' && c <= 'f') {
			return "", fmt.Errorf("%w: %q", ErrInvalidFormat, mac)
		}
	}

	var b strings.Builder
	b.Grow(17)
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(clean[i : i+2])
	}
	return b.String(), nil
}
