package utility

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/labstack/echo/v4"
)

// IPExtractor picks how echo resolves c.RealIP(). By default the TCP peer address is
// used and forwarding headers are ignored, since any client can set them. With
// trustProxy, the X-Forwarded-For chain is walked from the right and only hops from
// loopback, link-local and private networks are skipped.
func IPExtractor(trustProxy bool) echo.IPExtractor {
	if trustProxy {
		return echo.ExtractIPFromXFFHeader()
	}
	return echo.ExtractIPDirect()
}

// GenerateSecureToken returns length random bytes, hex encoded.
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
