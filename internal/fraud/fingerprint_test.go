package fraud

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashTraitsOrderAndSeparator(t *testing.T) {
	traits := DeviceTraits{
		Screen: "1920x1080", ColorDepth: "24", PixelDepth: "24",
		TimeZone: "America/Chicago", TimezoneOffset: "300",
		Language: "en-US", Languages: "en-US,en",
		Platform: "MacIntel", HardwareConcurrency: "8",
		CookieEnabled: true, LocalStorage: true, SessionStorage: true, IndexedDB: true,
		WebGLVendor: "Apple", WebGLRenderer: "M1",
		Canvas: "data:x",
	}
	joined := "1920x1080|||24|||24|||America/Chicago|||300|||en-US|||en-US,en|||MacIntel|||8|||unknown|||" +
		"true|||true|||true|||true|||Apple|||M1|||data:x"
	sum := sha256.Sum256([]byte(joined))
	assert.Equal(t, hex.EncodeToString(sum[:]), HashTraits(traits))

	traits.WebGLVendor, traits.WebGLRenderer = "", ""
	assert.NotEqual(t, hex.EncodeToString(sum[:]), HashTraits(traits))
	assert.Len(t, HashTraits(traits), 64)
}

func TestFingerprintMemoizedPerSession(t *testing.T) {
	c := newCollector(nil, nil)
	first := c.Fingerprint("session-1", DeviceTraits{Screen: "800x600"})
	drifted := c.Fingerprint("session-1", DeviceTraits{Screen: "1024x768"})
	assert.Equal(t, first, drifted)

	other := c.Fingerprint("session-2", DeviceTraits{Screen: "1024x768"})
	assert.NotEqual(t, first, other)
	assert.Equal(t, other, c.Fingerprint("", DeviceTraits{Screen: "1024x768"}))
}
