package fraud

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DeviceTraits are the browser characteristics a client reports at signup.
// Values are taken verbatim as the browser rendered them.
type DeviceTraits struct {
	Screen              string `json:"screen"` // "1920x1080"
	ColorDepth          string `json:"color_depth"`
	PixelDepth          string `json:"pixel_depth"`
	TimeZone            string `json:"time_zone"`
	TimezoneOffset      string `json:"timezone_offset"`
	Language            string `json:"language"`
	Languages           string `json:"languages"`
	Platform            string `json:"platform"`
	HardwareConcurrency string `json:"hardware_concurrency"`
	DeviceMemory        string `json:"device_memory"`
	CookieEnabled       bool   `json:"cookie_enabled"`
	LocalStorage        bool   `json:"local_storage"`
	SessionStorage      bool   `json:"session_storage"`
	IndexedDB           bool   `json:"indexed_db"`
	WebGLVendor         string `json:"webgl_vendor,omitempty"`
	WebGLRenderer       string `json:"webgl_renderer,omitempty"`
	Canvas              string `json:"canvas"`
}

// components lists the traits in their fixed hashing order.  The WebGL pair
// is only present when the browser exposed it.
func (t DeviceTraits) components() []string {
	c := []string{
		t.Screen, t.ColorDepth, t.PixelDepth,
		t.TimeZone, t.TimezoneOffset,
		t.Language, t.Languages,
		t.Platform, orUnknown(t.HardwareConcurrency), orUnknown(t.DeviceMemory),
		boolString(t.CookieEnabled), boolString(t.LocalStorage), boolString(t.SessionStorage), boolString(t.IndexedDB),
	}
	if t.WebGLVendor != "" || t.WebGLRenderer != "" {
		c = append(c, t.WebGLVendor, t.WebGLRenderer)
	}
	return append(c, t.Canvas)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// HashTraits returns the hex SHA-256 of the traits joined by "|||".
func HashTraits(t DeviceTraits) string {
	sum := sha256.Sum256([]byte(strings.Join(t.components(), "|||")))
	return hex.EncodeToString(sum[:])
}

// fingerprints memoizes one fingerprint per session, so a session keeps the
// value it first computed even if a later request reports drifted traits.
type fingerprints struct {
	memo *lru.Cache[string, string]
}

func newFingerprints(size int) *fingerprints {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, string](size) // only fails for size <= 0
	return &fingerprints{memo: c}
}

func (f *fingerprints) get(session string, t DeviceTraits) string {
	if session == "" {
		return HashTraits(t)
	}
	if fp, ok := f.memo.Get(session); ok {
		return fp
	}
	fp := HashTraits(t)
	f.memo.Add(session, fp)
	return fp
}
