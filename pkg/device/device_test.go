package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		ua   string
		want Class
	}{
		{"iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", ClassMobile},
		{"android phone", "Mozilla/5.0 (Linux; Android 14; Pixel 8) Mobile Safari/537.36", ClassMobile},
		{"android tablet also counts mobile", "Mozilla/5.0 (Linux; Android 14; SM-X910) Safari/537.36", ClassMobile},
		{"ipad", "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X)", ClassTablet},
		{"kindle silk", "Mozilla/5.0 (X11; ; Silk/3.0) Tablet", ClassTablet},
		{"windows desktop", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", ClassDesktop},
		{"mac desktop", "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0)", ClassDesktop},
		{"empty", "", ClassUnknown},
		{"curl", "curl/8.4.0", ClassUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Detect(tc.ua))
		})
	}
}

func TestExtractLocation(t *testing.T) {
	loc := ExtractLocation("Unter den Linden 1, Berlin, Germany")
	assert.Equal(t, "Berlin", loc.City)
	assert.Equal(t, "Germany", loc.Country)

	loc = ExtractLocation("Paris, France")
	assert.Equal(t, "Paris", loc.City)
	assert.Equal(t, "France", loc.Country)

	loc = ExtractLocation("Atlantis")
	assert.Equal(t, "Unknown", loc.City)
	assert.Equal(t, "Unknown", loc.Country)

	loc = ExtractLocation("")
	assert.Equal(t, "Unknown", loc.City)
}
