package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDefaultKeyFunc(t *testing.T) {
	tests := []struct {
		name      string
		keyHeader string
		trustXFF  bool
		headers   map[string]string
		remote    string
		want      string
	}{
		{"header preferred", "X-Client", false, map[string]string{"X-Client": " client-123 "}, "10.0.0.1:1234", "client-123"},
		{"blank header falls through", "X-Client", false, map[string]string{"X-Client": "  "}, "10.0.0.1:1234", "10.0.0.1"},
		{"first forwarded address", "", true, map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, "10.0.0.9:5555", "1.2.3.4"},
		{"forwarded ignored when untrusted", "", false, map[string]string{"X-Forwarded-For": "1.2.3.4"}, "10.0.0.9:5555", "10.0.0.9"},
		{"empty forwarded entry", "", true, map[string]string{"X-Forwarded-For": " , 5.6.7.8"}, "10.0.0.9:5555", "10.0.0.9"},
		{"ipv6 remote", "", false, nil, "[2001:db8::1]:443", "2001:db8::1"},
		{"remote without port", "", false, nil, "10.0.0.7", "10.0.0.7"},
		{"nothing known", "", false, nil, "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			if got := DefaultKeyFunc(tt.keyHeader, tt.trustXFF)(r); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrefixKeyFunc(t *testing.T) {
	fn := PrefixKeyFunc("fw:", DefaultKeyFunc("", false))

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.1:1234"

	if got := fn(r); got != "fw:10.0.0.1" {
		t.Errorf("got %q, want %q", got, "fw:10.0.0.1")
	}
}
