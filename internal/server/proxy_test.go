package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPExtractor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		trusted []string
		remote  string
		xff     string
		want    string
	}{
		{
			name:   "no trusted proxies ignores forwarding headers",
			remote: "203.0.113.5:4000",
			xff:    "198.51.100.1",
			want:   "203.0.113.5",
		},
		{
			name:    "trusted proxy forwards client address",
			trusted: []string{"10.0.0.0/8"},
			remote:  "10.1.2.3:4000",
			xff:     "198.51.100.1",
			want:    "198.51.100.1",
		},
		{
			name:    "untrusted peer cannot spoof",
			trusted: []string{"10.0.0.1"},
			remote:  "203.0.113.5:4000",
			xff:     "198.51.100.1",
			want:    "203.0.113.5",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			extract, err := IPExtractor(test.trusted)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = test.remote
			req.Header.Set(echo.HeaderXForwardedFor, test.xff)
			assert.Equal(t, test.want, extract(req))
		})
	}

	_, err := IPExtractor([]string{"not-an-ip"})
	require.Error(t, err)
}
