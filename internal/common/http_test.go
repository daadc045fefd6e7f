package common

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:4512"
	require.Equal(t, "203.0.113.7", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	require.Equal(t, "198.51.100.2", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "192.0.2.1, 10.0.0.1")
	require.Equal(t, "192.0.2.1", ClientIP(req))
}

func TestAtoiDefault(t *testing.T) {
	require.Equal(t, 5, AtoiDefault("", 5))
	require.Equal(t, 5, AtoiDefault("abc", 5))
	require.Equal(t, 12, AtoiDefault("12", 5))
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders?page=3&limit=10", nil)
	page, perPage := ParsePagination(req, 20)
	require.Equal(t, 3, page)
	require.Equal(t, 10, perPage)

	req = httptest.NewRequest(http.MethodGet, "/orders?page=-1&limit=0", nil)
	page, perPage = ParsePagination(req, 20)
	require.Equal(t, 1, page)
	require.Equal(t, 20, perPage)

	req = httptest.NewRequest(http.MethodGet, "/orders", nil)
	page, perPage = ParsePagination(req, 20)
	require.Equal(t, 1, page)
	require.Equal(t, 20, perPage)
}
