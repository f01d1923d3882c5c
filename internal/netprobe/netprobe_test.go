package netprobe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPProbe(t *testing.T) {
	t.Run("returns the reported ip", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ip":"203.0.113.7"}`))
		}))
		defer srv.Close()

		p := NewHTTPProbe(srv.URL, "Campus-Net-01", quietLogger())
		assert.Equal(t, "203.0.113.7", p.Fingerprint(context.Background()))
	})

	t.Run("falls back on server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		p := NewHTTPProbe(srv.URL, "Campus-Net-01", quietLogger())
		assert.Equal(t, "Campus-Net-01", p.Fingerprint(context.Background()))
	})

	t.Run("falls back on malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ip":""}`))
		}))
		defer srv.Close()

		p := NewHTTPProbe(srv.URL, "Campus-Net-01", quietLogger())
		assert.Equal(t, "Campus-Net-01", p.Fingerprint(context.Background()))
	})

	t.Run("falls back when unreachable", func(t *testing.T) {
		p := NewHTTPProbe("http://127.0.0.1:1/", "Campus-Net-01", quietLogger())
		assert.Equal(t, "Campus-Net-01", p.Fingerprint(context.Background()))
	})
}

func TestFromRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("header wins", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
		c.Request.Header.Set(Header, "10.0.0.5")
		assert.Equal(t, "10.0.0.5", FromRequest(c))
	})

	t.Run("client ip otherwise", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
		c.Request.RemoteAddr = "192.0.2.10:5555"
		assert.Equal(t, "192.0.2.10", FromRequest(c))
	})
}
