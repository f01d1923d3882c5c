package netprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Header lets a client report its own network fingerprint.
const Header = "X-Network-Fingerprint"

// Probe reports the current network fingerprint. It never fails; on error it
// returns a placeholder label, which still compares by plain string equality.
type Probe interface {
	Fingerprint(ctx context.Context) string
}

// HTTPProbe asks an ipify-style service for the public address.
type HTTPProbe struct {
	URL      string
	Fallback string
	HTTP     *http.Client
	Logger   *slog.Logger
}

// NewHTTPProbe creates a probe with a short timeout.
func NewHTTPProbe(url, fallback string, logger *slog.Logger) *HTTPProbe {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPProbe{
		URL:      url,
		Fallback: fallback,
		HTTP:     &http.Client{Timeout: 5 * time.Second},
		Logger:   logger,
	}
}

func (p *HTTPProbe) Fingerprint(ctx context.Context) string {
	ip, err := p.lookup(ctx)
	if err != nil {
		p.Logger.WarnContext(ctx, "network probe failed, using fallback", "error", err, "fallback", p.Fallback)
		return p.Fallback
	}
	return ip
}

func (p *HTTPProbe) lookup(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("probe request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("probe error %s", resp.Status)
	}
	var out struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode probe response: %w", err)
	}
	if strings.TrimSpace(out.IP) == "" {
		return "", fmt.Errorf("probe returned no ip")
	}
	return out.IP, nil
}

// FromRequest is the fingerprint of an API caller: the self-reported header
// when present, otherwise the client address gin resolves. Because callers
// can set the header to any value, a network lock is advisory: it keeps
// honest clients on the campus network but does not stop a forged header.
func FromRequest(c *gin.Context) string {
	if v := strings.TrimSpace(c.GetHeader(Header)); v != "" {
		return v
	}
	return c.ClientIP()
}
