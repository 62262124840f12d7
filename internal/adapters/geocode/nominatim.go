package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

const (
	// Nominatim usage policy requires an identifying agent and at most one
	// request per second.
	nominatimAgent       = "imed-dz/1.0"
	nominatimMinInterval = time.Second
)

// NominatimClient resolves coordinates against a Nominatim instance.
type NominatimClient struct {
	baseURL string
	client  *http.Client

	mu       sync.Mutex
	lastCall time.Time
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// NewNominatimClient creates a client for the given base URL, e.g.
// "https://nominatim.openstreetmap.org".
func NewNominatimClient(baseURL string, timeout time.Duration) *NominatimClient {
	return &NominatimClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Reverse resolves one coordinate to a display address.
func (n *NominatimClient) Reverse(ctx context.Context, coord domain.Coordinate) (string, error) {
	n.throttle()

	endpoint := fmt.Sprintf("%s/reverse?format=jsonv2&lat=%s&lon=%s",
		n.baseURL,
		url.QueryEscape(fmt.Sprintf("%.6f", coord.Lat)),
		url.QueryEscape(fmt.Sprintf("%.6f", coord.Lng)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	req.Header.Set("User-Agent", nominatimAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP status %d", ErrRemoteUnavailable, resp.StatusCode)
	}

	var parsed nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if parsed.Error != "" || parsed.DisplayName == "" {
		return "", ErrAddressNotFound
	}
	return parsed.DisplayName, nil
}

// throttle enforces the one request per second policy.
func (n *NominatimClient) throttle() {
	n.mu.Lock()
	defer n.mu.Unlock()

	elapsed := time.Since(n.lastCall)
	if elapsed < nominatimMinInterval {
		time.Sleep(nominatimMinInterval - elapsed)
	}
	n.lastCall = time.Now()
}
