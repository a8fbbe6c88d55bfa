package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hammamikhairi/concierge/internal/domain"
	"github.com/hammamikhairi/concierge/internal/logger"
)

// Compile-time interface check.
var _ domain.Locator = (*IPLocator)(nil)

// DefaultIPLookupURL is an ip-api.com compatible endpoint.
const DefaultIPLookupURL = "http://ip-api.com/json/?fields=status,message,lat,lon,city"

// IPLocator estimates the position from the public IP address. It stands
// in for a device GPS on desktops.
type IPLocator struct {
	url        string
	httpClient *http.Client
	log        *logger.Logger
}

// NewIPLocator creates a locator against url, or DefaultIPLookupURL if
// url is empty.
func NewIPLocator(url string, timeout time.Duration, log *logger.Logger) *IPLocator {
	if url == "" {
		url = DefaultIPLookupURL
	}
	return &IPLocator{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type ipResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	City    string   `json:"city"`
}

// CurrentPosition performs one lookup.
func (l *IPLocator) CurrentPosition(ctx context.Context) (domain.LocationFix, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return domain.LocationFix{}, fmt.Errorf("location: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return domain.LocationFix{}, fmt.Errorf("location: lookup: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.LocationFix{}, fmt.Errorf("location: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.LocationFix{}, fmt.Errorf("location: lookup returned %d", resp.StatusCode)
	}

	var r ipResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return domain.LocationFix{}, fmt.Errorf("location: decoding response: %w", err)
	}
	if r.Status != "" && r.Status != "success" {
		return domain.LocationFix{}, fmt.Errorf("location: lookup failed: %s", r.Message)
	}
	if r.Lat == nil || r.Lon == nil {
		return domain.LocationFix{}, fmt.Errorf("location: response missing coordinates")
	}

	l.log.Debug("ip lookup resolved to %s (%.4f,%.4f)", r.City, *r.Lat, *r.Lon)
	return domain.LocationFix{
		Latitude:   *r.Lat,
		Longitude:  *r.Lon,
		CapturedAt: time.Now(),
	}, nil
}
