package location

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hammamikhairi/concierge/internal/domain"
	"github.com/hammamikhairi/concierge/internal/logger"
)

type failingLocator struct{}

func (failingLocator) CurrentPosition(context.Context) (domain.LocationFix, error) {
	return domain.LocationFix{}, errors.New("gps off")
}

func TestProviderRefresh(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	p := NewProvider(NewStatic(48.8584, 2.2945), log)

	if _, ok := p.Current(); ok {
		t.Fatal("expected no fix before refresh")
	}
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	fix, ok := p.Current()
	if !ok {
		t.Fatal("expected a fix after refresh")
	}
	if fix.Latitude != 48.8584 || fix.Longitude != 2.2945 {
		t.Fatalf("unexpected fix %+v", fix)
	}
	if fix.CapturedAt.IsZero() {
		t.Fatal("fix should carry a timestamp")
	}
}

func TestProviderRefreshFailure(t *testing.T) {
	p := NewProvider(failingLocator{}, logger.New(logger.LevelOff, nil))

	err := p.Refresh(context.Background())
	if !errors.Is(err, domain.ErrLocationUnavailable) {
		t.Fatalf("expected ErrLocationUnavailable, got %v", err)
	}
	if _, ok := p.Current(); ok {
		t.Fatal("failed refresh must leave no fix")
	}
}

func TestIPLocator(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
		lat     float64
	}{
		{"success", http.StatusOK, `{"status":"success","lat":31.2304,"lon":121.4737,"city":"Shanghai"}`, false, 31.2304},
		{"lookup failed", http.StatusOK, `{"status":"fail","message":"private range"}`, true, 0},
		{"missing coordinates", http.StatusOK, `{"status":"success"}`, true, 0},
		{"server error", http.StatusInternalServerError, `oops`, true, 0},
		{"malformed", http.StatusOK, `{`, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			l := NewIPLocator(srv.URL, time.Second, logger.New(logger.LevelOff, nil))
			fix, err := l.CurrentPosition(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got fix %+v", fix)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fix.Latitude != tt.lat {
				t.Fatalf("expected latitude %v, got %v", tt.lat, fix.Latitude)
			}
		})
	}
}
