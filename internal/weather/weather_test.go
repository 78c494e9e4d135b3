package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("current_weather") != "true" {
			t.Errorf("missing current_weather parameter: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"current_weather":{"temperature":21.5,"weathercode":2}}`))
	}))
	defer srv.Close()

	c := NewWithBaseURL(srv.URL)
	report, err := c.Fetch(context.Background(), Location{Name: "東京", Lat: 35.6762, Lon: 139.6503})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if report.Temperature != 21.5 {
		t.Errorf("Temperature = %v, want 21.5", report.Temperature)
	}
	if report.Label() != "晴れ時々くもり" {
		t.Errorf("Label() = %q", report.Label())
	}
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewWithBaseURL(srv.URL)
	if _, err := c.Fetch(context.Background(), DefaultLocations[0]); err == nil {
		t.Fatal("Fetch should return an error on a non-200 response")
	}
}

func TestLabelBuckets(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "快晴"},
		{3, "晴れ時々くもり"},
		{61, "雨"},
		{75, "雪"},
		{95, "雷雨"},
	}
	for _, tt := range tests {
		got := Report{WeatherCode: tt.code}.Label()
		if got != tt.want {
			t.Errorf("Label(code=%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
