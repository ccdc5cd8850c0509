package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1F47E/earthgrid/pkg/models"
	"github.com/1F47E/earthgrid/pkg/overlay"
)

var _ overlay.LiveSource = (*Client)(nil)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pollution", r.URL.Path)
		assert.Equal(t, "28.6", r.URL.Query().Get("lat"))
		assert.Equal(t, "77.2", r.URL.Query().Get("lon"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"pollution_grid": [{"lat": 28.6, "lon": 77.2, "intensity": 0.95}, {"lat": 28.7, "lon": 77.3, "intensity": 0.4}],
			"monitoring_stations": [{"id": "dl-1", "name": "Anand Vihar", "lat": 28.65, "lon": 77.31, "aqi": 312}]
		}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/", time.Second)
	require.NoError(t, err)

	data, err := c.Fetch(context.Background(), models.Location{Lat: 28.6, Lon: 77.2})
	require.NoError(t, err)
	require.Len(t, data.Points, 2)
	assert.Equal(t, 0.95, data.Points[0].Intensity)
	require.Len(t, data.Stations, 1)
	assert.Equal(t, 312, data.Stations[0].AQI)
}

func TestFetchErrors(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"pollution_grid": [`))
		}},
		{"slow", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			c, err := NewClient(srv.URL, 200*time.Millisecond)
			require.NoError(t, err)

			_, err = c.Fetch(context.Background(), models.Location{Lat: 1, Lon: 1})
			assert.ErrorIs(t, err, ErrFetch)
		})
	}
}

func TestFetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Fetch(ctx, models.Location{})
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClientValidatesURL(t *testing.T) {
	_, err := NewClient("ftp://example.com", time.Second)
	assert.Error(t, err)
	_, err = NewClient("://bad", time.Second)
	assert.Error(t, err)
}
