package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"salesdash/internal/dataprocessing"
)

func TestHealthService_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		loaded     bool
		wantStatus string
	}{
		{"loaded", true, "ready"},
		{"not loaded", false, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := new(MockTableSource)
			if tt.loaded {
				source.On("Report", testPath).Return(&dataprocessing.LoadReport{Source: testPath, Format: "csv", Encoding: "latin1", Rows: 1000}, true)
			} else {
				source.On("Report", testPath).Return(nil, false)
			}

			hs := NewHealthService("v1.0.0", "", testPath, source, nil)
			status := hs.ReadinessCheck(context.Background())

			assert.Equal(t, tt.wantStatus, status.Status)
			data, ok := status.Services["data"].(ServiceHealth)
			assert.True(t, ok)
			assert.Equal(t, tt.wantStatus, data.Status)
			if tt.loaded {
				assert.Equal(t, 1000, data.Rows)
			}
			source.AssertExpectations(t)
		})
	}
}

func TestHealthService_NilTables(t *testing.T) {
	hs := NewHealthService("dev", "", testPath, nil, nil)
	assert.Equal(t, "not_ready", hs.ReadinessCheck(context.Background()).Status)
}

func TestHealthService_LivenessAndVersion(t *testing.T) {
	hs := NewHealthService("v1.2.3", "2026-01-01T00:00:00Z", testPath, new(MockTableSource), nil)

	assert.Equal(t, "ok", hs.HealthCheck(context.Background()).Status)

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")

	v := hs.Version()
	assert.Equal(t, "v1.2.3", v["version"])
	assert.Equal(t, "2026-01-01T00:00:00Z", v["build_time"])
	assert.Equal(t, "v1", v["api_version"])
	assert.NotContains(t, NewHealthService("dev", "", testPath, nil, nil).Version(), "build_time")
}
