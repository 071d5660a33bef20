package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tankyou/internal/services"
	"tankyou/internal/shared/testutil"
)

type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

func TestHealthHandler(t *testing.T) {
	now := time.Now()
	svc := new(MockHealthService)
	svc.On("HealthCheck").Return(services.HealthStatus{Status: "degraded", Timestamp: now, Version: "1.0.0"})
	svc.On("LivenessCheck").Return(services.HealthStatus{Status: "alive", Timestamp: now, Version: "1.0.0"})
	svc.On("Version").Return(map[string]interface{}{"version": "1.0.0"})

	logger, _ := testutil.NewTestLogger(t)
	router := NewHealthHandler(svc, logger).Routes()

	tests := []struct {
		target     string
		wantStatus string
	}{
		{target: "/", wantStatus: "degraded"},
		{target: "/live", wantStatus: "alive"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := serve(router, http.MethodGet, tt.target)
			require.Equal(t, http.StatusOK, rec.Code)

			var got services.HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, "1.0.0", got.Version)
		})
	}

	rec := serve(router, http.MethodGet, "/version")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"version":"1.0.0"}`, rec.Body.String())

	svc.AssertExpectations(t)
}
