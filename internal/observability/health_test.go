package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
)

func TestHealthCheckHandler(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthCheckHandler()(recorder, httptest.NewRequest("GET", "/health", nil))

	if recorder.Code != 200 {
		t.Errorf("Expected 200, got %d", recorder.Code)
	}

	var status HealthStatus
	if err := json.Unmarshal(recorder.Body.Bytes(), &status); err != nil {
		t.Fatalf("Invalid response body: %v", err)
	}
	if status.Status != "healthy" {
		t.Errorf("Expected healthy, got '%s'", status.Status)
	}
}

// credentialCheck mirrors the startup readiness check: ready only when the
// required credential is present.
func credentialCheck(key string) HealthCheckFunc {
	return func(ctx context.Context) (bool, error) {
		if key == "" {
			return false, fmt.Errorf("API key is not set")
		}
		return true, nil
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name       string
		apiKey     string
		wantCode   int
		wantStatus string
	}{
		{"missing credential", "", 503, "not_ready"},
		{"credential present", "sk-test", 200, "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checks := map[string]HealthCheckFunc{
				"synth": credentialCheck(tt.apiKey),
			}

			recorder := httptest.NewRecorder()
			ReadinessHandler(checks)(recorder, httptest.NewRequest("GET", "/ready", nil))

			if recorder.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d", tt.wantCode, recorder.Code)
			}

			var status HealthStatus
			if err := json.Unmarshal(recorder.Body.Bytes(), &status); err != nil {
				t.Fatalf("Invalid response body: %v", err)
			}
			if status.Status != tt.wantStatus {
				t.Errorf("Expected '%s', got '%s'", tt.wantStatus, status.Status)
			}
			if dep, ok := status.Dependencies["synth"]; !ok {
				t.Error("Expected synth dependency in response")
			} else if tt.apiKey == "" && dep.Status != "unhealthy" {
				t.Errorf("Expected unhealthy dependency, got '%s'", dep.Status)
			}
		})
	}
}
