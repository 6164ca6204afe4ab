package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{name: "default timeout", timeout: 0, expectedTimeout: 5 * time.Second},
		{name: "custom timeout", timeout: 10 * time.Second, expectedTimeout: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(tt.timeout)
			if checker.checkTimeout != tt.expectedTimeout {
				t.Errorf("expected timeout %v, got %v", tt.expectedTimeout, checker.checkTimeout)
			}
			if len(checker.ListChecks()) != 0 {
				t.Error("expected no checks")
			}
		})
	}
}

func TestRegisterCheck_Replaces(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("upstream", func(ctx context.Context) error { return errors.New("down") })
	checker.RegisterCheck("upstream", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("history", func(ctx context.Context) error { return nil })

	if got := checker.ListChecks(); !reflect.DeepEqual(got, []string{"history", "upstream"}) {
		t.Errorf("ListChecks() = %v", got)
	}
	if report := checker.CheckReadiness(context.Background()); !report.Ready() {
		t.Errorf("expected ready, got %+v", report)
	}
}

func TestCheckReadiness_NoChecks(t *testing.T) {
	report := New(time.Second).CheckReadiness(context.Background())
	if report.Status != StatusReady {
		t.Errorf("Status = %q, want ready", report.Status)
	}
}

func TestCheckReadiness_SomeUnhealthy(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("history", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("upstream", func(ctx context.Context) error { return errors.New("ACCESS_BLOCKED") })

	report := checker.CheckReadiness(context.Background())

	if report.Ready() {
		t.Fatal("expected not ready")
	}
	if report.Checks["history"].Status != StatusOK {
		t.Errorf("history = %+v", report.Checks["history"])
	}
	upstream := report.Checks["upstream"]
	if upstream.Status != StatusUnhealthy || upstream.Message != "ACCESS_BLOCKED" {
		t.Errorf("upstream = %+v", upstream)
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	checker := New(20 * time.Millisecond)
	release := make(chan struct{})
	defer close(release)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		<-release
		return nil
	})

	start := time.Now()
	report := checker.CheckReadiness(context.Background())

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("readiness took %v, want the check timeout", elapsed)
	}
	if got := report.Checks["slow"].Message; got != ErrCheckTimeout.Error() {
		t.Errorf("message = %q, want timeout", got)
	}
}

func TestVersionHandler(t *testing.T) {
	handler := VersionHandler(NewVersionInfo("1.2.0", "abc123", "2026-01-10"))

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Version != "1.2.0" || info.Commit != "abc123" || info.GoVersion == "" {
		t.Errorf("info = %+v", info)
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/version", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}
