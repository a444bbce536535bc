package apiclient

import (
	"net/http"
	"testing"

	"github.com/hitoshi/investdesk/internal/model"
)

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		want    Outcome
	}{
		{"401", http.StatusUnauthorized, "Invalid token", OutcomeUnauthorized},
		{"403 suspended", http.StatusForbidden, "Account suspended for review", OutcomeSuspended},
		{"403 SUSPENDED", http.StatusForbidden, "ACCOUNT SUSPENDED", OutcomeSuspended},
		{"403 other", http.StatusForbidden, "Forbidden", OutcomeGeneric},
		{"503", http.StatusServiceUnavailable, "", OutcomeMaintenance},
		{"500", http.StatusInternalServerError, "boom", OutcomeGeneric},
		{"400", http.StatusBadRequest, "Invalid amount", OutcomeGeneric},
		{"suspended on 400", http.StatusBadRequest, "suspended", OutcomeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyResponse(tt.status, tt.message); got != tt.want {
				t.Errorf("ClassifyResponse(%d, %q) = %v, want %v", tt.status, tt.message, got, tt.want)
			}
		})
	}
}

func TestNewResponseError(t *testing.T) {
	body := []byte(`{"message":"Invalid credentials"}`)
	apiErr := newResponseError(http.StatusBadRequest, "Invalid credentials", body)

	if apiErr.Code != model.ErrCodeRequest {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeRequest)
	}
	if apiErr.Message != "Invalid credentials" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Category != "validation" {
		t.Errorf("Category = %q, want validation", apiErr.Category)
	}
	if string(apiErr.Data) != string(body) {
		t.Errorf("Data = %s", apiErr.Data)
	}

	fallback := newResponseError(http.StatusInternalServerError, "", nil)
	if fallback.Message != model.MessageGenericFailure {
		t.Errorf("フォールバック文言が使われていません: %q", fallback.Message)
	}
	if fallback.Category != "system" {
		t.Errorf("Category = %q, want system", fallback.Category)
	}

	if got := newResponseError(http.StatusServiceUnavailable, "", nil).Code; got != model.ErrCodeMaintenance {
		t.Errorf("503のCode = %q", got)
	}
	if got := newResponseError(http.StatusForbidden, "Account suspended", nil).Code; got != model.ErrCodeSuspended {
		t.Errorf("403停止のCode = %q", got)
	}
}

func TestIsLoginRequest(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/auth/login", true},
		{"/auth/login/", true},
		{"/api/auth/login", true},
		{"/auth/login?redirect=1", true},
		{"/auth/register", false},
		{"/user/dashboard", false},
	}
	for _, tt := range tests {
		if got := IsLoginRequest(tt.path); got != tt.want {
			t.Errorf("IsLoginRequest(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
