package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/investdesk/internal/auth"
	"github.com/hitoshi/investdesk/internal/model"
)

type stubSessions struct {
	state auth.State
	user  model.User
}

func (s *stubSessions) State() auth.State { return s.state }

func (s *stubSessions) User() (model.User, bool) {
	if s.state != auth.StateAuthenticated {
		return model.User{}, false
	}
	return s.user, true
}

var _ SessionReader = (*stubSessions)(nil)

func TestGuardMiddleware(t *testing.T) {
	tests := []struct {
		name         string
		state        auth.State
		accept       string
		wantStatus   int
		wantLocation string
		wantCalled   bool
	}{
		{
			name:       "loading waits",
			state:      auth.StateLoading,
			wantStatus: http.StatusAccepted,
		},
		{
			name:         "signed out page redirects with from",
			state:        auth.StateUnauthenticated,
			accept:       "text/html,application/xhtml+xml",
			wantStatus:   http.StatusTemporaryRedirect,
			wantLocation: "/?from=%2Fapi%2Ftransactions%3Fpage%3D2",
		},
		{
			name:       "signed out api call is 401",
			state:      auth.StateUnauthenticated,
			accept:     "application/json",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "signed in renders",
			state:      auth.StateAuthenticated,
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &stubSessions{state: tt.state, user: model.User{ID: "user-7"}}

			var called bool
			var gotUserID string
			handler := NewGuardMiddleware(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				gotUserID, _ = UserIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/transactions?page=2", nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}
			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if tt.wantCalled && gotUserID != "user-7" {
				t.Errorf("userID = %q, want user-7", gotUserID)
			}
		})
	}
}

func TestGuardMiddleware_LoadingBody(t *testing.T) {
	handler := NewGuardMiddleware(&stubSessions{state: auth.StateLoading})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["status"] != "loading" {
		t.Errorf("body = %v", body)
	}
}
