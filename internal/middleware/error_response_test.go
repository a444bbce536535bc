package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/investdesk/internal/model"
)

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func TestWriteErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorResponse(w, http.StatusUnauthorized, model.NewNotSignedInError())

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := decodeErrorBody(t, w)
	if body.Code != model.ErrCodeNotSignedIn || body.Category != "auth" {
		t.Errorf("body = %+v", body)
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation",
			err:        model.NewValidationError("amount", "Enter an amount greater than zero"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   model.ErrCodeValidation,
		},
		{
			name:       "backend status",
			err:        &model.APIError{Status: 400, Code: model.ErrCodeRequest, Message: "Insufficient balance"},
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeRequest,
		},
		{
			name:       "network",
			err:        model.NewNetworkError(errors.New("dial tcp: refused")),
			wantStatus: http.StatusBadGateway,
			wantCode:   model.ErrCodeNetwork,
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if body := decodeErrorBody(t, w); body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestWriteError_IncludesFields(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, &model.ValidationError{Fields: map[string]string{"email": "Enter a valid email address"}})

	body := decodeErrorBody(t, w)
	if body.Fields["email"] != "Enter a valid email address" {
		t.Errorf("fields = %v", body.Fields)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := NewRecoveryMiddleware(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("unexpected")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if body := decodeErrorBody(t, w); body.Message != model.MessageGenericFailure {
		t.Errorf("message = %q", body.Message)
	}
}
