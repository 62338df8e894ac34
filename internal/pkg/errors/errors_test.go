package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := New(CodeInvalidQuery, "query cannot be empty")
	if err.Error() != "INVALID_QUERY: query cannot be empty" {
		t.Errorf("got %q", err.Error())
	}

	wrapped := Wrap(CodeConnection, "backend unreachable", errors.New("dial tcp: refused"))
	if wrapped.Error() != "CONNECTION_ERROR: backend unreachable: dial tcp: refused" {
		t.Errorf("got %q", wrapped.Error())
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := Wrap(CodeInternal, "outer", inner)

	if !errors.Is(err, inner) {
		t.Error("wrapped error not reachable via errors.Is")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code string
		want int
	}{
		{CodeInvalidQuery, http.StatusBadRequest},
		{CodeInvalidRequest, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeConnection, http.StatusServiceUnavailable},
		{CodeNoTargets, http.StatusServiceUnavailable},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeInternal, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := New(tc.code, "x").HTTPStatus(); got != tc.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestCodeAndIs(t *testing.T) {
	err := InvalidQueryError("bad")
	if Code(err) != CodeInvalidQuery {
		t.Errorf("Code = %s", Code(err))
	}
	if !Is(err, CodeInvalidQuery) || Is(err, CodeInternal) {
		t.Error("Is misclassified the error")
	}

	// A wrapped AppError still reports its code.
	wrapped := fmt.Errorf("context: %w", err)
	if Code(wrapped) != CodeInvalidQuery {
		t.Errorf("Code through wrap = %s", Code(wrapped))
	}

	plain := errors.New("plain")
	if Code(plain) != CodeInternal {
		t.Errorf("Code(plain) = %s", Code(plain))
	}
	if Is(plain, CodeInternal) {
		t.Error("plain errors should not match any code")
	}
}

func TestIsConnection(t *testing.T) {
	if !IsConnection(ConnectionError("down", nil)) {
		t.Error("connection error not recognized")
	}
	if !IsConnection(New(CodeTimeout, "slow")) {
		t.Error("timeout not treated as connection failure")
	}
	if IsConnection(InvalidQueryError("bad")) {
		t.Error("query error treated as connection failure")
	}
}

func TestWithDetail(t *testing.T) {
	err := RateLimitedError(30)
	if err.Details["retry_after"] != "30" {
		t.Errorf("details = %v", err.Details)
	}
}

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, InvalidQueryError("query cannot be empty"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.Code != CodeInvalidQuery || resp.Message != "query cannot be empty" {
		t.Errorf("response = %+v", resp)
	}
}

func TestWriteError_SanitizesUnknown(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("secret internal detail"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.Code != CodeInternal {
		t.Errorf("code = %s", resp.Code)
	}
	if resp.Message == "secret internal detail" {
		t.Error("internal detail leaked to the client")
	}
}
