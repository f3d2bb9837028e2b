package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsKindThroughWrapping(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := fmt.Errorf("store: %w", ErrDatabase.WithError(cause))

	if !IsKind(err, CodeDatabaseError) {
		t.Fatalf("expected database error kind in %v", err)
	}
	if IsKind(err, CodeNotFound) {
		t.Error("database error must not match not-found")
	}
	if !stderrors.Is(err, cause) {
		t.Error("cause should stay reachable")
	}
	if !stderrors.Is(err, ErrDatabase) {
		t.Error("sentinel should match by code")
	}
	if IsKind(nil, CodeDatabaseError) {
		t.Error("nil is no kind")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{ErrInvalidParam, http.StatusBadRequest},
		{AnalysisError("no geometry"), http.StatusUnprocessableEntity},
		{EnvironmentAnalysisError("model does not fit"), http.StatusUnprocessableEntity},
		{PathGenerationError(nil, "rejected"), http.StatusBadGateway},
		{ErrStaleGeneration, http.StatusConflict},
		{ErrCache, http.StatusServiceUnavailable},
		{AsAppError(stderrors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			if tt.err.HTTPStatus != tt.want {
				t.Errorf("status = %d, want %d", tt.err.HTTPStatus, tt.want)
			}
		})
	}
}

func TestWithDetailCopies(t *testing.T) {
	err := ErrInvalidParam.WithDetail("duration must be positive")
	if ErrInvalidParam.Detail != "" {
		t.Fatal("sentinel was modified")
	}
	if got := err.Error(); got != "[1001] invalid parameter (duration must be positive)" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(PathGenerationError(stderrors.New("timeout"), "provider timed out")) {
		t.Error("path generation failures are retryable")
	}
	if Retryable(ErrInvalidParam) {
		t.Error("bad input is not retryable")
	}
	if Retryable(stderrors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}
