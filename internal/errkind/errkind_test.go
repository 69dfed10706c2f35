package errkind

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrap_IsRecognizable(t *testing.T) {
	err := Wrap(VitestTimeout, "killed after %s", "5m")
	if !errors.Is(err, VitestTimeout) {
		t.Errorf("errors.Is(err, VitestTimeout) = false, want true")
	}
	if errors.Is(err, RPCTimeout) {
		t.Errorf("errors.Is(err, RPCTimeout) = true, want false")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{ConcurrentCheck, http.StatusConflict},
		{DepsNotInstalled, http.StatusInternalServerError},
		{VitestNotFound, http.StatusInternalServerError},
		{VitestTimeout, http.StatusGatewayTimeout},
		{VitestFailed, http.StatusInternalServerError},
		{ParseError, http.StatusInternalServerError},
		{RPCTimeout, http.StatusGatewayTimeout},
		{Internal, http.StatusInternalServerError},
		{RateLimited, http.StatusTooManyRequests},
		{Validation, http.StatusBadRequest},
	}
	for _, tt := range tests {
		err := Wrap(tt.kind, "boom")
		if got := StatusFor(err); got != tt.want {
			t.Errorf("StatusFor(Wrap(%v)) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestStatusFor_UnknownErrorDefaultsInternal(t *testing.T) {
	if got := StatusFor(errors.New("plain error")); got != http.StatusInternalServerError {
		t.Errorf("StatusFor(plain error) = %d, want %d", got, http.StatusInternalServerError)
	}
}

func TestWrap_WrappedTwiceStillMatches(t *testing.T) {
	inner := Wrap(RPCTimeout, "deadline exceeded")
	outer := fmt.Errorf("calling backend: %w", inner)
	if !errors.Is(outer, RPCTimeout) {
		t.Errorf("errors.Is(outer, RPCTimeout) = false, want true")
	}
}
