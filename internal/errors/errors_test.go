package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	err := New(DeviceLost, "stream read failed")
	if !strings.Contains(err.Error(), "DEVICE_LOST") {
		t.Errorf("error string missing code: %s", err.Error())
	}

	wrapped := Wrap(fmt.Errorf("portaudio: device unavailable"), DeviceLost, "capture stopped")
	if !strings.Contains(wrapped.Error(), "device unavailable") {
		t.Errorf("cause not rendered: %s", wrapped.Error())
	}
}

func TestCodeOf(t *testing.T) {
	inner := New(Timeout, "deadline exceeded")
	outer := fmt.Errorf("requesting suggestions: %w", inner)

	if CodeOf(outer) != Timeout {
		t.Errorf("CodeOf = %v, want Timeout", CodeOf(outer))
	}
	if CodeOf(stderrors.New("plain")) != Unknown {
		t.Error("plain error should map to Unknown")
	}
	if CodeOf(nil) != Unknown {
		t.Error("nil error should map to Unknown")
	}
}

func TestIsCode(t *testing.T) {
	err := Newf(RateLimited, "http %d", 429)
	if !IsCode(err, RateLimited) {
		t.Error("expected RateLimited")
	}
	if IsCode(err, Timeout) {
		t.Error("did not expect Timeout")
	}
	if IsCode(nil, Unknown) {
		t.Error("nil should never match")
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, Unavailable, "service down")
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		code Code
		want bool
	}{
		{Unavailable, true},
		{Timeout, false},
		{AuthFailed, false},
		{RateLimited, false},
		{EmptyResult, false},
	}
	for _, c := range cases {
		if got := IsRetryable(New(c.code, "x")); got != c.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", c.code, got, c.want)
		}
	}
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
}
