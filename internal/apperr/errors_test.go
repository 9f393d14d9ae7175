package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := Persistence("save script", errors.New("connection reset"))
	wrapped := fmt.Errorf("run script generation: %w", base)

	if got := KindOf(wrapped); got != KindPersistence {
		t.Fatalf("KindOf() = %q, want %q", got, KindPersistence)
	}
	if !Is(wrapped, KindPersistence) {
		t.Fatalf("Is(persistence) = false, want true")
	}
	if Is(nil, KindPersistence) {
		t.Fatalf("Is(nil) = true, want false")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("KindOf(plain) should be empty")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("niche is required"), http.StatusBadRequest},
		{Unauthenticated(), http.StatusUnauthorized},
		{NotFound("script", "x"), http.StatusNotFound},
		{UseAfterRelease("h"), http.StatusGone},
		{Playback("decode", nil), http.StatusUnprocessableEntity},
		{Upstream(429, "slow down", true), http.StatusBadGateway},
		{ServiceUnavailable("AI service not configured", nil), http.StatusServiceUnavailable},
		{Persistence("insert", errors.New("boom")), http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestUpstreamErrorMessage(t *testing.T) {
	err := Upstream(401, "invalid api key", false)
	if got := err.Error(); got != "upstream (status 401): invalid api key" {
		t.Fatalf("Error() = %q", got)
	}
	if err.Title() != "Generation failed" {
		t.Fatalf("Title() = %q", err.Title())
	}
}
