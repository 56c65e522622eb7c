package econerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"domain error", New(Cooldown, CodeJailed, "you are in jail"), Cooldown},
		{"wrapped domain error", fmt.Errorf("handler: %w", New(Policy, CodeStreamLive, "stream is live")), Policy},
		{"internal wrap", Wrap(errors.New("pq: broken"), "query failed"), Internal},
		{"plain error", errors.New("boom"), Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessageNeverLeaksCause(t *testing.T) {
	cause := errors.New("pgx: connection refused host=10.0.0.3")
	err := Wrap(cause, "could not complete the action")

	if MessageOf(err) != "could not complete the action" {
		t.Fatalf("MessageOf() = %q", MessageOf(err))
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause must remain reachable via errors.Is")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{Validation, http.StatusBadRequest},
		{Authz, http.StatusForbidden},
		{NotFound, http.StatusNotFound},
		{Conflict, http.StatusConflict},
		{Insufficient, http.StatusBadRequest},
		{Cooldown, http.StatusTooManyRequests},
		{Policy, http.StatusUnprocessableEntity},
		{Expired, http.StatusGone},
		{Internal, http.StatusInternalServerError},
		{Kind("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := HTTPStatus(tt.kind); got != tt.want {
				t.Errorf("HTTPStatus(%s) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(Insufficient, CodeInsufficientWealth, "not enough cash")); got != CodeInsufficientWealth {
		t.Errorf("CodeOf() = %q", got)
	}
	if got := CodeOf(errors.New("boom")); got != CodeInternal {
		t.Errorf("CodeOf(plain) = %q", got)
	}
}
