package api

import (
	"encoding/json"
	"testing"

	"github.com/grindcity/economy-engine/internal/notify"
	"github.com/grindcity/economy-engine/pkg/econerr"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"id":"evt_1","event":"livestream.status.updated","livestream":{"is_live":true}}`)
	good := "sha256=" + notify.SignPayload(body, "hook-secret")

	tests := []struct {
		name   string
		body   []byte
		header string
		secret string
		want   bool
	}{
		{"valid signature", body, good, "hook-secret", true},
		{"empty secret admits everything", body, "", "", true},
		{"tampered body", []byte(`{"id":"evt_1"}`), good, "hook-secret", false},
		{"wrong secret", body, good, "other-secret", false},
		{"missing sha256 prefix", body, notify.SignPayload(body, "hook-secret"), "hook-secret", false},
		{"no header at all", body, "", "hook-secret", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := verifySignature(tt.body, tt.header, tt.secret); got != tt.want {
				t.Errorf("verifySignature = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFailureBodyShape(t *testing.T) {
	body, err := failureBody(econerr.New(econerr.Insufficient, econerr.CodeInsufficientWealth, "not enough wealth"))
	if err != nil {
		t.Fatalf("failureBody: %v", err)
	}

	var envelope struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Success {
		t.Error("failure envelope must carry success=false")
	}
	if envelope.Error.Code != econerr.CodeInsufficientWealth {
		t.Errorf("code = %s, want %s", envelope.Error.Code, econerr.CodeInsufficientWealth)
	}
	if envelope.Error.Kind != string(econerr.Insufficient) {
		t.Errorf("kind = %s, want %s", envelope.Error.Kind, econerr.Insufficient)
	}
	if envelope.Error.Message != "not enough wealth" {
		t.Errorf("message = %q", envelope.Error.Message)
	}
}
