package api

import (
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

func TestSuccessBody(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    string
	}{
		{"nil payload", nil, `{"success":true}`},
		{"empty object", gin.H{}, `{"success":true}`},
		{"single field", gin.H{"cleared": int64(3)}, `{"success":true,"cleared":3}`},
		{
			"currency keeps its string form above 2^53",
			gin.H{"wealth": models.Currency(9007199254740993)},
			`{"success":true,"wealth":"9007199254740993"}`,
		},
		{
			"struct payload",
			struct {
				Wealth models.Currency `json:"wealth"`
			}{Wealth: 1500},
			`{"success":true,"wealth":1500}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := successBody(tt.payload)
			if err != nil {
				t.Fatalf("successBody: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("successBody = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSuccessBodyRejectsNonObjects(t *testing.T) {
	for _, payload := range []any{[]int{1, 2}, "plain string", 42} {
		if _, err := successBody(payload); err == nil {
			t.Errorf("successBody(%v) should refuse a non-object payload", payload)
		}
	}
}

func TestIdentityValidate(t *testing.T) {
	tests := []struct {
		name     string
		id       identity
		wantCode string
	}{
		{"kick", identity{Platform: models.PlatformKick, PlatformUserID: "k1"}, ""},
		{"twitch", identity{Platform: models.PlatformTwitch, PlatformUserID: "t1"}, ""},
		{"discord", identity{Platform: models.PlatformDiscord, PlatformUserID: "d1"}, ""},
		{"unknown platform", identity{Platform: "youtube", PlatformUserID: "y1"}, econerr.CodeInvalidInput},
		{"missing user id", identity{Platform: models.PlatformKick}, econerr.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if got := econerr.CodeOf(err); got != tt.wantCode {
				t.Errorf("code = %s, want %s", got, tt.wantCode)
			}
		})
	}
}
