package api

import (
	"testing"

	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

func TestParseKickEvent(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind string
		wantErr  bool
	}{
		{
			"stream goes live",
			`{"id":"evt_1","event":"livestream.status.updated","livestream":{"is_live":true}}`,
			ingressStreamOnline, false,
		},
		{
			"stream goes offline",
			`{"id":"evt_2","event":"livestream.status.updated","livestream":{"is_live":false}}`,
			ingressStreamOffline, false,
		},
		{
			"redemption",
			`{"id":"evt_3","event":"channel.reward.redeemed","redemption":{"user_id":"k42","username":"mara","reward":"play","points":500,"input":""}}`,
			ingressRedemption, false,
		},
		{
			"unknown event type is ignored, not an error",
			`{"id":"evt_4","event":"channel.followed"}`,
			ingressIgnored, false,
		},
		{"missing event id", `{"event":"channel.followed"}`, "", true},
		{"livestream event without payload", `{"id":"evt_5","event":"livestream.status.updated"}`, "", true},
		{"redemption without redeemer", `{"id":"evt_6","event":"channel.reward.redeemed","redemption":{}}`, "", true},
		{"not json", `<xml/>`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := parseKickEvent([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				if kind := econerr.KindOf(err); kind != econerr.Validation {
					t.Errorf("error kind = %s, want validation", kind)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseKickEvent: %v", err)
			}
			if ev.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", ev.Kind, tt.wantKind)
			}
			if ev.Platform != models.PlatformKick {
				t.Errorf("platform = %s, want kick", ev.Platform)
			}
		})
	}
}

func TestParseKickRedemptionFields(t *testing.T) {
	body := `{"id":"evt_9","event":"channel.reward.redeemed","redemption":{"user_id":"k42","username":"mara","reward":"rob","points":800,"input":"slick_rick"}}`
	ev, err := parseKickEvent([]byte(body))
	if err != nil {
		t.Fatalf("parseKickEvent: %v", err)
	}
	if ev.EventID != "evt_9" || ev.PlatformUserID != "k42" || ev.Username != "mara" {
		t.Errorf("identity fields wrong: %+v", ev)
	}
	if ev.Reward != "rob" || ev.Points != 800 || ev.Input != "slick_rick" {
		t.Errorf("redemption fields wrong: %+v", ev)
	}
}

func TestParseTwitchEvent(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind string
		wantErr  bool
	}{
		{
			"stream online",
			`{"id":"msg-1","subscription":{"type":"stream.online"},"event":{}}`,
			ingressStreamOnline, false,
		},
		{
			"stream offline",
			`{"id":"msg-2","subscription":{"type":"stream.offline"},"event":{}}`,
			ingressStreamOffline, false,
		},
		{
			"redemption",
			`{"id":"msg-3","subscription":{"type":"channel.channel_points_custom_reward_redemption.add"},"event":{"user_id":"t7","user_name":"kaz","user_input":"","reward":{"title":"checkin","cost":300}}}`,
			ingressRedemption, false,
		},
		{
			"unhandled subscription type",
			`{"id":"msg-4","subscription":{"type":"channel.subscribe"},"event":{}}`,
			ingressIgnored, false,
		},
		{"missing message id", `{"subscription":{"type":"stream.online"}}`, "", true},
		{
			"redemption without reward object",
			`{"id":"msg-5","subscription":{"type":"channel.channel_points_custom_reward_redemption.add"},"event":{"user_id":"t7"}}`,
			"", true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := parseTwitchEvent([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTwitchEvent: %v", err)
			}
			if ev.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", ev.Kind, tt.wantKind)
			}
		})
	}
}

func TestParseTwitchRedemptionFields(t *testing.T) {
	body := `{"id":"msg-8","subscription":{"type":"channel.channel_points_custom_reward_redemption.add"},"event":{"user_id":"t7","user_name":"kaz","user_input":"victim","reward":{"title":"rob","cost":800}}}`
	ev, err := parseTwitchEvent([]byte(body))
	if err != nil {
		t.Fatalf("parseTwitchEvent: %v", err)
	}
	if ev.Reward != "rob" || ev.Points != 800 || ev.Input != "victim" {
		t.Errorf("redemption fields wrong: %+v", ev)
	}
}

func TestParseDiscordEvent(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind string
		wantErr  bool
	}{
		{"online", `{"event_id":"d-1","kind":"stream_online"}`, ingressStreamOnline, false},
		{"offline", `{"event_id":"d-2","kind":"stream_offline"}`, ingressStreamOffline, false},
		{
			"redemption",
			`{"event_id":"d-3","kind":"redemption","member":{"id":"m9","name":"vex"},"reward":"tokens","points":1500}`,
			ingressRedemption, false,
		},
		{"unknown kind", `{"event_id":"d-4","kind":"boost"}`, ingressIgnored, false},
		{"missing event id", `{"kind":"stream_online"}`, "", true},
		{"redemption without member", `{"event_id":"d-5","kind":"redemption"}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := parseDiscordEvent([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDiscordEvent: %v", err)
			}
			if ev.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", ev.Kind, tt.wantKind)
			}
		})
	}
}

func TestParsePlatformEventDispatch(t *testing.T) {
	ev, err := parsePlatformEvent(models.PlatformDiscord, []byte(`{"event_id":"d-9","kind":"stream_online"}`))
	if err != nil {
		t.Fatalf("parsePlatformEvent: %v", err)
	}
	if ev.Platform != models.PlatformDiscord {
		t.Errorf("platform = %s, want discord", ev.Platform)
	}

	if _, err := parsePlatformEvent("youtube", []byte(`{}`)); err == nil {
		t.Error("unknown platform should be refused")
	}
}
