package api

import (
	"encoding/json"

	"github.com/grindcity/economy-engine/pkg/econerr"
	"github.com/grindcity/economy-engine/pkg/models"
)

// ──────────────────────────────────────────────────────────────────
// Platform event parsing
//
// Each platform bridge relays its own JSON dialect. Everything is
// parsed exactly once, here, into IngressEvent; the handler never
// touches raw payload bytes again. Malformed payloads fail with
// Validation before any state is claimed or mutated. Well-formed
// events of a type the engine does not care about normalize to an
// ignored event so the bridge stops retrying them.
// ──────────────────────────────────────────────────────────────────

// Normalized event kinds.
const (
	ingressStreamOnline  = "stream_online"
	ingressStreamOffline = "stream_offline"
	ingressRedemption    = "channel_point_redemption"
	ingressIgnored       = "ignored"
)

// IngressEvent is the normalized form of one platform webhook.
type IngressEvent struct {
	Platform models.Platform
	EventID  string
	Kind     string

	// Redemption fields; empty for stream state events.
	PlatformUserID string
	Username       string
	Reward         string
	Points         int64
	Input          string
}

// parsePlatformEvent dispatches on the platform's dialect. The platform
// itself is validated by the route before the body is read.
func parsePlatformEvent(platform models.Platform, body []byte) (*IngressEvent, error) {
	switch platform {
	case models.PlatformKick:
		return parseKickEvent(body)
	case models.PlatformTwitch:
		return parseTwitchEvent(body)
	case models.PlatformDiscord:
		return parseDiscordEvent(body)
	}
	return nil, econerr.Newf(econerr.Validation, econerr.CodeInvalidInput, "unknown platform %q", platform)
}

func malformed(msg string) error {
	return econerr.New(econerr.Validation, econerr.CodeInvalidInput, msg)
}

// parseKickEvent handles the Kick bridge dialect: a flat envelope with the
// event name and one sub-object per event family.
//
//	{"id":"evt_1","event":"livestream.status.updated","livestream":{"is_live":true}}
//	{"id":"evt_2","event":"channel.reward.redeemed","redemption":{...}}
func parseKickEvent(body []byte) (*IngressEvent, error) {
	var raw struct {
		ID         string `json:"id"`
		Event      string `json:"event"`
		Livestream *struct {
			IsLive bool `json:"is_live"`
		} `json:"livestream"`
		Redemption *struct {
			UserID   string `json:"user_id"`
			Username string `json:"username"`
			Reward   string `json:"reward"`
			Points   int64  `json:"points"`
			Input    string `json:"input"`
		} `json:"redemption"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, malformed("unparseable kick payload")
	}
	if raw.ID == "" {
		return nil, malformed("kick payload is missing its event id")
	}

	ev := &IngressEvent{Platform: models.PlatformKick, EventID: raw.ID}
	switch raw.Event {
	case "livestream.status.updated":
		if raw.Livestream == nil {
			return nil, malformed("kick livestream event is missing its payload")
		}
		ev.Kind = ingressStreamOffline
		if raw.Livestream.IsLive {
			ev.Kind = ingressStreamOnline
		}
	case "channel.reward.redeemed":
		r := raw.Redemption
		if r == nil || r.UserID == "" {
			return nil, malformed("kick redemption is missing its redeemer")
		}
		ev.Kind = ingressRedemption
		ev.PlatformUserID = r.UserID
		ev.Username = r.Username
		ev.Reward = r.Reward
		ev.Points = r.Points
		ev.Input = r.Input
	default:
		ev.Kind = ingressIgnored
	}
	return ev, nil
}

// parseTwitchEvent handles the EventSub-shaped dialect: the subscription
// type names the event, the event object carries its data.
//
//	{"id":"msg-1","subscription":{"type":"stream.online"},"event":{...}}
func parseTwitchEvent(body []byte) (*IngressEvent, error) {
	var raw struct {
		ID           string `json:"id"`
		Subscription struct {
			Type string `json:"type"`
		} `json:"subscription"`
		Event struct {
			UserID    string `json:"user_id"`
			UserName  string `json:"user_name"`
			UserInput string `json:"user_input"`
			Reward    *struct {
				Title string `json:"title"`
				Cost  int64  `json:"cost"`
			} `json:"reward"`
		} `json:"event"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, malformed("unparseable twitch payload")
	}
	if raw.ID == "" {
		return nil, malformed("twitch payload is missing its message id")
	}

	ev := &IngressEvent{Platform: models.PlatformTwitch, EventID: raw.ID}
	switch raw.Subscription.Type {
	case "stream.online":
		ev.Kind = ingressStreamOnline
	case "stream.offline":
		ev.Kind = ingressStreamOffline
	case "channel.channel_points_custom_reward_redemption.add":
		if raw.Event.UserID == "" || raw.Event.Reward == nil {
			return nil, malformed("twitch redemption is missing its redeemer or reward")
		}
		ev.Kind = ingressRedemption
		ev.PlatformUserID = raw.Event.UserID
		ev.Username = raw.Event.UserName
		ev.Reward = raw.Event.Reward.Title
		ev.Points = raw.Event.Reward.Cost
		ev.Input = raw.Event.UserInput
	default:
		ev.Kind = ingressIgnored
	}
	return ev, nil
}

// parseDiscordEvent handles the Discord bot bridge dialect, which already
// speaks in normalized kinds.
//
//	{"event_id":"...","kind":"redemption","member":{"id":"...","name":"..."},...}
func parseDiscordEvent(body []byte) (*IngressEvent, error) {
	var raw struct {
		EventID string `json:"event_id"`
		Kind    string `json:"kind"`
		Member  *struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"member"`
		Reward string `json:"reward"`
		Points int64  `json:"points"`
		Input  string `json:"input"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, malformed("unparseable discord payload")
	}
	if raw.EventID == "" {
		return nil, malformed("discord payload is missing its event id")
	}

	ev := &IngressEvent{Platform: models.PlatformDiscord, EventID: raw.EventID}
	switch raw.Kind {
	case "stream_online":
		ev.Kind = ingressStreamOnline
	case "stream_offline":
		ev.Kind = ingressStreamOffline
	case "redemption":
		if raw.Member == nil || raw.Member.ID == "" {
			return nil, malformed("discord redemption is missing its member")
		}
		ev.Kind = ingressRedemption
		ev.PlatformUserID = raw.Member.ID
		ev.Username = raw.Member.Name
		ev.Reward = raw.Reward
		ev.Points = raw.Points
		ev.Input = raw.Input
	default:
		ev.Kind = ingressIgnored
	}
	return ev, nil
}
