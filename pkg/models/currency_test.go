package models

import (
	"encoding/json"
	"testing"
)

func TestCurrencyMarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   Currency
		want string
	}{
		{"zero", 0, "0"},
		{"small", 1500, "1500"},
		{"negative", -250, "-250"},
		{"max safe integer", Currency(maxSafeJSONInt), "9007199254740991"},
		{"above safe range", Currency(maxSafeJSONInt + 1), `"9007199254740992"`},
		{"int64 max", Currency(1<<63 - 1), `"9223372036854775807"`},
		{"below negative safe range", Currency(-maxSafeJSONInt - 1), `"-9007199254740992"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal(%d) = %s, want %s", int64(tt.in), got, tt.want)
			}
		})
	}
}

func TestCurrencyUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Currency
		wantErr bool
	}{
		{"number", "1500", 1500, false},
		{"string", `"9007199254740992"`, Currency(maxSafeJSONInt + 1), false},
		{"null", "null", 0, false},
		{"garbage", `"12x4"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Currency
			err := json.Unmarshal([]byte(tt.in), &c)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && c != tt.want {
				t.Errorf("Unmarshal(%s) = %d, want %d", tt.in, c, tt.want)
			}
		})
	}
}

func TestCurrencyRoundTripInsideStruct(t *testing.T) {
	type payload struct {
		Wealth Currency `json:"wealth"`
	}
	in := payload{Wealth: Currency(maxSafeJSONInt + 77)}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out payload
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Wealth != in.Wealth {
		t.Errorf("round trip = %d, want %d", out.Wealth, in.Wealth)
	}
}
