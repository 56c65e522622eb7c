package notify

import "testing"

func TestSignPayload(t *testing.T) {
	// RFC 4231 test case 2.
	got := SignPayload([]byte("what do ya want for nothing?"), "Jefe")
	want := "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"
	if got != want {
		t.Errorf("SignPayload = %s, want %s", got, want)
	}
}

func TestSignPayloadVariesWithSecret(t *testing.T) {
	payload := []byte(`{"kind":"chat_message"}`)
	if SignPayload(payload, "a") == SignPayload(payload, "b") {
		t.Error("signatures under different secrets should differ")
	}
}
