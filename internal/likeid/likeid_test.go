package likeid_test

import (
	"strings"
	"testing"

	"qzsync/internal/likeid"
)

func TestCompactRoundTrip(t *testing.T) {
	id := likeid.LikeID{
		AppID:  311,
		TypeID: 5,
		Key:    "1d5bbd3fe4074a3b9c2e0d00",
		Unikey: "http://user.qzone.qq.com/123456789/mood/1d5bbd3fe4074a3b9c2e0d00",
		Curkey: "http://user.qzone.qq.com/123456789/mood/1d5bbd3fe4074a3b9c2e0d00",
	}

	payload, err := likeid.Encode(id)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(payload) > 64 {
		t.Fatalf("payload length = %d, want <= 64", len(payload))
	}

	decoded, err := likeid.Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != id {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, id)
	}
}

func TestCompactUsesFullBudget(t *testing.T) {
	id := likeid.LikeID{
		AppID:  4095,
		TypeID: 15,
		Key:    "ffffffffffffffffffffffff",
		Unikey: "http://user.qzone.qq.com/1099511627775/mood/ffffffffffffffffffffffff",
		Curkey: "http://user.qzone.qq.com/1/mood/000000000000000000000000",
	}

	payload, err := likeid.Encode(id)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(payload) != 64 {
		t.Fatalf("compact payload length = %d, want exactly 64", len(payload))
	}
	decoded, err := likeid.Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != id {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, id)
	}
}

func TestFallbackRoundTrip(t *testing.T) {
	// A non-mood curkey forces the compressed form.
	id := likeid.LikeID{
		AppID:  202,
		TypeID: 2,
		Key:    "abc",
		Unikey: "share/9",
		Curkey: "share/9",
	}

	payload, err := likeid.Encode(id)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(payload) > 64 {
		t.Fatalf("payload length = %d, want <= 64", len(payload))
	}
	decoded, err := likeid.Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != id {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, id)
	}
}

func TestEncodeTooLong(t *testing.T) {
	id := likeid.LikeID{
		AppID:  311,
		TypeID: 5,
		Key:    "not-hex",
		Unikey: strings.Repeat("x", 300),
		Curkey: strings.Repeat("y", 300),
	}
	if _, err := likeid.Encode(id); err == nil {
		t.Fatal("Encode accepted oversized identifiers")
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, payload := range []string{"", "!!!", "abcd"} {
		if _, err := likeid.Decode(payload); err == nil {
			t.Fatalf("Decode(%q) succeeded, want error", payload)
		}
	}
}
