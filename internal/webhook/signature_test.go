package webhook

import (
	"strings"
	"testing"
)

func TestSignIsDeterministic(t *testing.T) {
	body := []byte(`{"event":"lead.created","data":{"leadId":"01H"}}`)

	a := Sign("abc123", body)
	b := Sign("abc123", body)
	if a != b {
		t.Fatalf("signature must be deterministic: %s != %s", a, b)
	}
	if !strings.HasPrefix(a, "sha256=") {
		t.Fatalf("signature missing scheme prefix: %s", a)
	}
	if !VerifySignature("abc123", body, a) {
		t.Fatalf("receiver recomputation must match")
	}
}

func TestSingleByteChangeInvalidatesSignature(t *testing.T) {
	body := []byte(`{"event":"lead.created"}`)
	sig := Sign("abc123", body)

	for i := range body {
		tampered := make([]byte, len(body))
		copy(tampered, body)
		tampered[i] ^= 0x01
		if VerifySignature("abc123", tampered, sig) {
			t.Fatalf("flipping byte %d must invalidate the signature", i)
		}
	}

	if VerifySignature("other-secret", body, sig) {
		t.Fatalf("different secret must not verify")
	}
}
