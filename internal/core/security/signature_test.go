package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
)

func testKeyPair(t *testing.T) (privPEM, pubPEM []byte) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	privPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM
}

func TestVerifier_RoundTrip(t *testing.T) {
	privPEM, pubPEM := testKeyPair(t)

	signer, err := NewSigner(privPEM)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	verifier, err := NewVerifier(pubPEM, ModeStrict)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	payload := []byte(`{"orderId":"tx-1","status":"SUCCESS","amount":100}`)
	token, err := signer.Sign(payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if !verifier.Verify(payload, token) {
		t.Error("expected valid signature to verify")
	}
}

func TestVerifier_TamperedPayload(t *testing.T) {
	privPEM, pubPEM := testKeyPair(t)

	signer, _ := NewSigner(privPEM)
	verifier, _ := NewVerifier(pubPEM, ModeStrict)

	payload := []byte(`{"orderId":"tx-1","status":"SUCCESS","amount":100}`)
	token, err := signer.Sign(payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	// Flip a single byte
	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] ^= 0x01

	if verifier.Verify(tampered, token) {
		t.Error("expected tampered payload to fail verification")
	}
}

func TestVerifier_MalformedToken(t *testing.T) {
	_, pubPEM := testKeyPair(t)
	verifier, _ := NewVerifier(pubPEM, ModeStrict)

	payload := []byte(`{"orderId":"tx-1"}`)

	for _, token := range []string{"", "not base64 !!!", "aGVsbG8="} {
		if verifier.Verify(payload, token) {
			t.Errorf("expected token %q to fail verification", token)
		}
	}
}

func TestVerifier_NoKeyPolicy(t *testing.T) {
	// Strict with no key is a configuration error, never a silent pass.
	if _, err := NewVerifier(nil, ModeStrict); err == nil {
		t.Error("expected strict mode without key to fail construction")
	}

	permissive, err := NewVerifier(nil, ModePermissive)
	if err != nil {
		t.Fatalf("NewVerifier permissive: %v", err)
	}
	if !permissive.Verify([]byte("anything"), "whatever") {
		t.Error("expected permissive mode without key to accept")
	}
}

func TestVerifier_UnknownMode(t *testing.T) {
	_, pubPEM := testKeyPair(t)
	if _, err := NewVerifier(pubPEM, VerifyMode("lenient")); err == nil {
		t.Error("expected unknown mode to fail construction")
	}
}

func TestSigner_NoKey(t *testing.T) {
	signer, err := NewSigner(nil)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	token, err := signer.Sign([]byte("payload"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if token != "" {
		t.Errorf("expected empty token without key, got %q", token)
	}
}

func TestAPIKey(t *testing.T) {
	realKey, keyHash, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}

	if !ValidateKey(realKey, keyHash) {
		t.Error("expected generated key to validate against its hash")
	}
	if ValidateKey(realKey+"x", keyHash) {
		t.Error("expected altered key to fail validation")
	}
	if HashAPIKey(realKey) != keyHash {
		t.Error("expected HashAPIKey to match the generated hash")
	}
}
