package security

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

// VerifyMode controls what happens when no trusted provider key is
// configured. Strict rejects everything unverifiable; permissive accepts it
// and exists only for sandbox environments where the provider does not sign.
type VerifyMode string

const (
	ModeStrict     VerifyMode = "strict"
	ModePermissive VerifyMode = "permissive"
)

// Verifier authenticates inbound provider callbacks. The signature is
// RSA-SHA256 (PKCS #1 v1.5) over the exact raw bytes of the payload,
// delivered base64-encoded out of band.
type Verifier struct {
	pub  *rsa.PublicKey
	mode VerifyMode
}

// NewVerifier parses the trusted provider public key from PEM. An empty key
// is a configuration error in strict mode: running without a key must be an
// explicit, auditable choice, never a silent fallback.
func NewVerifier(publicKeyPEM []byte, mode VerifyMode) (*Verifier, error) {
	if mode != ModeStrict && mode != ModePermissive {
		return nil, fmt.Errorf("unknown verify mode %q", mode)
	}

	if len(publicKeyPEM) == 0 {
		if mode == ModeStrict {
			return nil, errors.New("strict verification requires a provider public key")
		}
		return &Verifier{mode: mode}, nil
	}

	pub, err := ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return nil, err
	}
	return &Verifier{pub: pub, mode: mode}, nil
}

// Verify reports whether token is a valid signature over payload. It never
// returns an error: malformed encoding, a wrong key, and a plain mismatch
// are all just "not verified", so callers leak nothing about which it was.
func (v *Verifier) Verify(payload []byte, token string) bool {
	if v.pub == nil {
		return v.mode == ModePermissive
	}

	sig, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return false
	}

	digest := sha256.Sum256(payload)
	return rsa.VerifyPKCS1v15(v.pub, crypto.SHA256, digest[:], sig) == nil
}

// Signer produces merchant-side signatures for outbound gateway payloads.
// Opposite key direction from the Verifier: the merchant signs what it
// sends, the provider signs what it calls back with.
type Signer struct {
	priv *rsa.PrivateKey
}

func NewSigner(privateKeyPEM []byte) (*Signer, error) {
	if len(privateKeyPEM) == 0 {
		return &Signer{}, nil
	}
	priv, err := ParsePrivateKeyPEM(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	return &Signer{priv: priv}, nil
}

// Sign returns the base64 RSA-SHA256 signature over payload, or "" when no
// key is configured (unsigned outbound is the provider's problem to reject).
func (s *Signer) Sign(payload []byte) (string, error) {
	if s.priv == nil {
		return "", nil
	}
	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.priv, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// ParsePublicKeyPEM accepts both PKIX ("PUBLIC KEY") and PKCS #1
// ("RSA PUBLIC KEY") blocks.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block in public key")
	}

	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return pub, nil
}

// ParsePrivateKeyPEM accepts PKCS #1 and PKCS #8 private key blocks.
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block in private key")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return priv, nil
}
