package agent

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"os"
)

// parsePublicKey decodes a base64-encoded ed25519 public key.
func parsePublicKey(b64 string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("decode public key: got %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// verifyFile checks the ed25519 signature of the file at path.
func verifyFile(path, sigB64 string, key ed25519.PublicKey) error {
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read package: %w", err)
	}

	if !ed25519.Verify(key, data, sig) {
		return fmt.Errorf("signature verification failed for %s", path)
	}
	return nil
}
