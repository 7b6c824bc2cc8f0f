package envelope

import (
	"bytes"
	"encoding/base64"

	"github.com/advatar/zk-llm-gateway-go/pkg/gwerrs"
)

// spkiPrefix is the fixed DER header for an X25519 SubjectPublicKeyInfo
// structure. Wrapping a raw 32-byte X25519 public key is just prefixing
// these 12 bytes; unwrapping is stripping and verifying the same prefix.
var spkiPrefix = []byte{0x30, 0x2a, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x6e, 0x03, 0x21, 0x00}

// GatewayPublicKey is the gateway's static 32-byte raw X25519 public key.
// It is stored as-is; SPKI wrapping is only an encoding detail at use-sites
// that require DER.
type GatewayPublicKey struct {
	raw [KeySize]byte
}

// NewGatewayPublicKey builds a GatewayPublicKey from exactly 32 raw bytes.
func NewGatewayPublicKey(raw []byte) (GatewayPublicKey, error) {
	if len(raw) != KeySize {
		return GatewayPublicKey{}, gwerrs.InvalidGatewayPublicKey("expected 32 raw bytes")
	}
	var gpk GatewayPublicKey
	copy(gpk.raw[:], raw)
	return gpk, nil
}

// ParseGatewayPublicKeyB64 decodes a base64-encoded 32-byte raw X25519
// public key.
func ParseGatewayPublicKeyB64(b64 string) (GatewayPublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return GatewayPublicKey{}, gwerrs.Base64(err.Error())
	}
	return NewGatewayPublicKey(raw)
}

// Bytes returns the raw 32-byte public key.
func (g GatewayPublicKey) Bytes() [KeySize]byte { return g.raw }

// SPKI wraps the raw key into X25519 SubjectPublicKeyInfo DER form.
func (g GatewayPublicKey) SPKI() []byte {
	out := make([]byte, 0, len(spkiPrefix)+KeySize)
	out = append(out, spkiPrefix...)
	out = append(out, g.raw[:]...)
	return out
}

// GatewayPublicKeyFromSPKI unwraps an X25519 SubjectPublicKeyInfo DER
// structure, verifying the fixed prefix before extracting the raw key.
func GatewayPublicKeyFromSPKI(der []byte) (GatewayPublicKey, error) {
	if len(der) != len(spkiPrefix)+KeySize {
		return GatewayPublicKey{}, gwerrs.InvalidGatewayPublicKey("unexpected SPKI length")
	}
	if !bytes.Equal(der[:len(spkiPrefix)], spkiPrefix) {
		return GatewayPublicKey{}, gwerrs.InvalidGatewayPublicKey("unexpected SPKI prefix")
	}
	return NewGatewayPublicKey(der[len(spkiPrefix):])
}
