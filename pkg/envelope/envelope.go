// Package envelope implements the hybrid-encryption wire envelope: ephemeral
// X25519 key agreement, a direction-separated HKDF-SHA256 key schedule bound
// to a size class, ChaCha20-Poly1305 AEAD framing with size-class-bound
// additional authenticated data, and the envelope's JSON (de)serialization.
//
// Interoperability with peer implementations in other languages is
// bit-exact: every byte of the key schedule inputs, the AAD, and the wire
// envelope must be reproduced exactly.
package envelope

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"crypto/sha256"

	"github.com/advatar/zk-llm-gateway-go/pkg/gwerrs"
	"github.com/advatar/zk-llm-gateway-go/pkg/padding"
	"github.com/advatar/zk-llm-gateway-go/pkg/tokenclass"
)

const (
	// KeySize is the size, in bytes, of an X25519 key or a derived
	// symmetric key.
	KeySize = 32

	// NonceSize is the size, in bytes, of a ChaCha20-Poly1305 nonce.
	NonceSize = 12

	// TagSize is the size, in bytes, of the Poly1305 authentication tag.
	TagSize = 16

	// protocolVersion is the only envelope version this client speaks.
	protocolVersion = 1

	// hkdfInfoPrefix is the ASCII prefix mixed into every HKDF info
	// parameter. The direction suffix ("/req" or "/resp") and the
	// single-byte size-class id follow it.
	hkdfInfoPrefix = "zk-llm-gateway-envelope-v1"

	directionRequest  = 1
	directionResponse = 2
)

// SealState is the per-request secret context retained by the client
// between sealing and opening. It must never outlive a single
// request/response pair; call Zero once the exchange is complete.
type SealState struct {
	class      tokenclass.Class
	ephPubKey  [KeySize]byte
	requestKey [KeySize]byte
	replyKey   [KeySize]byte
}

// Class returns the size class this seal state was created for.
func (s *SealState) Class() tokenclass.Class { return s.class }

// Zero overwrites every secret held by the seal state. Call this once the
// response has been opened (or the call has been abandoned) so that key
// material does not linger in memory.
func (s *SealState) Zero() {
	zero(&s.ephPubKey)
	zero(&s.requestKey)
	zero(&s.replyKey)
}

func zero(b *[KeySize]byte) {
	for i := range b {
		b[i] = 0
	}
}

// Envelope is the wire object carried in both directions.
type Envelope struct {
	V             int    `json:"v"`
	TokenClass    string `json:"token_class"`
	EphPubKeyB64  string `json:"eph_pubkey_b64"`
	NonceB64      string `json:"nonce_b64"`
	CiphertextB64 string `json:"ciphertext_b64"`
}

// wireAlias captures the encoding tolerances a peer implementation may use:
// "kem_pub_b64" in place of "eph_pubkey_b64", and "version" in place of "v".
type wireAlias struct {
	V             *int    `json:"v"`
	Version       *int    `json:"version"`
	TokenClass    string  `json:"token_class"`
	EphPubKeyB64  string  `json:"eph_pubkey_b64"`
	KemPubB64     string  `json:"kem_pub_b64"`
	NonceB64      string  `json:"nonce_b64"`
	CiphertextB64 string  `json:"ciphertext_b64"`
}

// MarshalJSON always emits "v" and "eph_pubkey_b64", per §3's emission rule.
func (e Envelope) MarshalJSON() ([]byte, error) {
	type alias Envelope
	return json.Marshal(alias(e))
}

// UnmarshalJSON accepts either spelling of the version and ephemeral-key
// fields.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w wireAlias
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch {
	case w.V != nil:
		e.V = *w.V
	case w.Version != nil:
		e.V = *w.Version
	default:
		e.V = 0
	}

	e.TokenClass = w.TokenClass
	e.NonceB64 = w.NonceB64
	e.CiphertextB64 = w.CiphertextB64

	if w.EphPubKeyB64 != "" {
		e.EphPubKeyB64 = w.EphPubKeyB64
	} else {
		e.EphPubKeyB64 = w.KemPubB64
	}

	return nil
}

// Seal pads payload, generates a fresh ephemeral X25519 keypair, derives
// direction-separated symmetric keys against gatewayPub, and returns the
// encrypted envelope plus the seal state needed to open the reply.
func Seal(payload any, class tokenclass.Class, gatewayPub GatewayPublicKey) (Envelope, *SealState, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, nil, gwerrs.Protocol(fmt.Sprintf("marshal payload: %v", err))
	}

	frame, err := padding.Pad(plaintext, class.RequestPaddedLen())
	if err != nil {
		return Envelope{}, nil, err
	}

	ephPriv, ephPub, err := generateEphemeralKeypair()
	if err != nil {
		return Envelope{}, nil, gwerrs.Crypto(fmt.Sprintf("generate ephemeral key: %v", err))
	}
	defer zero(&ephPriv)

	shared, err := computeSharedSecret(ephPriv, gatewayPub.raw)
	if err != nil {
		return Envelope{}, nil, gwerrs.Crypto("key agreement failed")
	}
	defer zero(&shared)

	state := &SealState{class: class, ephPubKey: ephPub}
	state.requestKey, state.replyKey, err = deriveDirectionKeys(shared, class.ID())
	if err != nil {
		return Envelope{}, nil, gwerrs.Crypto("key derivation failed")
	}

	nonce, ciphertext, err := aeadSeal(state.requestKey, frame, aad(class.ID(), directionRequest))
	if err != nil {
		return Envelope{}, nil, gwerrs.Crypto("encryption failed")
	}

	env := Envelope{
		V:             protocolVersion,
		TokenClass:    class.String(),
		EphPubKeyB64:  base64.StdEncoding.EncodeToString(ephPub[:]),
		NonceB64:      base64.StdEncoding.EncodeToString(nonce[:]),
		CiphertextB64: base64.StdEncoding.EncodeToString(ciphertext),
	}

	return env, state, nil
}

// Open validates and decrypts a reply envelope using the retained seal
// state, returning the decoded JSON plaintext. Every failure mode —
// authentication-tag mismatch, bad AAD, a mismatched echoed ephemeral key,
// a version mismatch, or a class mismatch — maps to a single CryptoError
// kind so the exact cause is never disclosed beyond a short reason string.
func Open(env Envelope, state *SealState) (json.RawMessage, error) {
	if env.V != protocolVersion {
		return nil, gwerrs.Crypto("unsupported protocol version")
	}

	class, err := tokenclass.Parse(env.TokenClass)
	if err != nil || !class.Equal(state.class) {
		return nil, gwerrs.Crypto("token class mismatch")
	}

	ephPub, err := decodeKey(env.EphPubKeyB64)
	if err != nil {
		return nil, gwerrs.Crypto("malformed eph_pubkey in response")
	}
	if ephPub != state.ephPubKey {
		return nil, gwerrs.Crypto("unexpected eph_pubkey in response")
	}

	nonce, err := base64.StdEncoding.DecodeString(env.NonceB64)
	if err != nil || len(nonce) != NonceSize {
		return nil, gwerrs.Crypto("malformed nonce in response")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.CiphertextB64)
	if err != nil {
		return nil, gwerrs.Crypto("malformed ciphertext in response")
	}

	var nonceArr [NonceSize]byte
	copy(nonceArr[:], nonce)

	frame, err := aeadOpen(state.replyKey, nonceArr, ciphertext, aad(class.ID(), directionResponse))
	if err != nil {
		return nil, gwerrs.Crypto("decryption failed")
	}

	plaintext, err := padding.Unpad(frame)
	if err != nil {
		return nil, gwerrs.Crypto("invalid padded frame")
	}

	if !json.Valid(plaintext) {
		return nil, gwerrs.Protocol("decrypted payload is not valid JSON")
	}

	return json.RawMessage(plaintext), nil
}

// aad builds the 3-byte additional authenticated data tuple [v, id, direction].
func aad(classID, direction int) []byte {
	return []byte{protocolVersion, byte(classID), byte(direction)}
}

func decodeKey(b64 string) ([KeySize]byte, error) {
	var out [KeySize]byte
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil || len(raw) != KeySize {
		return out, fmt.Errorf("expected %d raw bytes", KeySize)
	}
	copy(out[:], raw)
	return out, nil
}

// generateEphemeralKeypair produces a fresh clamped X25519 keypair.
func generateEphemeralKeypair() (priv, pub [KeySize]byte, err error) {
	if _, err = io.ReadFull(rand.Reader, priv[:]); err != nil {
		return priv, pub, err
	}
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64

	pubSlice, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return priv, pub, err
	}
	copy(pub[:], pubSlice)
	return priv, pub, nil
}

// computeSharedSecret performs X25519(priv, pub). A result length other
// than KeySize bytes is fatal.
func computeSharedSecret(priv, pub [KeySize]byte) ([KeySize]byte, error) {
	var out [KeySize]byte
	shared, err := curve25519.X25519(priv[:], pub[:])
	if err != nil {
		return out, err
	}
	if len(shared) != KeySize {
		return out, fmt.Errorf("unexpected shared secret length %d", len(shared))
	}
	copy(out[:], shared)
	return out, nil
}

// deriveDirectionKeys runs HKDF-SHA256 twice over the same shared secret,
// once per direction, with the size-class id mixed into the info parameter
// to prevent cross-class key confusion.
func deriveDirectionKeys(shared [KeySize]byte, classID int) (req, resp [KeySize]byte, err error) {
	salt := make([]byte, KeySize)

	reqInfo := append([]byte(hkdfInfoPrefix+"/req"), byte(classID))
	reader := hkdf.New(sha256.New, shared[:], salt, reqInfo)
	if _, err = io.ReadFull(reader, req[:]); err != nil {
		return req, resp, err
	}

	respInfo := append([]byte(hkdfInfoPrefix+"/resp"), byte(classID))
	reader = hkdf.New(sha256.New, shared[:], salt, respInfo)
	if _, err = io.ReadFull(reader, resp[:]); err != nil {
		return req, resp, err
	}

	return req, resp, nil
}

// aeadSeal encrypts plaintext under key with a fresh random nonce, returning
// the nonce and the ciphertext||tag.
func aeadSeal(key [KeySize]byte, plaintext, aad []byte) (nonce [NonceSize]byte, ciphertext []byte, err error) {
	if _, err = io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nonce, nil, err
	}

	aeadCipher, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nonce, nil, err
	}

	ciphertext = aeadCipher.Seal(nil, nonce[:], plaintext, aad)
	return nonce, ciphertext, nil
}

// aeadOpen decrypts ciphertext||tag under key and nonce, verifying aad.
func aeadOpen(key [KeySize]byte, nonce [NonceSize]byte, ciphertext, aad []byte) ([]byte, error) {
	aeadCipher, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	return aeadCipher.Open(nil, nonce[:], ciphertext, aad)
}
