package stellar

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base32"
	"encoding/binary"
	"fmt"
)

// Strkey version bytes, shifted so the first character of the encoded
// key is G (public) or S (secret).
const (
	versionPublic byte = 6 << 3
	versionSecret byte = 18 << 3
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Keypair holds an ed25519 signing key addressed by its strkey-encoded
// public half. The secret never leaves this type except through Secret(),
// which only the account registration path calls.
type Keypair struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// RandomKeypair generates a fresh ledger keypair.
func RandomKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating keypair: %w", err)
	}
	return &Keypair{pub: pub, priv: priv}, nil
}

// KeypairFromSecret rebuilds a keypair from an S... strkey seed.
func KeypairFromSecret(secret string) (*Keypair, error) {
	seed, err := decodeStrkey(versionSecret, secret)
	if err != nil {
		return nil, fmt.Errorf("decoding secret: %w", err)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Keypair{
		pub:  priv.Public().(ed25519.PublicKey),
		priv: priv,
	}, nil
}

// PublicKey returns the G... strkey address.
func (kp *Keypair) PublicKey() string {
	return encodeStrkey(versionPublic, kp.pub)
}

// Secret returns the S... strkey seed.
func (kp *Keypair) Secret() string {
	return encodeStrkey(versionSecret, kp.priv.Seed())
}

// Sign signs an arbitrary payload, typically a transaction hash.
func (kp *Keypair) Sign(payload []byte) []byte {
	return ed25519.Sign(kp.priv, payload)
}

// Verify reports whether sig is a valid signature of payload by this key.
func (kp *Keypair) Verify(payload, sig []byte) bool {
	return ed25519.Verify(kp.pub, payload, sig)
}

// DecodePublicKey validates a G... address and returns the raw key bytes.
func DecodePublicKey(address string) (ed25519.PublicKey, error) {
	raw, err := decodeStrkey(versionPublic, address)
	if err != nil {
		return nil, err
	}
	return ed25519.PublicKey(raw), nil
}

// IsValidAddress reports whether s is a well-formed G... address.
func IsValidAddress(s string) bool {
	_, err := decodeStrkey(versionPublic, s)
	return err == nil
}

func encodeStrkey(version byte, payload []byte) string {
	raw := make([]byte, 0, 1+len(payload)+2)
	raw = append(raw, version)
	raw = append(raw, payload...)
	crc := crc16(raw)
	raw = binary.LittleEndian.AppendUint16(raw, crc)
	return b32.EncodeToString(raw)
}

func decodeStrkey(version byte, s string) ([]byte, error) {
	raw, err := b32.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid strkey encoding: %w", err)
	}
	if len(raw) != 1+ed25519.SeedSize+2 {
		return nil, fmt.Errorf("invalid strkey length %d", len(raw))
	}
	if raw[0] != version {
		return nil, fmt.Errorf("unexpected strkey version byte %#x", raw[0])
	}
	body := raw[:len(raw)-2]
	want := binary.LittleEndian.Uint16(raw[len(raw)-2:])
	if crc16(body) != want {
		return nil, fmt.Errorf("strkey checksum mismatch")
	}
	out := make([]byte, len(body)-1)
	copy(out, body[1:])
	if bytes.Equal(out, make([]byte, len(out))) {
		return nil, fmt.Errorf("strkey payload is all zero")
	}
	return out, nil
}

// crc16 is the XModem variant used by strkey checksums.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
