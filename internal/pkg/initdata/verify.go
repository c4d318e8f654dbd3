package initdata

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidHash      = errors.New("init data hash mismatch")
	ErrInvalidSignature = errors.New("init data signature mismatch")
	ErrExpired          = errors.New("init data expired")
)

// Telegram's Ed25519 public keys, hex-encoded.
const (
	TelegramPublicKey     = "e7bf03a2fa4602af4580703d88dda5bb59f32ed8b02a56c187fe7d34caed242d"
	TelegramTestPublicKey = "40055058a4ee38156a06562e52eece92a771bcd8346a8c4615cb7376eddf72ec"
)

// Verifier checks init data payloads against the bot-token-derived
// HMAC key and Telegram's Ed25519 public key. It is immutable after
// construction and safe for concurrent use.
type Verifier struct {
	secretKey []byte
	botID     string
	publicKey ed25519.PublicKey
	maxAge    time.Duration
}

func NewVerifier(botToken string, publicKeyHex string, maxAge time.Duration) (*Verifier, error) {
	if botToken == "" {
		return nil, errors.New("bot token is required")
	}

	publicKey, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid public key hex: %w", err)
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key length: %d", len(publicKey))
	}

	// The HMAC key is HMAC-SHA256 keyed with "WebAppData" over the
	// raw bot token, per Telegram's web-app validation scheme.
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))

	botID, _, _ := strings.Cut(botToken, ":")

	return &Verifier{
		secretKey: mac.Sum(nil),
		botID:     botID,
		publicKey: ed25519.PublicKey(publicKey),
		maxAge:    maxAge,
	}, nil
}

// Verify runs the freshness window, the HMAC digest check and, when a
// signature is present, the Ed25519 check. All checks must pass; the
// first failure aborts the attempt.
func (v *Verifier) Verify(d *InitData, now time.Time) error {
	if now.Sub(d.AuthDate) > v.maxAge {
		return ErrExpired
	}

	checkString := d.CheckString()

	if err := v.verifyHash(checkString, d.Hash); err != nil {
		return err
	}

	if d.Signature != "" {
		if err := v.verifySignature(checkString, d.Signature); err != nil {
			return err
		}
	}

	return nil
}

func (v *Verifier) verifyHash(checkString string, receivedHex string) error {
	received, err := hex.DecodeString(receivedHex)
	if err != nil {
		return ErrInvalidHash
	}

	mac := hmac.New(sha256.New, v.secretKey)
	mac.Write([]byte(checkString))

	// hmac.Equal compares in constant time.
	if !hmac.Equal(mac.Sum(nil), received) {
		return ErrInvalidHash
	}

	return nil
}

func (v *Verifier) verifySignature(checkString string, signature string) error {
	raw, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}
	if len(raw) != ed25519.SignatureSize {
		return ErrInvalidSignature
	}

	// Ed25519 signs a prefixed variant of the check string.
	message := v.botID + ":WebAppData\n" + checkString

	if !ed25519.Verify(v.publicKey, []byte(message), raw) {
		return ErrInvalidSignature
	}

	return nil
}
