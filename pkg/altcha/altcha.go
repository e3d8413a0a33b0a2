// Package altcha mints and verifies stateless proof-of-work challenges.
//
// A challenge is the hash of a salt concatenated with a secret number the
// server picks and forgets. The client brute-forces the number and sends it
// back together with the challenge, salt and an HMAC signature the server
// produced when minting, so verification needs nothing but the shared secret.
package altcha

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultAlgorithm = "SHA-256"
	DefaultMaxNumber = 1_000_000
	DefaultTTL       = 5 * time.Minute
	DefaultMaxSkew   = 5 * time.Second

	saltSeparator = "?"
)

var (
	ErrNoSecret             = errors.New("altcha: secret is empty")
	ErrUnsupportedAlgorithm = errors.New("altcha: unsupported algorithm")
)

// Challenge is what gets handed to the browser widget.
type Challenge struct {
	Algorithm string `json:"algorithm"`
	Challenge string `json:"challenge"`
	Salt      string `json:"salt"`
	Signature string `json:"signature"`
}

// Payload is the solved challenge the widget posts back, base64 encoded.
type Payload struct {
	Algorithm *string  `json:"algorithm"`
	Challenge *string  `json:"challenge"`
	Number    *float64 `json:"number"`
	Salt      *string  `json:"salt"`
	Signature *string  `json:"signature"`

	// Widget metadata, never checked.
	Test json.RawMessage `json:"test,omitempty"`
	Took json.RawMessage `json:"took,omitempty"`
}

type Options struct {
	Algorithm string
	TTL       time.Duration
	MaxNumber int64

	// Now is overridable for tests.
	Now func() time.Time
}

type VerifyOptions struct {
	MaxSkew time.Duration
	Now     func() time.Time
}

func newHash(algorithm string) (func() hash.Hash, error) {
	switch strings.ReplaceAll(strings.ToUpper(algorithm), "-", "") {
	case "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
}

func hashValue(algorithm, value string) (string, error) {
	mk, err := newHash(algorithm)
	if err != nil {
		return "", err
	}

	h := mk()
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sign(secret, challenge, salt string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(challenge + ":" + salt))
	return hex.EncodeToString(mac.Sum(nil))
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Mint creates a new signed challenge. The solution number is not part of
// the result.
func Mint(secret string, opts Options) (*Challenge, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}

	if opts.Algorithm == "" {
		opts.Algorithm = DefaultAlgorithm
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxNumber <= 0 {
		opts.MaxNumber = DefaultMaxNumber
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	entropy := make([]byte, 16)
	if _, err := rand.Read(entropy); err != nil {
		return nil, fmt.Errorf("altcha: can't read entropy: %w", err)
	}

	expiresAt := opts.Now().Add(opts.TTL).UnixMilli() / 1000
	salt := fmt.Sprintf("%s%sexpires=%d", hex.EncodeToString(entropy), saltSeparator, expiresAt)

	number, err := rand.Int(rand.Reader, big.NewInt(opts.MaxNumber))
	if err != nil {
		return nil, fmt.Errorf("altcha: can't pick number: %w", err)
	}

	challenge, err := hashValue(opts.Algorithm, salt+number.String())
	if err != nil {
		return nil, err
	}

	return &Challenge{
		Algorithm: opts.Algorithm,
		Challenge: challenge,
		Salt:      salt,
		Signature: sign(secret, challenge, salt),
	}, nil
}

func parsePayload(raw string) (*Payload, bool) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, false
	}

	var p Payload
	if err := json.Unmarshal(decoded, &p); err != nil {
		return nil, false
	}

	if p.Algorithm == nil || p.Challenge == nil || p.Salt == nil || p.Signature == nil || p.Number == nil {
		return nil, false
	}

	return &p, true
}

// expiresFromSalt reads the expiry timestamp embedded after the salt
// separator. Zero means absent or unusable.
func expiresFromSalt(salt string) int64 {
	parts := strings.Split(salt, saltSeparator)
	if len(parts) < 2 || parts[1] == "" {
		return 0
	}
	query := parts[1]

	params, err := url.ParseQuery(query)
	if err != nil {
		return 0
	}

	value := params.Get("expires")
	if value == "" {
		value = params.Get("expire")
	}

	expires, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}

	return int64(expires)
}

func safeEqual(expected, actual string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}

// Verify reports whether payload is a solved, unexpired challenge signed
// with secret. It never distinguishes between the reasons a payload fails.
func Verify(payload, secret string, opts VerifyOptions) bool {
	ok, _ := verify(payload, secret, opts)
	return ok
}

func verify(payload, secret string, opts VerifyOptions) (bool, *Payload) {
	if opts.MaxSkew == 0 {
		opts.MaxSkew = DefaultMaxSkew
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	p, ok := parsePayload(payload)
	if !ok {
		return false, nil
	}

	algorithm := strings.ToUpper(*p.Algorithm)
	if algorithm != DefaultAlgorithm {
		return false, nil
	}

	expires := expiresFromSalt(*p.Salt)
	if expires == 0 {
		return false, nil
	}

	if expires+int64(opts.MaxSkew/time.Second) < opts.Now().Unix() {
		return false, nil
	}

	expectedChallenge, err := hashValue(algorithm, *p.Salt+formatNumber(*p.Number))
	if err != nil || !safeEqual(expectedChallenge, *p.Challenge) {
		return false, nil
	}

	if !safeEqual(sign(secret, *p.Challenge, *p.Salt), *p.Signature) {
		return false, nil
	}

	return true, p
}

// ExpiresAt returns the expiry embedded in a salt.
func ExpiresAt(salt string) time.Time {
	return time.Unix(expiresFromSalt(salt), 0)
}
