package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// SignatureHeader is the header the provider signs webhook deliveries with.
const SignatureHeader = "Stripe-Signature"

// ErrInvalidSignature is the only verification failure mode. Events that fail
// verification are rejected and never stored.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ParseSecrets splits a comma-separated secret list, trimming whitespace and
// dropping empties. Multiple entries allow zero-downtime secret rotation.
func ParseSecrets(s string) []string {
	var secrets []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			secrets = append(secrets, trimmed)
		}
	}
	return secrets
}

// VerifyAndDecode validates the raw payload against the signature header using
// each candidate secret in order and decodes the event on the first match.
// Decoding happens only after a successful signature check; the raw bytes are
// untrusted until then.
func VerifyAndDecode(payload []byte, sigHeader string, secrets []string) (*Event, error) {
	timestamp, candidates, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, ErrInvalidSignature
	}

	signed := make([]byte, 0, len(timestamp)+1+len(payload))
	signed = append(signed, timestamp...)
	signed = append(signed, '.')
	signed = append(signed, payload...)

	for _, secret := range secrets {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(signed)
		expected := mac.Sum(nil)

		for _, candidate := range candidates {
			if hmac.Equal(expected, candidate) {
				ev, err := decodeEvent(payload)
				if err != nil {
					return nil, fmt.Errorf("failed to decode verified event: %w", err)
				}
				return ev, nil
			}
		}
	}

	return nil, ErrInvalidSignature
}

// parseSignatureHeader splits "t=<unix>,v1=<hex>[,v1=<hex>...]" into the
// timestamp and the decoded v1 signature candidates.
func parseSignatureHeader(header string) (string, [][]byte, error) {
	var timestamp string
	var candidates [][]byte

	for _, element := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(element), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			decoded, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			candidates = append(candidates, decoded)
		}
	}

	if timestamp == "" || len(candidates) == 0 {
		return "", nil, errors.New("malformed signature header")
	}
	return timestamp, candidates, nil
}
