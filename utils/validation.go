package utils

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

// ValidateJSON validates that a string is valid JSON
func ValidateJSON(data string) error {
	var js json.RawMessage
	return json.Unmarshal([]byte(data), &js)
}

// ValidateAmount checks if an amount string is a valid non-negative decimal
func ValidateAmount(amount string) (*decimal.Decimal, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	return &dec, nil
}

// ValidatePublicKey checks that a string is a base58 encoded 32-byte key
func ValidatePublicKey(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if len(address) < 32 || len(address) > 44 {
		return fmt.Errorf("address has invalid length")
	}

	raw, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("address must be valid base58: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("address must decode to 32 bytes, got %d", len(raw))
	}
	return nil
}

// ValidateSignature checks that a string is a base58 encoded 64-byte
// transaction signature
func ValidateSignature(signature string) error {
	if signature == "" {
		return fmt.Errorf("signature cannot be empty")
	}
	if len(signature) < 80 || len(signature) > 90 {
		return fmt.Errorf("signature has invalid length")
	}

	raw, err := base58.Decode(signature)
	if err != nil {
		return fmt.Errorf("signature must be valid base58: %w", err)
	}
	if len(raw) != 64 {
		return fmt.Errorf("signature must decode to 64 bytes, got %d", len(raw))
	}
	return nil
}

// ValidateEndpoint checks that an RPC endpoint is an http(s) URL
func ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint is missing a host")
	}
	return nil
}

// TruncateSignature shortens a signature for log output
func TruncateSignature(signature string) string {
	if len(signature) <= 16 {
		return signature
	}
	return signature[:8] + "..." + signature[len(signature)-8:]
}

// JoinNonEmpty joins the non-empty strings with a separator
func JoinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
