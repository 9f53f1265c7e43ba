package types

import (
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

// PaymentRequest is the caller-supplied description of an intended payment.
// It mirrors the fields of a Solana Pay transfer request: who gets paid, how
// much, in which token, and the bookkeeping extras (references, memo).
//
// Label and Message are display-only and never placed on-chain. Memo is
// placed on-chain verbatim. References are attached to the transfer
// instruction in order; that order is significant end-to-end.
type PaymentRequest struct {
	// Recipient is the base58 public key of the payment recipient.
	Recipient string `json:"recipient" validate:"required"`

	// Amount is the human decimal amount. Nil means an open-ended payment
	// with no fixed amount.
	Amount *decimal.Decimal `json:"amount,omitempty"`

	// SplToken is the mint address for SPL token transfers. Empty means
	// native SOL.
	SplToken string `json:"splToken,omitempty"`

	// References are tracking keys attached to the transfer instruction as
	// read-only, non-signer accounts.
	References []string `json:"references,omitempty"`

	Label   string `json:"label,omitempty"`
	Message string `json:"message,omitempty"`
	Memo    string `json:"memo,omitempty"`
}

// Validate checks the request for shape errors. It never touches the network.
func (r *PaymentRequest) Validate() error {
	if r.Recipient == "" {
		return &Error{Code: ErrInvalidRequest, Message: "recipient is required"}
	}
	if err := checkBase58Pubkey(r.Recipient); err != nil {
		return &Error{Code: ErrInvalidRequest, Message: fmt.Sprintf("recipient: %v", err)}
	}
	if r.Amount != nil && r.Amount.IsNegative() {
		return &Error{Code: ErrInvalidRequest, Message: "amount must be non-negative"}
	}
	if r.SplToken != "" {
		if err := checkBase58Pubkey(r.SplToken); err != nil {
			return &Error{Code: ErrInvalidRequest, Message: fmt.Sprintf("splToken: %v", err)}
		}
	}
	for i, ref := range r.References {
		if err := checkBase58Pubkey(ref); err != nil {
			return &Error{Code: ErrInvalidRequest, Message: fmt.Sprintf("references[%d]: %v", i, err)}
		}
	}
	return nil
}

func checkBase58Pubkey(s string) error {
	if l := len(s); l < 32 || l > 44 {
		return fmt.Errorf("invalid public key length: %q", s)
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid base58 public key %q: %w", s, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("public key %q decodes to %d bytes, want 32", s, len(raw))
	}
	return nil
}

func (r *PaymentRequest) String() string {
	parts := []string{"recipient=" + r.Recipient}
	if r.Amount != nil {
		parts = append(parts, "amount="+r.Amount.String())
	}
	if r.SplToken != "" {
		parts = append(parts, "splToken="+r.SplToken)
	}
	if len(r.References) > 0 {
		parts = append(parts, fmt.Sprintf("references=%d", len(r.References)))
	}
	if r.Memo != "" {
		parts = append(parts, "memo="+r.Memo)
	}
	return "PaymentRequest(" + strings.Join(parts, ", ") + ")"
}
