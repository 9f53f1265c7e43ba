package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ConfirmationStatus is the state a watched transaction was last observed in.
// Confirmed, FailedOnChain, TimedOut and Cancelled are terminal.
type ConfirmationStatus int

const (
	StatusUnknown ConfirmationStatus = iota
	StatusPending
	StatusNotFound
	StatusLowCommitment
	StatusConfirmed
	StatusFailedOnChain
	StatusTimedOut
	StatusCancelled
)

var statusNames = map[ConfirmationStatus]string{
	StatusUnknown:       "unknown",
	StatusPending:       "pending",
	StatusNotFound:      "not_found",
	StatusLowCommitment: "low_commitment",
	StatusConfirmed:     "confirmed",
	StatusFailedOnChain: "failed_onchain",
	StatusTimedOut:      "timed_out",
	StatusCancelled:     "cancelled",
}

func (s ConfirmationStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further polling can change the status.
func (s ConfirmationStatus) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusFailedOnChain, StatusTimedOut, StatusCancelled:
		return true
	}
	return false
}

// ValidationConfig controls which dimensions of a payment are mandatory and
// how the waiter behaves. It is read-only once handed to a validate call.
type ValidationConfig struct {
	// StrictAmount requires exact base-unit equality. When false, a mismatch
	// within AmountTolerance passes; anything beyond it still fails.
	StrictAmount bool `json:"strictAmount"`

	// AmountTolerance is an absolute decimal tolerance applied only in
	// non-strict mode. Meant for token rounding edge cases, never for
	// excusing a shortfall.
	AmountTolerance decimal.Decimal `json:"amountTolerance"`

	// RequireMemo makes the memo dimension mandatory for overall validity.
	RequireMemo bool `json:"requireMemo"`

	// RequireReferences makes the references dimension mandatory.
	RequireReferences bool `json:"requireReferences"`

	// StrictReferenceOrder fails validation when expected references appear
	// out of request order among the transfer instruction's accounts.
	StrictReferenceOrder bool `json:"strictReferenceOrder"`

	// AllowExtraInstructions tolerates instructions beyond the expected
	// payment shape. When false they fail validation.
	AllowExtraInstructions bool `json:"allowExtraInstructions"`

	// MaxWait bounds the confirmation wait with a wall-clock deadline.
	MaxWait time.Duration `json:"maxWait"`

	// Commitment is the finality level a transaction must reach.
	Commitment Commitment `json:"commitment"`
}

// DefaultValidationConfig mirrors the protocol defaults: strict amounts,
// optional memo and references, extras tolerated, confirmed within a minute.
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		StrictAmount:           true,
		StrictReferenceOrder:   true,
		AllowExtraInstructions: true,
		MaxWait:                60 * time.Second,
		Commitment:             CommitmentConfirmed,
	}
}

// Validate checks the config for shape errors.
func (c *ValidationConfig) Validate() error {
	switch c.Commitment {
	case CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized:
	default:
		return &Error{Code: ErrConfig, Message: fmt.Sprintf("invalid commitment %q", c.Commitment)}
	}
	if c.MaxWait <= 0 {
		return &Error{Code: ErrConfig, Message: "maxWait must be positive"}
	}
	if c.AmountTolerance.IsNegative() {
		return &Error{Code: ErrConfig, Message: "amountTolerance must be non-negative"}
	}
	return nil
}

// ValidationResult reports, dimension by dimension, whether a confirmed
// transaction matches the original payment request. It is fully constructed
// by a single validate call and never mutated afterwards; re-validation
// produces a new result.
type ValidationResult struct {
	IsValid bool `json:"isValid"`

	RecipientMatch  bool `json:"recipientMatch"`
	AmountMatch     bool `json:"amountMatch"`
	MemoMatch       bool `json:"memoMatch"`
	ReferencesMatch bool `json:"referencesMatch"`
	TokenMatch      bool `json:"tokenMatch"`

	Status    ConfirmationStatus `json:"status"`
	Signature string             `json:"signature,omitempty"`

	// Errors holds one descriptive entry per failed mandatory dimension.
	// Warnings hold non-fatal anomalies.
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	BlockTime *time.Time `json:"blockTime,omitempty"`
	Slot      uint64     `json:"slot,omitempty"`
}

// Summary renders a short human-readable report.
func (r *ValidationResult) Summary() string {
	if r.IsValid {
		return fmt.Sprintf("payment valid (%s)", r.Status)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "payment invalid (%s)", r.Status)
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(r.Errors, "; "))
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, " [warnings: %s]", strings.Join(r.Warnings, "; "))
	}
	return b.String()
}
